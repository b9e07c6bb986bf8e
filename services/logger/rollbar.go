package logsvc

import (
	"context"
	"log"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/ratiba/core"
)

// RollbarLogger reports to Rollbar and mirrors every entry on a std logger.
type RollbarLogger struct {
	std *log.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{std: std}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// expected fmt: msg | error, map[string]interface{}, core.Principal
// The principal travels with the event in a person context; the shared client is never mutated.
func (l RollbarLogger) prepare(msg string, args []interface{}) ([]interface{}, []interface{}) {
	var personSet bool
	newArgs := make([]interface{}, 0, len(args)+1)
	newArgs = append(newArgs, msg)
	printed := make([]interface{}, 0, len(args))
	for _, arg := range args {
		if p, ok := arg.(core.Principal); ok {
			if !personSet { // only set one Person
				newArgs = append(newArgs, rollbar.NewPersonContext(context.Background(), &rollbar.Person{
					Id:       p.UserID,
					Username: p.Name,
					Email:    p.Email,
				}))
				personSet = true
			}
			continue
		}
		newArgs = append(newArgs, arg)
		printed = append(printed, arg)
	}
	return newArgs, printed
}

func (l RollbarLogger) print(msg string, args []interface{}) {
	l.std.Println(msg)
	for _, arg := range args {
		if _, isErr := arg.(error); isErr {
			// the message already carries the error
			continue
		}
		l.std.Printf("%+v\n", arg)
	}
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	rArgs, printed := l.prepare(msg, args)
	rollbar.Debug(rArgs...)
	l.print(msg, printed)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	rArgs, printed := l.prepare(msg, args)
	rollbar.Info(rArgs...)
	l.print(msg, printed)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	rArgs, printed := l.prepare(msg, args)
	rollbar.Warning(rArgs...)
	l.print(msg, printed)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	rArgs, printed := l.prepare(msg, args)
	rollbar.Error(rArgs...)
	l.print(msg, printed)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	rArgs, printed := l.prepare(msg, args)
	rollbar.Critical(rArgs...)
	l.print(msg, printed)
	l.std.Fatal(msg)
}
