package logsvc

import (
	"bytes"
	"context"
	"log"
	"strings"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/ratiba/core"
)

func TestRollbarLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewRollbarLogger(log.New(&buf, "TEST : ", 0), &core.Config{Env: "TEST"})
	logger.Enable(false)

	p := core.Principal{UserID: "u-1", TenantID: "t-1", Email: "ada@example.com", Name: "Ada"}
	logger.Error("creating lesson 3/5: boom", errors.New("boom"), map[string]interface{}{"batch": "b-1"}, p)

	out := buf.String()
	assert.Contains(t, out, "TEST : creating lesson 3/5: boom\n")
	assert.Contains(t, out, "map[batch:b-1]")
	assert.NotContains(t, out, "ada@example.com")
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("boom\n")))
}

func TestRollbarLogger_prepare(t *testing.T) {
	logger := NewRollbarLogger(log.New(&bytes.Buffer{}, "", 0), &core.Config{Env: "TEST"})
	p := core.Principal{UserID: "u-1", Email: "ada@example.com", Name: "Ada"}
	extras := map[string]interface{}{"batch": "b-1"}

	tests := []struct {
		name        string
		args        []interface{}
		wantContext bool
		wantPrinted int
	}{
		{name: "no principal", args: []interface{}{extras}, wantPrinted: 1},
		{name: "principal", args: []interface{}{extras, p}, wantContext: true, wantPrinted: 1},
		{name: "two principals", args: []interface{}{p, p}, wantContext: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rArgs, printed := logger.prepare("msg", tt.args)
			assert.Equal(t, "msg", rArgs[0])
			assert.Len(t, printed, tt.wantPrinted)

			var contexts int
			for _, arg := range rArgs {
				if _, ok := arg.(context.Context); ok {
					contexts++
				}
				_, isPrincipal := arg.(core.Principal)
				assert.False(t, isPrincipal)
			}
			if tt.wantContext {
				assert.Equal(t, 1, contexts)
			} else {
				assert.Zero(t, contexts)
			}
		})
	}
}

func TestRollbarLogger_concurrent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewRollbarLogger(log.New(&buf, "", 0), &core.Config{Env: "TEST"})
	logger.Enable(false)

	p := core.Principal{UserID: "u-1", Email: "ada@example.com", Name: "Ada"}
	const workers, calls = 8, 200

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < calls; i++ {
				if (w+i)%2 == 0 {
					logger.Warn("reconciling", p)
				} else {
					logger.Warn("reconciling")
				}
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, workers*calls, strings.Count(buf.String(), "reconciling\n"))
}
