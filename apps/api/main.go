package main

import (
	"context"
	"database/sql"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	echoapi "github.com/trezcool/ratiba/apps/api/echo"
	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/lesson"
	dailysvc "github.com/trezcool/ratiba/services/daily"
	emailsvc "github.com/trezcool/ratiba/services/email"
	logsvc "github.com/trezcool/ratiba/services/logger"
	zoomsvc "github.com/trezcool/ratiba/services/zoom"
	"github.com/trezcool/ratiba/storage/database"
	boiledrepos "github.com/trezcool/ratiba/storage/database/sqlboiler"
	sqlxrepos "github.com/trezcool/ratiba/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// an unconfigured provider stays a nil interface: the service rejects batches requesting it
	var meetings lesson.MeetingProvider
	if zoomsvc.Configured(conf.Zoom) {
		meetings = zoomsvc.NewClient(ctx, conf.Zoom)
	} else {
		logger.Warn("Zoom is not configured: Zoom meetings are disabled")
	}
	var rooms lesson.RoomProvider
	if dailysvc.Configured(conf.Daily) {
		rooms = dailysvc.NewClient(ctx, conf.Daily)
	} else {
		logger.Warn("Daily is not configured: Daily rooms are disabled")
	}

	provisions := boiledrepos.NewProvisionRepository(db)
	lessonSvc := lesson.NewService(lesson.ServiceDeps{
		Repo:       sqlxrepos.NewLessonRepository(db),
		Courses:    sqlxrepos.NewCourseRepository(db),
		Batches:    sqlxrepos.NewBatchRepository(db),
		Provisions: provisions,
		Tx:         database.NewTxRunner(db),
		Meetings:   meetings,
		Rooms:      rooms,
		MailSvc:    mailSvc,
		Logger:     logger,
		Locale:     conf.Locale,
		RoomExpiry: conf.Daily.RoomExpiry,
	})

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	lesson.InitValidators(validate, translator)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			LessonSvc:  lessonSvc,
			Validate:   validate,
			Translator: translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Start Reconciler

	if conf.Reconcile.Interval > 0 {
		reconciler := lesson.NewReconciler(provisions, meetings, rooms, logger, conf.Reconcile.PendingAge)
		go reconciler.Run(ctx, conf.Reconcile.Interval)
	}

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))
		cancel() // stops the reconciler

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sql.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db, "up"); err != nil {
		return nil, err
	}
	return db, nil
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
