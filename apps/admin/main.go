package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/lesson"
	dailysvc "github.com/trezcool/ratiba/services/daily"
	logsvc "github.com/trezcool/ratiba/services/logger"
	zoomsvc "github.com/trezcool/ratiba/services/zoom"
	"github.com/trezcool/ratiba/storage/database"
	boiledrepos "github.com/trezcool/ratiba/storage/database/sqlboiler"
	sqlxrepos "github.com/trezcool/ratiba/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}

	ctx := context.Background()
	var meetings lesson.MeetingProvider
	if zoomsvc.Configured(conf.Zoom) {
		meetings = zoomsvc.NewClient(ctx, conf.Zoom)
	}
	var rooms lesson.RoomProvider
	if dailysvc.Configured(conf.Daily) {
		rooms = dailysvc.NewClient(ctx, conf.Daily)
	}

	// start CLI
	cli := commandLine{
		db:         db,
		courses:    sqlxrepos.NewCourseRepository(db),
		reconciler: lesson.NewReconciler(boiledrepos.NewProvisionRepository(db), meetings, rooms, logger, conf.Reconcile.PendingAge),
		out:        os.Stdout,
	}
	err = cli.run(os.Args)
	if cErr := db.Close(); cErr != nil {
		logger.Error("Failed to close database", cErr)
	}
	if err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %v", err), err)
		}
		os.Exit(1)
	}
}
