package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/trezcool/ratiba/core/lesson"
	"github.com/trezcool/ratiba/storage/database"
)

var (
	migrateFunc    = database.Migrate // mockable
	isTerminalFunc = func() bool { return term.IsTerminal(int(os.Stdout.Fd())) }

	errHelp = errors.New("help provided")
)

type reconciler interface {
	Reconcile(ctx context.Context) (lesson.ReconcileReport, error)
}

type commandLine struct {
	db         *sql.DB
	courses    lesson.CourseRepository
	reconciler reconciler
	out        io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command (up, down, status, ...) against the database")
	fmt.Fprintln(cli.out, "  reconcile - delete meetings and rooms left behind by failed batches")
	fmt.Fprintln(cli.out, "  addcourse -tenant ID -name NAME [-id ID] - register a course")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addCourseCmd := flag.NewFlagSet("addcourse", flag.ContinueOnError)
	addCourseCmd.SetOutput(cli.out)
	addCourseTenant := addCourseCmd.String("tenant", "", "The owning tenant's ID.")
	addCourseName := addCourseCmd.String("name", "", "The course's display name.")
	addCourseID := addCourseCmd.String("id", "", "The course ID; generated if empty.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "reconcile":
		return cli.reconcile(context.Background())
	case "addcourse":
		if err := addCourseCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addCourseTenant == "" || *addCourseName == "" {
			addCourseCmd.Usage()
			return errHelp
		}
		return cli.addCourse(context.Background(), *addCourseTenant, *addCourseName, *addCourseID)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) migrate(args []string) error {
	return migrateFunc(cli.db, args[0], args[1:]...)
}
