package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/lesson"
	"github.com/trezcool/ratiba/storage/database"
)

// PrepareDB opens a migrated, empty test database. Tests are skipped unless ENV=TEST.
func PrepareDB(t *testing.T) *sql.DB {
	t.Helper()

	conf := core.NewConfig()
	if !conf.TestMode {
		t.Skip("database tests only run with ENV=TEST")
	}
	if err := database.CreateIfNotExist(conf); err != nil {
		t.Fatalf("PrepareDB(): %v", err)
	}
	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("PrepareDB(): %v", err)
	}
	if err = database.Migrate(db, "up"); err != nil {
		t.Fatalf("PrepareDB(): %v", err)
	}

	ResetDB(t, db)
	t.Cleanup(func() {
		ResetDB(t, db)
		_ = db.Close()
	})
	return db
}

func ResetDB(t *testing.T, db *sql.DB) {
	t.Helper()
	if _, err := db.Exec(`TRUNCATE provisioning_intents, lessons, lesson_batches, courses CASCADE`); err != nil {
		t.Fatalf("ResetDB(): %v", err)
	}
}

func CreateCourse(t *testing.T, repo lesson.CourseRepository, tenantID, name string, id ...string) lesson.Course {
	t.Helper()
	crs := lesson.Course{
		TenantID:  tenantID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if len(id) > 0 {
		crs.ID = id[0]
	}
	crs, err := repo.CreateCourse(context.Background(), crs)
	if err != nil {
		t.Fatalf("CreateCourse(): %v", err)
	}
	return crs
}
