package dummydb

import (
	"context"
	"sync"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/lesson"
)

type (
	// DB is a process-local store backing the API and admin CLI tests.
	DB struct {
		lesson    *lessonTable
		course    *courseTable
		batch     *batchTable
		provision *provisionTable
	}

	lessonTable struct {
		sync.RWMutex
		table map[string]*lesson.Lesson
	}

	courseTable struct {
		sync.RWMutex
		table map[string]*lesson.Course
	}

	batchTable struct {
		sync.RWMutex
		table map[string]*lesson.Batch
	}

	provisionTable struct {
		sync.RWMutex
		table map[string]*lesson.ProvisionIntent
	}
)

func Open() (*DB, error) {
	db := &DB{
		lesson:    &lessonTable{table: make(map[string]*lesson.Lesson)},
		course:    &courseTable{table: make(map[string]*lesson.Course)},
		batch:     &batchTable{table: make(map[string]*lesson.Batch)},
		provision: &provisionTable{table: make(map[string]*lesson.ProvisionIntent)},
	}
	return db, nil
}

type txRunner struct{}

var _ core.TxRunner = txRunner{} // interface compliance check

// NewTxRunner returns a TxRunner without rollback support: writes made before fn fails are kept.
func NewTxRunner() core.TxRunner {
	return txRunner{}
}

func (txRunner) RunInTx(_ context.Context, fn func(exec core.DBExecutor) error) error {
	return fn(nil)
}
