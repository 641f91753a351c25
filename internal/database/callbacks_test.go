package database

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type recordedQuery struct {
	operation string
	table     string
	failed    bool
}

type captureRecorder struct {
	mu      sync.Mutex
	queries []recordedQuery
}

func (r *captureRecorder) RecordDBQuery(operation, table string, duration time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, recordedQuery{operation: operation, table: table, failed: err != nil})
}

func (r *captureRecorder) byOperation(operation string) []recordedQuery {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []recordedQuery
	for _, q := range r.queries {
		if q.operation == operation {
			out = append(out, q)
		}
	}
	return out
}

type callbackRecord struct {
	ID   uint   `gorm:"primarykey"`
	Name string `gorm:"size:64"`
}

func setupCallbackDB(t *testing.T) (*gorm.DB, *captureRecorder) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&callbackRecord{}))

	recorder := &captureRecorder{}
	RegisterMetricsCallbacks(db, recorder)
	return db, recorder
}

func TestRegisterMetricsCallbacks_RecordsCRUD(t *testing.T) {
	db, recorder := setupCallbackDB(t)

	record := &callbackRecord{Name: "one"}
	require.NoError(t, db.Create(record).Error)

	var loaded callbackRecord
	require.NoError(t, db.First(&loaded, record.ID).Error)

	require.NoError(t, db.Model(&loaded).Update("name", "two").Error)
	require.NoError(t, db.Delete(&loaded).Error)

	assert.Len(t, recorder.byOperation("insert"), 1)
	assert.NotEmpty(t, recorder.byOperation("select"))
	assert.Len(t, recorder.byOperation("update"), 1)
	assert.Len(t, recorder.byOperation("delete"), 1)

	inserts := recorder.byOperation("insert")
	assert.Equal(t, "callback_records", inserts[0].table)
	assert.False(t, inserts[0].failed)
}

func TestRegisterMetricsCallbacks_MarksFailedQueries(t *testing.T) {
	db, recorder := setupCallbackDB(t)

	var missing callbackRecord
	err := db.First(&missing, 12345).Error
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	selects := recorder.byOperation("select")
	require.NotEmpty(t, selects)
	assert.True(t, selects[len(selects)-1].failed)
}
