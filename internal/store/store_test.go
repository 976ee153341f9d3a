package store

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"chemviz-backend/internal/model"
	"chemviz-backend/internal/parse"
	"chemviz-backend/internal/retention"
	"chemviz-backend/internal/stats"
	"chemviz-backend/internal/testutil"
)

// A helper function to create a mock database connection.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

var baseTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newSQLiteStore(t *testing.T) Store {
	return NewGormStore(testutil.NewDB(t), WithClock(testutil.Clock(baseTime, time.Minute)), WithBatchSize(2))
}

var sampleRows = []parse.Row{
	{EquipmentName: "Pump-1", Type: "Pump", Flowrate: 100, Pressure: 5, Temperature: 110},
	{EquipmentName: "Valve-1", Type: "Valve", Flowrate: 50, Pressure: 4, Temperature: 100},
	{EquipmentName: "Pump-2", Type: "Pump", Flowrate: 150, Pressure: 6, Temperature: 120},
}

// writeDataset mirrors the service's write sequence.
func writeDataset(s Store, filename string, rows []parse.Row, limit int) (*model.Dataset, []string, error) {
	ctx := context.Background()
	var ds *model.Dataset
	var evicted []string
	err := s.WithinWriteTx(ctx, func(w Writer) error {
		var err error
		ds, err = w.CreateDataset(ctx, filename)
		if err != nil {
			return err
		}
		if err := w.BulkInsertRecords(ctx, ds.ID, rows); err != nil {
			return err
		}
		if err := w.WriteAggregates(ctx, ds.ID, stats.ComputeDatasetStats(rows)); err != nil {
			return err
		}
		evicted, err = retention.Enforce(ctx, w, limit)
		return err
	})
	return ds, evicted, err
}

func ingest(t *testing.T, s Store, filename string, rows []parse.Row, limit int) (*model.Dataset, []string) {
	t.Helper()
	ds, evicted, err := writeDataset(s, filename, rows, limit)
	require.NoError(t, err)
	return ds, evicted
}

func TestGormStore_CommitAndGet(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	created, evicted := ingest(t, s, "plant.csv", sampleRows, 5)
	assert.Empty(t, evicted)
	assert.Len(t, created.ID, 36)
	assert.Equal(t, int64(1), created.Seq)

	got, err := s.GetDataset(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "plant.csv", got.Filename)
	assert.Equal(t, 3, got.TotalRecords)
	assert.InDelta(t, 100.0, got.AvgFlowrate, 1e-9)
	assert.InDelta(t, 5.0, got.AvgPressure, 1e-9)
	assert.InDelta(t, 110.0, got.AvgTemperature, 1e-9)
	assert.True(t, baseTime.Equal(got.UploadedAt))

	require.Len(t, got.Records, 3)
	for i, r := range got.Records {
		assert.Equal(t, sampleRows[i].EquipmentName, r.EquipmentName, "records keep insertion order")
		assert.Equal(t, created.ID, r.DatasetID)
	}
}

func TestGormStore_EmptyDataset(t *testing.T) {
	s := newSQLiteStore(t)

	created, _ := ingest(t, s, "empty.csv", nil, 5)

	got, err := s.GetDataset(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.TotalRecords)
	assert.Equal(t, 0.0, got.AvgFlowrate)
	assert.NotNil(t, got.Records)
	assert.Empty(t, got.Records)
}

func TestGormStore_RollbackLeavesNothing(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithinWriteTx(ctx, func(w Writer) error {
		ds, err := w.CreateDataset(ctx, "half.csv")
		require.NoError(t, err)
		require.NoError(t, w.BulkInsertRecords(ctx, ds.ID, sampleRows))
		return boom
	})
	require.Error(t, err)

	datasets, err := s.ListDatasets(ctx)
	require.NoError(t, err)
	assert.Empty(t, datasets)

	var records int64
	require.NoError(t, s.DB().Model(&model.EquipmentRecord{}).Count(&records).Error)
	assert.Zero(t, records)
}

func TestGormStore_RetentionKeepsMostRecent(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	var ids []string
	for i := 1; i <= 7; i++ {
		ds, _ := ingest(t, s, "d.csv", sampleRows, 5)
		ids = append(ids, ds.ID)
	}

	datasets, err := s.ListDatasets(ctx)
	require.NoError(t, err)
	require.Len(t, datasets, 5)
	for i, ds := range datasets {
		assert.Equal(t, ids[6-i], ds.ID, "most recent first")
	}

	for _, evicted := range ids[:2] {
		_, err := s.GetDataset(ctx, evicted)
		assert.ErrorIs(t, err, ErrNotFound)
	}

	var orphans int64
	require.NoError(t, s.DB().Model(&model.EquipmentRecord{}).
		Where("dataset_id IN ?", ids[:2]).Count(&orphans).Error)
	assert.Zero(t, orphans)
}

func TestGormStore_ConcurrentWritersRespectLimit(t *testing.T) {
	s := newSQLiteStore(t)

	var wg sync.WaitGroup
	errs := make(chan error, 12)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := writeDataset(s, "c.csv", sampleRows[:1], 5)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var count int64
	require.NoError(t, s.DB().Model(&model.Dataset{}).Count(&count).Error)
	assert.Equal(t, int64(5), count)

	var records int64
	require.NoError(t, s.DB().Model(&model.EquipmentRecord{}).Count(&records).Error)
	assert.Equal(t, int64(5), records)
}

func TestGormStore_LatestDataset(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	_, err := s.LatestDataset(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	ingest(t, s, "first.csv", sampleRows, 5)
	second, _ := ingest(t, s, "second.csv", sampleRows, 5)

	latest, err := s.LatestDataset(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
	assert.Empty(t, latest.Records)
}

func TestGormStore_LatestDataset_TimestampTie(t *testing.T) {
	gormDB := testutil.NewDB(t)
	s := NewGormStore(gormDB, WithClock(func() time.Time { return baseTime }))

	ingest(t, s, "a.csv", nil, 5)
	b, _ := ingest(t, s, "b.csv", nil, 5)

	latest, err := s.LatestDataset(context.Background())
	require.NoError(t, err)
	assert.Equal(t, b.ID, latest.ID)
}

func TestGormStore_DeleteDataset(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	ds, _ := ingest(t, s, "x.csv", sampleRows, 5)

	assert.ErrorIs(t, s.DeleteDataset(ctx, "does-not-exist"), ErrNotFound)
	require.NoError(t, s.DeleteDataset(ctx, ds.ID))

	_, err := s.GetDataset(ctx, ds.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	var records int64
	require.NoError(t, s.DB().Model(&model.EquipmentRecord{}).Count(&records).Error)
	assert.Zero(t, records)
}

func TestGormStore_Subscriptions(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertSubscription(ctx, &model.PushSubscription{Endpoint: "https://push/1", P256DH: "k1", Auth: "a1"}))
	require.NoError(t, s.UpsertSubscription(ctx, &model.PushSubscription{Endpoint: "https://push/1", P256DH: "k2", Auth: "a2"}))

	sub, err := s.GetSubscription(ctx, "https://push/1")
	require.NoError(t, err)
	assert.Equal(t, "k2", sub.P256DH)

	subs, err := s.ListSubscriptions(ctx)
	require.NoError(t, err)
	assert.Len(t, subs, 1)

	require.NoError(t, s.DeleteSubscription(ctx, "https://push/1"))
	_, err = s.GetSubscription(ctx, "https://push/1")
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)
}

func TestGormStore_WithinWriteTx_InsertFailureRollsBack(t *testing.T) {
	gormDB, mock := newMockDB(t)
	s := NewGormStore(gormDB, WithClock(func() time.Time { return baseTime }))

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`SELECT pg_advisory_xact_lock($1)`)).
		WithArgs(ingestLockKey).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE(MAX(seq), 0) FROM "datasets"`)).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(4))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "datasets"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "equipment_records"`)).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	ctx := context.Background()
	err := s.WithinWriteTx(ctx, func(w Writer) error {
		ds, err := w.CreateDataset(ctx, "plant.csv")
		if err != nil {
			return err
		}
		assert.Equal(t, int64(5), ds.Seq)
		return w.BulkInsertRecords(ctx, ds.ID, sampleRows)
	})

	var se *StorageError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Op, "insert 3 records")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_WithinWriteTx_LockFailure(t *testing.T) {
	gormDB, mock := newMockDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`SELECT pg_advisory_xact_lock($1)`)).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	called := false
	err := s.WithinWriteTx(context.Background(), func(w Writer) error {
		called = true
		return nil
	})

	var se *StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "acquire ingest lock", se.Op)
	assert.False(t, called)
	assert.NoError(t, mock.ExpectationsWereMet())
}
