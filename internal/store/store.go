package store

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"sync"
	"time"

	"gorm.io/gorm"

	"chemviz-backend/internal/model"
)

// recencyOrder sorts datasets most recent first. Seq breaks timestamp ties.
const recencyOrder = "uploaded_at DESC, seq DESC"

// ingestLockKey is the PostgreSQL advisory lock serializing writers across processes.
const ingestLockKey int64 = 0x63686d767a

// Store defines the interface for all database operations.
type Store interface {
	// WithinWriteTx runs fn in one serialized transaction. Either every write
	// made through the Writer commits, or none does.
	WithinWriteTx(ctx context.Context, fn func(w Writer) error) error

	ListDatasets(ctx context.Context) ([]model.Dataset, error)
	LatestDataset(ctx context.Context) (*model.Dataset, error)
	GetDataset(ctx context.Context, id string) (*model.Dataset, error)
	DeleteDataset(ctx context.Context, id string) error

	UpsertSubscription(ctx context.Context, sub *model.PushSubscription) error
	DeleteSubscription(ctx context.Context, endpoint string) error
	GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	ListSubscriptions(ctx context.Context) ([]model.PushSubscription, error)

	DB() *gorm.DB
}

// Option configures a gormStore.
type Option func(*gormStore)

// WithClock overrides the clock used for upload timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *gormStore) { s.now = now }
}

// WithBatchSize sets the number of records per INSERT statement.
func WithBatchSize(n int) Option {
	return func(s *gormStore) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db        *gorm.DB
	now       func() time.Time
	batchSize int

	// writeMu makes this process a single writer.
	writeMu sync.Mutex
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB, opts ...Option) Store {
	s := &gormStore{
		db:        db,
		now:       time.Now,
		batchSize: 500,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func (s *gormStore) WithinWriteTx(ctx context.Context, fn func(w Writer) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" {
			if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", ingestLockKey).Error; err != nil {
				return storageErr("acquire ingest lock", err)
			}
		}
		return fn(&txWriter{tx: tx, now: s.now, batchSize: s.batchSize})
	})
	if err == nil {
		return nil
	}

	var se *StorageError
	if errors.As(err, &se) || errors.Is(err, ErrNotFound) {
		return err
	}
	return storageErr("commit", err)
}

// readTx gives multi-statement reads one consistent snapshot, so a dataset
// evicted mid-read is never returned without its records.
func (s *gormStore) readTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn, &sql.TxOptions{
		Isolation: sql.LevelRepeatableRead,
		ReadOnly:  true,
	})
}

func (s *gormStore) ListDatasets(ctx context.Context) ([]model.Dataset, error) {
	datasets := make([]model.Dataset, 0)
	if err := s.db.WithContext(ctx).Order(recencyOrder).Find(&datasets).Error; err != nil {
		return nil, storageErr("list datasets", err)
	}
	return datasets, nil
}

func (s *gormStore) LatestDataset(ctx context.Context) (*model.Dataset, error) {
	var ds model.Dataset
	err := s.db.WithContext(ctx).Order(recencyOrder).Take(&ds).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("latest dataset", err)
	}
	return &ds, nil
}

// GetDataset returns the dataset with its records in insertion order.
func (s *gormStore) GetDataset(ctx context.Context, id string) (*model.Dataset, error) {
	var ds model.Dataset
	err := s.readTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Take(&ds, "id = ?", id).Error; err != nil {
			return err
		}
		ds.Records = make([]model.EquipmentRecord, 0, ds.TotalRecords)
		return tx.Where("dataset_id = ?", id).Order("id ASC").Find(&ds.Records).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("get dataset", err)
	}
	return &ds, nil
}

// DeleteDataset removes one dataset and its records. Normal operation never
// calls it; datasets leave the store through retention only.
func (s *gormStore) DeleteDataset(ctx context.Context, id string) error {
	return s.WithinWriteTx(ctx, func(w Writer) error {
		ids, err := w.ListDatasetIDs(ctx)
		if err != nil {
			return err
		}
		if !slices.Contains(ids, id) {
			return ErrNotFound
		}
		return w.DeleteDatasets(ctx, []string{id})
	})
}
