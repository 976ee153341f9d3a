// Package service runs the ingestion pipeline and the query path on top of
// the dataset store.
package service

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"chemviz-backend/config"
	"chemviz-backend/internal/logging"
	"chemviz-backend/internal/model"
	"chemviz-backend/internal/parse"
	"chemviz-backend/internal/report"
	"chemviz-backend/internal/retention"
	"chemviz-backend/internal/stats"
	"chemviz-backend/internal/store"
)

const (
	maxFilenameLen  = 255
	defaultFilename = "upload.csv"
)

// CommitListener is notified after an ingestion has committed. Listeners
// run synchronously on the request goroutine and must not block.
type CommitListener func(ds *model.Dataset)

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the clock used for report generation times.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// OnCommit registers a listener run after every committed ingestion.
func OnCommit(l CommitListener) Option {
	return func(s *Service) { s.listeners = append(s.listeners, l) }
}

// Service orchestrates ingestion and reads.
type Service struct {
	store      store.Store
	limit      int
	sampleSize int
	now        func() time.Time
	listeners  []CommitListener
	log        zerolog.Logger
}

// New creates a Service. Zero values in cfg fall back to the defaults.
func New(s store.Store, cfg config.IngestConfig, opts ...Option) *Service {
	svc := &Service{
		store:      s,
		limit:      cfg.RetentionLimit,
		sampleSize: cfg.SampleSize,
		now:        time.Now,
		log:        logging.With("service"),
	}
	if svc.limit == 0 {
		svc.limit = retention.DefaultLimit
	}
	if svc.sampleSize <= 0 {
		svc.sampleSize = 50
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Ingest validates a CSV stream and commits it as a new dataset. Nothing is
// written unless the whole file parses. The returned dataset carries its
// aggregates and the ingested records.
func (s *Service) Ingest(ctx context.Context, filename string, r io.Reader) (*model.Dataset, error) {
	if r == nil {
		return nil, ErrEmptyRequest
	}

	rows, err := parse.ReadTelemetry(r)
	if errors.Is(err, parse.ErrEmptyInput) {
		return nil, ErrEmptyRequest
	}
	if err != nil {
		return nil, err
	}

	filename = SanitizeFilename(filename)
	agg := stats.ComputeDatasetStats(rows)

	var (
		ds      *model.Dataset
		evicted []string
	)
	err = s.store.WithinWriteTx(ctx, func(w store.Writer) error {
		var err error
		if ds, err = w.CreateDataset(ctx, filename); err != nil {
			return err
		}
		if err = w.BulkInsertRecords(ctx, ds.ID, rows); err != nil {
			return err
		}
		if err = w.WriteAggregates(ctx, ds.ID, agg); err != nil {
			return err
		}
		evicted, err = retention.Enforce(ctx, w, s.limit)
		return err
	})
	if err != nil {
		s.log.Error().Err(err).Str("filename", filename).Msg("ingestion rolled back")
		return nil, err
	}

	ds.TotalRecords = agg.Count
	ds.AvgFlowrate = agg.AvgFlowrate
	ds.AvgPressure = agg.AvgPressure
	ds.AvgTemperature = agg.AvgTemperature
	ds.Records = make([]model.EquipmentRecord, len(rows))
	for i, row := range rows {
		ds.Records[i] = model.EquipmentRecord{
			DatasetID:     ds.ID,
			EquipmentName: row.EquipmentName,
			EquipmentType: row.Type,
			Flowrate:      row.Flowrate,
			Pressure:      row.Pressure,
			Temperature:   row.Temperature,
		}
	}

	s.log.Info().
		Str("dataset_id", ds.ID).
		Str("filename", filename).
		Int("records", agg.Count).
		Strs("evicted", evicted).
		Msg("dataset ingested")

	for _, l := range s.listeners {
		l(ds)
	}
	return ds, nil
}

// Summary describes the most recent dataset.
type Summary struct {
	Dataset          *model.Dataset
	TypeDistribution []stats.TypeStats
	// Sample holds the first records of the dataset in insertion order.
	Sample []model.EquipmentRecord
}

// Summary returns the aggregates, type distribution and a record sample of
// the latest dataset, or store.ErrNotFound when the store is empty.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	ds, err := s.latestWithRecords(ctx)
	if err != nil {
		return nil, err
	}

	sample := ds.Records
	if len(sample) > s.sampleSize {
		sample = sample[:s.sampleSize]
	}
	return &Summary{
		Dataset:          ds,
		TypeDistribution: stats.ComputeTypeDistribution(ds.Records),
		Sample:           sample,
	}, nil
}

func (s *Service) latestWithRecords(ctx context.Context) (*model.Dataset, error) {
	latest, err := s.store.LatestDataset(ctx)
	if err != nil {
		return nil, err
	}
	ds, err := s.store.GetDataset(ctx, latest.ID)
	if errors.Is(err, store.ErrNotFound) {
		// Evicted between the two reads; a newer dataset now exists.
		if latest, err = s.store.LatestDataset(ctx); err != nil {
			return nil, err
		}
		return s.store.GetDataset(ctx, latest.ID)
	}
	return ds, err
}

// History lists every retained dataset, most recent first, without records.
func (s *Service) History(ctx context.Context) ([]model.Dataset, error) {
	return s.store.ListDatasets(ctx)
}

// Detail returns one dataset with all of its records.
func (s *Service) Detail(ctx context.Context, id string) (*model.Dataset, error) {
	return s.store.GetDataset(ctx, id)
}

// ReportFile is a rendered report ready to be served.
type ReportFile struct {
	Name    string
	Content []byte
}

// Report renders the PDF report of one dataset. No bytes are produced for
// an unknown or evicted ID.
func (s *Service) Report(ctx context.Context, id string) (*ReportFile, error) {
	ds, err := s.store.GetDataset(ctx, id)
	if err != nil {
		return nil, err
	}
	content, err := report.Render(report.Build(ds, s.now()))
	if err != nil {
		return nil, err
	}
	return &ReportFile{Name: report.Filename(ds), Content: content}, nil
}

// SanitizeFilename reduces a client-supplied name to its base name and caps
// it at the stored column width.
func SanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	switch name {
	case "", ".", "/", "..":
		return defaultFilename
	}
	if r := []rune(name); len(r) > maxFilenameLen {
		name = string(r[:maxFilenameLen])
	}
	return name
}
