package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"chemviz-backend/internal/model"
	"chemviz-backend/internal/parse"
	"chemviz-backend/internal/retention"
	"chemviz-backend/internal/stats"
)

// Writer exposes the write operations of one ingestion. It is only valid
// inside the WithinWriteTx callback that produced it.
type Writer interface {
	CreateDataset(ctx context.Context, filename string) (*model.Dataset, error)
	BulkInsertRecords(ctx context.Context, datasetID string, rows []parse.Row) error
	WriteAggregates(ctx context.Context, datasetID string, agg stats.DatasetStats) error
	retention.Pruner
}

type txWriter struct {
	tx        *gorm.DB
	now       func() time.Time
	batchSize int
}

func (w *txWriter) CreateDataset(ctx context.Context, filename string) (*model.Dataset, error) {
	var maxSeq int64
	if err := w.tx.WithContext(ctx).Model(&model.Dataset{}).
		Select("COALESCE(MAX(seq), 0)").
		Scan(&maxSeq).Error; err != nil {
		return nil, storageErr("next dataset sequence", err)
	}

	ds := &model.Dataset{
		Seq:        maxSeq + 1,
		Filename:   filename,
		UploadedAt: w.now().UTC(),
	}
	if err := w.tx.WithContext(ctx).Omit("Records").Create(ds).Error; err != nil {
		return nil, storageErr("create dataset", err)
	}
	return ds, nil
}

func (w *txWriter) BulkInsertRecords(ctx context.Context, datasetID string, rows []parse.Row) error {
	if len(rows) == 0 {
		return nil
	}

	records := make([]model.EquipmentRecord, len(rows))
	for i, r := range rows {
		records[i] = model.EquipmentRecord{
			DatasetID:     datasetID,
			EquipmentName: r.EquipmentName,
			EquipmentType: r.Type,
			Flowrate:      r.Flowrate,
			Pressure:      r.Pressure,
			Temperature:   r.Temperature,
		}
	}
	if err := w.tx.WithContext(ctx).CreateInBatches(&records, w.batchSize).Error; err != nil {
		return storageErr(fmt.Sprintf("insert %d records", len(records)), err)
	}
	return nil
}

func (w *txWriter) WriteAggregates(ctx context.Context, datasetID string, agg stats.DatasetStats) error {
	res := w.tx.WithContext(ctx).Model(&model.Dataset{}).
		Where("id = ?", datasetID).
		Updates(map[string]any{
			"total_records":   agg.Count,
			"avg_flowrate":    agg.AvgFlowrate,
			"avg_pressure":    agg.AvgPressure,
			"avg_temperature": agg.AvgTemperature,
		})
	if res.Error != nil {
		return storageErr("write aggregates", res.Error)
	}
	if res.RowsAffected == 0 {
		return storageErr("write aggregates", ErrNotFound)
	}
	return nil
}

func (w *txWriter) ListDatasetIDs(ctx context.Context) ([]string, error) {
	ids := make([]string, 0)
	if err := w.tx.WithContext(ctx).Model(&model.Dataset{}).
		Order(recencyOrder).
		Pluck("id", &ids).Error; err != nil {
		return nil, storageErr("list dataset ids", err)
	}
	return ids, nil
}

// DeleteDatasets removes the datasets and their records in the current
// transaction. Records are deleted explicitly since SQLite only honors the
// foreign key cascade when foreign_keys is enabled.
func (w *txWriter) DeleteDatasets(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := w.tx.WithContext(ctx).Where("dataset_id IN ?", ids).Delete(&model.EquipmentRecord{}).Error; err != nil {
		return storageErr("delete records", err)
	}
	if err := w.tx.WithContext(ctx).Where("id IN ?", ids).Delete(&model.Dataset{}).Error; err != nil {
		return storageErr("delete datasets", err)
	}
	return nil
}
