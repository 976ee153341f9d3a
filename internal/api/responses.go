package api

import (
	"time"

	"chemviz-backend/internal/model"
	"chemviz-backend/internal/service"
)

type recordResponse struct {
	EquipmentName string  `json:"equipment_name"`
	EquipmentType string  `json:"equipment_type"`
	Flowrate      float64 `json:"flowrate"`
	Pressure      float64 `json:"pressure"`
	Temperature   float64 `json:"temperature"`
}

// datasetResponse is the aggregate view of a dataset used by the history list.
type datasetResponse struct {
	ID             string    `json:"id"`
	Filename       string    `json:"filename"`
	UploadDate     time.Time `json:"upload_date"`
	TotalRecords   int       `json:"total_records"`
	AvgFlowrate    float64   `json:"avg_flowrate"`
	AvgPressure    float64   `json:"avg_pressure"`
	AvgTemperature float64   `json:"avg_temperature"`
}

type datasetDetailResponse struct {
	datasetResponse
	Equipment []recordResponse `json:"equipment"`
}

type typeDistributionResponse struct {
	EquipmentType  string  `json:"equipment_type"`
	Count          int     `json:"count"`
	AvgFlowrate    float64 `json:"avg_flowrate"`
	AvgPressure    float64 `json:"avg_pressure"`
	AvgTemperature float64 `json:"avg_temperature"`
}

type dataPointResponse struct {
	EquipmentName string  `json:"equipment_name"`
	Flowrate      float64 `json:"flowrate"`
	Pressure      float64 `json:"pressure"`
	Temperature   float64 `json:"temperature"`
}

type summaryResponse struct {
	DatasetID        string                     `json:"dataset_id"`
	Filename         string                     `json:"filename"`
	UploadDate       time.Time                  `json:"upload_date"`
	TotalCount       int                        `json:"total_count"`
	AvgFlowrate      float64                    `json:"avg_flowrate"`
	AvgPressure      float64                    `json:"avg_pressure"`
	AvgTemperature   float64                    `json:"avg_temperature"`
	TypeDistribution []typeDistributionResponse `json:"type_distribution"`
	RawDataPoints    []dataPointResponse        `json:"raw_data_points"`
}

func newDatasetResponse(ds *model.Dataset) datasetResponse {
	return datasetResponse{
		ID:             ds.ID,
		Filename:       ds.Filename,
		UploadDate:     ds.UploadedAt,
		TotalRecords:   ds.TotalRecords,
		AvgFlowrate:    ds.AvgFlowrate,
		AvgPressure:    ds.AvgPressure,
		AvgTemperature: ds.AvgTemperature,
	}
}

func newDatasetDetailResponse(ds *model.Dataset) datasetDetailResponse {
	equipment := make([]recordResponse, len(ds.Records))
	for i, r := range ds.Records {
		equipment[i] = recordResponse{
			EquipmentName: r.EquipmentName,
			EquipmentType: r.EquipmentType,
			Flowrate:      r.Flowrate,
			Pressure:      r.Pressure,
			Temperature:   r.Temperature,
		}
	}
	return datasetDetailResponse{
		datasetResponse: newDatasetResponse(ds),
		Equipment:       equipment,
	}
}

func newSummaryResponse(sum *service.Summary) summaryResponse {
	dist := make([]typeDistributionResponse, len(sum.TypeDistribution))
	for i, ts := range sum.TypeDistribution {
		dist[i] = typeDistributionResponse{
			EquipmentType:  ts.Type,
			Count:          ts.Count,
			AvgFlowrate:    ts.AvgFlowrate,
			AvgPressure:    ts.AvgPressure,
			AvgTemperature: ts.AvgTemperature,
		}
	}
	points := make([]dataPointResponse, len(sum.Sample))
	for i, r := range sum.Sample {
		points[i] = dataPointResponse{
			EquipmentName: r.EquipmentName,
			Flowrate:      r.Flowrate,
			Pressure:      r.Pressure,
			Temperature:   r.Temperature,
		}
	}

	ds := sum.Dataset
	return summaryResponse{
		DatasetID:        ds.ID,
		Filename:         ds.Filename,
		UploadDate:       ds.UploadedAt,
		TotalCount:       ds.TotalRecords,
		AvgFlowrate:      ds.AvgFlowrate,
		AvgPressure:      ds.AvgPressure,
		AvgTemperature:   ds.AvgTemperature,
		TypeDistribution: dist,
		RawDataPoints:    points,
	}
}
