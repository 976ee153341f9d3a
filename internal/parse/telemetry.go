package parse

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

const utf8BOM = "\uFEFF"

// Row is one data row shaped to the canonical schema.
type Row struct {
	EquipmentName string
	Type          string
	Flowrate      float64
	Pressure      float64
	Temperature   float64
}

// EquipmentKind returns the equipment type used for grouping.
func (r Row) EquipmentKind() string { return r.Type }

// Measurements returns the three numeric readings of the row.
func (r Row) Measurements() (flowrate, pressure, temperature float64) {
	return r.Flowrate, r.Pressure, r.Temperature
}

func newTelemetryReader(r io.Reader) *csv.Reader {
	csvr := csv.NewReader(r)
	csvr.ReuseRecord = true
	csvr.FieldsPerRecord = -1
	return csvr
}

// ReadTelemetry parses a CSV stream into canonical rows. The header is
// normalized with NormalizeHeader and must contain every required column.
// Any unparseable numeric cell fails the whole read; no partial row set is
// ever returned. A header with no data rows yields an empty, non-nil slice.
func ReadTelemetry(r io.Reader) ([]Row, error) {
	csvr := newTelemetryReader(r)

	header, err := csvr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyInput
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	index := make(map[string]int, len(header))
	normalized := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		name := NormalizeHeader(h)
		normalized[i] = name
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}
	if missing := MissingColumns(normalized); len(missing) > 0 {
		return nil, &MissingColumnsError{Missing: missing}
	}

	rows := make([]Row, 0)
	for rowNum := 1; ; rowNum++ {
		record, err := csvr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &RowParseError{Row: rowNum, Err: err}
		}

		row, err := buildRow(record, index, rowNum)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func buildRow(record []string, index map[string]int, rowNum int) (Row, error) {
	cell := func(column string) (string, bool) {
		i := index[column]
		if i >= len(record) {
			return "", false
		}
		return record[i], true
	}

	var row Row
	var ok bool
	if row.EquipmentName, ok = cell(ColumnEquipmentName); !ok {
		return Row{}, &RowParseError{Row: rowNum, Column: ColumnEquipmentName, Err: errors.New("missing field")}
	}
	if row.Type, ok = cell(ColumnType); !ok {
		return Row{}, &RowParseError{Row: rowNum, Column: ColumnType, Err: errors.New("missing field")}
	}

	numeric := []struct {
		column string
		dst    *float64
	}{
		{ColumnFlowrate, &row.Flowrate},
		{ColumnPressure, &row.Pressure},
		{ColumnTemperature, &row.Temperature},
	}
	for _, n := range numeric {
		raw, ok := cell(n.column)
		if !ok {
			return Row{}, &RowParseError{Row: rowNum, Column: n.column, Err: errors.New("missing field")}
		}
		v, err := parseNumber(raw)
		if err != nil {
			return Row{}, &RowParseError{Row: rowNum, Column: n.column, Value: raw, Err: err}
		}
		*n.dst = v
	}
	return row, nil
}

func parseNumber(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, errors.New("empty value")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New("not a finite number")
	}
	return v, nil
}
