// Package stats computes dataset-level and per-equipment-type aggregates.
// Every function is pure: the same input always yields the same output.
package stats

// Reading is a single telemetry sample. Both parsed upload rows and stored
// equipment records implement it.
type Reading interface {
	EquipmentKind() string
	Measurements() (flowrate, pressure, temperature float64)
}

// DatasetStats holds the aggregates persisted on a dataset.
type DatasetStats struct {
	Count          int
	AvgFlowrate    float64
	AvgPressure    float64
	AvgTemperature float64
}

// TypeStats holds the aggregates of one equipment type within a dataset.
type TypeStats struct {
	Type string
	DatasetStats
}

type accumulator struct {
	count                      int
	flowrate, pressure, temper float64
}

func (a *accumulator) add(r Reading) {
	f, p, t := r.Measurements()
	a.count++
	a.flowrate += f
	a.pressure += p
	a.temper += t
}

// result never divides by zero: an empty accumulator yields 0.0 averages.
func (a *accumulator) result() DatasetStats {
	if a.count == 0 {
		return DatasetStats{}
	}
	n := float64(a.count)
	return DatasetStats{
		Count:          a.count,
		AvgFlowrate:    a.flowrate / n,
		AvgPressure:    a.pressure / n,
		AvgTemperature: a.temper / n,
	}
}

// ComputeDatasetStats returns the row count and the arithmetic mean of each
// numeric field.
func ComputeDatasetStats[R Reading](rows []R) DatasetStats {
	var acc accumulator
	for _, r := range rows {
		acc.add(r)
	}
	return acc.result()
}

// ComputeTypeDistribution groups readings by equipment type, in first-seen
// order, and aggregates each group like ComputeDatasetStats.
func ComputeTypeDistribution[R Reading](records []R) []TypeStats {
	order := make([]string, 0)
	groups := make(map[string]*accumulator)
	for _, r := range records {
		kind := r.EquipmentKind()
		acc, ok := groups[kind]
		if !ok {
			acc = &accumulator{}
			groups[kind] = acc
			order = append(order, kind)
		}
		acc.add(r)
	}

	out := make([]TypeStats, 0, len(order))
	for _, kind := range order {
		out = append(out, TypeStats{Type: kind, DatasetStats: groups[kind].result()})
	}
	return out
}
