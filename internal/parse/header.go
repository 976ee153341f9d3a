package parse

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Canonical column names every upload must provide.
const (
	ColumnEquipmentName = "Equipment Name"
	ColumnType          = "Type"
	ColumnFlowrate      = "Flowrate"
	ColumnPressure      = "Pressure"
	ColumnTemperature   = "Temperature"
)

// RequiredColumns lists the canonical schema in its reporting order.
var RequiredColumns = []string{
	ColumnEquipmentName,
	ColumnType,
	ColumnFlowrate,
	ColumnPressure,
	ColumnTemperature,
}

var unitSuffixRe = regexp.MustCompile(`\(.*$`)

// headerRule is one step of header canonicalization.
type headerRule struct {
	Name  string
	Apply func(string) string
}

// headerRules is applied in order by NormalizeHeader.
var headerRules = []headerRule{
	{Name: "strip unit suffix", Apply: func(s string) string { return unitSuffixRe.ReplaceAllString(s, "") }},
	{Name: "trim", Apply: strings.TrimSpace},
	{Name: "underscores to spaces", Apply: func(s string) string { return strings.ReplaceAll(s, "_", " ") }},
	{Name: "collapse whitespace", Apply: func(s string) string { return strings.Join(strings.Fields(s), " ") }},
	// cases.Caser is stateful, so a new one is built per call.
	{Name: "title case", Apply: func(s string) string { return cases.Title(language.Und).String(s) }},
	{Name: "canonical alias", Apply: canonicalAlias},
}

var canonicalByKey = func() map[string]string {
	m := make(map[string]string, len(RequiredColumns))
	for _, c := range RequiredColumns {
		m[aliasKey(c)] = c
	}
	return m
}()

func aliasKey(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, " ", ""))
}

// canonicalAlias snaps spacing variants such as "Flow Rate" or
// "Equipmentname" onto the canonical spelling.
func canonicalAlias(s string) string {
	if c, ok := canonicalByKey[aliasKey(s)]; ok {
		return c
	}
	return s
}

// NormalizeHeader maps a raw CSV header cell to its canonical name.
//
//	"Flow_Rate (L/min)" -> "Flowrate"
//	" equipment_name "  -> "Equipment Name"
//	"TEMPERATURE (°C)"  -> "Temperature"
func NormalizeHeader(raw string) string {
	s := raw
	for _, rule := range headerRules {
		s = rule.Apply(s)
	}
	return s
}

// MissingColumns returns the required columns absent from the normalized
// header set, in canonical order.
func MissingColumns(normalized []string) []string {
	seen := make(map[string]struct{}, len(normalized))
	for _, h := range normalized {
		seen[h] = struct{}{}
	}
	var missing []string
	for _, c := range RequiredColumns {
		if _, ok := seen[c]; !ok {
			missing = append(missing, c)
		}
	}
	return missing
}
