package core

import (
	"fmt"
	"strings"
	"sync"
)

// FieldType represents how a column's cells are coerced.
type FieldType int

const (
	FieldText FieldType = iota
	FieldNumber
	FieldMoney
	FieldDate
	FieldItems
)

// FieldSpec maps one display header to one internal field name.
type FieldSpec struct {
	Header string    // Column header as written to the sheet: "Weight (g)"
	Field  string    // Internal field name: "weight"
	Type   FieldType // Coercion applied on import

	// Aliases are legacy keys accepted on import only.
	Aliases []string
}

// SheetDefinition is the fixed tabular layout for one entity kind.
type SheetDefinition struct {
	Kind      EntityKind
	SheetName string      // Exact sheet name: "Exchange Bills"
	Sentinel  string      // Placeholder written for an empty collection: "No bills found"
	Primary   string      // Field that carries the sentinel
	Fields    []FieldSpec // Columns in sheet order

	byField map[string]FieldSpec
}

// Headers returns the column headers in sheet order.
func (d SheetDefinition) Headers() []string {
	headers := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		headers[i] = f.Header
	}
	return headers
}

// HeaderFor returns the display header for an internal field name.
func (d SheetDefinition) HeaderFor(field string) (string, bool) {
	spec, ok := d.byField[field]
	return spec.Header, ok
}

// Value reads field from a row keyed by display headers or by field names.
// The header wins when both are present and non-empty.
func (d SheetDefinition) Value(row Row, field string) any {
	if spec, ok := d.byField[field]; ok {
		if v, ok := row[spec.Header]; ok && !IsEmptyValue(v) {
			return v
		}
	}
	if v, ok := row[field]; ok && !IsEmptyValue(v) {
		return v
	}
	for _, alias := range d.byField[field].Aliases {
		if v, ok := row[alias]; ok && !IsEmptyValue(v) {
			return v
		}
	}
	return nil
}

// Text reads field as cleaned text.
func (d SheetDefinition) Text(row Row, field string) string {
	return StringValue(d.Value(row, field))
}

// IsSentinel reports whether the row's primary column carries the placeholder text.
func (d SheetDefinition) IsSentinel(row Row) bool {
	return strings.EqualFold(d.Text(row, d.Primary), d.Sentinel)
}

var (
	registry   = make(map[EntityKind]SheetDefinition)
	registryMu sync.RWMutex
)

// Register adds a sheet definition to the registry.
// Panics if a definition for the same kind is already registered.
func Register(def SheetDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Kind]; exists {
		panic(fmt.Sprintf("sheet already registered: %s", def.Kind))
	}

	def.byField = make(map[string]FieldSpec, len(def.Fields))
	for _, spec := range def.Fields {
		def.byField[spec.Field] = spec
	}

	registry[def.Kind] = def
}

// Sheet returns the sheet definition for a kind.
// Returns false if not found.
func Sheet(kind EntityKind) (SheetDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[kind]
	return def, ok
}

// MustSheet is Sheet for kinds known to be registered.
func MustSheet(kind EntityKind) SheetDefinition {
	def, ok := Sheet(kind)
	if !ok {
		panic(fmt.Sprintf("sheet not registered: %s", kind))
	}
	return def
}

// Sheets returns all registered definitions in workbook order.
func Sheets() []SheetDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]SheetDefinition, 0, len(registry))
	for _, k := range Kinds {
		if def, ok := registry[k]; ok {
			result = append(result, def)
		}
	}
	return result
}

// RowsFor finds the rows for kind in sheets.
// Matches the exact sheet name first, then case-insensitively.
func RowsFor(sheets SheetRows, kind EntityKind) ([]Row, bool) {
	def, ok := Sheet(kind)
	if !ok {
		return nil, false
	}
	if rows, ok := sheets[def.SheetName]; ok {
		return rows, true
	}
	for name, rows := range sheets {
		if strings.EqualFold(strings.TrimSpace(name), def.SheetName) {
			return rows, true
		}
	}
	return nil, false
}

// KindRows picks the rows to import as kind from a workbook: the sheet
// named for kind, or the only sheet of a single-sheet workbook.
func KindRows(sheets SheetRows, kind EntityKind) ([]Row, error) {
	if _, ok := Sheet(kind); !ok {
		return nil, ErrUnknownKind
	}
	if rows, ok := RowsFor(sheets, kind); ok {
		return rows, nil
	}
	if len(sheets) == 1 {
		for _, rows := range sheets {
			return rows, nil
		}
	}
	return nil, fmt.Errorf("sheet for %s: %w", kind, ErrNoSheets)
}
