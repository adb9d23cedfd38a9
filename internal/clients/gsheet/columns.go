package gsheet

import (
	"strings"

	"github.com/jkoh/wealthtower/internal/models"
)

// FieldSpec maps one canonical field to the column labels that may carry it.
// Matching is exact first, then substring, both case-insensitive. The sheet
// headers have drifted over time (Korean labels, English rewrites, stray
// whitespace), so the alias set is data here rather than heuristics inline.
type FieldSpec struct {
	Canonical string
	Aliases   []string
}

// Schema describes one table's expected columns. Positional enables the
// last-resort positional mapping (columns taken in canonical order) used
// for the history table, whose header row is the most fragile.
type Schema struct {
	Fields     []FieldSpec
	Positional bool
}

// holdingsAliases maps each canonical holdings field to its accepted labels.
var holdingsAliases = map[string][]string{
	models.FieldCategory: {"카테고리", "category", "분류"},
	models.FieldName:     {"종목명", "name", "종목"},
	models.FieldTicker:   {"티커", "ticker", "symbol", "code"},
	models.FieldQuantity: {"수량", "quantity", "qty", "units"},
	models.FieldCurrency: {"통화", "currency", "ccy"},
}

// historyAliases maps each canonical history field to its accepted labels.
var historyAliases = map[string][]string{
	models.FieldDate:       {"날짜", "date", "일자", "기준일"},
	models.FieldNetWorth:   {"총자산", "net worth", "networth", "total"},
	models.FieldFixed:      {"고정지출", "fixed"},
	models.FieldAllowanceA: {"경호용돈", "allowance a", "allowance_a"},
	models.FieldAllowanceB: {"수진용돈", "allowance b", "allowance_b"},
	models.FieldLiving:     {"생활비", "living"},
	models.FieldEvents:     {"경조사비", "events", "event"},
	models.FieldMisc:       {"기타", "misc", "etc", "other"},
}

// buildSchema assembles a schema from a table's stable field order and its
// alias map, so the positional fallback and the write payload can never
// disagree about column order.
func buildSchema(order []string, aliases map[string][]string, positional bool) Schema {
	fields := make([]FieldSpec, 0, len(order))
	for _, canonical := range order {
		fields = append(fields, FieldSpec{Canonical: canonical, Aliases: aliases[canonical]})
	}
	return Schema{Fields: fields, Positional: positional}
}

// HoldingsSchema matches the holdings table columns.
var HoldingsSchema = buildSchema(models.HoldingsFieldOrder, holdingsAliases, false)

// HistorySchema matches the history table columns, in the table's stable
// order so the positional fallback lines up.
var HistorySchema = buildSchema(models.HistoryFieldOrder, historyAliases, true)

// matchField resolves one trimmed header label against the alias set. Exact
// alias equality wins; otherwise a substring hit is accepted, so "날짜
// (기준)" still maps to the date field.
func (f FieldSpec) matchField(label string) bool {
	l := strings.ToLower(strings.TrimSpace(label))
	if l == "" {
		return false
	}
	for _, alias := range f.Aliases {
		if l == alias {
			return true
		}
	}
	for _, alias := range f.Aliases {
		if strings.Contains(l, alias) {
			return true
		}
	}
	return false
}

// ResolveColumns maps header positions to canonical field names. When the
// schema allows it and the key field (first in the schema) cannot be found
// by name, the whole table falls back to positional mapping in canonical
// column order.
func ResolveColumns(headers []string, schema Schema) map[int]string {
	cols := make(map[int]string, len(schema.Fields))
	claimed := make(map[string]bool, len(schema.Fields))

	for i, h := range headers {
		for _, f := range schema.Fields {
			if claimed[f.Canonical] {
				continue
			}
			if f.matchField(h) {
				cols[i] = f.Canonical
				claimed[f.Canonical] = true
				break
			}
		}
	}

	keyField := schema.Fields[0].Canonical
	if !claimed[keyField] && schema.Positional {
		cols = make(map[int]string, len(schema.Fields))
		for i, f := range schema.Fields {
			if i >= len(headers) {
				break
			}
			cols[i] = f.Canonical
		}
	}

	return cols
}

// normalizeRow converts one CSV record into a canonical Row.
func normalizeRow(record []string, cols map[int]string) models.Row {
	row := make(models.Row, len(cols))
	for i, canonical := range cols {
		if i < len(record) {
			row[canonical] = strings.TrimSpace(record[i])
		}
	}
	return row
}
