package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/leapstack-labs/erdview/internal/schema"
)

// CSVDelimiter separates fields in catalog exports.
const CSVDelimiter = ';'

// Header names of the column export, as written by an information_schema
// query. Matching is case-insensitive.
var columnHeaders = []string{"TABLE_SCHEMA", "TABLE_NAME", "COLUMN_NAME", "DATA_TYPE", "IS_NULLABLE"}

// Header names of the reference export.
var refHeaders = []string{"FK schema", "FK table", "FK column", "Referenced schema", "Referenced table", "Referenced column"}

// ReadCSVFiles opens both exports and builds a dump from them.
func ReadCSVFiles(columnsPath, refsPath string) (schema.Dump, error) {
	cf, err := os.Open(columnsPath) //nolint:gosec // path is supplied by the operator
	if err != nil {
		return nil, fmt.Errorf("failed to open column export: %w", err)
	}
	defer func() { _ = cf.Close() }()

	var refs io.Reader = strings.NewReader("")
	if refsPath != "" {
		rf, err := os.Open(refsPath) //nolint:gosec // path is supplied by the operator
		if err != nil {
			return nil, fmt.Errorf("failed to open reference export: %w", err)
		}
		defer func() { _ = rf.Close() }()
		refs = rf
	}
	return ReadCSV(cf, refs)
}

// ReadCSV builds a dump from a column export and a reference export. Rows
// of the column export must list each table's columns in ordinal order.
// References from columns that are not in the column export are dropped.
func ReadCSV(columns, refs io.Reader) (schema.Dump, error) {
	tables := make(map[schema.Table][]schema.Column)
	index := make(map[schema.ColumnRef]int)
	var order []schema.Table

	err := readRows(columns, columnHeaders, func(f []string) error {
		t := schema.Table{Schema: f[0], Name: f[1]}
		if t.Schema == "" || t.Name == "" || f[2] == "" {
			return fmt.Errorf("column row with empty schema, table or column name")
		}
		if _, ok := tables[t]; !ok {
			order = append(order, t)
		}
		index[schema.ColumnRef{Schema: t.Schema, Table: t.Name, Column: f[2]}] = len(tables[t])
		tables[t] = append(tables[t], schema.Column{Name: f[2], Type: f[3], Null: schema.Nullability(strings.ToUpper(f[4]))})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read column export: %w", err)
	}

	err = readRows(refs, refHeaders, func(f []string) error {
		from := schema.ColumnRef{Schema: f[0], Table: f[1], Column: f[2]}
		i, ok := index[from]
		if !ok {
			return nil
		}
		cols := tables[from.TableRef()]
		cols[i].FKReferences = append(cols[i].FKReferences, schema.ColumnRef{Schema: f[3], Table: f[4], Column: f[5]})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read reference export: %w", err)
	}

	sort.Slice(order, func(i, j int) bool { return order[i].Less(order[j]) })
	var d schema.Dump
	for _, t := range order {
		if len(d) == 0 || d[len(d)-1].Name != t.Schema {
			d = append(d, schema.DumpSchema{Name: t.Schema})
		}
		last := &d[len(d)-1]
		last.Tables = append(last.Tables, schema.DumpTable{Name: t.Name, Columns: tables[t]})
	}
	d.DeriveBackReferences()
	return d, nil
}

// readRows reads a ';' separated export with a header row and calls fn with
// the fields named by headers, in that order. An empty input has no rows.
func readRows(r io.Reader, headers []string, fn func([]string) error) error {
	cr := csv.NewReader(r)
	cr.Comma = CSVDelimiter
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return err
	}

	pos := make([]int, len(headers))
	for i, want := range headers {
		pos[i] = -1
		for j, got := range header {
			if strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(got, "\ufeff")), want) {
				pos[i] = j
				break
			}
		}
		if pos[i] < 0 {
			return fmt.Errorf("missing column %q in header", want)
		}
	}

	fields := make([]string, len(headers))
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		line, _ := cr.FieldPos(0)
		for i, p := range pos {
			if p >= len(rec) {
				return fmt.Errorf("line %d: expected at least %d fields, got %d", line, p+1, len(rec))
			}
			fields[i] = strings.TrimSpace(rec[p])
		}
		if err := fn(fields); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
}
