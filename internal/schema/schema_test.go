package schema

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTable(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Table
		wantErr bool
	}{
		{"simple", "public.users", Table{Schema: "public", Name: "users"}, false},
		{"trimmed", "  dbo.Orders ", Table{Schema: "dbo", Name: "Orders"}, false},
		{"dotted table", "s.a.b", Table{Schema: "s", Name: "a.b"}, false},
		{"no dot", "users", Table{}, true},
		{"empty schema", ".users", Table{}, true},
		{"empty table", "public.", Table{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTable(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTableList(t *testing.T) {
	got, err := ParseTableList("s.a, s.b,,")
	require.NoError(t, err)
	assert.Equal(t, []Table{{Schema: "s", Name: "a"}, {Schema: "s", Name: "b"}}, got)

	got, err = ParseTableList("")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = ParseTableList("s.a,bad")
	assert.Error(t, err)
}

func TestTableSetSorted(t *testing.T) {
	set := NewTableSet(
		Table{Schema: "b", Name: "a"},
		Table{Schema: "a", Name: "z"},
		Table{Schema: "a", Name: "b"},
	)
	assert.Equal(t, []Table{
		{Schema: "a", Name: "b"},
		{Schema: "a", Name: "z"},
		{Schema: "b", Name: "a"},
	}, set.Sorted())

	var nilSet TableSet
	assert.False(t, nilSet.Has(Table{Schema: "a", Name: "b"}))
}

func TestDecodeColumns(t *testing.T) {
	t.Run("valid record", func(t *testing.T) {
		data := []byte(`[{"name":"id","type":"int","null":"NO","fk_references":[{"schema":"s","table":"b","column":"id"}]}]`)
		cols, err := DecodeColumns(data)
		require.NoError(t, err)
		require.Len(t, cols, 1)
		assert.Equal(t, "id", cols[0].Name)
		assert.Equal(t, []ColumnRef{{Schema: "s", Table: "b", Column: "id"}}, cols[0].FKReferences)
		assert.Empty(t, cols[0].PKReferences)
	})

	t.Run("empty record", func(t *testing.T) {
		cols, err := DecodeColumns(nil)
		require.NoError(t, err)
		assert.Empty(t, cols)
	})

	t.Run("malformed record", func(t *testing.T) {
		for _, data := range []string{`{"name":"id"}`, `not json`, `[{"type":"int"}]`} {
			_, err := DecodeColumns([]byte(data))
			assert.ErrorIs(t, err, ErrMalformedColumns, data)
		}
	})
}

func TestEncodeColumnsRoundTrip(t *testing.T) {
	cols := []Column{{
		Name:         "owner_id",
		Type:         "uuid",
		Null:         "YES",
		FKReferences: []ColumnRef{{Schema: "auth", Table: "users", Column: "id"}},
	}}
	data, err := EncodeColumns(cols)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"fk_references"`)

	decoded, err := DecodeColumns(data)
	require.NoError(t, err)
	assert.Equal(t, cols, decoded)

	empty, err := EncodeColumns(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(empty))
}

func TestNullability(t *testing.T) {
	tests := []struct {
		name    string
		record  string
		want    Nullability
		wantErr bool
	}{
		{name: "string", record: `[{"name":"id","type":"int","null":"NO"}]`, want: NullNo},
		{name: "true", record: `[{"name":"id","type":"int","null":true}]`, want: NullYes},
		{name: "false", record: `[{"name":"id","type":"int","null":false}]`, want: NullNo},
		{name: "json null", record: `[{"name":"id","type":"int","null":null}]`, want: ""},
		{name: "missing", record: `[{"name":"id","type":"int"}]`, want: ""},
		{name: "number", record: `[{"name":"id","type":"int","null":1}]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cols, err := DecodeColumns([]byte(tt.record))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedColumns)
				return
			}
			require.NoError(t, err)
			require.Len(t, cols, 1)
			assert.Equal(t, tt.want, cols[0].Null)
		})
	}
}

func TestDecodeDump_BooleanNull(t *testing.T) {
	jsonDump := `[{"name": "shop", "tables": [{"name": "orders", "columns": [
  {"name": "id", "type": "int", "null": false},
  {"name": "note", "type": "text", "null": true}
]}]}]`
	d, err := DecodeDump(strings.NewReader(jsonDump), FormatJSON)
	require.NoError(t, err)
	cols := d[0].Tables[0].Columns
	assert.Equal(t, NullNo, cols[0].Null)
	assert.Equal(t, NullYes, cols[1].Null)

	yamlDump := `
- name: shop
  tables:
    - name: orders
      columns:
        - name: id
          type: int
          "null": false
        - name: note
          type: text
          "null": true
        - name: code
          type: text
          "null": "YES"
`
	d, err = DecodeDump(strings.NewReader(yamlDump), FormatYAML)
	require.NoError(t, err)
	cols = d[0].Tables[0].Columns
	assert.Equal(t, NullNo, cols[0].Null)
	assert.Equal(t, NullYes, cols[1].Null)
	assert.Equal(t, NullYes, cols[2].Null)
}

const sampleDump = `[
  {"name": "shop", "tables": [
    {"name": "orders", "columns": [
      {"name": "id", "type": "int", "null": "NO"},
      {"name": "customer_id", "type": "int", "null": "NO",
       "fk_references": [{"schema": "shop", "table": "customers", "column": "id"}]}
    ]},
    {"name": "customers", "columns": [
      {"name": "id", "type": "int", "null": "NO"}
    ]}
  ]}
]`

func TestDecodeDump(t *testing.T) {
	d, err := DecodeDump(strings.NewReader(sampleDump), FormatJSON)
	require.NoError(t, err)
	require.Len(t, d, 1)
	assert.Equal(t, "shop", d[0].Name)
	assert.Equal(t, 2, d.TableCount())

	yamlDump := `
- name: shop
  tables:
    - name: customers
      columns:
        - name: id
          type: int
          "null": "NO"
`
	d, err = DecodeDump(strings.NewReader(yamlDump), FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, 1, d.TableCount())
	assert.Equal(t, NullNo, d[0].Tables[0].Columns[0].Null)

	_, err = DecodeDump(strings.NewReader(`[{"tables": []}]`), FormatJSON)
	assert.Error(t, err)

	_, err = DecodeDump(strings.NewReader(sampleDump), "xml")
	assert.Error(t, err)
}

func TestDeriveBackReferences(t *testing.T) {
	d, err := DecodeDump(strings.NewReader(sampleDump), FormatJSON)
	require.NoError(t, err)

	d.DeriveBackReferences()

	customers := d[0].Tables[1]
	require.Equal(t, "customers", customers.Name)
	assert.Equal(t, []ColumnRef{{Schema: "shop", Table: "orders", Column: "customer_id"}}, customers.Columns[0].PKReferences)

	orders := d[0].Tables[0]
	assert.Empty(t, orders.Columns[1].PKReferences)

	var buf bytes.Buffer
	require.NoError(t, EncodeDump(&buf, d))
	assert.Contains(t, buf.String(), `"pk_references"`)
}

func TestSortFold(t *testing.T) {
	in := []string{"log", "Entry", "archive", "Beta"}
	assert.Equal(t, []string{"archive", "Beta", "Entry", "log"}, SortFold(in))
	assert.Equal(t, []string{"log", "Entry", "archive", "Beta"}, in, "input is left alone")
	assert.Empty(t, SortFold(nil))
}
