package schema

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
)

// EncodeColumns serializes a column list into the stored record format.
func EncodeColumns(columns []Column) ([]byte, error) {
	if columns == nil {
		columns = []Column{}
	}
	data, err := json.Marshal(columns)
	if err != nil {
		return nil, fmt.Errorf("failed to encode columns: %w", err)
	}
	return data, nil
}

// DecodeColumns parses a stored column record. An empty record decodes to no
// columns. Anything else that is not a JSON array of column objects yields an
// error wrapping ErrMalformedColumns.
func DecodeColumns(data []byte) ([]Column, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var columns []Column
	if err := json.Unmarshal(data, &columns); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedColumns, err)
	}
	for i, c := range columns {
		if c.Name == "" {
			return nil, fmt.Errorf("%w: column %d has no name", ErrMalformedColumns, i)
		}
	}
	return columns, nil
}
