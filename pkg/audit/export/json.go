package export

import (
	"context"
	"encoding/json"
	"io"

	"formarter/compliance/pkg/audit"
)

// JSONExporter exports audit records as a JSON array.
type JSONExporter struct {
	// Pretty enables pretty-printing with indentation.
	Pretty bool
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(pretty bool) *JSONExporter {
	return &JSONExporter{
		Pretty: pretty,
	}
}

// Export writes records to w as a JSON array. An empty slice is written
// as "[]".
func (e *JSONExporter) Export(ctx context.Context, records []*audit.Record, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return audit.NewExportError("json", len(records), err)
	}
	if records == nil {
		records = []*audit.Record{}
	}

	enc := json.NewEncoder(w)
	if e.Pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(records); err != nil {
		return audit.NewExportError("json", len(records), err)
	}
	return nil
}

// Format returns "json".
func (e *JSONExporter) Format() string {
	return "json"
}

// ContentType returns the JSON MIME type.
func (e *JSONExporter) ContentType() string {
	return "application/json"
}
