package export

import (
	"fmt"
	"strings"

	"formarter/compliance/pkg/audit"
)

// New returns the exporter for a format name: "json", "csv" (one row per
// session) or "csv-detail" (one row per rule result).
func New(format string, pretty bool) (audit.Exporter, error) {
	switch strings.ToLower(format) {
	case "json":
		return NewJSONExporter(pretty), nil
	case "csv":
		return NewCSVExporter(true, false), nil
	case "csv-detail":
		return NewCSVExporter(true, true), nil
	default:
		return nil, audit.NewExportError(format, 0, fmt.Errorf("unsupported export format %q", format))
	}
}
