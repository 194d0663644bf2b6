// Package export writes audit records as reports.
//
// JSONExporter writes the records as a JSON array in the same shape they
// are stored. CSVExporter flattens them, either one row per session with
// the summary counts and critical issue ids, or one row per rule result
// when Detail is set.
//
//	exporter, err := export.New("csv", false)
//	if err != nil {
//	    return err
//	}
//	err = exporter.Export(ctx, records, os.Stdout)
package export
