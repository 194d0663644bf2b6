package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"formarter/compliance/pkg/audit"
)

// Attribute keys use the "formarter." namespace.
const (
	AttrDocumentID     = "formarter.document.id"
	AttrCollection     = "formarter.collection"
	AttrSessionID      = "formarter.session.id"
	AttrBatchID        = "formarter.batch.id"
	AttrCatalogVersion = "formarter.catalog.version"
	AttrRuleCount      = "formarter.catalog.rules"

	AttrPassed        = "formarter.result.passed"
	AttrFailed        = "formarter.result.failed"
	AttrWarnings      = "formarter.result.warnings"
	AttrManual        = "formarter.result.manual"
	AttrNotApplicable = "formarter.result.not_applicable"
	AttrScore         = "formarter.score"
	AttrScoreFormula  = "formarter.score.formula"
	AttrScoreFlag     = "formarter.score.flag"
	AttrDegenerate    = "formarter.degenerate"

	AttrDocuments      = "formarter.batch.documents"
	AttrAggregateScore = "formarter.batch.aggregate_score"
)

// DocumentAttributes returns the start attributes of a document audit span.
func DocumentAttributes(documentID, collection string) trace.SpanStartOption {
	attrs := []attribute.KeyValue{attribute.String(AttrDocumentID, documentID)}
	if collection != "" {
		attrs = append(attrs, attribute.String(AttrCollection, collection))
	}
	return trace.WithAttributes(attrs...)
}

// SetRecordAttributes annotates span with the outcome of an audit.
func SetRecordAttributes(span trace.Span, rec *audit.Record) {
	if rec == nil {
		return
	}
	s := rec.Summary
	span.SetAttributes(
		attribute.String(AttrSessionID, rec.SessionID),
		attribute.Int(AttrPassed, s.Passed),
		attribute.Int(AttrFailed, s.Failed),
		attribute.Int(AttrWarnings, s.Warnings),
		attribute.Int(AttrManual, s.ManualReview),
		attribute.Int(AttrNotApplicable, s.NotApplicable),
		attribute.Float64(AttrScore, s.Score),
		attribute.String(AttrScoreFormula, string(s.ScoreFormula)),
	)
	if rec.CatalogVersion != "" {
		span.SetAttributes(attribute.String(AttrCatalogVersion, rec.CatalogVersion))
	}
	if s.ScoreFlag != "" {
		span.SetAttributes(attribute.String(AttrScoreFlag, s.ScoreFlag))
	}
	if rec.Degenerate {
		span.SetAttributes(attribute.Bool(AttrDegenerate, true))
	}
}

// SetBatchAttributes annotates a batch span.
func SetBatchAttributes(span trace.Span, batchID string, documents int, aggregate float64) {
	span.SetAttributes(
		attribute.String(AttrBatchID, batchID),
		attribute.Int(AttrDocuments, documents),
		attribute.Float64(AttrAggregateScore, aggregate),
	)
}
