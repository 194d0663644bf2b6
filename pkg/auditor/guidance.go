package auditor

import (
	"context"

	"formarter/compliance/pkg/audit"
	"formarter/compliance/pkg/checklist"
)

// ProgressReport answers a progress query.
type ProgressReport struct {
	SessionID  string         `json:"session_id"`
	DocumentID string         `json:"document_id"`
	Status     audit.State    `json:"status"`
	Progress   audit.Progress `json:"progress"`
}

// FailingGuidance lists fix guidance for every failed rule of a session.
// Failing is empty, never nil, for a session without failures.
type FailingGuidance struct {
	SessionID  string                `json:"session_id"`
	DocumentID string                `json:"document_id"`
	Status     audit.State           `json:"status"`
	Failing    []*checklist.Guidance `json:"failing"`
}

// Progress reports how far a session has come. An unknown id returns an
// error wrapping audit.ErrSessionNotFound.
func (a *Auditor) Progress(ctx context.Context, sessionID string) (*ProgressReport, error) {
	rec, err := a.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &ProgressReport{
		SessionID:  rec.SessionID,
		DocumentID: rec.DocumentID,
		Status:     rec.Status,
		Progress:   rec.Progress,
	}, nil
}

// Guidance returns the fix guidance for one rule. An unknown id returns
// an error wrapping checklist.ErrRuleNotFound.
func (a *Auditor) Guidance(ruleID int) (*checklist.Guidance, error) {
	return a.catalog.Guidance(ruleID)
}

// FailingGuidance returns guidance for each failed rule of a session in
// ascending rule id order.
func (a *Auditor) FailingGuidance(ctx context.Context, sessionID string) (*FailingGuidance, error) {
	rec, err := a.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return a.failingGuidance(rec), nil
}

func (a *Auditor) failingGuidance(rec *audit.Record) *FailingGuidance {
	out := &FailingGuidance{
		SessionID:  rec.SessionID,
		DocumentID: rec.DocumentID,
		Status:     rec.Status,
		Failing:    []*checklist.Guidance{},
	}
	for _, res := range rec.Failing() {
		g, err := a.catalog.Guidance(res.RuleID)
		if err != nil {
			// Recorded against a different catalog version.
			g = &checklist.Guidance{
				RuleID:      res.RuleID,
				Category:    res.Category,
				Description: res.Description,
				Citation:    res.Citation,
				Severity:    res.Severity,
			}
		}
		out.Failing = append(out.Failing, g)
	}
	return out
}
