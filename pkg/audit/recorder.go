package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// RecorderConfig contains configuration for session persistence.
type RecorderConfig struct {
	// Retries is how many times a failed save is retried.
	// Default: 1
	Retries int

	// WriteTimeout bounds each save attempt.
	// Default: 5 seconds
	WriteTimeout time.Duration

	// OnPersist is called after every persist with the number of attempts
	// made and the final error, if any.
	OnPersist func(d time.Duration, attempts int, err error)
}

// DefaultRecorderConfig returns the default recorder configuration.
func DefaultRecorderConfig() *RecorderConfig {
	return &RecorderConfig{
		Retries:      1,
		WriteTimeout: 5 * time.Second,
	}
}

// Recorder persists session snapshots to a Store. Persistence is an
// explicit call made by the session owner after each recorded result and
// after finalization.
type Recorder struct {
	store  Store
	config *RecorderConfig
	logger *slog.Logger
}

// NewRecorder creates a recorder over store.
func NewRecorder(store Store, config *RecorderConfig) *Recorder {
	if config == nil {
		config = DefaultRecorderConfig()
	}
	return &Recorder{
		store:  store,
		config: config,
		logger: slog.Default().With("component", "audit.recorder"),
	}
}

// Persist saves a snapshot of s. A failed save is retried; when every
// attempt fails a warning is attached to the session and a
// *PersistenceError is returned. The session's results are kept either way.
func (r *Recorder) Persist(ctx context.Context, s *Session) error {
	if r == nil || r.store == nil {
		return nil
	}

	start := time.Now()
	attempts := 0
	var err error
	for attempts <= r.config.Retries {
		attempts++
		if err = r.save(ctx, s.Snapshot()); err == nil {
			break
		}
		if ctx.Err() != nil {
			break
		}
		r.logger.Warn("failed to persist audit session",
			"session_id", s.ID(),
			"document_id", s.DocumentID(),
			"attempt", attempts,
			"error", err,
		)
	}

	if r.config.OnPersist != nil {
		r.config.OnPersist(time.Since(start), attempts, err)
	}
	if err == nil {
		return nil
	}

	perr := &PersistenceError{SessionID: s.ID(), Attempts: attempts, Cause: err}
	s.AddWarning(fmt.Sprintf("record not persisted (items_checked=%d, state=%s): %v",
		s.Progress().ItemsChecked, s.State(), err))
	r.logger.Error("audit session not persisted, keeping in-memory results",
		"session_id", s.ID(),
		"document_id", s.DocumentID(),
		"attempts", attempts,
		"error", err,
	)
	return perr
}

func (r *Recorder) save(ctx context.Context, rec *Record) error {
	if r.config.WriteTimeout <= 0 {
		return r.store.Save(ctx, rec)
	}
	writeCtx, cancel := context.WithTimeout(ctx, r.config.WriteTimeout)
	defer cancel()
	return r.store.Save(writeCtx, rec)
}
