package analysis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/DevDizzle/profit-scout/internal/domain/task"
	"github.com/DevDizzle/profit-scout/internal/metrics"
	"github.com/DevDizzle/profit-scout/pkg/errors"
	"github.com/DevDizzle/profit-scout/pkg/logger"
	"github.com/DevDizzle/profit-scout/pkg/retry"
)

// StageAdapter runs one independently-failing unit of analysis work.
// A failure is reported inside the StageResult, never as a Go error: the
// orchestrator treats an errored stage as a partial failure of the task.
type StageAdapter interface {
	Stage() task.Stage
	Run(ctx context.Context, ticker string) task.StageResult
}

// transient reports whether an external-call failure is worth retrying
func transient(err error) bool {
	return errors.Is(err, errors.ErrUnavailable) || errors.Is(err, errors.ErrTimeout)
}

// QuantitativeAdapter wraps the financial-metrics source
type QuantitativeAdapter struct {
	source   FundamentalsSource
	retryCfg retry.Config
	log      *logger.Logger
}

// NewQuantitativeAdapter creates the quantitative stage adapter
func NewQuantitativeAdapter(source FundamentalsSource, retryCfg retry.Config) *QuantitativeAdapter {
	return &QuantitativeAdapter{
		source:   source,
		retryCfg: retryCfg,
		log:      logger.Get().With("stage", string(task.StageQuantitative)),
	}
}

// Stage returns the stage name
func (a *QuantitativeAdapter) Stage() task.Stage { return task.StageQuantitative }

// Run fetches the ratio snapshot for ticker, retrying transient failures
// with bounded backoff. The result payload is the normalized snapshot JSON.
func (a *QuantitativeAdapter) Run(ctx context.Context, ticker string) task.StageResult {
	start := time.Now()

	var payload json.RawMessage
	err := retry.Do(ctx, a.retryCfg, func(ctx context.Context) error {
		snap, err := a.source.Fetch(ctx, ticker)
		if err != nil {
			if transient(err) {
				return retry.Mark(err)
			}
			return err
		}

		data, err := json.Marshal(snap)
		if err != nil {
			return errors.Wrap(err, "encode snapshot")
		}
		payload = data
		return nil
	})

	metrics.RecordStage(string(task.StageQuantitative), time.Since(start), err == nil)

	if err != nil {
		a.log.Warnw("Quantitative stage failed", "ticker", ticker, "error", err)
		return task.Failed(task.StageQuantitative, err)
	}

	a.log.Debugw("Quantitative stage completed", "ticker", ticker)
	return task.StageResult{Stage: task.StageQuantitative, Payload: payload}
}

// QualitativeAdapter wraps the filings/narrative source
type QualitativeAdapter struct {
	source   FilingsSource
	retryCfg retry.Config
	log      *logger.Logger
}

// NewQualitativeAdapter creates the qualitative stage adapter
func NewQualitativeAdapter(source FilingsSource, retryCfg retry.Config) *QualitativeAdapter {
	return &QualitativeAdapter{
		source:   source,
		retryCfg: retryCfg,
		log:      logger.Get().With("stage", string(task.StageQualitative)),
	}
}

// Stage returns the stage name
func (a *QualitativeAdapter) Stage() task.Stage { return task.StageQualitative }

// Run fetches the filing summary for ticker with the same retry policy as
// the quantitative stage.
func (a *QualitativeAdapter) Run(ctx context.Context, ticker string) task.StageResult {
	start := time.Now()

	var text string
	err := retry.Do(ctx, a.retryCfg, func(ctx context.Context) error {
		summary, err := a.source.Fetch(ctx, ticker)
		if err != nil {
			if transient(err) {
				return retry.Mark(err)
			}
			return err
		}
		text = summary.Summary
		return nil
	})

	metrics.RecordStage(string(task.StageQualitative), time.Since(start), err == nil)

	if err != nil {
		a.log.Warnw("Qualitative stage failed", "ticker", ticker, "error", err)
		return task.Failed(task.StageQualitative, err)
	}

	a.log.Debugw("Qualitative stage completed", "ticker", ticker)
	return task.StageResult{Stage: task.StageQualitative, Text: text}
}
