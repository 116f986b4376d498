package analysis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/DevDizzle/profit-scout/internal/adapters/ai"
	"github.com/DevDizzle/profit-scout/internal/adapters/fundamentals"
	"github.com/DevDizzle/profit-scout/internal/domain/task"
	"github.com/DevDizzle/profit-scout/internal/metrics"
	"github.com/DevDizzle/profit-scout/pkg/errors"
	"github.com/DevDizzle/profit-scout/pkg/logger"
	"github.com/DevDizzle/profit-scout/pkg/retry"
)

// Synthesizer merges stage outputs into a single recommendation via the
// configured language model. It never runs when both upstream stages failed.
type Synthesizer struct {
	generator       ai.Generator
	temperature     float64
	maxOutputTokens int
	retryCfg        retry.Config
	log             *logger.Logger
}

// NewSynthesizer creates a synthesizer backed by generator
func NewSynthesizer(generator ai.Generator, temperature float64, maxOutputTokens int, retryCfg retry.Config) *Synthesizer {
	return &Synthesizer{
		generator:       generator,
		temperature:     temperature,
		maxOutputTokens: maxOutputTokens,
		retryCfg:        retryCfg,
		log:             logger.Get().With("stage", string(task.StageSynthesis)),
	}
}

// Synthesize produces the final recommendation from whatever stage results
// are usable. If both stages failed it short-circuits with the quantitative
// error wrapped first; no model call is made in that case. A single failed
// stage degrades the prompt instead of failing the task.
func (s *Synthesizer) Synthesize(ctx context.Context, t *task.Task) task.StageResult {
	quant := t.Quantitative
	qual := t.Qualitative

	quantOK := quant != nil && quant.OK()
	qualOK := qual != nil && qual.OK()

	if !quantOK && !qualOK {
		err := errors.Wrap(errors.ErrNoData, "no analysis dimension produced data")
		s.log.Warnw("Synthesis skipped, both stages failed", "ticker", t.Ticker)
		return task.Failed(task.StageSynthesis, err)
	}

	var quantSection, qualSection, missingNote string

	if quantOK {
		var snap fundamentals.Snapshot
		if err := json.Unmarshal(quant.Payload, &snap); err != nil {
			return task.Failed(task.StageSynthesis, errors.Wrap(err, "decode quantitative payload"))
		}
		quantSection = renderQuantSection(&snap)
	} else {
		missingNote = "Note: financial ratio data is unavailable for this analysis. Base the recommendation on the qualitative summary only and say so explicitly."
	}

	if qualOK {
		qualSection = qual.Text
	} else if missingNote == "" {
		missingNote = "Note: the qualitative filing summary is unavailable for this analysis. Base the recommendation on the financial ratios only and say so explicitly."
	}

	prompt := buildSynthesisPrompt(t.Ticker, t.CompanyName, quantSection, qualSection, missingNote)

	start := time.Now()
	var text string
	err := retry.Do(ctx, s.retryCfg, func(ctx context.Context) error {
		out, err := s.generator.Generate(ctx, ai.GenerateRequest{
			Prompt:          prompt,
			Temperature:     s.temperature,
			MaxOutputTokens: s.maxOutputTokens,
		})
		if err != nil {
			if transient(err) {
				return retry.Mark(err)
			}
			return err
		}
		text = out
		return nil
	})
	metrics.RecordLLMCall(string(s.generator.Name()), "synthesis", time.Since(start), err)
	metrics.RecordStage(string(task.StageSynthesis), time.Since(start), err == nil)

	if err != nil {
		s.log.Errorw("Synthesis model call failed", "ticker", t.Ticker, "error", err)
		return task.Failed(task.StageSynthesis, err)
	}

	s.log.Debugw("Synthesis completed", "ticker", t.Ticker)
	return task.StageResult{Stage: task.StageSynthesis, Text: text}
}
