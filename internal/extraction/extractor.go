// Package extraction turns contract text into an ExtractedData record and a confidence value.
// Extraction never fails: model errors and unusable responses degrade to the default record.
package extraction

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jonathan/contract-auditor/internal/ingestion"
	"github.com/jonathan/contract-auditor/internal/llm"
	"github.com/jonathan/contract-auditor/internal/types"
)

// Defaults for Options fields left at zero.
const (
	DefaultMaxChars = 30000
	DefaultTimeout  = 60 * time.Second
)

// Options tunes an Extractor.
type Options struct {
	MaxChars int           // characters forwarded to the model; 0 means DefaultMaxChars, <0 disables truncation
	Timeout  time.Duration // bound on each model attempt
	Retries  int           // retries after a failed call, capped at 1
	Tier     llm.ModelTier
}

// Result is what the extractor hands to validation and the lifecycle.
type Result struct {
	Data       types.ExtractedData
	Confidence float64
	Outcome    Outcome
	IsContract bool
	Truncated  bool
	Nulled     []string
	Attempts   int
	Raw        string
	Err        error // the model or parse error absorbed by the fallback, if any
}

// Extractor is the StructuredExtractor. It is safe for concurrent use.
type Extractor struct {
	client llm.Client
	opts   Options
	logger *slog.Logger
}

// New creates an Extractor. A nil client is allowed: every extraction then degrades.
func New(client llm.Client, opts Options, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxChars == 0 {
		opts.MaxChars = DefaultMaxChars
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	opts.Retries = min(max(opts.Retries, 0), 1)
	if opts.Tier == "" {
		opts.Tier = llm.TierStandard
	}
	return &Extractor{client: client, opts: opts, logger: logger}
}

// Configured reports whether a completion model is wired in.
func (e *Extractor) Configured() bool {
	return e.client != nil
}

// Extract runs prompt build, bounded model call and the parse chain over text.
func (e *Extractor) Extract(ctx context.Context, text string) Result {
	start := time.Now()
	input, truncated := ingestion.Truncate(text, e.opts.MaxChars)
	if truncated {
		e.logger.Warn("llm.extract.truncated",
			"chars", len([]rune(text)), "budget", e.opts.MaxChars)
	}

	raw, attempts, err := e.complete(ctx, BuildPrompt(input))
	if err != nil {
		e.logger.Error("llm.extract.fallback",
			"attempts", attempts, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		fb := Fallback()
		return e.result(fb, raw, attempts, truncated, err)
	}

	parsed := Parse(raw)
	var parseErr error
	switch parsed.Outcome {
	case OutcomeFallback:
		parseErr = &ParseError{Message: "model output could not be parsed"}
		e.logger.Warn("llm.extract.unparseable", "raw_len", len(raw))
	case OutcomePartial, OutcomeLenient:
		e.logger.Warn("llm.extract.degraded", "outcome", parsed.Outcome, "nulled", parsed.Nulled)
	}
	if parsed.DurationFromPhrase {
		e.logger.Info("llm.extract.duration_from_phrase",
			"months", *parsed.Data.ContractDurationMonths, "extra_days", parsed.ExtraDays)
	}

	e.logger.Info("llm.extract.ok",
		"outcome", parsed.Outcome,
		"confidence", parsed.Outcome.Confidence(),
		"is_contract", parsed.IsContract,
		"attempts", attempts,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return e.result(parsed, raw, attempts, truncated, parseErr)
}

func (e *Extractor) result(p Parsed, raw string, attempts int, truncated bool, err error) Result {
	return Result{
		Data:       p.Data,
		Confidence: p.Outcome.Confidence(),
		Outcome:    p.Outcome,
		IsContract: p.IsContract,
		Truncated:  truncated,
		Nulled:     p.Nulled,
		Attempts:   attempts,
		Raw:        raw,
		Err:        err,
	}
}

// complete calls the model at most 1+Retries times, each attempt under its own timeout.
func (e *Extractor) complete(ctx context.Context, prompt string) (string, int, error) {
	if e.client == nil {
		return "", 0, &APICallError{Message: "no completion model configured"}
	}

	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= e.opts.Retries; attempt++ {
		if ctx.Err() != nil {
			break
		}
		attempts++

		attemptCtx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
		raw, err := e.client.GenerateJSON(attemptCtx, prompt, e.opts.Tier)
		cancel()
		if err == nil {
			return raw, attempts, nil
		}

		lastErr = err
		if attempt < e.opts.Retries {
			e.logger.Warn("llm.generate.retry", "attempt", attempts, "error", err)
		}
	}

	if lastErr == nil {
		lastErr = ctx.Err()
	}
	if errors.Is(lastErr, context.DeadlineExceeded) {
		return "", attempts, &APICallError{Message: "model call timed out", Cause: lastErr}
	}
	return "", attempts, &APICallError{Message: "model call failed", Cause: lastErr}
}
