package etl

import (
	"errors"
	"fmt"

	"github.com/BartekS5/lakecheck/internal/lake"
	"github.com/BartekS5/lakecheck/pkg/logger"
)

// ErrFatalParse wraps a parse failure on a stream that does not recover.
var ErrFatalParse = errors.New("fatal parse failure")

// rule is one independent record check. check returns the number of
// violations it found; a gate rule with violations stops the remaining rules
// for that record.
type rule[C any] struct {
	name   string
	gate   bool
	strict bool
	check  func(c C) int
}

// applyRules runs every rule against c and returns the total violation count.
// Violations are added to byRule.
func applyRules[C any](rules []rule[C], c C, strict bool, byRule map[string]int) int {
	total := 0
	for _, r := range rules {
		if r.strict && !strict {
			continue
		}
		n := r.check(c)
		if n > 0 {
			total += n
			byRule[r.name] += n
			if r.gate {
				break
			}
		}
	}
	return total
}

func hasFields(rec map[string]interface{}, fields []string) bool {
	for _, f := range fields {
		if _, ok := rec[f]; !ok {
			return false
		}
	}
	return true
}

// handleStreamError decides what a stream error means for the caller: nil
// when the stream recovers (the failure is logged and returned as a message),
// or an ErrFatalParse-wrapped error.
func handleStreamError(dataset, path string, err error, opts StreamOptions) (string, error) {
	if err == nil {
		return "", nil
	}
	if !errors.Is(err, lake.ErrParse) {
		return "", fmt.Errorf("reading %s file '%s': %w", dataset, path, err)
	}
	opts.Metrics.ParseError(dataset)
	if opts.RecoverParseErrors {
		logger.Errorf("Error processing %s file: %v", dataset, err)
		return err.Error(), nil
	}
	return "", fmt.Errorf("%w: %s: %w", ErrFatalParse, dataset, err)
}
