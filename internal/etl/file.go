package etl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BartekS5/lakecheck/pkg/logger"
	"github.com/BartekS5/lakecheck/pkg/models"
)

// FileSink writes the lake aggregate as one JSON document:
// {"customer_ids": [...], "product_skus": [...]}.
type FileSink struct {
	Path string
}

func NewFileSink(path string) *FileSink {
	return &FileSink{Path: path}
}

func (f *FileSink) Write(_ context.Context, summary *models.RunSummary) error {
	if summary.Aggregate == nil {
		return errors.New("summary has no aggregate")
	}
	data, err := json.Marshal(summary.Aggregate)
	if err != nil {
		return fmt.Errorf("encoding aggregate: %w", err)
	}

	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output dir '%s': %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".lakecheck-*.json")
	if err != nil {
		return fmt.Errorf("creating temp output: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp output: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing output: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.Path); err != nil {
		return fmt.Errorf("renaming output to '%s': %w", f.Path, err)
	}

	logger.Infof("Wrote %d customer ids and %d product skus to %s",
		len(summary.Aggregate.CustomerIDs), summary.Aggregate.ProductSKUs.Cardinality(), f.Path)
	return nil
}

func (f *FileSink) Close() error { return nil }
