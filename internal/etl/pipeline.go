package etl

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/BartekS5/lakecheck/internal/lake"
	"github.com/BartekS5/lakecheck/internal/metrics"
	"github.com/BartekS5/lakecheck/pkg/logger"
	"github.com/BartekS5/lakecheck/pkg/models"
)

type Pipeline struct {
	Root       string
	Layout     models.Layout
	Sink       Sink
	Checkpoint Checkpointer
	Metrics    *metrics.Registry
	Workers    int
	Strict     bool
	DryRun     bool
}

// NewPipeline creates a pipeline over the lake at root. Checkpoint and
// Metrics are optional and may be set on the returned value.
func NewPipeline(root string, layout models.Layout, sink Sink, workers int, dryRun bool) *Pipeline {
	if workers < 1 {
		workers = 1
	}
	return &Pipeline{
		Root:    root,
		Layout:  layout.WithDefaults(),
		Sink:    sink,
		Workers: workers,
		DryRun:  dryRun,
	}
}

// Run validates every partition, folds the results in discovery order and
// hands the summary to the sink. Any fatal error aborts the run before the
// sink is called.
func (p *Pipeline) Run(ctx context.Context) (*models.RunSummary, error) {
	summary := &models.RunSummary{
		RunID:     uuid.NewString(),
		Root:      p.Root,
		StartedAt: time.Now().UTC(),
	}
	logger.Infof("Starting run %s. Root: %s, Workers: %d, Strict: %v, DryRun: %v",
		summary.RunID, p.Root, p.Workers, p.Strict, p.DryRun)

	erasure, err := LoadErasureRequests(filepath.Join(p.Root, p.Layout.ErasureFile), StreamOptions{
		RecoverParseErrors: p.Layout.Recover.Erasure,
		Metrics:            p.Metrics,
	})
	if err != nil {
		return nil, err
	}
	summary.ErasureRequests = erasure

	partitions, err := lake.Discover(p.Root, p.Layout)
	if err != nil {
		return nil, err
	}
	logger.Infof("Discovered %d partitions", len(partitions))

	results, err := p.processAll(ctx, partitions)
	if err != nil {
		return nil, err
	}
	summary.Partitions = results
	summary.Aggregate = Fold(results)
	summary.FinishedAt = time.Now().UTC()

	logger.Infof("Run %s folded: %d customer ids, %d product skus in %s",
		summary.RunID, len(summary.Aggregate.CustomerIDs), summary.Aggregate.ProductSKUs.Cardinality(),
		summary.FinishedAt.Sub(summary.StartedAt))

	if p.DryRun {
		logger.Infof("[DRY RUN] Would write %d customer ids and %d product skus",
			len(summary.Aggregate.CustomerIDs), summary.Aggregate.ProductSKUs.Cardinality())
		return summary, nil
	}

	if p.Sink == nil {
		return nil, errors.New("pipeline has no sink")
	}
	if err := p.Sink.Write(ctx, summary); err != nil {
		return nil, fmt.Errorf("writing output: %w", err)
	}
	if p.Checkpoint != nil {
		if err := p.Checkpoint.Clear(); err != nil {
			logger.Warnf("Failed to clear checkpoint: %v", err)
		}
	}
	logger.Info("Pipeline finished successfully.")
	return summary, nil
}

// processAll runs partitions on a bounded worker pool. Results keep the
// discovery order whatever order workers finish in.
func (p *Pipeline) processAll(ctx context.Context, partitions []models.Partition) ([]*models.PartitionResult, error) {
	results := make([]*models.PartitionResult, len(partitions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.Workers)
	for i, part := range partitions {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := p.runPartition(part)
			if err != nil {
				return fmt.Errorf("partition %s: %w", part.Key(), err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (p *Pipeline) runPartition(part models.Partition) (*models.PartitionResult, error) {
	start := time.Now()

	if p.Checkpoint != nil {
		res, ok, err := p.Checkpoint.Load(part, p.checkpointOptions())
		if err != nil {
			logger.Warnf("Ignoring checkpoint for %s: %v", part.Key(), err)
		} else if ok {
			logger.Infof("Resumed partition %s from checkpoint", part.Key())
			p.Metrics.PartitionDone("resumed", time.Since(start))
			return res, nil
		}
	}

	logger.Infof("Processing partition %s", part.Key())
	res, err := ProcessPartition(part, PartitionOptions{
		Recover: p.Layout.Recover,
		Strict:  p.Strict,
		Metrics: p.Metrics,
	})
	if err != nil {
		p.Metrics.PartitionDone("failed", time.Since(start))
		return nil, err
	}

	if p.Checkpoint != nil {
		if err := p.Checkpoint.Save(res, p.checkpointOptions()); err != nil {
			logger.Warnf("Failed to checkpoint %s: %v", part.Key(), err)
		}
	}
	p.Metrics.PartitionDone("processed", time.Since(start))
	return res, nil
}

// checkpointOptions names every setting that changes a partition's result.
func (p *Pipeline) checkpointOptions() string {
	r := p.Layout.Recover
	return fmt.Sprintf("strict=%t recover=products:%t,customers:%t,transactions:%t",
		p.Strict, r.Products, r.Customers, r.Transactions)
}

type PartitionOptions struct {
	Recover models.RecoverPolicy
	Strict  bool
	Metrics *metrics.Registry
}

// ProcessPartition validates one partition. Products and customers are read
// first; transactions are checked against them only when the transactions
// file exists. An absent products or customers file degrades to an empty
// set, so every reference to it counts as invalid.
func ProcessPartition(part models.Partition, opts PartitionOptions) (*models.PartitionResult, error) {
	res := &models.PartitionResult{Partition: part, SKUs: []any{}}

	catalog := models.NewCatalog()
	if part.HasProducts {
		var err error
		catalog, err = ValidateProducts(part.ProductsPath, StreamOptions{
			RecoverParseErrors: opts.Recover.Products,
			Strict:             opts.Strict,
			Metrics:            opts.Metrics,
		})
		if err != nil {
			return nil, err
		}
	} else {
		logger.Warnf("Products file not found at %s", part.ProductsPath)
		opts.Metrics.Missing(metrics.Products)
		res.Products.Missing = true
	}
	res.Products.Processed = catalog.Processed
	res.Products.Invalid = catalog.Invalid
	res.Products.InvalidByRule = catalog.InvalidByRule
	res.Products.ParseError = catalog.ParseError
	res.SKUs = catalog.SKUs.ToSlice()

	customers, err := ExtractCustomers(part.CustomersPath, StreamOptions{
		RecoverParseErrors: opts.Recover.Customers,
		Metrics:            opts.Metrics,
	})
	if err != nil {
		return nil, err
	}
	res.Customers = *customers

	if !part.HasTransactions {
		logger.Warnf("Transactions file not found at %s", part.TransactionsPath)
		opts.Metrics.Missing(metrics.Transactions)
		res.Transactions.Missing = true
		return res, nil
	}

	txns, err := ValidateTransactions(part.TransactionsPath, customers.IDs, catalog, StreamOptions{
		RecoverParseErrors: opts.Recover.Transactions,
		Strict:             opts.Strict,
		Metrics:            opts.Metrics,
	})
	if err != nil {
		return nil, err
	}
	res.Transactions = *txns
	return res, nil
}

// Fold merges partition results in the given order: customer ids are
// appended without deduplication and SKU sets are unioned.
func Fold(results []*models.PartitionResult) *models.LakeAggregate {
	agg := models.NewLakeAggregate()
	for _, res := range results {
		if res == nil {
			continue
		}
		agg.CustomerIDs = append(agg.CustomerIDs, res.Customers.IDs...)
		agg.ProductSKUs.Append(res.SKUs...)
	}
	return agg
}
