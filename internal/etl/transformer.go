package etl

import (
	"time"

	"github.com/BartekS5/lakecheck/pkg/models"
)

// Transformer turns a run summary into the flat documents the database and
// broker sinks store.
type Transformer struct{}

func NewTransformer() *Transformer {
	return &Transformer{}
}

// RunDocument describes the whole run. The aggregate fields match the output
// file.
func (t *Transformer) RunDocument(s *models.RunSummary) map[string]interface{} {
	doc := map[string]interface{}{
		"_id":              s.RunID,
		"root":             s.Root,
		"started_at":       s.StartedAt,
		"finished_at":      s.FinishedAt,
		"partitions":       len(s.Partitions),
		"erasure_requests": len(s.ErasureRequests),
		"customer_ids":     []interface{}{},
		"product_skus":     []interface{}{},
	}
	if s.Aggregate != nil {
		doc["customer_ids"] = s.Aggregate.CustomerIDs
		doc["product_skus"] = s.Aggregate.SortedSKUs()
	}
	return doc
}

// PartitionDocument describes one partition's counts. Its _id is stable per
// run and partition so writes can be upserts.
func (t *Transformer) PartitionDocument(runID string, res *models.PartitionResult) map[string]interface{} {
	return map[string]interface{}{
		"_id":                    runID + "/" + res.Partition.Key(),
		"run_id":                 runID,
		"date":                   res.Partition.Date,
		"hour":                   res.Partition.Hour,
		"products_processed":     res.Products.Processed,
		"products_invalid":       res.Products.Invalid,
		"products_missing":       res.Products.Missing,
		"skus_accepted":          len(res.SKUs),
		"customers_extracted":    len(res.Customers.IDs),
		"customers_invalid":      res.Customers.Invalid,
		"customers_missing":      res.Customers.Missing,
		"transactions_processed": res.Transactions.Processed,
		"transactions_invalid":   res.Transactions.Invalid,
		"transactions_missing":   res.Transactions.Missing,
		"parse_errors":           t.parseErrors(res),
		"resumed":                res.Resumed,
		"recorded_at":            time.Now().UTC(),
	}
}

func (t *Transformer) parseErrors(res *models.PartitionResult) []string {
	errs := []string{}
	for _, msg := range []string{res.Products.ParseError, res.Customers.ParseError, res.Transactions.ParseError} {
		if msg != "" {
			errs = append(errs, msg)
		}
	}
	return errs
}
