package etl

import (
	"github.com/BartekS5/lakecheck/internal/lake"
	"github.com/BartekS5/lakecheck/internal/metrics"
	"github.com/BartekS5/lakecheck/pkg/logger"
	"github.com/BartekS5/lakecheck/pkg/models"
	"github.com/BartekS5/lakecheck/pkg/utils"
)

// ExtractCustomers returns the customer ids of a customers file in file order.
// Records without a usable id are reported and skipped. A missing file yields
// an empty report.
func ExtractCustomers(path string, opts StreamOptions) (*models.CustomerReport, error) {
	report := &models.CustomerReport{IDs: []any{}}

	if !fileExists(path) {
		logger.Warnf("No customers file found at %s", path)
		opts.Metrics.Missing(metrics.Customers)
		report.Missing = true
		return report, nil
	}

	err := lake.Each(path, func(rec models.Record) error {
		id, ok := utils.NormalizeIdentifier(rec["id"])
		if !ok || !utils.Truthy(id) {
			report.Invalid++
			logger.Warnf("Invalid customer data: %v", rec)
			return nil
		}
		report.IDs = append(report.IDs, id)
		return nil
	})
	msg, err := handleStreamError(metrics.Customers, path, err, opts)
	if err != nil {
		return nil, err
	}
	report.ParseError = msg

	opts.Metrics.AddProcessed(metrics.Customers, len(report.IDs)+report.Invalid)
	if report.Invalid > 0 {
		opts.Metrics.AddInvalid(metrics.Customers, map[string]int{"id": report.Invalid})
	}
	logger.Infof("customers: Extracted: %d, Invalid: %d (%s)", len(report.IDs), report.Invalid, path)
	return report, nil
}
