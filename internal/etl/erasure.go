package etl

import (
	"os"

	"github.com/BartekS5/lakecheck/internal/lake"
	"github.com/BartekS5/lakecheck/internal/metrics"
	"github.com/BartekS5/lakecheck/pkg/logger"
	"github.com/BartekS5/lakecheck/pkg/models"
	"github.com/BartekS5/lakecheck/pkg/utils"
)

// LoadErasureRequests reads the erasure feed into a key -> tag table. A
// request naming both a customer id and an email registers both keys. A
// missing file is an empty table.
//
// Nothing downstream consults the table yet; it is loaded so the run can
// report it.
func LoadErasureRequests(path string, opts StreamOptions) (models.ErasureTable, error) {
	table := make(models.ErasureTable)

	if !fileExists(path) {
		logger.Debugf("No erasure requests file at %s", path)
		return table, nil
	}

	err := lake.Each(path, func(rec models.Record) error {
		if id, ok := rec["customer-id"]; ok && id != nil {
			table[utils.Stringify(id)] = models.ErasureTagID
		}
		if email, ok := rec["email"]; ok && email != nil {
			table[utils.Stringify(email)] = models.ErasureTagEmail
		}
		return nil
	})
	if _, err := handleStreamError(metrics.Erasure, path, err, opts); err != nil {
		return nil, err
	}

	opts.Metrics.SetErasureRequests(len(table))
	logger.Infof("erasure requests: loaded %d keys from %s", len(table), path)
	return table, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
