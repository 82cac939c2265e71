package etl

import (
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/shopspring/decimal"

	"github.com/BartekS5/lakecheck/internal/lake"
	"github.com/BartekS5/lakecheck/internal/metrics"
	"github.com/BartekS5/lakecheck/pkg/logger"
	"github.com/BartekS5/lakecheck/pkg/models"
	"github.com/BartekS5/lakecheck/pkg/utils"
)

// costTolerance bounds the difference between a stated total_cost and the
// sum of catalog prices in strict mode.
var costTolerance = decimal.RequireFromString("0.01")

type transactionCheck struct {
	record    models.Record
	customers mapset.Set[any]
	catalog   *models.Catalog
	seen      mapset.Set[any]
	purchases map[string]interface{}
}

var transactionRules = []rule[*transactionCheck]{
	{name: "required_fields", gate: true, check: checkTransactionFields},
	{name: "unique_transaction_id", strict: true, check: checkUniqueTransactionID},
	{name: "known_customer", check: checkKnownCustomer},
	{name: "purchases_products", gate: true, check: checkPurchasesProducts},
	{name: "known_sku", check: checkKnownSKUs},
	{name: "total_cost", strict: true, check: checkTotalCost},
}

func checkTransactionFields(c *transactionCheck) int {
	if !hasFields(c.record, models.TransactionFields) {
		return 1
	}
	return 0
}

func checkUniqueTransactionID(c *transactionCheck) int {
	id, ok := utils.NormalizeIdentifier(c.record["transaction_id"])
	if !ok || c.seen.Contains(id) {
		return 1
	}
	c.seen.Add(id)
	return 0
}

func checkKnownCustomer(c *transactionCheck) int {
	id, ok := utils.NormalizeIdentifier(c.record["customer_id"])
	if !ok || !c.customers.Contains(id) {
		return 1
	}
	return 0
}

func checkPurchasesProducts(c *transactionCheck) int {
	purchases, ok := c.record["purchases"].(map[string]interface{})
	if !ok {
		return 1
	}
	if _, ok := purchases["products"]; !ok {
		return 1
	}
	c.purchases = purchases
	return 0
}

// checkKnownSKUs counts one violation per purchased product whose sku is
// absent from the accepted set.
func checkKnownSKUs(c *transactionCheck) int {
	products, ok := c.purchases["products"].([]interface{})
	if !ok {
		return 1
	}
	bad := 0
	for _, p := range products {
		if _, ok := productSKU(p, c.catalog); !ok {
			bad++
		}
	}
	return bad
}

func checkTotalCost(c *transactionCheck) int {
	stated, err := utils.ConvertToDecimal(c.purchases["total_cost"])
	if err != nil {
		return 1
	}
	products, _ := c.purchases["products"].([]interface{})
	sum := decimal.Zero
	for _, p := range products {
		sku, ok := productSKU(p, c.catalog)
		if !ok {
			// already counted by known_sku
			return 0
		}
		price, ok := c.catalog.Prices[sku]
		if !ok {
			return 0
		}
		sum = sum.Add(price)
	}
	if sum.Sub(stated).Abs().GreaterThan(costTolerance) {
		return 1
	}
	return 0
}

// requireTotalCost fails the stream when a transaction that passed the
// presence gate carries a purchases object without total_cost. The failure is
// handled like an undecodable line: logged and ending the file when the stream
// recovers, fatal otherwise.
func requireTotalCost(rec models.Record, path string, n int) error {
	if !hasFields(rec, models.TransactionFields) {
		return nil
	}
	purchases, ok := rec["purchases"].(map[string]interface{})
	if !ok {
		return nil
	}
	if _, ok := purchases["total_cost"]; !ok {
		return fmt.Errorf("%w: %s record %d: purchases has no total_cost", lake.ErrParse, path, n)
	}
	return nil
}

func productSKU(p interface{}, catalog *models.Catalog) (interface{}, bool) {
	entry, ok := p.(map[string]interface{})
	if !ok {
		return nil, false
	}
	raw, ok := entry["sku"]
	if !ok {
		return nil, false
	}
	sku, ok := utils.NormalizeIdentifier(raw)
	if !ok || !catalog.SKUs.Contains(sku) {
		return nil, false
	}
	return sku, true
}

// ValidateTransactions checks a transactions file against the partition's
// customer ids and accepted SKUs. A missing file yields zero counts.
func ValidateTransactions(path string, customerIDs []any, catalog *models.Catalog, opts StreamOptions) (*models.TransactionReport, error) {
	report := &models.TransactionReport{InvalidByRule: make(map[string]int)}

	if !fileExists(path) {
		logger.Warnf("No transactions file found at %s", path)
		opts.Metrics.Missing(metrics.Transactions)
		report.Missing = true
		return report, nil
	}
	if catalog == nil {
		catalog = models.NewCatalog()
	}

	customers := mapset.NewThreadUnsafeSet[any](customerIDs...)
	seen := mapset.NewThreadUnsafeSet[any]()

	err := lake.Each(path, func(rec models.Record) error {
		report.Processed++
		c := &transactionCheck{record: rec, customers: customers, catalog: catalog, seen: seen}
		report.Invalid += applyRules(transactionRules, c, opts.Strict, report.InvalidByRule)
		return requireTotalCost(rec, path, report.Processed)
	})
	msg, err := handleStreamError(metrics.Transactions, path, err, opts)
	if err != nil {
		return nil, err
	}
	report.ParseError = msg

	opts.Metrics.AddProcessed(metrics.Transactions, report.Processed)
	opts.Metrics.AddInvalid(metrics.Transactions, report.InvalidByRule)
	logger.Infof("transactions: Processed: %d, Invalid: %d (%s)", report.Processed, report.Invalid, path)
	return report, nil
}
