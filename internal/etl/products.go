package etl

import (
	"github.com/shopspring/decimal"

	"github.com/BartekS5/lakecheck/internal/lake"
	"github.com/BartekS5/lakecheck/internal/metrics"
	"github.com/BartekS5/lakecheck/pkg/logger"
	"github.com/BartekS5/lakecheck/pkg/models"
	"github.com/BartekS5/lakecheck/pkg/utils"
)

type productCheck struct {
	catalog *models.Catalog
	record  models.Record
	sku     interface{}
	fresh   bool
	price   decimal.Decimal
	priced  bool
}

var productRules = []rule[*productCheck]{
	{name: "required_fields", gate: true, check: checkProductFields},
	{name: "unique_sku", check: checkUniqueSKU},
	{name: "positive_price", check: checkPositivePrice},
	{name: "positive_popularity", check: checkPositivePopularity},
}

func checkProductFields(c *productCheck) int {
	if !hasFields(c.record, models.ProductFields) {
		return 1
	}
	return 0
}

// checkUniqueSKU admits the first occurrence of a SKU into the accepted set
// regardless of the price and popularity outcome.
func checkUniqueSKU(c *productCheck) int {
	sku, ok := utils.NormalizeIdentifier(c.record["sku"])
	if !ok || c.catalog.SKUs.Contains(sku) {
		return 1
	}
	c.catalog.SKUs.Add(sku)
	c.sku = sku
	c.fresh = true
	return 0
}

func checkPositivePrice(c *productCheck) int {
	price, err := utils.ConvertToFloat(c.record["price"])
	if err != nil || price <= 0 {
		return 1
	}
	if d, err := utils.ConvertToDecimal(c.record["price"]); err == nil {
		c.price = d
		c.priced = true
	}
	return 0
}

// checkPositivePopularity accepts JSON numbers only; unlike price, a numeric
// string is not a popularity.
func checkPositivePopularity(c *productCheck) int {
	popularity, ok := c.record["popularity"].(float64)
	if !ok || popularity <= 0 {
		return 1
	}
	return 0
}

// ValidateProducts streams a products file and returns the accepted SKU set
// with record counts. The file must exist.
func ValidateProducts(path string, opts StreamOptions) (*models.Catalog, error) {
	catalog := models.NewCatalog()

	err := lake.Each(path, func(rec models.Record) error {
		catalog.Processed++
		c := &productCheck{catalog: catalog, record: rec}
		catalog.Invalid += applyRules(productRules, c, opts.Strict, catalog.InvalidByRule)
		if c.fresh && c.priced {
			catalog.Prices[c.sku] = c.price
		}
		return nil
	})
	msg, err := handleStreamError(metrics.Products, path, err, opts)
	if err != nil {
		return nil, err
	}
	catalog.ParseError = msg

	opts.Metrics.AddProcessed(metrics.Products, catalog.Processed)
	opts.Metrics.AddInvalid(metrics.Products, catalog.InvalidByRule)
	logger.Infof("products: Processed: %d, Invalid: %d (%s)", catalog.Processed, catalog.Invalid, path)
	return catalog, nil
}
