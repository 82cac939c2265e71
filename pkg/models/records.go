package models

import (
	"path"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/shopspring/decimal"
)

// Record is one decoded NDJSON line. Numbers decode as float64.
type Record = map[string]interface{}

var (
	ProductFields     = []string{"sku", "name", "price", "category", "popularity"}
	TransactionFields = []string{"transaction_id", "transaction_time", "customer_id", "delivery_address", "purchases"}
)

// Erasure request tags.
const (
	ErasureTagID    = "id"
	ErasureTagEmail = "email"
)

// ErasureTable maps a customer id or email to the tag naming which kind of
// value it is.
type ErasureTable map[string]string

// CountByTag returns how many keys carry each tag.
func (t ErasureTable) CountByTag() map[string]int {
	out := make(map[string]int)
	for _, tag := range t {
		out[tag]++
	}
	return out
}

// Partition is one date=/hour= directory of the lake.
type Partition struct {
	Date string `json:"date"`
	Hour string `json:"hour"`
	Dir  string `json:"dir"`

	CustomersPath    string `json:"customersPath"`
	ProductsPath     string `json:"productsPath"`
	TransactionsPath string `json:"transactionsPath"`

	HasCustomers    bool `json:"hasCustomers"`
	HasProducts     bool `json:"hasProducts"`
	HasTransactions bool `json:"hasTransactions"`
}

// Key identifies the partition independently of where the lake is mounted.
func (p Partition) Key() string {
	return path.Join("date="+p.Date, "hour="+p.Hour)
}

// Catalog is the outcome of validating one products file.
type Catalog struct {
	// SKUs is the accepted set: every record that passed the presence gate,
	// first occurrence only.
	SKUs          mapset.Set[any]
	Prices        map[any]decimal.Decimal
	Processed     int
	Invalid       int
	InvalidByRule map[string]int
	ParseError    string
}

func NewCatalog() *Catalog {
	return &Catalog{
		SKUs:          mapset.NewThreadUnsafeSet[any](),
		Prices:        make(map[any]decimal.Decimal),
		InvalidByRule: make(map[string]int),
	}
}

// CustomerReport is the outcome of extracting one customers file.
type CustomerReport struct {
	IDs        []any  `json:"ids"`
	Invalid    int    `json:"invalid"`
	Missing    bool   `json:"missing,omitempty"`
	ParseError string `json:"parseError,omitempty"`
}

// TransactionReport is the outcome of validating one transactions file.
type TransactionReport struct {
	Processed     int            `json:"processed"`
	Invalid       int            `json:"invalid"`
	InvalidByRule map[string]int `json:"invalidByRule,omitempty"`
	Missing       bool           `json:"missing,omitempty"`
	ParseError    string         `json:"parseError,omitempty"`
}

// ProductSummary is the serialisable part of a Catalog.
type ProductSummary struct {
	Processed     int            `json:"processed"`
	Invalid       int            `json:"invalid"`
	InvalidByRule map[string]int `json:"invalidByRule,omitempty"`
	Missing       bool           `json:"missing,omitempty"`
	ParseError    string         `json:"parseError,omitempty"`
}
