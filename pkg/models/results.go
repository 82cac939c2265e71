package models

import (
	"encoding/json"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/BartekS5/lakecheck/pkg/utils"
)

// PartitionResult is everything one partition contributes to a run.
type PartitionResult struct {
	Partition    Partition         `json:"partition"`
	Products     ProductSummary    `json:"products"`
	Customers    CustomerReport    `json:"customers"`
	Transactions TransactionReport `json:"transactions"`
	SKUs         []any             `json:"skus"`
	Resumed      bool              `json:"-"`
}

// LakeAggregate is the lake-wide output: customer ids in traversal order with
// duplicates kept, and the union of accepted SKUs.
type LakeAggregate struct {
	CustomerIDs []any
	ProductSKUs mapset.Set[any]
}

func NewLakeAggregate() *LakeAggregate {
	return &LakeAggregate{
		CustomerIDs: []any{},
		ProductSKUs: mapset.NewThreadUnsafeSet[any](),
	}
}

// SortedSKUs materialises the SKU set in a stable order.
func (a *LakeAggregate) SortedSKUs() []any {
	skus := a.ProductSKUs.ToSlice()
	utils.SortIdentifiers(skus)
	return skus
}

type lakeAggregateJSON struct {
	CustomerIDs []any `json:"customer_ids"`
	ProductSKUs []any `json:"product_skus"`
}

func (a *LakeAggregate) MarshalJSON() ([]byte, error) {
	return json.Marshal(lakeAggregateJSON{
		CustomerIDs: a.CustomerIDs,
		ProductSKUs: a.SortedSKUs(),
	})
}

func (a *LakeAggregate) UnmarshalJSON(data []byte) error {
	var raw lakeAggregateJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	a.CustomerIDs = raw.CustomerIDs
	if a.CustomerIDs == nil {
		a.CustomerIDs = []any{}
	}
	a.ProductSKUs = mapset.NewThreadUnsafeSet[any](raw.ProductSKUs...)
	return nil
}

// RunSummary is what sinks receive once the traversal is complete.
type RunSummary struct {
	RunID           string
	Root            string
	StartedAt       time.Time
	FinishedAt      time.Time
	ErasureRequests ErasureTable
	Partitions      []*PartitionResult
	Aggregate       *LakeAggregate
}
