package etl

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/BartekS5/lakecheck/pkg/database"
	"github.com/BartekS5/lakecheck/pkg/logger"
	"github.com/BartekS5/lakecheck/pkg/models"
	"github.com/BartekS5/lakecheck/pkg/utils"
)

type sqlDialect struct {
	placeholder func(n int) string
	schema      []string
}

var sqlDialects = map[string]sqlDialect{
	database.DriverSQLServer: {
		placeholder: func(n int) string { return fmt.Sprintf("@p%d", n) },
		schema: []string{
			`IF OBJECT_ID(N'lake_runs', N'U') IS NULL CREATE TABLE lake_runs (
				run_id NVARCHAR(64) NOT NULL PRIMARY KEY,
				root NVARCHAR(1024) NOT NULL,
				started_at DATETIME2 NOT NULL,
				finished_at DATETIME2 NOT NULL,
				partitions INT NOT NULL,
				erasure_requests INT NOT NULL)`,
			`IF OBJECT_ID(N'lake_customer_ids', N'U') IS NULL CREATE TABLE lake_customer_ids (
				run_id NVARCHAR(64) NOT NULL,
				position INT NOT NULL,
				customer_id NVARCHAR(512) NOT NULL,
				PRIMARY KEY (run_id, position))`,
			`IF OBJECT_ID(N'lake_product_skus', N'U') IS NULL CREATE TABLE lake_product_skus (
				run_id NVARCHAR(64) NOT NULL,
				sku NVARCHAR(512) NOT NULL)`,
			`IF OBJECT_ID(N'lake_partition_reports', N'U') IS NULL CREATE TABLE lake_partition_reports (
				run_id NVARCHAR(64) NOT NULL,
				date NVARCHAR(64) NOT NULL,
				hour NVARCHAR(64) NOT NULL,
				products_processed INT NOT NULL,
				products_invalid INT NOT NULL,
				customers_extracted INT NOT NULL,
				customers_invalid INT NOT NULL,
				transactions_processed INT NOT NULL,
				transactions_invalid INT NOT NULL,
				parse_errors NVARCHAR(MAX) NOT NULL)`,
		},
	},
	database.DriverSQLite: {
		placeholder: func(int) string { return "?" },
		schema: []string{
			`CREATE TABLE IF NOT EXISTS lake_runs (
				run_id TEXT NOT NULL PRIMARY KEY,
				root TEXT NOT NULL,
				started_at TIMESTAMP NOT NULL,
				finished_at TIMESTAMP NOT NULL,
				partitions INTEGER NOT NULL,
				erasure_requests INTEGER NOT NULL)`,
			`CREATE TABLE IF NOT EXISTS lake_customer_ids (
				run_id TEXT NOT NULL,
				position INTEGER NOT NULL,
				customer_id TEXT NOT NULL,
				PRIMARY KEY (run_id, position))`,
			`CREATE TABLE IF NOT EXISTS lake_product_skus (
				run_id TEXT NOT NULL,
				sku TEXT NOT NULL)`,
			`CREATE TABLE IF NOT EXISTS lake_partition_reports (
				run_id TEXT NOT NULL,
				date TEXT NOT NULL,
				hour TEXT NOT NULL,
				products_processed INTEGER NOT NULL,
				products_invalid INTEGER NOT NULL,
				customers_extracted INTEGER NOT NULL,
				customers_invalid INTEGER NOT NULL,
				transactions_processed INTEGER NOT NULL,
				transactions_invalid INTEGER NOT NULL,
				parse_errors TEXT NOT NULL)`,
		},
	},
}

// SQLSink stores a run in relational tables, creating them when missing.
// Everything for one run is written in a single transaction.
type SQLSink struct {
	DB          *sql.DB
	Driver      string
	Transformer *Transformer
}

func NewSQLSink(db *sql.DB, driver string) (*SQLSink, error) {
	if _, ok := sqlDialects[driver]; !ok {
		return nil, fmt.Errorf("unsupported sql driver '%s'", driver)
	}
	return &SQLSink{DB: db, Driver: driver, Transformer: NewTransformer()}, nil
}

func (l *SQLSink) dialect() sqlDialect { return sqlDialects[l.Driver] }

func (l *SQLSink) insertQuery(table string, cols ...string) string {
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = l.dialect().placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
}

// EnsureSchema creates the sink tables if they do not exist.
func (l *SQLSink) EnsureSchema(ctx context.Context) error {
	for _, stmt := range l.dialect().schema {
		if _, err := l.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	return nil
}

func (l *SQLSink) Write(ctx context.Context, summary *models.RunSummary) error {
	if err := l.EnsureSchema(ctx); err != nil {
		return err
	}

	tx, err := l.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		l.insertQuery("lake_runs", "run_id", "root", "started_at", "finished_at", "partitions", "erasure_requests"),
		summary.RunID, summary.Root, summary.StartedAt, summary.FinishedAt,
		len(summary.Partitions), len(summary.ErasureRequests))
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	if summary.Aggregate != nil {
		customerStmt, err := tx.PrepareContext(ctx, l.insertQuery("lake_customer_ids", "run_id", "position", "customer_id"))
		if err != nil {
			return err
		}
		defer customerStmt.Close()
		for i, id := range summary.Aggregate.CustomerIDs {
			if _, err := customerStmt.ExecContext(ctx, summary.RunID, i, utils.Stringify(id)); err != nil {
				return fmt.Errorf("inserting customer id: %w", err)
			}
		}

		skuStmt, err := tx.PrepareContext(ctx, l.insertQuery("lake_product_skus", "run_id", "sku"))
		if err != nil {
			return err
		}
		defer skuStmt.Close()
		for _, sku := range summary.Aggregate.SortedSKUs() {
			if _, err := skuStmt.ExecContext(ctx, summary.RunID, utils.Stringify(sku)); err != nil {
				return fmt.Errorf("inserting sku: %w", err)
			}
		}
	}

	reportQuery := l.insertQuery("lake_partition_reports",
		"run_id", "date", "hour", "products_processed", "products_invalid",
		"customers_extracted", "customers_invalid", "transactions_processed", "transactions_invalid", "parse_errors")
	for _, res := range summary.Partitions {
		_, err := tx.ExecContext(ctx, reportQuery,
			summary.RunID, res.Partition.Date, res.Partition.Hour,
			res.Products.Processed, res.Products.Invalid,
			len(res.Customers.IDs), res.Customers.Invalid,
			res.Transactions.Processed, res.Transactions.Invalid,
			strings.Join(l.Transformer.parseErrors(res), "\n"))
		if err != nil {
			return fmt.Errorf("inserting partition report: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	logger.Infof("SQL sink (%s): stored run %s with %d partition reports", l.Driver, summary.RunID, len(summary.Partitions))
	return nil
}

func (l *SQLSink) Close() error { return l.DB.Close() }
