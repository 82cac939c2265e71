package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/BartekS5/lakecheck/internal/checkpoint"
	"github.com/BartekS5/lakecheck/internal/config"
	"github.com/BartekS5/lakecheck/internal/etl"
	"github.com/BartekS5/lakecheck/internal/lake"
	"github.com/BartekS5/lakecheck/internal/metrics"
	"github.com/BartekS5/lakecheck/pkg/database"
	"github.com/BartekS5/lakecheck/pkg/logger"
)

func initLogging(cfg *config.Config) error {
	level := logger.INFO
	if cfg.Debug {
		level = logger.DEBUG
	}
	return logger.InitLogger(cfg.LogFile, level)
}

func runValidation(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := initLogging(cfg); err != nil {
		return err
	}
	defer logger.Close()

	layout, err := config.LoadLayout(cfg.Layout)
	if err != nil {
		return err
	}

	var sink etl.Sink
	if !cfg.DryRun {
		sink, err = newSink(ctx, cfg)
		if err != nil {
			return err
		}
		defer sink.Close()
	}

	reg := metrics.NewRegistry()
	if cfg.MetricsAddr != "" {
		stop := serveMetrics(cfg.MetricsAddr, reg)
		defer stop()
	}

	pipeline := etl.NewPipeline(cfg.Root, layout, sink, cfg.Workers, cfg.DryRun)
	pipeline.Strict = cfg.Strict
	pipeline.Metrics = reg

	if cfg.CheckpointDir != "" {
		store, err := checkpoint.Open(cfg.CheckpointDir)
		if err != nil {
			return err
		}
		defer store.Close()
		pipeline.Checkpoint = store
	}

	fmt.Printf("Starting validation of lake %s...\n", cfg.Root)
	_, runErr := pipeline.Run(ctx)

	if err := reg.WriteTextfile(cfg.MetricsFile); err != nil {
		logger.Warnf("Failed to write metrics file %s: %v", cfg.MetricsFile, err)
	}
	if runErr != nil {
		return runErr
	}

	fmt.Println("Validation finished successfully.")
	return nil
}

func newSink(ctx context.Context, cfg *config.Config) (etl.Sink, error) {
	switch cfg.Sink {
	case config.SinkFile:
		return etl.NewFileSink(cfg.Output), nil
	case config.SinkMongo:
		client, err := database.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		return etl.NewMongoSink(client, cfg.MongoDatabase), nil
	case config.SinkSQL:
		db, err := database.ConnectSQL(ctx, cfg.SQLDriver, cfg.SQLDSN)
		if err != nil {
			return nil, err
		}
		sink, err := etl.NewSQLSink(db, cfg.SQLDriver)
		if err != nil {
			db.Close()
			return nil, err
		}
		return sink, nil
	case config.SinkKafka:
		return etl.NewKafkaSink(etl.NewKafkaWriter(cfg.Brokers(), cfg.KafkaTopic)), nil
	default:
		return nil, fmt.Errorf("unknown sink '%s'", cfg.Sink)
	}
}

func serveMetrics(addr string, reg *metrics.Registry) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", reg.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("metrics server: %v", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func listPartitions(w io.Writer, cfg *config.Config) error {
	layout, err := config.LoadLayout(cfg.Layout)
	if err != nil {
		return err
	}
	partitions, err := lake.Discover(cfg.Root, layout)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PARTITION\tPRODUCTS\tCUSTOMERS\tTRANSACTIONS")
	for _, p := range partitions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.Key(), present(p.HasProducts), present(p.HasCustomers), present(p.HasTransactions))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "%d partitions\n", len(partitions))
	return nil
}

func present(ok bool) string {
	if ok {
		return "yes"
	}
	return "-"
}

func showErasure(w io.Writer, cfg *config.Config) error {
	layout, err := config.LoadLayout(cfg.Layout)
	if err != nil {
		return err
	}
	table, err := etl.LoadErasureRequests(filepath.Join(cfg.Root, layout.ErasureFile), etl.StreamOptions{
		RecoverParseErrors: layout.Recover.Erasure,
	})
	if err != nil {
		return err
	}

	counts := table.CountByTag()
	tags := make([]string, 0, len(counts))
	for tag := range counts {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	fmt.Fprintf(w, "%d erasure keys\n", len(table))
	for _, tag := range tags {
		fmt.Fprintf(w, "  %s: %d\n", tag, counts[tag])
	}
	return nil
}
