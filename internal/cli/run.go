package cli

import (
	"github.com/spf13/cobra"

	"github.com/BartekS5/lakecheck/internal/config"
)

// LakeOptions are the flags shared by every command that reads the lake.
type LakeOptions struct {
	Root   string
	Layout string
}

func (o *LakeOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.Root, "root", "r", "", "Path to the lake root (default from LAKECHECK_ROOT or test-data)")
	cmd.Flags().StringVarP(&o.Layout, "layout", "l", "", "Path to a JSON or YAML layout file")
}

func (o *LakeOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("root") {
		cfg.Root = o.Root
	}
	if cmd.Flags().Changed("layout") {
		cfg.Layout = o.Layout
	}
}

type RunOptions struct {
	LakeOptions
	Output        string
	Sink          string
	Workers       int
	Strict        bool
	DryRun        bool
	CheckpointDir string
	MetricsFile   string
	MetricsAddr   string
}

func NewRunCmd() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Validate every partition and write the lake aggregate",
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			opts.apply(c, cfg)
			return runValidation(c.Context(), cfg)
		},
	}

	opts.addFlags(cmd)
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "Output JSON path for the file sink")
	cmd.Flags().StringVarP(&opts.Sink, "sink", "s", "", "Output sink: file, mongo, sql or kafka")
	cmd.Flags().IntVarP(&opts.Workers, "workers", "w", 1, "Partitions processed concurrently")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "Also reject duplicate transaction ids and mismatched total costs")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Validate and report without writing output")
	cmd.Flags().StringVar(&opts.CheckpointDir, "checkpoint-dir", "", "Directory for the resumable partition checkpoint")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "Write Prometheus textfile metrics here after the run")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "Serve /metrics on this address while running")

	return cmd
}

func (o *RunOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	o.LakeOptions.apply(cmd, cfg)
	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.Output = o.Output
	}
	if flags.Changed("sink") {
		cfg.Sink = o.Sink
	}
	if flags.Changed("workers") {
		cfg.Workers = o.Workers
	}
	if flags.Changed("strict") {
		cfg.Strict = o.Strict
	}
	if flags.Changed("dry-run") {
		cfg.DryRun = o.DryRun
	}
	if flags.Changed("checkpoint-dir") {
		cfg.CheckpointDir = o.CheckpointDir
	}
	if flags.Changed("metrics-file") {
		cfg.MetricsFile = o.MetricsFile
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = o.MetricsAddr
	}
}

func NewPartitionsCmd() *cobra.Command {
	opts := &LakeOptions{}

	cmd := &cobra.Command{
		Use:   "partitions",
		Short: "List discovered partitions and which dataset files they hold",
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			opts.apply(c, cfg)
			return listPartitions(c.OutOrStdout(), cfg)
		},
	}
	opts.addFlags(cmd)
	return cmd
}

func NewErasureCmd() *cobra.Command {
	opts := &LakeOptions{}

	cmd := &cobra.Command{
		Use:   "erasure",
		Short: "Load the erasure request feed and print key counts",
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			opts.apply(c, cfg)
			return showErasure(c.OutOrStdout(), cfg)
		},
	}
	opts.addFlags(cmd)
	return cmd
}
