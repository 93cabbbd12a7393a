package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/raphaelgruber/recsys-go/internal/features"
	"github.com/raphaelgruber/recsys-go/internal/metrics"
	"github.com/raphaelgruber/recsys-go/internal/pipeline"
	"github.com/raphaelgruber/recsys-go/internal/sampler"
	"github.com/raphaelgruber/recsys-go/internal/source"
	"github.com/spf13/cobra"
)

var (
	runSample     bool
	runSize       string
	runStore      bool
	runOutputDir  string
	runNoProgress bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Build every feature table",
	Long: `Build anime, rating and user features from the source CSVs in the data
directory and write them to the output directory.

With --sample, users are sampled down to the configured dataset size and the
sampled users and ratings are written as well. With --store, features are
upserted into SurrealDB under a fresh run id.

Examples:
  recsys run
  recsys run --sample --size SMALL
  recsys run --store --out /tmp/features`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&runSample, "sample", false, "sample users to the dataset size")
	runCmd.Flags().StringVar(&runSize, "size", "", "dataset size override (SMALL, MEDIUM, LARGE)")
	runCmd.Flags().BoolVar(&runStore, "store", false, "upsert features into SurrealDB")
	runCmd.Flags().StringVarP(&runOutputDir, "out", "o", "", "output directory override")
	runCmd.Flags().BoolVar(&runNoProgress, "no-progress", false, "log progress instead of drawing a progress bar")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	ds, err := source.Load(cfg.DataDir, cfg.RatingsFile)
	if err != nil {
		return err
	}

	enc, err := getEmbedder(ctx)
	if err != nil {
		return err
	}

	opts := pipeline.Options{
		OutputDir:       cfg.OutputDir,
		DefaultEpisodes: cfg.DefaultEpisodes,
		Embed: features.EmbedOptions{
			BatchSize: cfg.EmbedBatchSize,
			Workers:   cfg.EmbedWorkers,
		},
		Metrics: metrics.NewCollector(),
	}
	if runOutputDir != "" {
		opts.OutputDir = runOutputDir
	}

	if runSample {
		if opts.Sampler, err = newSampler(runSize, cfg.SampleSeed); err != nil {
			return err
		}
	}

	if runStore {
		client, err := getDB(ctx)
		if err != nil {
			return err
		}
		opts.Store = client
	}

	var res *pipeline.Result
	err = withProgress(ctx, "embedding", !runNoProgress, func(ctx context.Context, report progressFunc) error {
		opts.Embed.Progress = report
		opts.Logger = slog.Default()
		var err error
		res, err = pipeline.New(enc, opts).Run(ctx, ds)
		return err
	})
	if err != nil {
		return err
	}

	printResult(cmd, res)
	printMetrics(cmd, opts.Metrics.Snapshot())
	return nil
}

// newSampler builds a sampler for size, falling back to the configured size.
func newSampler(size string, seed uint64) (*sampler.Sampler, error) {
	ds := cfg.DatasetSize
	if size != "" {
		var err error
		if ds, err = sampler.ParseDatasetSize(size); err != nil {
			return nil, err
		}
	}
	return sampler.New(ds, seed)
}

func printResult(cmd *cobra.Command, res *pipeline.Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s\n", res.RunID)
	fmt.Fprintf(out, "  Anime features:  %d\n", res.Anime.Table.Len())
	fmt.Fprintf(out, "  Rating features: %d\n", res.Ratings.Len())
	fmt.Fprintf(out, "  User features:   %d\n", len(res.Users))
	if res.Sample != nil {
		fmt.Fprintf(out, "  Sampled users:   %d\n", res.Sample.Users.Len())
		fmt.Fprintf(out, "  Sampled ratings: %d\n", res.Sample.Ratings.Len())
	}
	for _, f := range res.Files {
		fmt.Fprintf(out, "  → %s\n", f)
	}
}

func printMetrics(cmd *cobra.Command, snap metrics.Snapshot) {
	if !verbose || len(snap.Operations) == 0 {
		return
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nTimings (%.1fs):\n", snap.UptimeSeconds)
	for _, op := range snap.Operations {
		fmt.Fprintf(out, "  %-20s count=%-5d rows=%-8d avg=%.1fms max=%dms\n",
			op.Name, op.Count, op.Rows, op.AvgTimeMs, op.MaxTimeMs)
	}
}
