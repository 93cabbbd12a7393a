package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/raphaelgruber/recsys-go/internal/features"
	"github.com/raphaelgruber/recsys-go/internal/frame"
	"github.com/raphaelgruber/recsys-go/internal/models"
	"github.com/raphaelgruber/recsys-go/internal/pipeline"
	"github.com/raphaelgruber/recsys-go/internal/source"
	"github.com/spf13/cobra"
)

var featuresNoProgress bool

var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "Build a single feature table",
	Long: `Build one feature table and write it to the output directory.

Examples:
  recsys features anime
  recsys features ratings
  recsys features users`,
}

var featuresAnimeCmd = &cobra.Command{
	Use:   "anime",
	Short: "Build anime descriptions and embeddings",
	Args:  cobra.NoArgs,
	RunE:  runFeaturesAnime,
}

var featuresRatingsCmd = &cobra.Command{
	Use:   "ratings",
	Short: "Build total_episodes and watched_episodes_ratio per rating",
	Long: `Build rating features. Episode counts come from the cleaned anime table;
no embeddings are computed.`,
	Args: cobra.NoArgs,
	RunE: runFeaturesRatings,
}

var featuresUsersCmd = &cobra.Command{
	Use:   "users",
	Short: "Build each user's top-rated anime",
	Args:  cobra.NoArgs,
	RunE:  runFeaturesUsers,
}

func init() {
	featuresAnimeCmd.Flags().BoolVar(&featuresNoProgress, "no-progress", false, "log progress instead of drawing a progress bar")

	featuresCmd.AddCommand(featuresAnimeCmd)
	featuresCmd.AddCommand(featuresRatingsCmd)
	featuresCmd.AddCommand(featuresUsersCmd)
}

func runFeaturesAnime(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	raw, err := source.LoadAnime(cfg.DataDir)
	if err != nil {
		return err
	}
	enc, err := getEmbedder(ctx)
	if err != nil {
		return err
	}

	var af *features.AnimeFeatures
	err = withProgress(ctx, "embedding", !featuresNoProgress, func(ctx context.Context, report progressFunc) error {
		runner := pipeline.New(enc, pipeline.Options{
			Embed: features.EmbedOptions{
				BatchSize: cfg.EmbedBatchSize,
				Workers:   cfg.EmbedWorkers,
				Progress:  report,
			},
			Logger: slog.Default(),
		})
		var err error
		af, err = runner.Anime(ctx, raw)
		return err
	})
	if err != nil {
		return err
	}

	table, err := pipeline.AnimeTable(af)
	if err != nil {
		return err
	}
	return writeTable(cmd, pipeline.AnimeFeaturesFile, table)
}

func runFeaturesRatings(cmd *cobra.Command, args []string) error {
	raw, err := source.LoadAnime(cfg.DataDir)
	if err != nil {
		return err
	}
	ratings, err := source.LoadRatings(cfg.DataDir, cfg.RatingsFile)
	if err != nil {
		return err
	}

	anime, err := features.ComputeAnimeFeatures(raw)
	if err != nil {
		return err
	}
	out, err := pipeline.New(nil, pipeline.Options{DefaultEpisodes: cfg.DefaultEpisodes}).Ratings(ratings, anime)
	if err != nil {
		return err
	}
	return writeTable(cmd, pipeline.RatingFeaturesFile, out)
}

func runFeaturesUsers(cmd *cobra.Command, args []string) error {
	ratings, err := source.LoadRatings(cfg.DataDir, cfg.RatingsFile)
	if err != nil {
		return err
	}

	users, err := pipeline.New(nil, pipeline.Options{}).Users(ratings)
	if err != nil {
		return err
	}
	table, err := models.UsersFrame(users)
	if err != nil {
		return err
	}
	return writeTable(cmd, pipeline.UserFeaturesFile, table)
}

// writeTable writes f to the output directory and reports the path.
func writeTable(cmd *cobra.Command, name string, f *frame.Frame) error {
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(cfg.OutputDir, name)
	if err := frame.WriteCSVFile(path, f); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %d rows to %s\n", f.Len(), path)
	return nil
}
