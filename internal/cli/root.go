// Package cli provides the command-line interface for recsys.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/raphaelgruber/recsys-go/internal/config"
	"github.com/raphaelgruber/recsys-go/internal/db"
	"github.com/raphaelgruber/recsys-go/internal/llm"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	configPath string
	verbose    bool

	// Global config, loaded before every command
	cfg        config.Config
	closeLog   = func() error { return nil }
	logConsole = os.Stderr

	// Lazy-initialized components
	embedder *llm.Embedder
	dbClient *db.Client
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "recsys",
	Short: "Anime recommendation feature tables",
	Long: `Recsys builds feature tables for an anime recommender from the
MyAnimeList 2020 dump: anime descriptions with text embeddings, per-rating
watch ratios and per-user top-rated anime. Users can be sampled down to a
SMALL, MEDIUM or LARGE population and features can be stored in SurrealDB.

Configuration comes from defaults, an optional YAML file (--config), a .env
file and environment variables, in that order.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if verbose {
			cfg.LogLevel = slog.LevelDebug
		}

		logger, cleanup := config.SetupLogger(cfg, logConsole)
		slog.SetDefault(logger)
		closeLog = cleanup
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if dbClient != nil {
			if err := dbClient.Close(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
			}
			dbClient = nil
		}
		if err := closeLog(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
		}
	},
}

// getEmbedder creates the embedder once per process.
func getEmbedder(ctx context.Context) (*llm.Embedder, error) {
	if embedder != nil {
		return embedder, nil
	}
	var err error
	embedder, err = llm.NewEmbedder(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init embedder: %w", err)
	}
	slog.Info("embedder ready", "provider", cfg.EmbedProvider, "model", embedder.Model(), "dimension", embedder.Dimension())
	return embedder, nil
}

// getDB connects to SurrealDB and defines the feature schema.
func getDB(ctx context.Context) (*db.Client, error) {
	if dbClient != nil {
		return dbClient, nil
	}

	dbCfg := db.Config{
		URL:       cfg.SurrealDBURL,
		Namespace: cfg.SurrealDBNamespace,
		Database:  cfg.SurrealDBDatabase,
		Username:  cfg.SurrealDBUser,
		Password:  cfg.SurrealDBPass,
		AuthLevel: cfg.SurrealDBAuthLevel,
	}

	client, err := db.NewClient(ctx, dbCfg, slog.Default())
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := client.InitSchema(ctx, cfg.EmbedDimension); err != nil {
		_ = client.Close(ctx)
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	dbClient = client
	return dbClient, nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Add subcommands
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(featuresCmd)
	rootCmd.AddCommand(sampleCmd)
	rootCmd.AddCommand(storeCmd)
	rootCmd.AddCommand(sizesCmd)
}
