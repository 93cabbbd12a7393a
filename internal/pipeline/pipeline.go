// Package pipeline runs the feature builders in order and writes their outputs.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/raphaelgruber/recsys-go/internal/features"
	"github.com/raphaelgruber/recsys-go/internal/frame"
	"github.com/raphaelgruber/recsys-go/internal/metrics"
	"github.com/raphaelgruber/recsys-go/internal/models"
	"github.com/raphaelgruber/recsys-go/internal/sampler"
	"github.com/raphaelgruber/recsys-go/internal/source"
)

// Stage names used in logs and metrics.
const (
	StageAnime   = "anime"
	StageRatings = "ratings"
	StageUsers   = "users"
	StageSample  = "sample"
	StageOutput  = "output"
	StageStore   = "store"
)

// Store persists feature tables. *db.Client implements it.
type Store interface {
	WriteAnimeFeatures(ctx context.Context, runID string, rows []models.AnimeFeature) error
	WriteRatingFeatures(ctx context.Context, runID string, rows []models.RatingFeature) error
	WriteUserFeatures(ctx context.Context, runID string, rows []models.UserAggregate) error
}

// Options configures a Runner. Zero values disable the optional stages.
type Options struct {
	// OutputDir receives the CSV outputs. Empty skips writing files.
	OutputDir string
	// DefaultEpisodes replaces unknown episode counts.
	DefaultEpisodes int
	// Embed controls embedding batches and progress reporting.
	Embed features.EmbedOptions
	// Sampler narrows users and ratings when set.
	Sampler *sampler.Sampler
	// Store receives the features when set.
	Store   Store
	Metrics *metrics.Collector
	Logger  *slog.Logger
}

// Result is everything a run produced.
type Result struct {
	RunID   string
	Anime   *features.AnimeFeatures
	Ratings *frame.Frame
	Users   []models.UserAggregate
	Sample  *sampler.Dataset // nil without a sampler
	Files   []string
}

// Runner executes the feature builders for one run id.
type Runner struct {
	enc    features.Encoder
	opts   Options
	runID  string
	logger *slog.Logger
}

// New creates a Runner with a fresh run id.
func New(enc features.Encoder, opts Options) *Runner {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	runID := uuid.NewString()
	return &Runner{
		enc:    enc,
		opts:   opts,
		runID:  runID,
		logger: opts.Logger.With("run_id", runID),
	}
}

// RunID identifies this run in logs and stored records.
func (r *Runner) RunID() string {
	return r.runID
}

// Run builds anime, rating and user features from ds, samples them if a
// sampler is configured, then writes outputs and stores features.
func (r *Runner) Run(ctx context.Context, ds *source.Dataset) (*Result, error) {
	res := &Result{RunID: r.runID}
	r.logger.Info("pipeline started", "anime_rows", ds.Anime.Len(), "rating_rows", ds.Ratings.Len())
	start := time.Now()

	var err error
	if res.Anime, err = r.Anime(ctx, ds.Anime); err != nil {
		return nil, err
	}
	if res.Ratings, err = r.Ratings(ds.Ratings, res.Anime.Table); err != nil {
		return nil, err
	}
	if res.Users, err = r.Users(res.Ratings); err != nil {
		return nil, err
	}

	usersFrame, err := models.UsersFrame(res.Users)
	if err != nil {
		return nil, fmt.Errorf("users table: %w", err)
	}

	if r.opts.Sampler != nil {
		if res.Sample, err = r.Sample(usersFrame, res.Ratings); err != nil {
			return nil, err
		}
	}

	if r.opts.OutputDir != "" {
		if res.Files, err = r.writeOutputs(res, usersFrame); err != nil {
			return nil, err
		}
	}

	if r.opts.Store != nil {
		if err := r.store(ctx, res); err != nil {
			return nil, err
		}
	}

	r.logger.Info("pipeline finished", "duration_ms", time.Since(start).Milliseconds(), "files", len(res.Files))
	return res, nil
}

// Anime builds descriptions and embeddings for complete anime rows.
func (r *Runner) Anime(ctx context.Context, raw *frame.Frame) (*features.AnimeFeatures, error) {
	embed := r.opts.Embed
	onBatch := embed.OnBatch
	embed.OnBatch = func(d time.Duration) {
		r.opts.Metrics.RecordTiming(metrics.OpEmbedBatch, d)
		if onBatch != nil {
			onBatch(d)
		}
	}

	var out *features.AnimeFeatures
	err := r.stage(StageAnime, func() (int, error) {
		var err error
		out, err = features.BuildAnimeFeatures(ctx, raw, r.enc, embed)
		if err != nil {
			return 0, err
		}
		return out.Table.Len(), nil
	})
	return out, err
}

// Ratings derives total_episodes and watched_episodes_ratio.
func (r *Runner) Ratings(ratings, anime *frame.Frame) (*frame.Frame, error) {
	var out *frame.Frame
	err := r.stage(StageRatings, func() (int, error) {
		var err error
		out, err = features.ComputeRatingFeatures(ratings, anime, r.opts.DefaultEpisodes)
		if err != nil {
			return 0, err
		}
		return out.Len(), nil
	})
	return out, err
}

// Users aggregates each user's top-rated anime.
func (r *Runner) Users(ratings *frame.Frame) ([]models.UserAggregate, error) {
	var out []models.UserAggregate
	err := r.stage(StageUsers, func() (int, error) {
		var err error
		out, err = features.ComputeUserFeatures(ratings)
		return len(out), err
	})
	return out, err
}

// Sample applies the configured sampler.
func (r *Runner) Sample(users, ratings *frame.Frame) (*sampler.Dataset, error) {
	if r.opts.Sampler == nil {
		return nil, fmt.Errorf("%s: no sampler configured", StageSample)
	}
	var out *sampler.Dataset
	err := r.stage(StageSample, func() (int, error) {
		var err error
		out, err = r.opts.Sampler.Sample(users, ratings)
		if err != nil {
			return 0, err
		}
		return out.Users.Len(), nil
	})
	return out, err
}

func (r *Runner) writeOutputs(res *Result, users *frame.Frame) ([]string, error) {
	var files []string
	err := r.stage(StageOutput, func() (int, error) {
		var err error
		files, err = WriteOutputs(r.opts.OutputDir, res, users)
		return len(files), err
	})
	return files, err
}

// store writes anime features plus either the sampled or the full rating and
// user features.
func (r *Runner) store(ctx context.Context, res *Result) error {
	return r.stage(StageStore, func() (int, error) {
		anime, err := models.AnimeFeaturesFromFrame(res.Anime.Table, res.Anime.Embeddings)
		if err != nil {
			return 0, fmt.Errorf("anime documents: %w", err)
		}

		ratingsTable, users := res.Ratings, res.Users
		if res.Sample != nil {
			ratingsTable = res.Sample.Ratings
			users = sampledUsers(res.Users, res.Sample.Users)
		}
		ratings, err := models.RatingFeaturesFromFrame(ratingsTable)
		if err != nil {
			return 0, fmt.Errorf("rating documents: %w", err)
		}
		if err := checkRatingKeys(ratings); err != nil {
			return 0, err
		}

		writes := []struct {
			rows int
			fn   func() error
		}{
			{len(anime), func() error { return r.opts.Store.WriteAnimeFeatures(ctx, r.runID, anime) }},
			{len(ratings), func() error { return r.opts.Store.WriteRatingFeatures(ctx, r.runID, ratings) }},
			{len(users), func() error { return r.opts.Store.WriteUserFeatures(ctx, r.runID, users) }},
		}
		total := 0
		for _, w := range writes {
			if err := r.opts.Metrics.Time(metrics.OpStoreWrite, w.rows, w.fn); err != nil {
				return 0, err
			}
			total += w.rows
		}
		return total, nil
	})
}

// stage runs fn, logging and timing it. fn returns the row count it produced.
func (r *Runner) stage(name string, fn func() (int, error)) error {
	start := time.Now()
	rows, err := fn()
	duration := time.Since(start)
	r.opts.Metrics.Record(metrics.OpStage+"."+name, duration, rows)

	if err != nil {
		r.logger.Error("stage failed", "stage", name, "duration_ms", duration.Milliseconds(), "error", err)
		return fmt.Errorf("%s: %w", name, err)
	}
	r.logger.Info("stage complete", "stage", name, "rows", rows, "duration_ms", duration.Milliseconds())
	return nil
}

// checkRatingKeys rejects repeated (user_id, anime_id) pairs. The store keys
// rating records on that pair and would collapse them into one.
func checkRatingKeys(rows []models.RatingFeature) error {
	seen := make(map[[2]string]int, len(rows))
	for i, r := range rows {
		key := [2]string{r.UserID, r.AnimeID}
		if j, dup := seen[key]; dup {
			return fmt.Errorf("%w: ratings rows %d and %d share user_id %s and anime_id %s",
				features.ErrDataIntegrity, j, i, r.UserID, r.AnimeID)
		}
		seen[key] = i
	}
	return nil
}

// sampledUsers keeps the aggregates whose id appears in the sampled users table.
func sampledUsers(all []models.UserAggregate, sampled *frame.Frame) []models.UserAggregate {
	keep := make(map[string]struct{}, sampled.Len())
	for i := 0; i < sampled.Len(); i++ {
		keep[models.NormalizeID(sampled.Get(i, models.ColUserID).String)] = struct{}{}
	}
	out := make([]models.UserAggregate, 0, len(keep))
	for _, u := range all {
		if _, ok := keep[u.UserID]; ok {
			out = append(out, u)
		}
	}
	return out
}
