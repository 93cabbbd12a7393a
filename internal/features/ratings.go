package features

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"github.com/raphaelgruber/recsys-go/internal/frame"
	"github.com/raphaelgruber/recsys-go/internal/models"
)

// DefaultEpisodes is the episode count assumed for anime with unknown length.
const DefaultEpisodes = 50

// ComputeRatingFeatures left-joins ratings to anime on anime_id and appends
// total_episodes and watched_episodes_ratio after the original columns.
//
// A null (or unmatched) episode count becomes defaultEpisodes. A total of zero
// is divided as one. Ratings without a watched count get a null ratio.
func ComputeRatingFeatures(ratings, anime *frame.Frame, defaultEpisodes int) (*frame.Frame, error) {
	if err := ratings.Require(models.ColAnimeID, models.ColWatchedEpisodes); err != nil {
		return nil, fmt.Errorf("rating features: ratings: %w", err)
	}
	if err := anime.Require(models.ColAnimeID, models.ColEpisodes); err != nil {
		return nil, fmt.Errorf("rating features: anime: %w", err)
	}
	if defaultEpisodes < 0 || defaultEpisodes > math.MaxInt32 {
		return nil, fmt.Errorf("rating features: default episodes %d out of range", defaultEpisodes)
	}

	episodes, err := episodeIndex(anime)
	if err != nil {
		return nil, fmt.Errorf("rating features: %w", err)
	}

	totals := make([]frame.Cell, ratings.Len())
	ratios := make([]frame.Cell, ratings.Len())
	unmatched := 0
	for i := 0; i < ratings.Len(); i++ {
		total := int32(defaultEpisodes)
		id := ratings.Get(i, models.ColAnimeID)
		if n, ok := episodes[models.NormalizeID(id.String)]; ok && !id.IsNull() {
			if n != nil {
				total = *n
			}
		} else {
			unmatched++
		}
		totals[i] = frame.Value(strconv.FormatInt(int64(total), 10))

		watched := ratings.Get(i, models.ColWatchedEpisodes)
		if watched.IsNull() {
			continue
		}
		w, err := strconv.ParseFloat(watched.String, 64)
		if err != nil || math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("rating features: row %d: %w: watched_episodes %q", i, ErrDataIntegrity, watched.String)
		}
		ratios[i] = frame.Value(models.FormatFloat32(WatchedRatio(w, total)))
	}

	out, err := ratings.WithColumn(models.ColTotalEpisodes, totals)
	if err != nil {
		return nil, fmt.Errorf("rating features: %w", err)
	}
	out, err = out.WithColumn(models.ColWatchedRatio, ratios)
	if err != nil {
		return nil, fmt.Errorf("rating features: %w", err)
	}

	slog.Debug("rating features built", "rows", out.Len(), "unmatched_anime", unmatched)
	return out, nil
}

// WatchedRatio divides watched by total, treating a total of zero as one.
func WatchedRatio(watched float64, total int32) float32 {
	if total == 0 {
		total = 1
	}
	return float32(watched / float64(total))
}

// episodeIndex maps normalized anime ids to their episode count (nil when
// unknown). Duplicate ids are rejected because the join would multiply rows.
func episodeIndex(anime *frame.Frame) (map[string]*int32, error) {
	index := make(map[string]*int32, anime.Len())
	for i := 0; i < anime.Len(); i++ {
		id := anime.Get(i, models.ColAnimeID)
		if id.IsNull() {
			continue
		}
		key := models.NormalizeID(id.String)
		if _, dup := index[key]; dup {
			return nil, fmt.Errorf("%w: duplicate anime_id %q in anime table", ErrDataIntegrity, key)
		}

		ep := anime.Get(i, models.ColEpisodes)
		if ep.IsNull() {
			index[key] = nil
			continue
		}
		n, err := models.ParseCount(ep.String)
		if err != nil {
			return nil, fmt.Errorf("%w: anime %s: episodes: %w", ErrDataIntegrity, key, err)
		}
		if n > math.MaxInt32 {
			return nil, fmt.Errorf("%w: anime %s: episodes %d out of range", ErrDataIntegrity, key, n)
		}
		v := int32(n)
		index[key] = &v
	}
	return index, nil
}
