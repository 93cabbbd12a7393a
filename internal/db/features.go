package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/raphaelgruber/recsys-go/internal/models"
	"github.com/surrealdb/surrealdb.go"
)

// WriteChunkSize is the number of documents sent per UPSERT statement.
const WriteChunkSize = 500

const maxConflictRetries = 3

const upsertAnimeSQL = `
	FOR $row IN $rows {
		UPSERT type::record("anime_feature", $row.anime_id) CONTENT $row;
	};
`

const upsertRatingSQL = `
	FOR $row IN $rows {
		UPSERT type::record("rating_feature", [$row.user_id, $row.anime_id]) CONTENT $row;
	};
`

const upsertUserSQL = `
	FOR $row IN $rows {
		UPSERT type::record("user_feature", $row.user_id) CONTENT $row;
	};
`

// WriteAnimeFeatures upserts anime features keyed by anime id.
func (c *Client) WriteAnimeFeatures(ctx context.Context, runID string, rows []models.AnimeFeature) error {
	docs := make([]map[string]any, len(rows))
	for i, r := range rows {
		docs[i] = animeDoc(runID, r)
	}
	return c.writeChunks(ctx, TableAnime, upsertAnimeSQL, docs)
}

// WriteRatingFeatures upserts rating features keyed by (user id, anime id).
func (c *Client) WriteRatingFeatures(ctx context.Context, runID string, rows []models.RatingFeature) error {
	docs := make([]map[string]any, len(rows))
	for i, r := range rows {
		docs[i] = ratingDoc(runID, r)
	}
	return c.writeChunks(ctx, TableRating, upsertRatingSQL, docs)
}

// WriteUserFeatures upserts user aggregates keyed by user id.
func (c *Client) WriteUserFeatures(ctx context.Context, runID string, rows []models.UserAggregate) error {
	docs := make([]map[string]any, len(rows))
	for i, r := range rows {
		docs[i] = userDoc(runID, r)
	}
	return c.writeChunks(ctx, TableUser, upsertUserSQL, docs)
}

// CountRun returns how many records of table were written by runID.
func (c *Client) CountRun(ctx context.Context, table, runID string) (int, error) {
	results, err := surrealdb.Query[[]struct {
		C int `json:"c"`
	}](ctx, c.db, `SELECT count() AS c FROM type::table($table) WHERE run_id = $run_id GROUP ALL`, map[string]any{
		"table":  table,
		"run_id": runID,
	})
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return 0, nil
	}
	return (*results)[0].Result[0].C, nil
}

func (c *Client) writeChunks(ctx context.Context, table, sql string, docs []map[string]any) error {
	start := time.Now()
	for lo := 0; lo < len(docs); lo += WriteChunkSize {
		hi := min(lo+WriteChunkSize, len(docs))
		if err := c.writeChunk(ctx, sql, docs[lo:hi]); err != nil {
			return fmt.Errorf("write %s rows %d-%d: %w", table, lo, hi, err)
		}
	}
	c.logger.Info("stored features", "table", table, "rows", len(docs), "duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (c *Client) writeChunk(ctx context.Context, sql string, docs []map[string]any) error {
	var err error
	for attempt := 0; attempt <= maxConflictRetries; attempt++ {
		_, err = surrealdb.Query[any](ctx, c.db, sql, map[string]any{"rows": docs})
		err = wrapQueryError(err)
		if !errors.Is(err, ErrTransactionConflict) {
			return err
		}
		c.logger.Warn("transaction conflict, retrying chunk", "attempt", attempt+1)
	}
	return err
}

// Optional values are left out of the document so SurrealDB stores NONE.

func animeDoc(runID string, a models.AnimeFeature) map[string]any {
	return map[string]any{
		"anime_id":    a.AnimeID,
		"name":        a.Name,
		"type":        a.Type,
		"score":       a.Score,
		"episodes":    a.Episodes,
		"aired":       a.Aired,
		"rating":      a.Rating,
		"popularity":  a.Popularity,
		"genres":      a.Genres,
		"synopsis":    a.Synopsis,
		"description": a.Description,
		"embedding":   a.Embedding,
		"run_id":      runID,
	}
}

func ratingDoc(runID string, r models.RatingFeature) map[string]any {
	doc := map[string]any{
		"user_id":        r.UserID,
		"anime_id":       r.AnimeID,
		"total_episodes": r.TotalEpisodes,
		"run_id":         runID,
	}
	if r.Rating != nil {
		doc["rating"] = *r.Rating
	}
	if r.WatchedEpisodes != nil {
		doc["watched_episodes"] = *r.WatchedEpisodes
	}
	if r.WatchedRatio != nil {
		doc["watched_episodes_ratio"] = *r.WatchedRatio
	}
	return doc
}

func userDoc(runID string, u models.UserAggregate) map[string]any {
	return map[string]any{
		"user_id":     u.UserID,
		"top_anime":   u.TopAnime,
		"top_ratings": u.TopRatings,
		"run_id":      runID,
	}
}
