package models

import (
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/raphaelgruber/recsys-go/internal/frame"
)

// Column names of the ratings and user tables.
const (
	ColUserID          = "user_id"
	ColUserRating      = "rating"
	ColWatchedEpisodes = "watched_episodes"
	ColTotalEpisodes   = "total_episodes"
	ColWatchedRatio    = "watched_episodes_ratio"
	ColTopAnime        = "top_anime"
	ColTopRatings      = "top_ratings"
)

// UserAggregate holds a user's highest-rated anime.
// TopAnime and TopRatings are index-aligned.
type UserAggregate struct {
	UserID     string    `json:"user_id"`
	TopAnime   []string  `json:"top_anime"`
	TopRatings []float64 `json:"top_ratings"`
}

// UsersFrame encodes aggregates as a frame with JSON list cells.
func UsersFrame(users []UserAggregate) (*frame.Frame, error) {
	f := frame.MustNew(ColUserID, ColTopAnime, ColTopRatings)
	for _, u := range users {
		anime, err := json.Marshal(u.TopAnime)
		if err != nil {
			return nil, fmt.Errorf("encode top anime for user %s: %w", u.UserID, err)
		}
		ratings, err := json.Marshal(u.TopRatings)
		if err != nil {
			return nil, fmt.Errorf("encode top ratings for user %s: %w", u.UserID, err)
		}
		if err := f.AppendValues(u.UserID, string(anime), string(ratings)); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// RatingFeature is one row of the rating feature table as stored.
type RatingFeature struct {
	UserID          string   `json:"user_id"`
	AnimeID         string   `json:"anime_id"`
	Rating          *float64 `json:"rating,omitempty"`
	WatchedEpisodes *int     `json:"watched_episodes,omitempty"`
	TotalEpisodes   int      `json:"total_episodes"`
	WatchedRatio    *float32 `json:"watched_episodes_ratio,omitempty"`
}

// RatingFeaturesFromFrame decodes the output of the rating feature builder.
func RatingFeaturesFromFrame(f *frame.Frame) ([]RatingFeature, error) {
	if err := f.Require(ColUserID, ColAnimeID, ColTotalEpisodes, ColWatchedRatio); err != nil {
		return nil, err
	}

	out := make([]RatingFeature, 0, f.Len())
	for i := 0; i < f.Len(); i++ {
		r := RatingFeature{
			UserID:  NormalizeID(f.Get(i, ColUserID).String),
			AnimeID: NormalizeID(f.Get(i, ColAnimeID).String),
		}

		total, err := strconv.Atoi(f.Get(i, ColTotalEpisodes).String)
		if err != nil {
			return nil, fmt.Errorf("row %d: %s: %w", i, ColTotalEpisodes, err)
		}
		r.TotalEpisodes = total

		if c := f.Get(i, ColUserRating); !c.IsNull() {
			v, err := strconv.ParseFloat(c.String, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: %s: %w", i, ColUserRating, err)
			}
			r.Rating = &v
		}
		if c := f.Get(i, ColWatchedEpisodes); !c.IsNull() {
			v, err := ParseCount(c.String)
			if err != nil {
				return nil, fmt.Errorf("row %d: %s: %w", i, ColWatchedEpisodes, err)
			}
			r.WatchedEpisodes = &v
		}
		if c := f.Get(i, ColWatchedRatio); !c.IsNull() {
			v, err := strconv.ParseFloat(c.String, 32)
			if err != nil {
				return nil, fmt.Errorf("row %d: %s: %w", i, ColWatchedRatio, err)
			}
			ratio := float32(v)
			r.WatchedRatio = &ratio
		}
		out = append(out, r)
	}
	return out, nil
}
