package features

import (
	"fmt"
	"math"
	"slices"
	"strconv"

	"github.com/raphaelgruber/recsys-go/internal/frame"
	"github.com/raphaelgruber/recsys-go/internal/models"
)

// TopK is the maximum number of anime kept per user.
const TopK = 20

type userRating struct {
	anime  string
	rating float64
}

// ComputeUserFeatures groups ratings by user and keeps each user's TopK
// highest-rated anime. Ties keep their input order. Users appear in order of
// their first rating.
func ComputeUserFeatures(ratings *frame.Frame) ([]models.UserAggregate, error) {
	if err := ratings.Require(models.ColUserID, models.ColAnimeID, models.ColUserRating); err != nil {
		return nil, fmt.Errorf("user features: %w", err)
	}

	var order []string
	groups := make(map[string][]userRating)
	for i := 0; i < ratings.Len(); i++ {
		uc := ratings.Get(i, models.ColUserID)
		if uc.IsNull() {
			return nil, fmt.Errorf("user features: row %d: %w: null user_id", i, ErrDataIntegrity)
		}
		rc := ratings.Get(i, models.ColUserRating)
		if rc.IsNull() {
			return nil, fmt.Errorf("user features: row %d: %w: null rating", i, ErrDataIntegrity)
		}
		r, err := strconv.ParseFloat(rc.String, 64)
		if err != nil || math.IsNaN(r) {
			return nil, fmt.Errorf("user features: row %d: %w: rating %q", i, ErrDataIntegrity, rc.String)
		}

		user := models.NormalizeID(uc.String)
		if _, seen := groups[user]; !seen {
			order = append(order, user)
		}
		groups[user] = append(groups[user], userRating{
			anime:  models.NormalizeID(ratings.Get(i, models.ColAnimeID).String),
			rating: r,
		})
	}

	out := make([]models.UserAggregate, 0, len(order))
	for _, user := range order {
		items := groups[user]
		slices.SortStableFunc(items, func(a, b userRating) int {
			switch {
			case a.rating > b.rating:
				return -1
			case a.rating < b.rating:
				return 1
			default:
				return 0
			}
		})
		items = items[:min(len(items), TopK)]

		agg := models.UserAggregate{
			UserID:     user,
			TopAnime:   make([]string, len(items)),
			TopRatings: make([]float64, len(items)),
		}
		for k, it := range items {
			agg.TopAnime[k] = it.anime
			agg.TopRatings[k] = it.rating
		}
		out = append(out, agg)
	}
	return out, nil
}
