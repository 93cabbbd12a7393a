package sampler

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/raphaelgruber/recsys-go/internal/features"
	"github.com/raphaelgruber/recsys-go/internal/frame"
	"github.com/raphaelgruber/recsys-go/internal/models"
)

// DefaultSeed keeps samples reproducible across runs.
const DefaultSeed = 42

// ErrPopulationTooSmall is returned when fewer users exist than requested.
var ErrPopulationTooSmall = errors.New("population smaller than requested sample")

// Dataset is a sampled users table plus the ratings of those users.
type Dataset struct {
	Users   *frame.Frame
	Ratings *frame.Frame
}

// Sampler draws a fixed number of users with a seeded generator.
type Sampler struct {
	size DatasetSize
	seed uint64
}

// New creates a Sampler. The size must be one of SupportedSizes.
func New(size DatasetSize, seed uint64) (*Sampler, error) {
	if _, err := size.UserCount(); err != nil {
		return nil, err
	}
	return &Sampler{size: size, seed: seed}, nil
}

// Size returns the configured dataset size.
func (s *Sampler) Size() DatasetSize { return s.size }

// Sample picks users uniformly without replacement and keeps the ratings that
// belong to them. Users keep their relative order; ratings keep theirs.
// The same seed and inputs always yield the same sample.
func (s *Sampler) Sample(users, ratings *frame.Frame) (*Dataset, error) {
	if err := users.Require(models.ColUserID); err != nil {
		return nil, fmt.Errorf("sample users: %w", err)
	}
	if err := ratings.Require(models.ColUserID); err != nil {
		return nil, fmt.Errorf("sample ratings: %w", err)
	}

	n, err := s.size.UserCount()
	if err != nil {
		return nil, err
	}
	if users.Len() < n {
		return nil, fmt.Errorf("%w: %w: %s needs %d users, have %d",
			features.ErrDataIntegrity, ErrPopulationTooSmall, s.size, n, users.Len())
	}

	seen := make(map[string]struct{}, users.Len())
	for i := 0; i < users.Len(); i++ {
		c := users.Get(i, models.ColUserID)
		if c.IsNull() {
			return nil, fmt.Errorf("%w: users row %d: null user_id", features.ErrDataIntegrity, i)
		}
		id := models.NormalizeID(c.String)
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: duplicate user_id %q in users table", features.ErrDataIntegrity, id)
		}
		seen[id] = struct{}{}
	}

	picked := pick(users.Len(), n, s.seed)
	sampledUsers := users.Filter(func(i int) bool { return picked[i] })

	ids := make(map[string]struct{}, n)
	for i := 0; i < sampledUsers.Len(); i++ {
		ids[models.NormalizeID(sampledUsers.Get(i, models.ColUserID).String)] = struct{}{}
	}
	sampledRatings := ratings.Filter(func(i int) bool {
		c := ratings.Get(i, models.ColUserID)
		if c.IsNull() {
			return false
		}
		_, ok := ids[models.NormalizeID(c.String)]
		return ok
	})

	slog.Info("sampled dataset",
		"size", s.size.String(),
		"users", sampledUsers.Len(),
		"ratings_before", ratings.Len(),
		"ratings_after", sampledRatings.Len())

	return &Dataset{Users: sampledUsers, Ratings: sampledRatings}, nil
}

// pick marks k of n row indices using a partial Fisher-Yates shuffle.
func pick(n, k int, seed uint64) []bool {
	rng := rand.New(rand.NewPCG(seed, seed))
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	for i := 0; i < k; i++ {
		j := i + rng.IntN(n-i)
		idx[i], idx[j] = idx[j], idx[i]
	}

	marked := make([]bool, n)
	for _, i := range idx[:k] {
		marked[i] = true
	}
	return marked
}
