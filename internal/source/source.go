// Package source reads the raw MyAnimeList CSV exports from a data directory.
package source

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/raphaelgruber/recsys-go/internal/frame"
	"github.com/raphaelgruber/recsys-go/internal/models"
)

// File names of the 2020 dataset export.
const (
	AnimeFile          = "anime.csv"
	SynopsisFile       = "anime_with_synopsis.csv"
	DefaultRatingsFile = "animelist.csv"
)

const (
	dupeSuffix     = "_dupe"
	synopsisSource = "sypnopsis" // spelled this way in the export
)

// ErrMissingFiles is returned when required files are absent from the data directory.
var ErrMissingFiles = errors.New("required source files not found")

// Dataset holds the raw tables a pipeline run starts from.
type Dataset struct {
	Anime   *frame.Frame
	Ratings *frame.Frame
}

// Load reads anime, synopsis and ratings from dir. All missing files are
// reported together before anything is parsed.
func Load(dir, ratingsFile string) (*Dataset, error) {
	if ratingsFile == "" {
		ratingsFile = DefaultRatingsFile
	}
	if err := checkFiles(dir, AnimeFile, SynopsisFile, ratingsFile); err != nil {
		return nil, err
	}

	anime, err := LoadAnime(dir)
	if err != nil {
		return nil, err
	}
	ratings, err := LoadRatings(dir, ratingsFile)
	if err != nil {
		return nil, err
	}
	return &Dataset{Anime: anime, Ratings: ratings}, nil
}

// LoadAnime reads anime.csv and anime_with_synopsis.csv and joins them on MAL_ID.
func LoadAnime(dir string) (*frame.Frame, error) {
	if err := checkFiles(dir, AnimeFile, SynopsisFile); err != nil {
		return nil, err
	}

	anime, err := frame.LoadCSVFile(filepath.Join(dir, AnimeFile), frame.DefaultReadOptions())
	if err != nil {
		return nil, err
	}
	synopsis, err := frame.LoadCSVFile(filepath.Join(dir, SynopsisFile), frame.DefaultReadOptions())
	if err != nil {
		return nil, err
	}

	joined, err := JoinSynopsis(anime, synopsis)
	if err != nil {
		return nil, err
	}
	slog.Info("loaded anime", "anime_rows", anime.Len(), "synopsis_rows", synopsis.Len(), "joined_rows", joined.Len())
	return joined, nil
}

// LoadRatings reads the ratings export. The export is streamed row by row
// since it is far larger than the anime tables.
func LoadRatings(dir, file string) (*frame.Frame, error) {
	if err := checkFiles(dir, file); err != nil {
		return nil, err
	}
	ratings, err := frame.ReadCSVFile(filepath.Join(dir, file), frame.DefaultReadOptions())
	if err != nil {
		return nil, err
	}

	attrs := []any{"file", file, "rows", ratings.Len()}
	if users, err := ratings.Distinct(models.ColUserID); err == nil {
		attrs = append(attrs, "users", users.Len())
	}
	slog.Info("loaded ratings", attrs...)
	return ratings, nil
}

// JoinSynopsis inner-joins anime with the synopsis table on MAL_ID, drops the
// synopsis table's copies of shared columns and names the text column Synopsis.
func JoinSynopsis(anime, synopsis *frame.Frame) (*frame.Frame, error) {
	joined, err := anime.InnerJoin(synopsis, models.ColMALID, dupeSuffix)
	if err != nil {
		return nil, fmt.Errorf("join synopsis: %w", err)
	}
	joined = joined.DropMatching(dupeSuffix)

	joined, err = joined.Rename(synopsisSource, models.ColSynopsis)
	if err != nil {
		return nil, fmt.Errorf("join synopsis: %w", err)
	}
	return joined, nil
}

func checkFiles(dir string, names ...string) error {
	var missing []string
	for _, name := range names {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil || info.IsDir() {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w in %s: %s", ErrMissingFiles, dir, strings.Join(missing, ", "))
	}
	return nil
}
