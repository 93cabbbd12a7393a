package db

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/raphaelgruber/recsys-go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const testDimension = 8

var testDB *Client

// TestMain starts a SurrealDB container for the integration tests.
// With -short no container is started and those tests skip.
func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	// ryuk is unreliable in some CI environments
	os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "surrealdb/surrealdb:v3.0.0-beta.1",
			ExposedPorts: []string{"8000/tcp"},
			Cmd:          []string{"start", "--log", "info", "--user", "root", "--pass", "root"},
			WaitingFor:   wait.ForLog("Started web server").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("Failed to start SurrealDB container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		log.Fatalf("Failed to get container host: %v", err)
	}
	// testcontainers may report "null" as host
	if host == "" || host == "null" {
		host = "localhost"
	}
	mappedPort, err := container.MappedPort(ctx, "8000")
	if err != nil {
		log.Fatalf("Failed to get mapped port: %v", err)
	}

	testDB, err = NewClient(ctx, Config{
		URL:       fmt.Sprintf("ws://%s:%s/rpc", host, mappedPort.Port()),
		Namespace: "test",
		Database:  "test",
		Username:  "root",
		Password:  "root",
		AuthLevel: "root",
	}, nil)
	if err != nil {
		log.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := testDB.InitSchema(ctx, testDimension); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	code := m.Run()

	_ = testDB.Close(ctx)
	_ = container.Terminate(ctx)

	os.Exit(code)
}

func integration(t *testing.T) context.Context {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	require.NoError(t, testDB.WipeData(ctx))
	return ctx
}

func embedding(seed int) []float32 {
	v := make([]float32, testDimension)
	for i := range v {
		v[i] = float32(seed+i) / testDimension
	}
	return v
}

func TestInitSchemaIsIdempotent(t *testing.T) {
	ctx := integration(t)
	assert.NoError(t, testDB.InitSchema(ctx, testDimension))
}

func TestWriteAnimeFeatures(t *testing.T) {
	ctx := integration(t)

	rows := []models.AnimeFeature{
		{AnimeID: "1", Name: "Cowboy Bebop", Type: "TV", Score: 8.78, Episodes: 26, Aired: "1998", Rating: "R", Popularity: 39, Genres: "Action", Synopsis: "s", Description: "d", Embedding: embedding(1)},
		{AnimeID: "5", Name: "Trigun", Type: "TV", Score: 8, Episodes: 26, Aired: "1998", Rating: "PG-13", Popularity: 200, Genres: "Action", Synopsis: "s", Description: "d", Embedding: embedding(5)},
	}
	require.NoError(t, testDB.WriteAnimeFeatures(ctx, "run-a", rows))

	// rewriting the same ids replaces records
	require.NoError(t, testDB.WriteAnimeFeatures(ctx, "run-b", rows[:1]))

	n, err := testDB.CountRun(ctx, TableAnime, "run-a")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = testDB.CountRun(ctx, TableAnime, "run-b")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestWriteAnimeFeaturesWrongDimension(t *testing.T) {
	ctx := integration(t)

	err := testDB.WriteAnimeFeatures(ctx, "run", []models.AnimeFeature{
		{AnimeID: "1", Name: "x", Type: "TV", Score: 1, Episodes: 1, Aired: "a", Rating: "r", Popularity: 1, Genres: "g", Synopsis: "s", Description: "d", Embedding: []float32{1, 2}},
	})
	assert.Error(t, err)
}

func TestWriteRatingFeaturesChunks(t *testing.T) {
	ctx := integration(t)

	rows := make([]models.RatingFeature, WriteChunkSize+20)
	for i := range rows {
		ratio := float32(i) / 10
		rows[i] = models.RatingFeature{UserID: fmt.Sprint(i % 7), AnimeID: fmt.Sprint(i), TotalEpisodes: 10, WatchedRatio: &ratio}
	}
	rows[3].WatchedRatio = nil

	require.NoError(t, testDB.WriteRatingFeatures(ctx, "run", rows))

	n, err := testDB.CountRun(ctx, TableRating, "run")
	require.NoError(t, err)
	assert.Equal(t, len(rows), n)
}

func TestWriteUserFeatures(t *testing.T) {
	ctx := integration(t)

	require.NoError(t, testDB.WriteUserFeatures(ctx, "run", []models.UserAggregate{
		{UserID: "1", TopAnime: []string{"5", "1"}, TopRatings: []float64{9, 7}},
		{UserID: "2", TopAnime: []string{}, TopRatings: []float64{}},
	}))

	n, err := testDB.CountRun(ctx, TableUser, "run")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestWipeData(t *testing.T) {
	ctx := integration(t)

	require.NoError(t, testDB.WriteUserFeatures(ctx, "run", []models.UserAggregate{
		{UserID: "1", TopAnime: []string{"5"}, TopRatings: []float64{9}},
	}))
	require.NoError(t, testDB.WipeData(ctx))

	n, err := testDB.CountRun(ctx, TableUser, "run")
	require.NoError(t, err)
	assert.Zero(t, n)
}
