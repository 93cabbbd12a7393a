package db

import "fmt"

// Feature tables.
const (
	TableAnime  = "anime_feature"
	TableRating = "rating_feature"
	TableUser   = "user_feature"
)

// Tables lists every feature table.
var Tables = []string{TableAnime, TableRating, TableUser}

const schemaTemplate = `
    -- ==========================================================================
    -- ANIME FEATURES
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS anime_feature SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS anime_id ON anime_feature TYPE string;
    DEFINE FIELD IF NOT EXISTS name ON anime_feature TYPE string;
    DEFINE FIELD IF NOT EXISTS type ON anime_feature TYPE string;
    DEFINE FIELD IF NOT EXISTS score ON anime_feature TYPE float;
    DEFINE FIELD IF NOT EXISTS episodes ON anime_feature TYPE int;
    DEFINE FIELD IF NOT EXISTS aired ON anime_feature TYPE string;
    DEFINE FIELD IF NOT EXISTS rating ON anime_feature TYPE string;
    DEFINE FIELD IF NOT EXISTS popularity ON anime_feature TYPE int;
    DEFINE FIELD IF NOT EXISTS genres ON anime_feature TYPE string;
    DEFINE FIELD IF NOT EXISTS synopsis ON anime_feature TYPE string;
    DEFINE FIELD IF NOT EXISTS description ON anime_feature TYPE string;
    DEFINE FIELD IF NOT EXISTS embedding ON anime_feature TYPE array<float>;
    DEFINE FIELD IF NOT EXISTS run_id ON anime_feature TYPE string;
    DEFINE FIELD IF NOT EXISTS updated ON anime_feature TYPE datetime VALUE time::now();

    DEFINE INDEX IF NOT EXISTS anime_feature_run ON anime_feature FIELDS run_id;
    DEFINE INDEX IF NOT EXISTS anime_feature_embedding ON anime_feature FIELDS embedding HNSW DIMENSION %d DIST COSINE TYPE F32;

    -- ==========================================================================
    -- RATING FEATURES (one per user and anime)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS rating_feature SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS user_id ON rating_feature TYPE string;
    DEFINE FIELD IF NOT EXISTS anime_id ON rating_feature TYPE string;
    DEFINE FIELD IF NOT EXISTS rating ON rating_feature TYPE option<float>;
    DEFINE FIELD IF NOT EXISTS watched_episodes ON rating_feature TYPE option<int>;
    DEFINE FIELD IF NOT EXISTS total_episodes ON rating_feature TYPE int;
    DEFINE FIELD IF NOT EXISTS watched_episodes_ratio ON rating_feature TYPE option<float>;
    DEFINE FIELD IF NOT EXISTS run_id ON rating_feature TYPE string;
    DEFINE FIELD IF NOT EXISTS updated ON rating_feature TYPE datetime VALUE time::now();

    DEFINE INDEX IF NOT EXISTS rating_feature_run ON rating_feature FIELDS run_id;
    DEFINE INDEX IF NOT EXISTS rating_feature_user ON rating_feature FIELDS user_id;

    -- ==========================================================================
    -- USER FEATURES
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS user_feature SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS user_id ON user_feature TYPE string;
    DEFINE FIELD IF NOT EXISTS top_anime ON user_feature TYPE array<string>;
    DEFINE FIELD IF NOT EXISTS top_ratings ON user_feature TYPE array<float>;
    DEFINE FIELD IF NOT EXISTS run_id ON user_feature TYPE string;
    DEFINE FIELD IF NOT EXISTS updated ON user_feature TYPE datetime VALUE time::now();

    DEFINE INDEX IF NOT EXISTS user_feature_run ON user_feature FIELDS run_id;
`

// SchemaSQL returns the schema with the HNSW index sized for dimension.
func SchemaSQL(dimension int) string {
	return fmt.Sprintf(schemaTemplate, dimension)
}
