// Package features derives the anime, rating and user feature tables.
//
// Every builder is a pure function over whole tables: it either returns a
// fully transformed table or an error, never a partial result.
package features

import "errors"

// Sentinel errors for feature computation.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrExternalService indicates the embedding capability failed.
	// Builders do not retry; the caller decides whether to rerun.
	ErrExternalService = errors.New("external service failed")

	// ErrDataIntegrity indicates input that would silently corrupt the output,
	// such as duplicate join keys or unparseable ratings.
	ErrDataIntegrity = errors.New("data integrity violation")
)
