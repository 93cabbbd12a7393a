package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/surrealdb/surrealdb.go"
)

// Sentinel errors for store operations.
var (
	// ErrTransactionConflict indicates concurrent writers touched the same records.
	// The write may be retried.
	ErrTransactionConflict = errors.New("transaction conflict")

	// ErrInvalidRecord indicates a document that does not fit the table schema.
	ErrInvalidRecord = errors.New("record does not match schema")
)

// wrapQueryError maps known SurrealDB query errors to sentinels and returns
// anything else unchanged.
func wrapQueryError(err error) error {
	if err == nil {
		return nil
	}

	var queryErr *surrealdb.QueryError
	if errors.As(err, &queryErr) {
		msg := queryErr.Message
		switch {
		case strings.Contains(msg, "Transaction conflict"):
			return fmt.Errorf("%w: %s", ErrTransactionConflict, msg)
		case strings.Contains(msg, "Couldn't coerce"), strings.Contains(msg, "Expected a"):
			return fmt.Errorf("%w: %s", ErrInvalidRecord, msg)
		}
	}
	return err
}
