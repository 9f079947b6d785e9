package indexstore

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when a content hash has no stored Index row.
var ErrNotFound = errors.New("indexstore: not found")

// ErrUniqueViolation is returned when Put races another writer for the same
// content hash; callers should treat this as a benign cache race, not a
// failure of the build that produced the Index.
var ErrUniqueViolation = errors.New("indexstore: unique constraint violation")

// convertDBError maps backend-specific errors onto the package's own error
// values so callers never need to import a driver package to inspect them.
func convertDBError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrUniqueViolation, pgErr.Detail)
	}
	return err
}

// IsNotFound reports whether err is or wraps ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
