package errs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

type RepoKind uint8

const (
	RepoNotFound RepoKind = iota + 1
	RepoMultipleResults
	RepoIntegrity
	RepoConnection
	RepoOperation
)

func (k RepoKind) String() string {
	switch k {
	case RepoNotFound:
		return "not_found"
	case RepoMultipleResults:
		return "multiple_results"
	case RepoIntegrity:
		return "integrity"
	case RepoConnection:
		return "connection"
	default:
		return "operation"
	}
}

type RepoError struct {
	Kind  RepoKind
	Msg   string
	cause error
}

func NewRepo(kind RepoKind, msg string, cause error) *RepoError {
	return &RepoError{Kind: kind, Msg: msg, cause: cause}
}

func (e *RepoError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("repo %s: %s: %v", e.Kind, e.Msg, e.cause)
	}
	return fmt.Sprintf("repo %s: %s", e.Kind, e.Msg)
}

func (e *RepoError) Unwrap() error { return e.cause }

// IsRepo reports whether err carries a RepoError of the given kind.
func IsRepo(err error, kind RepoKind) bool {
	var re *RepoError
	return errors.As(err, &re) && re.Kind == kind
}

// RepoFromDB translates a database driver error into the repository
// taxonomy. Callers above the repository never observe pgx or sql errors.
func RepoFromDB(op string, err error) error {
	if err == nil {
		return nil
	}
	var re *RepoError
	if errors.As(err, &re) {
		return err
	}

	if errors.Is(err, sql.ErrNoRows) {
		return NewRepo(RepoNotFound, op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgerrcode.IsIntegrityConstraintViolation(pgErr.Code):
			return NewRepo(RepoIntegrity, op, err)
		case pgerrcode.IsConnectionException(pgErr.Code),
			pgErr.Code == pgerrcode.DeadlockDetected,
			pgErr.Code == pgerrcode.SerializationFailure:
			return NewRepo(RepoConnection, op, err)
		case pgErr.Code == pgerrcode.CardinalityViolation:
			return NewRepo(RepoMultipleResults, op, err)
		}
		return NewRepo(RepoOperation, op, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, sql.ErrConnDone) {
		return NewRepo(RepoConnection, op, err)
	}

	return NewRepo(RepoOperation, op, err)
}
