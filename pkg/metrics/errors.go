package metrics

import (
	"errors"
	"fmt"
)

var (
	// ErrTransientQuery means a single entity or category had no data this
	// cycle. The engine keeps the previous value or omits the entity.
	ErrTransientQuery = errors.New("transient query failure")
	// ErrPermissionDenied means the OS refused access to an entity.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrEntityGone means the entity disappeared between enumeration and query.
	ErrEntityGone = errors.New("entity no longer exists")

	ErrEngineNotStarted     = errors.New("engine not started")
	ErrEngineAlreadyStarted = errors.New("engine already started")
	ErrEngineStopped        = errors.New("engine stopped")
)

// QueryError wraps a failed OS query with the operation and entity it concerned.
type QueryError struct {
	Op     string
	Entity string
	Err    error
}

func (e *QueryError) Error() string {
	if e.Entity == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Entity, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// FailureReason buckets a query error for logging and telemetry labels.
func FailureReason(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrEntityGone):
		return "gone"
	case errors.Is(err, ErrPermissionDenied):
		return "permission"
	default:
		return "transient"
	}
}
