package collecting

import (
	"errors"
	"fmt"
	"io/fs"
	"syscall"

	"SystemMonitor/pkg/metrics"

	"github.com/shirou/gopsutil/v3/process"
)

// classify wraps an OS error into a QueryError carrying one of the metrics
// sentinels so callers can branch with errors.Is.
func classify(op, entity string, err error) error {
	if err == nil {
		return nil
	}
	var kind error
	switch {
	case errors.Is(err, metrics.ErrEntityGone), errors.Is(err, metrics.ErrPermissionDenied), errors.Is(err, metrics.ErrTransientQuery):
		return &metrics.QueryError{Op: op, Entity: entity, Err: err}
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, syscall.ESRCH), errors.Is(err, process.ErrorProcessNotRunning):
		kind = metrics.ErrEntityGone
	case errors.Is(err, fs.ErrPermission), errors.Is(err, syscall.EACCES), errors.Is(err, syscall.EPERM):
		kind = metrics.ErrPermissionDenied
	default:
		kind = metrics.ErrTransientQuery
	}
	return &metrics.QueryError{Op: op, Entity: entity, Err: fmt.Errorf("%w: %w", kind, err)}
}

func pidEntity(pid int32) string {
	return fmt.Sprintf("pid %d", pid)
}
