package cli

import (
	"errors"
	"fmt"

	"github.com/dshills/docsync/internal/config"
	"github.com/dshills/docsync/internal/embedder"
	"github.com/dshills/docsync/internal/reconcile"
	"github.com/dshills/docsync/internal/scanner"
	"github.com/dshills/docsync/internal/storage"
)

// Process exit codes
const (
	ExitOK       = reconcile.ExitOK
	ExitDegraded = reconcile.ExitDegraded
	ExitConfig   = 2
	ExitFailure  = 3
)

// DegradedError reports a completed sync that truncated or skipped documents
type DegradedError struct {
	Report *reconcile.Report
}

func (e *DegradedError) Error() string {
	return fmt.Sprintf("sync completed with %d truncated and %d failed documents",
		len(e.Report.Truncated), e.Report.Failed)
}

// ExitCode maps a command error to the process exit status
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var (
		degraded *DegradedError
		cfgErr   *config.ConfigurationError
	)
	switch {
	case errors.As(err, &degraded):
		return ExitDegraded
	case errors.As(err, &cfgErr),
		errors.Is(err, scanner.ErrSourceNotFound),
		errors.Is(err, scanner.ErrNotDirectory),
		errors.Is(err, scanner.ErrBadPattern),
		errors.Is(err, storage.ErrUnknownDriver),
		errors.Is(err, storage.ErrInvalidTable),
		errors.Is(err, embedder.ErrUnsupportedModel),
		errors.Is(err, embedder.ErrNoProviderEnabled):
		return ExitConfig
	default:
		return ExitFailure
	}
}
