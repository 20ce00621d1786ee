package core

import (
	"errors"
	"fmt"
	"strings"
)

// Error taxonomy for the analysis core. Callers match with errors.Is;
// the concrete messages carry the offending identifiers.
var (
	ErrInvalidCoordinate  = errors.New("invalid coordinate")
	ErrMissingField       = errors.New("missing field")
	ErrDuplicateSector    = errors.New("duplicate sector")
	ErrDegenerateGeometry = errors.New("degenerate geometry")
	ErrEmptyInput         = errors.New("empty input")
	ErrInvalidParameter   = errors.New("invalid parameter")
)

// RowError ties a validation failure to the input row that caused it.
type RowError struct {
	Line   int // 1-based data row number, 0 when unknown
	SiteID string
	Sector string
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d (site %q, sector %q): %v", e.Line, e.SiteID, e.Sector, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// BuildError aggregates every malformed row found while building the
// site index. The whole input is rejected rather than silently
// skipping rows, so a partial tier list can never masquerade as a
// complete one.
type BuildError struct {
	Rows []*RowError
}

func (e *BuildError) Error() string {
	if len(e.Rows) == 1 {
		return fmt.Sprintf("1 invalid row: %v", e.Rows[0])
	}
	msgs := make([]string, 0, len(e.Rows))
	for _, r := range e.Rows {
		msgs = append(msgs, r.Error())
	}
	return fmt.Sprintf("%d invalid rows: %s", len(e.Rows), strings.Join(msgs, "; "))
}

// Unwrap exposes the per-row causes so errors.Is works against the
// sentinel kinds.
func (e *BuildError) Unwrap() []error {
	errs := make([]error, len(e.Rows))
	for i, r := range e.Rows {
		errs[i] = r
	}
	return errs
}
