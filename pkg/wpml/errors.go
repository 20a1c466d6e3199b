package wpml

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedMission   = errors.New("malformed mission")
	ErrInvalidCoordinate  = errors.New("invalid coordinate")
	ErrInvalidTrigger     = errors.New("invalid trigger")
	ErrEmptyPath          = errors.New("empty path")
	ErrIncompleteOverride = errors.New("incomplete override")
	ErrInvalidConfig      = errors.New("invalid build config")
)

// RouteError ties an error to the route it came from. WaylineID is -1 when
// the route could not be identified, in which case Folder (the position of
// the route in the document) is the only reference.
type RouteError struct {
	WaylineID int
	Folder    int
	Err       error
}

func (e *RouteError) Error() string {
	if e.WaylineID < 0 {
		return fmt.Sprintf("folder %d: %v", e.Folder, e.Err)
	}
	return fmt.Sprintf("wayline %d: %v", e.WaylineID, e.Err)
}

func (e *RouteError) Unwrap() error {
	return e.Err
}

func route_error(r *Route, err error) error {
	return &RouteError{WaylineID: r.WaylineID, Folder: r.folder, Err: err}
}

// RouteErrors flattens a (possibly joined) error into its route errors.
// Errors that carry no route are returned as is.
func RouteErrors(err error) []error {
	if err == nil {
		return nil
	}
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		var errs []error
		for _, e := range j.Unwrap() {
			errs = append(errs, RouteErrors(e)...)
		}
		return errs
	}
	return []error{err}
}
