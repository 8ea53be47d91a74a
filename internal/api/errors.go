package api

import "errors"

// CollectionError means the catalog lookup failed terminally: the export was
// still not ready after the poll budget, the upstream rejected the username,
// or the transport failed. The reason is surfaced to the user verbatim.
type CollectionError struct {
	Reason string
}

func (e *CollectionError) Error() string {
	return e.Reason
}

// AsCollectionError attempts to unwrap an error into a CollectionError.
func AsCollectionError(err error) (*CollectionError, bool) {
	var cerr *CollectionError
	if errors.As(err, &cerr) {
		return cerr, true
	}
	return nil, false
}

// StreamError means the enrichment fetch failed at the transport or protocol
// level. Patches applied before the failure stay in place; enrichment is
// additive and partial results are acceptable.
type StreamError struct {
	Message string
	Err     error
}

func (e *StreamError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// AsStreamError attempts to unwrap an error into a StreamError.
func AsStreamError(err error) (*StreamError, bool) {
	var serr *StreamError
	if errors.As(err, &serr) {
		return serr, true
	}
	return nil, false
}
