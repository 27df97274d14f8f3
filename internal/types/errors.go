package types

import "errors"

// Error-kind sentinels matching the error handling design: fatal artifact
// errors, silent-skip conditions, and recoverable shape violations.
var (
	// ErrMissingArtifact is returned when a required artifact file (manifest.json)
	// does not exist. Fatal.
	ErrMissingArtifact = errors.New("required artifact is missing")

	// ErrCorruptArtifact is returned when an artifact exists but fails to parse
	// as JSON, or is missing a field required for ingestion to proceed. Fatal;
	// the ingestion transaction is rolled back.
	ErrCorruptArtifact = errors.New("artifact is corrupt or malformed")

	// ErrMissingOptional marks an optional artifact (catalog.json,
	// run_results.json) that is absent. Ingestion skips it silently; callers
	// may check errors.Is(err, ErrMissingOptional) to distinguish from a
	// hard failure.
	ErrMissingOptional = errors.New("optional artifact is missing")

	// ErrUnknownModel names a reference that points at a unique_id not
	// present among ingested models. Ingestion does not return it: catalog
	// and run-results entries for unknown ids are skipped without an error,
	// while edges and tests are stored with the ids as declared.
	ErrUnknownModel = errors.New("referenced model is unknown")

	// ErrFtsUnavailable names a failed FTS5 phase of a search (e.g. a
	// malformed query after tokenization). Search does not return it: it
	// falls back to the LIKE scan instead.
	ErrFtsUnavailable = errors.New("full-text search is unavailable")

	// ErrBudgetExceeded is informational, not a failure: the capsule packer
	// stopped adding items to a tier because its token bucket is full.
	ErrBudgetExceeded = errors.New("token budget exhausted")

	// ErrShapeViolation marks a value that didn't match its expected JSON
	// shape (e.g. a ref that is neither a 1- nor 2-element array). Recovered
	// locally; never propagated as a fatal error.
	ErrShapeViolation = errors.New("unexpected artifact shape")
)
