// Package tempoerr defines the sentinel errors surfaced at tempo's
// component boundaries, per the dataset spec's error taxonomy.
package tempoerr

import "errors"

var (
	// ErrNoFiles is returned when a search that required results found none.
	ErrNoFiles = errors.New("tempo: no files found")
	// ErrNoHandler is returned when a handler-dependent operation is called
	// without a handler registered for the file's extension.
	ErrNoHandler = errors.New("tempo: no handler for file")
	// ErrUnknownPlaceholder is returned when Render references an attribute
	// that was not supplied.
	ErrUnknownPlaceholder = errors.New("tempo: unknown placeholder")
	// ErrUnfilledPlaceholder is returned when Render leaves a special
	// character in the output.
	ErrUnfilledPlaceholder = errors.New("tempo: unfilled placeholder")
	// ErrPlaceholderRegex is returned when a user-supplied placeholder regex
	// fails to compile.
	ErrPlaceholderRegex = errors.New("tempo: invalid placeholder regex")
	// ErrInhomogeneousFiles is returned when linked-dataset contents cannot
	// be merged because their shapes disagree.
	ErrInhomogeneousFiles = errors.New("tempo: inhomogeneous files")
	// ErrInvalidUnit is returned by the time vocabulary when a unit spec
	// cannot be parsed.
	ErrInvalidUnit = errors.New("tempo: invalid time unit")
	// ErrInvalidTemplate is returned at Compile time for a malformed template.
	ErrInvalidTemplate = errors.New("tempo: invalid template")
	// ErrUnfixableInterval is returned when ToTimeRange cannot roll the end
	// time forward past start because no coarser end_* field exists.
	ErrUnfixableInterval = errors.New("tempo: end time precedes start with no coarser unit to roll forward")
	// ErrLinkCycle is returned when Dataset.Link would create a cycle.
	ErrLinkCycle = errors.New("tempo: link would create a cycle")
	// ErrMultiToSingle is returned when Dataset.Copy targets a single-file
	// destination from a multi-file source.
	ErrMultiToSingle = errors.New("tempo: cannot copy multiple files to a single-file dataset")
)
