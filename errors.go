package corcluster

import "errors"

var (
	// ErrEmptyInput indicates an observation matrix or table with no rows.
	ErrEmptyInput = errors.New("corcluster: no observations")
	// ErrTooFewVariables indicates fewer than two variables to cluster.
	ErrTooFewVariables = errors.New("corcluster: at least two variables are required")
	// ErrRaggedInput indicates observation rows of differing lengths.
	ErrRaggedInput = errors.New("corcluster: all observation rows must have the same length")
	// ErrNonBinary indicates an observation cell outside {0, 1}.
	ErrNonBinary = errors.New("corcluster: observations must be 0 or 1")
	// ErrTooManyVariables indicates more variables than a packed tuple key can hold.
	ErrTooManyVariables = errors.New("corcluster: too many variables")
	// ErrNegativeCount indicates a negative count in a pre-aggregated table.
	ErrNegativeCount = errors.New("corcluster: counts must be non-negative")
	// ErrDegenerateVariable indicates a variable that is always 0 or always 1,
	// for which the Pearson correlation is undefined.
	ErrDegenerateVariable = errors.New("corcluster: variable has zero variance")
	// ErrLabelMismatch indicates a label list whose length differs from the
	// number of variables.
	ErrLabelMismatch = errors.New("corcluster: label count does not match variable count")
	// ErrStackShape indicates a correlation stack whose width is not d(d-1)/2
	// for any integer d.
	ErrStackShape = errors.New("corcluster: stack width is not a triangular number")
	// ErrInvalidLinkage indicates a malformed linkage record.
	ErrInvalidLinkage = errors.New("corcluster: invalid linkage")
	// ErrDisjointLeaves indicates leaves that do not share a common ancestor.
	ErrDisjointLeaves = errors.New("corcluster: leaves are not connected")
	// ErrUnknownLabel indicates a label that is not present in a tree.
	ErrUnknownLabel = errors.New("corcluster: unknown label")
	// ErrInvalidConfig indicates an out-of-range configuration value.
	ErrInvalidConfig = errors.New("corcluster: invalid config")
)
