package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrNoNode is returned when no node URL is given on the command line
	// or in the configuration file.
	ErrNoNode = errors.New("no node specified: use --node or set node in the config file")

	// ErrInvalidDuration is returned when the survey duration is not positive.
	// Nodes reject surveys without a running time.
	ErrInvalidDuration = errors.New("invalid duration: must be a positive number of seconds")

	// ErrNoGraphStatsOutput is returned when --graph-stats is missing.
	ErrNoGraphStatsOutput = errors.New("no graph statistics output: use --graph-stats")

	// ErrNoSurveyResultOutput is returned when --survey-result is missing.
	ErrNoSurveyResultOutput = errors.New("no survey result output: use --survey-result")

	// ErrNoGraphMLOutput is returned when --graphml-write is missing.
	ErrNoGraphMLOutput = errors.New("no graphml output: use --graphml-write")

	// ErrNoGraphMLInput is returned when analyze is run without --graphml-analyze.
	ErrNoGraphMLInput = errors.New("no graphml input: use --graphml-analyze")

	// ErrInvalidTimeout is returned when the request timeout is negative.
	// Use 0 to wait indefinitely.
	ErrInvalidTimeout = errors.New("invalid timeout: must be non-negative")

	// ErrInvalidSettleDelay is returned when the settle delay is negative.
	ErrInvalidSettleDelay = errors.New("invalid settle delay: must be non-negative")
)
