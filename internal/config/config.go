package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultSettleDelay is the pause between sending a round of survey
	// requests and polling for results. Nodes need a moment to relay the
	// requests through the overlay before anything can be collected.
	DefaultSettleDelay = time.Second

	// DefaultTimeout of zero means requests to the node never time out.
	// A survey node answers from local state, so a hanging request points
	// at a broken connection rather than a slow peer.
	DefaultTimeout time.Duration = 0

	// DefaultUserAgent identifies overlaysurvey in HTTP requests.
	DefaultUserAgent = "overlaysurvey (+https://github.com/nao1215/overlaysurvey)"

	// AppName is the application name used for XDG directory paths.
	AppName = "overlaysurvey"
)

// Config holds all configuration options for overlaysurvey.
// This struct is populated from CLI flags and the optional config file and
// passed through the application rather than held in global state.
//
// Design decision: We use a single flat struct instead of nested structs.
// The number of options is manageable, and the survey, mocksurvey and
// analyze commands each read a different subset of it.
type Config struct {
	// NodeURL is the base URL of the stellar-core admin endpoint, for
	// example "http://127.0.0.1:11626". It may also name a node profile
	// from the config file.
	NodeURL string

	// Duration is the number of seconds each surveyed node keeps its
	// survey running.
	Duration int

	// SettleDelay is the pause between dispatching a round and polling.
	SettleDelay time.Duration

	// Timeout bounds each HTTP request. Zero disables the timeout.
	Timeout time.Duration

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" format for
	// reaching nodes behind a bastion.
	ProxyAddress string

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// NodeListPath is an optional file of extra seed node ids, one per line.
	NodeListPath string

	// GraphStatsPath is the output file of the graph statistics document.
	GraphStatsPath string

	// SurveyResultPath is the output file of the merged survey state.
	SurveyResultPath string

	// GraphMLPath is the output file of the topology graph.
	GraphMLPath string

	// GraphMLInputPath is the graph read by the analyze command.
	GraphMLInputPath string

	// MarkdownPath is an optional output file of the Markdown summary.
	MarkdownPath string

	// JSONSummaryPath is an optional output file of the JSON run summary.
	JSONSummaryPath string

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .overlaysurvey in the current
	// directory and then in the user's home directory.
	ConfigFilePath string

	// SaveHistory stores each finished run in the history database.
	SaveHistory bool

	// DBDir is the directory of the history database.
	// Defaults to the XDG data directory (~/.local/share/overlaysurvey on Linux).
	DBDir string
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because several defaults are non-zero (settle delay, history).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		SettleDelay: DefaultSettleDelay,
		Timeout:     DefaultTimeout,
		UserAgent:   DefaultUserAgent,
		SaveHistory: true,
		DBDir:       XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for overlaysurvey.
// On Linux: ~/.local/share/overlaysurvey
// On macOS: ~/Library/Application Support/overlaysurvey
// On Windows: %LOCALAPPDATA%\overlaysurvey
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for overlaysurvey.
// On Linux: ~/.config/overlaysurvey
// On macOS: ~/Library/Application Support/overlaysurvey
// On Windows: %APPDATA%\overlaysurvey
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration of a live survey.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate once after CLI parsing, before any network
// activity, and return the first error found because fixing one error
// often makes others irrelevant.
func (c *Config) Validate() error {
	if c.NodeURL == "" {
		return ErrNoNode
	}
	if c.Duration <= 0 {
		return ErrInvalidDuration
	}
	if c.Timeout < 0 {
		return ErrInvalidTimeout
	}
	return c.ValidateOutputs()
}

// ValidateOutputs checks the settings shared by survey and mocksurvey:
// the three required artifact paths and the settle delay.
func (c *Config) ValidateOutputs() error {
	if c.GraphStatsPath == "" {
		return ErrNoGraphStatsOutput
	}
	if c.SurveyResultPath == "" {
		return ErrNoSurveyResultOutput
	}
	if c.GraphMLPath == "" {
		return ErrNoGraphMLOutput
	}
	if c.SettleDelay < 0 {
		return ErrInvalidSettleDelay
	}
	return nil
}

// ValidateAnalyze checks the configuration of the analyze command.
func (c *Config) ValidateAnalyze() error {
	if c.GraphMLInputPath == "" {
		return ErrNoGraphMLInput
	}
	if c.GraphStatsPath == "" {
		return ErrNoGraphStatsOutput
	}
	return nil
}
