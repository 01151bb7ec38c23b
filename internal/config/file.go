package config

import "time"

// NodeProfile holds the settings of one named survey node.
// Profiles let a team keep their validators' admin endpoints in the config
// file and survey them with --node <name>.
type NodeProfile struct {
	// URL is the admin endpoint of the node.
	URL string `yaml:"url"`

	// Proxy overrides the global SOCKS5 proxy for this node.
	Proxy string `yaml:"proxy,omitempty"`

	// Duration overrides the global survey duration for this node.
	Duration int `yaml:"duration,omitempty"`
}

// OutputFiles holds default artifact paths.
type OutputFiles struct {
	GraphStats   string `yaml:"graphStats,omitempty"`
	SurveyResult string `yaml:"surveyResult,omitempty"`
	GraphML      string `yaml:"graphml,omitempty"`
	Markdown     string `yaml:"markdown,omitempty"`
	JSONSummary  string `yaml:"jsonSummary,omitempty"`
}

// HistoryConfig controls run persistence.
type HistoryConfig struct {
	// Enabled turns the history store on or off. Nil keeps the default.
	Enabled *bool `yaml:"enabled,omitempty"`

	// DBDir overrides the XDG data directory.
	DBDir string `yaml:"dbDir,omitempty"`
}

// File represents the structure of the .overlaysurvey configuration file.
type File struct {
	// Node is the default node URL or profile name.
	Node string `yaml:"node,omitempty"`

	// Duration is the default survey duration in seconds.
	Duration int `yaml:"duration,omitempty"`

	// SettleDelay and Timeout accept Go duration strings such as "1s".
	SettleDelay time.Duration `yaml:"settleDelay,omitempty"`
	Timeout     time.Duration `yaml:"timeout,omitempty"`

	Proxy     string `yaml:"proxy,omitempty"`
	UserAgent string `yaml:"userAgent,omitempty"`
	NodeList  string `yaml:"nodeList,omitempty"`

	Outputs OutputFiles   `yaml:"outputs,omitempty"`
	History HistoryConfig `yaml:"history,omitempty"`

	// Nodes maps profile names to node settings.
	Nodes map[string]NodeProfile `yaml:"nodes,omitempty"`
}

// FlagSet reports whether a command line flag was given explicitly.
// *pflag.FlagSet, as returned by cobra's cmd.Flags(), satisfies it.
type FlagSet interface {
	Changed(name string) bool
}

// Apply fills every setting of c whose flag was not given explicitly from
// the file, so command line values win even when they equal the default.
// A nil flags treats every flag as unset.
//
// The node is resolved first: a value naming a profile in f.Nodes is
// replaced by the profile URL, and the profile's proxy and duration take
// precedence over the file-wide ones.
func (c *Config) Apply(f *File, flags FlagSet) {
	if f == nil {
		return
	}
	explicit := func(name string) bool {
		return flags != nil && flags.Changed(name)
	}

	if !explicit("node") {
		setString(&c.NodeURL, f.Node)
	}
	proxyAddress, duration := f.Proxy, f.Duration
	if profile, ok := f.Nodes[c.NodeURL]; ok {
		c.NodeURL = profile.URL
		if profile.Proxy != "" {
			proxyAddress = profile.Proxy
		}
		if profile.Duration != 0 {
			duration = profile.Duration
		}
	}
	if !explicit("proxy") {
		setString(&c.ProxyAddress, proxyAddress)
	}
	if !explicit("duration") && duration != 0 {
		c.Duration = duration
	}
	if !explicit("settle-delay") && f.SettleDelay != 0 {
		c.SettleDelay = f.SettleDelay
	}
	if !explicit("timeout") && f.Timeout != 0 {
		c.Timeout = f.Timeout
	}
	if !explicit("user-agent") {
		setString(&c.UserAgent, f.UserAgent)
	}
	if !explicit("node-list") {
		setString(&c.NodeListPath, f.NodeList)
	}
	if !explicit("graph-stats") {
		setString(&c.GraphStatsPath, f.Outputs.GraphStats)
	}
	if !explicit("survey-result") {
		setString(&c.SurveyResultPath, f.Outputs.SurveyResult)
	}
	if !explicit("graphml-write") {
		setString(&c.GraphMLPath, f.Outputs.GraphML)
	}
	if !explicit("markdown") {
		setString(&c.MarkdownPath, f.Outputs.Markdown)
	}
	if !explicit("json-summary") {
		setString(&c.JSONSummaryPath, f.Outputs.JSONSummary)
	}

	if !explicit("no-history") && f.History.Enabled != nil {
		c.SaveHistory = *f.History.Enabled
	}
	if !explicit("db-dir") {
		setString(&c.DBDir, f.History.DBDir)
	}
}

// setString sets *dst to v when v is not empty.
func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
