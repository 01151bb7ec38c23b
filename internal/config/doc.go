// Package config provides configuration structures and utilities for
// overlaysurvey. It defines the node to survey, the crawl timing, transport
// settings, artifact paths and history persistence, plus the optional YAML
// configuration file that supplies defaults and named node profiles.
package config
