// Package report renders the artifacts of a finished survey.
//
// This package contains writers for different output formats:
//   - JSONWriter: the statistics document, the merged survey state and a
//     machine-readable run summary
//   - MarkdownWriter: a shareable summary with tables and a version chart
//   - SimpleWriter: human-readable text output for terminal display
//
// Design decision: We separate report writing from the crawl state (which
// lives in the model, topology and stats packages) so new output formats
// never touch the crawl. The GraphML codec stays with the topology package
// because it is also read back.
//
// Summary writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
package report
