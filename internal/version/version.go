// Package version holds the release version reported by the CLI.
package version

// Current is bumped by hand on release.
const Current = "0.1.0"
