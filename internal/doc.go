// Package internal contains the core implementation packages for assetmin.
//
// # Package Organization
//
//   - directive: merge-marker scanner, bundle writer and reference stamping
//   - tags: script and link reference patterns parameterized by URL helper
//   - fingerprint: content digests, stamp truncation and a digest cache
//   - config: Viper-backed configuration with validation
//   - errors: structured error type shared by the engine and the CLI
//   - logging: structured logging on log/slog
//   - watcher: debounced fsnotify watching for the watch command
//   - inspect: read-only listing of asset URLs in a processed document
//   - version: build information
//
// # Data Flow
//
// A document goes through the directive scanner once: every marker pair is
// merged into a bundle written through an afero filesystem, the pending
// replacements are applied in reverse order, and a final pass stamps the
// remaining references to existing assets. All file access goes through
// afero so tests and dry runs can use in-memory filesystems.
package internal
