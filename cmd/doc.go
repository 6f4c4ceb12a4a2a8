// Package cmd provides the command-line interface for assetmin.
//
// This package implements the CLI commands using the Cobra framework on top
// of the directive engine in internal/directive.
//
// # Available Commands
//
//   - process: merge marked asset groups and stamp references in templates
//   - watch: reprocess templates as they change
//   - inspect: list the script and stylesheet URLs of a document
//   - config: show or validate the effective configuration
//   - version: print build information
//
// # Command Examples
//
//	// Rewrite every template under build.paths in place
//	assetmin process
//
//	// Mirror processed templates into dist/ and keep a report
//	assetmin process --output dist --report build/assets.yml
//
//	// See what would change without touching the disk
//	assetmin process --dry-run --report -
//
//	// Templates whose URL helper is not renderUrl
//	assetmin process --url-func '$this->StaticUrl' views/
//
// # Configuration Integration
//
// Commands respect configuration from multiple sources in order of precedence:
//
//  1. Command-line flags (highest priority)
//  2. Environment variables (ASSETMIN_*)
//  3. Configuration file (.assetmin.yml)
//  4. Default values (lowest priority)
//
// # Error Handling
//
// A template that cannot be processed is logged and counted, and the run
// continues with the next one. The command exits non-zero when any template
// failed.
package cmd
