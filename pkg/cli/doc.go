// Package cli holds the converge command line:
//
//   - cli/cmd: the cobra command tree (wait, watch, config, version)
//   - cli/errorhandler: command execution, error normalization and exit codes
//   - cli/helpers: output helpers shared by subcommands
package cli
