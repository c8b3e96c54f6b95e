// Package helpers holds output helpers shared by converge subcommands.
package helpers
