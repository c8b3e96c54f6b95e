package config

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"kubeconfig":       "kubeconfig",
	"context":          "context",
	"timeout":          "wait.timeout",
	"interval":         "wait.interval",
	"retry-attempts":   "retry.max-attempts",
	"retry-delay":      "retry.initial-delay",
	"monitor-interval": "monitor.interval",
	"max-concurrency":  "parallel.max-concurrency",
	"log-level":        "log.level",
	"log-format":       "log.format",
}

// BindFlags binds every known flag present in flags to its config key so that
// an explicitly set flag wins over env and file values. Unknown flags are ignored.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}

		err := v.BindPFlag(key, flag)
		if err != nil {
			return fmt.Errorf("bind flag %q: %w", name, err)
		}
	}

	return nil
}
