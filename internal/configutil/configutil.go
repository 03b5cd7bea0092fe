// Package configutil resolves settings that may come from a command flag or
// from viper (config file, environment). An explicitly set flag wins.
package configutil

import (
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func flagChanged(cmd *cobra.Command, name string) bool {
	if cmd == nil || strings.TrimSpace(name) == "" {
		return false
	}
	f := cmd.Flags().Lookup(name)
	return f != nil && f.Changed
}

func FlagOrViperString(cmd *cobra.Command, flagName, viperKey string) string {
	if flagChanged(cmd, flagName) {
		v, _ := cmd.Flags().GetString(flagName)
		return v
	}
	if viperKey != "" && viper.IsSet(viperKey) {
		return viper.GetString(viperKey)
	}
	if cmd != nil && cmd.Flags().Lookup(flagName) != nil {
		v, _ := cmd.Flags().GetString(flagName)
		return v
	}
	return viper.GetString(viperKey)
}

func FlagOrViperBool(cmd *cobra.Command, flagName, viperKey string) bool {
	if flagChanged(cmd, flagName) {
		v, _ := cmd.Flags().GetBool(flagName)
		return v
	}
	if viperKey != "" && viper.IsSet(viperKey) {
		return viper.GetBool(viperKey)
	}
	if cmd != nil && cmd.Flags().Lookup(flagName) != nil {
		v, _ := cmd.Flags().GetBool(flagName)
		return v
	}
	return viperKey != "" && viper.GetBool(viperKey)
}

func FlagOrViperInt(cmd *cobra.Command, flagName, viperKey string) int {
	if flagChanged(cmd, flagName) {
		v, _ := cmd.Flags().GetInt(flagName)
		return v
	}
	if viperKey != "" && viper.IsSet(viperKey) {
		return viper.GetInt(viperKey)
	}
	if cmd != nil && cmd.Flags().Lookup(flagName) != nil {
		v, _ := cmd.Flags().GetInt(flagName)
		return v
	}
	if viperKey == "" {
		return 0
	}
	return viper.GetInt(viperKey)
}

func FlagOrViperFloat64(cmd *cobra.Command, flagName, viperKey string) float64 {
	if flagChanged(cmd, flagName) {
		v, _ := cmd.Flags().GetFloat64(flagName)
		return v
	}
	if viperKey != "" && viper.IsSet(viperKey) {
		return viper.GetFloat64(viperKey)
	}
	if cmd != nil && cmd.Flags().Lookup(flagName) != nil {
		v, _ := cmd.Flags().GetFloat64(flagName)
		return v
	}
	if viperKey == "" {
		return 0
	}
	return viper.GetFloat64(viperKey)
}

func FlagOrViperDuration(cmd *cobra.Command, flagName, viperKey string) time.Duration {
	if flagChanged(cmd, flagName) {
		v, _ := cmd.Flags().GetDuration(flagName)
		return v
	}
	if viperKey != "" && viper.IsSet(viperKey) {
		return viper.GetDuration(viperKey)
	}
	if cmd != nil && cmd.Flags().Lookup(flagName) != nil {
		v, _ := cmd.Flags().GetDuration(flagName)
		return v
	}
	if viperKey == "" {
		return 0
	}
	return viper.GetDuration(viperKey)
}

// FlagOrViperStringArray accepts repeated flags, and comma separated values
// from env vars, returning trimmed non-empty items.
func FlagOrViperStringArray(cmd *cobra.Command, flagName, viperKey string) []string {
	var raw []string
	switch {
	case flagChanged(cmd, flagName):
		raw, _ = cmd.Flags().GetStringArray(flagName)
	case viperKey != "" && viper.IsSet(viperKey):
		// A plain string (env var) is split on commas only, so phrases
		// keep their inner spaces.
		if s, ok := viper.Get(viperKey).(string); ok {
			raw = []string{s}
		} else {
			raw = viper.GetStringSlice(viperKey)
		}
	case cmd != nil && cmd.Flags().Lookup(flagName) != nil:
		raw, _ = cmd.Flags().GetStringArray(flagName)
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
