package main

import (
	"fmt"
	"strings"

	"github.com/quailyquaily/greg/internal/daemonruntime"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		RunE: func(cmd *cobra.Command, args []string) error {
			v := strings.TrimSpace(version)
			if v == "" || v == "dev" {
				v = daemonruntime.BuildVersion()
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "greg %s\n", v)
			if c := strings.TrimSpace(commit); c != "" && c != "none" {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "commit: %s\n", c)
			}
			if d := strings.TrimSpace(date); d != "" && d != "unknown" {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "date: %s\n", d)
			}
			return nil
		},
	}
}
