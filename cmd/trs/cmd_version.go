package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gitrdm/gotrs/pkg/trs"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			info := trs.GetVersionInfo()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "trs %s (%s)\n", info.Version, info.GoVersion)
			if info.GitCommit != "" {
				fmt.Fprintf(out, "commit %s %s\n", info.GitCommit, info.BuildDate)
			}
		},
	}
}
