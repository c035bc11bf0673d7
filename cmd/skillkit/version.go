package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillkit/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	Run: func(cmd *cobra.Command, _ []string) {
		info, err := version.Get().JSON()
		if err != nil {
			fail(cmd.Context(), err, "Failed to encode version")
		}
		fmt.Println(info)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
