package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/datasync-solution/bmc-analyst/internal/logger"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of BMC Analyst",
	Long:  `Prints the version and platform, and the latest crash log if any were recorded.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "bmc version %s (%s/%s)\n", version, runtime.GOOS, runtime.GOARCH)

		logs, err := logger.ListCrashLogs()
		if err != nil || len(logs) == 0 {
			return
		}
		fmt.Fprintf(out, "⚠️  %d crash log(s) recorded, latest: %s\n", len(logs), logs[len(logs)-1])
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
