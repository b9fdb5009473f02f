package commands

import (
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/cli/client"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/cli/output"
	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print CLI and server versions",
	RunE: func(cmd *cobra.Command, args []string) error {
		var server *client.VersionInfo
		if info, err := apiClient.Version(cmd.Context()); err == nil {
			server = &info
		}

		if flagJSON {
			output.JSON(map[string]any{"cli": Version, "server": server})
			return nil
		}
		output.VersionInfo(Version, server)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
