package cli

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Version and Commit are set at build time via -ldflags.
//
//	go build -ldflags "-X github.com/scbrown/semmatch/internal/cli.Version=v0.2.0
//	  -X github.com/scbrown/semmatch/internal/cli.Commit=48cae1d"
var (
	Version = ""
	Commit  = ""
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and commit hash",
	Long: `Print the semmatch version string.

When built from a tagged release, shows the release version.
Otherwise shows "dev". The git commit hash is always included.

Examples:
  semmatch v0.2.0 (48cae1d)
  semmatch dev (48cae1d)

With --json the full commit hash and the Go version are included.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		v := Version
		if v == "" {
			v = "dev"
		}

		c := Commit
		if c == "" {
			c = commitFromBuildInfo()
		}

		w := cmd.OutOrStdout()
		if jsonOutput {
			return printJSON(w, versionInfo{Version: v, Commit: c, Go: goVersion()})
		}
		if c != "" {
			fmt.Fprintf(w, "semmatch %s (%s)\n", v, shortCommit(c))
		} else {
			fmt.Fprintf(w, "semmatch %s\n", v)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

type versionInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit,omitempty"`
	Go      string `json:"go"`
}

func goVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		return info.GoVersion
	}
	return ""
}

// commitFromBuildInfo extracts vcs.revision from Go's embedded build info.
func commitFromBuildInfo() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			return s.Value
		}
	}
	return ""
}

// shortCommit returns the first 7 characters of a commit hash.
func shortCommit(c string) string {
	if len(c) > 7 {
		return c[:7]
	}
	return c
}
