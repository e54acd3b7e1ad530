package commands

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/mod/semver"
)

// Build-time variables set via ldflags
var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

var versionRequire string

var versionCmd = &cobra.Command{
	Use:     "version",
	Short:   "Print version information",
	GroupID: "info",
	Long: `Print version information.

With --require the command fails unless this build is at least the given
semantic version, which lets scripts and MCP client setups pin a minimum.`,
	Example: `  phaseflow version
  phaseflow version --require v0.4.0`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "phaseflow %s\n", Version)
		_, _ = fmt.Fprintf(out, "  Commit: %s\n", Commit)
		_, _ = fmt.Fprintf(out, "  Built:  %s\n", BuildTime)
		_, _ = fmt.Fprintf(out, "  Go:     %s\n", runtime.Version())

		if versionRequire == "" {
			return nil
		}
		return checkMinimumVersion(Version, versionRequire)
	},
}

func init() {
	versionCmd.Flags().StringVar(&versionRequire, "require", "", "Fail unless this build is at least the given version")
	rootCmd.AddCommand(versionCmd)
}

// canonicalVersion accepts "1.2.3" as well as "v1.2.3". It returns "" for
// anything that is not a semantic version, such as "dev".
func canonicalVersion(v string) string {
	v = strings.TrimSpace(v)
	if v != "" && !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return ""
	}
	return semver.Canonical(v)
}

func checkMinimumVersion(current, minimum string) error {
	want := canonicalVersion(minimum)
	if want == "" {
		return fmt.Errorf("invalid required version %q", minimum)
	}
	have := canonicalVersion(current)
	if have == "" {
		return fmt.Errorf("development build %q cannot satisfy %s", current, want)
	}
	if semver.Compare(have, want) < 0 {
		return fmt.Errorf("phaseflow %s is older than required %s", have, want)
	}
	return nil
}
