package cli

import (
	"github.com/Masterminds/semver/v3"
	"github.com/spf13/cobra"
)

// newVersionCmd creates the version command.
func newVersionCmd() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Annotations: map[string]string{annotationSkipSetup: "true"},
		Args:        cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if short {
				cmd.Println(displayVersion(Version))
				return
			}
			cmd.Printf("proxy-manager %s\n", displayVersion(Version))
			cmd.Printf("Commit: %s\n", Commit)
			cmd.Printf("Build Date: %s\n", BuildDate)
		},
	}

	cmd.Flags().BoolVarP(&short, "short", "s", false, "Show only the version number")

	return cmd
}

// displayVersion normalizes release versions to vX.Y.Z and flags pre-releases.
// Anything that is not semver, such as "dev", is shown as is.
func displayVersion(v string) string {
	sv, err := semver.NewVersion(v)
	if err != nil {
		return v
	}
	out := "v" + sv.String()
	if sv.Prerelease() != "" {
		out += " (pre-release)"
	}
	return out
}
