package main

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/banshee-data/xrfsim/internal/geometry"
	"github.com/banshee-data/xrfsim/internal/version"
)

func newRTPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rtp <r> <theta> <phi>",
		Short: "Convert a spherical orientation (angles in degrees) to x y z",
		// negative angles such as -30 must reach RunE as arguments
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if slices.Contains(args, "-h") || slices.Contains(args, "--help") {
				return cmd.Help()
			}
			if err := cobra.ExactArgs(3)(cmd, args); err != nil {
				return err
			}
			var s geometry.Spherical
			for i, arg := range args {
				v, err := strconv.ParseFloat(arg, 64)
				if err != nil {
					return fmt.Errorf("invalid number %q: %w", arg, err)
				}
				s[i] = v
			}
			v := geometry.FromSpherical(s)
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", formatFloat(v.X()), formatFloat(v.Y()), formatFloat(v.Z()))
			return nil
		},
	}
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "xrfsim %s\n", version.String())
		},
	}
}
