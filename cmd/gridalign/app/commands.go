package app

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/atlaseo/gridalign/pkg/align"
	"github.com/atlaseo/gridalign/pkg/resample"
)

// NewPlanCommand creates the plan command, which validates an alignment plan
// file and prints the resolved configuration without touching any data.
func (a *App) NewPlanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "plan <plan-file>",
		Short: "Validate an alignment plan and print the resolved configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := LoadPlan(args[0])
			if err != nil {
				return err
			}

			opts, err := plan.Options()
			if err != nil {
				return err
			}

			// Constructing the aligner runs the full option validation.
			aligner, err := align.New(opts...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "plan: %s\n", args[0])
			if plan.Target != "" {
				fmt.Fprintf(out, "target: %s\n", plan.Target)
			}
			if plan.CRS != "" {
				fmt.Fprintf(out, "crs: %s\n", plan.CRS)
			}
			switch {
			case plan.ResolutionX > 0 || plan.ResolutionY > 0:
				fmt.Fprintf(out, "resolution: %g x %g\n", plan.ResolutionX, plan.ResolutionY)
			case plan.Resolution > 0:
				fmt.Fprintf(out, "resolution: %g\n", plan.Resolution)
			}
			if plan.Snap != "" {
				fmt.Fprintf(out, "snap: %s\n", plan.Snap)
			}
			if plan.Coarsen != nil && plan.Coarsen.Factor > 1 {
				fmt.Fprintf(out, "coarsen: factor %d\n", plan.Coarsen.Factor)
			}

			for _, dataset := range plan.Datasets() {
				policy, err := aligner.ResolvePolicy(dataset)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "resampling %s: default %s\n", dataset, policy.Default)
				overrides := make([]string, 0, len(policy.Overrides))
				for variable := range policy.Overrides {
					overrides = append(overrides, variable)
				}
				sort.Strings(overrides)
				for _, variable := range overrides {
					fmt.Fprintf(out, "resampling %s: %s -> %s\n", dataset, variable, policy.Overrides[variable])
				}
			}

			fmt.Fprintln(out, "plan is valid")
			return nil
		},
	}
}

// NewMethodsCommand creates the methods command, listing the supported
// resampling kernels.
func (a *App) NewMethodsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "methods",
		Short: "List supported resampling methods",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			for _, m := range resample.Methods {
				kind := "interpolating"
				if m.IsReducer() {
					kind = "reducing"
				}
				fmt.Fprintf(out, "%-15s %s\n", m, kind)
			}
			return nil
		},
	}
}

// NewVersionCommand creates the version command.
func (a *App) NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "gridalign %s\n", a.version)
			fmt.Fprintf(out, "  commit:   %s\n", a.commit)
			fmt.Fprintf(out, "  built:    %s\n", a.date)
			fmt.Fprintf(out, "  built by: %s\n", a.builtBy)
		},
	}
}
