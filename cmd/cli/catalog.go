package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"supply-forecast/internal/data"
	"supply-forecast/internal/model"
	"supply-forecast/internal/release"
	"supply-forecast/internal/scenario"

	"github.com/spf13/cobra"
)

var cmdScenarios = &cobra.Command{
	Use:   "scenarios",
	Short: "List the named scenarios",
	Args:  cobra.NoArgs,
	Run: func(*cobra.Command, []string) {
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		defer tw.Flush()
		fmt.Fprintf(tw, "Name\tPrice drift\tValidators/day\tConversion\tReinvest\tRenewal\n")
		for _, s := range scenario.Infos() {
			fmt.Fprintf(tw, "%s\t%g\t%.4f\t%g\t%g\t%g\n", s.Name, s.PriceDrift, s.ValidatorRate, s.ConversionRate, s.ReinvestRate, s.RenewalRate)
		}
	},
}

var cmdParams = &cobra.Command{
	Use:   "params",
	Short: "List the parameters accepted by sweeps and sensitivity studies",
	Args:  cobra.NoArgs,
	Run: func(*cobra.Command, []string) {
		defaults := model.DefaultParams()
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		defer tw.Flush()
		fmt.Fprintf(tw, "Name\tDefault\tDescription\n")
		for _, p := range model.Parameters() {
			fmt.Fprintf(tw, "%s\t%g\t%s\n", p.Name, p.Value(defaults), p.Description)
		}
	},
}

var cmdReleaseFunctions = &cobra.Command{
	Use:   "release-functions",
	Short: "List the release-rate functions",
	Args:  cobra.NoArgs,
	Run: func(*cobra.Command, []string) {
		for _, f := range release.Functions() {
			fmt.Printf("%s\n    %s\n    %s\n", f.Name, f.Formula, f.Description)
		}
	},
}

var cmdDrivers = &cobra.Command{
	Use:   "drivers",
	Short: "Draw the driver path for the config seed and write it as JSON",
	Args:  cobra.NoArgs,
	Run:   drivers,
}

var flagDrivers struct {
	Out string
}

func init() {
	cmdMain.AddCommand(cmdScenarios, cmdParams, cmdReleaseFunctions, cmdDrivers)
	cmdDrivers.Flags().StringVarP(&flagDrivers.Out, "out", "o", "", "Output path (default: stdout)")
}

func drivers(cmd *cobra.Command, _ []string) {
	s := buildSetup()
	v := s.drivers(cmd.Context())
	if flagDrivers.Out == "" {
		check(data.WriteDriversJSON(os.Stdout, v))
		return
	}
	writeOutput(flagDrivers.Out, func(w io.Writer) error { return data.WriteDriversJSON(w, v) })
}
