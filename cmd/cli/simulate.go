package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"supply-forecast/internal/forecast"
	"supply-forecast/internal/storage"
	"supply-forecast/internal/storage/backend"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var cmdSimulate = &cobra.Command{
	Use:   "simulate",
	Short: "Run one forecast and print its final-day position",
	Args:  cobra.NoArgs,
	Run:   simulate,
}

var flagSimulate struct {
	Out        string
	Persist    bool
	Postgres   string
	Clickhouse string
}

func init() {
	cmdMain.AddCommand(cmdSimulate)
	f := cmdSimulate.Flags()
	f.StringVarP(&flagSimulate.Out, "out", "o", "", "Write the daily ledger as CSV")
	f.BoolVar(&flagSimulate.Persist, "persist", false, "Store the run in the archive")
	f.StringVar(&flagSimulate.Postgres, "postgres-dsn", os.Getenv("POSTGRES_DSN"), "Postgres DSN for --persist")
	f.StringVar(&flagSimulate.Clickhouse, "clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse DSN for ledgers with --persist")
}

func simulate(cmd *cobra.Command, _ []string) {
	ctx := cmd.Context()
	log := zerolog.Ctx(ctx)
	s := buildSetup()

	res, err := forecast.Run(s.cfg, s.drivers(ctx))
	check(err)

	if flagSimulate.Out != "" {
		writeOutput(flagSimulate.Out, func(w io.Writer) error { return forecast.WriteLedger(w, res.Ledger) })
		log.Info().Str("path", flagSimulate.Out).Int("rows", len(res.Ledger)).Msg("ledger written")
	}

	if flagSimulate.Persist {
		opts := backend.Options{PostgresDSN: flagSimulate.Postgres, ClickhouseDSN: flagSimulate.Clickhouse}
		if opts.PostgresDSN == "" {
			fatalf("--persist needs --postgres-dsn or POSTGRES_DSN")
		}
		archive, closeArchive, err := backend.Open(ctx, opts)
		check(err)
		defer closeArchive()

		raw, err := json.Marshal(s.doc)
		check(err)
		rec := storage.NewRunRecord(storage.KindSimulate, s.cfg.Horizon(), s.doc.Seed, s.doc.Scenario.String(), raw, res.Summary)
		checkf(archive.Save(ctx, &rec, res.Ledger), "persist run")
		fmt.Printf("Stored run %s\n", rec.ID)
	}

	printSummary(os.Stdout, res.Summary)
}

func printSummary(out io.Writer, sum forecast.Summary) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	defer tw.Flush()
	fmt.Fprintf(tw, "Days\t%d\n", sum.Days)
	fmt.Fprintf(tw, "Circulating supply\t%s\n", num(sum.FinalCircSupply))
	fmt.Fprintf(tw, "Market cap\t$%s\n", num(sum.FinalMarketCap))
	fmt.Fprintf(tw, "Staking TVL\t%s\n", num(sum.FinalStakingTVL))
	fmt.Fprintf(tw, "Ecosystem fund\t%s\n", num(sum.FinalEcosystemFund))
	fmt.Fprintf(tw, "Min ecosystem fund\t%s\n", num(sum.MinEcosystemFund))
	fmt.Fprintf(tw, "Yearly inflation\t%s\n", pct(sum.FinalYearInflation))
	fmt.Fprintf(tw, "Total burned\t%s\n", num(sum.TotalBurned))
	fmt.Fprintf(tw, "Total vested\t%s\n", num(sum.TotalVested))
	fmt.Fprintf(tw, "Total rewards\t%s\n", num(sum.TotalRewards))
	if sum.NegativeFund {
		fmt.Fprintf(tw, "WARNING\tecosystem fund went negative\n")
	}
}
