package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/avvvet/keno-services/internal/kenosvc/payout"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

type options struct {
	tableFile       string
	drawSize        int
	universeSize    int
	maxSpots        int
	targetHouseEdge float64
}

func (o *options) analyzer() (*payout.Analyzer, error) {
	table := payout.DefaultTable()
	if o.tableFile != "" {
		var err error
		if table, err = payout.LoadFile(o.tableFile); err != nil {
			return nil, err
		}
	}
	return payout.NewAnalyzer(table, o.drawSize, o.universeSize, o.maxSpots), nil
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "rtpctl",
		Short:        "Keno payout table analysis",
		SilenceUsage: true,
	}
	root.SetOut(out)

	f := root.PersistentFlags()
	f.StringVarP(&opts.tableFile, "table", "t", "", "payout table yaml file (default: built-in table)")
	f.IntVar(&opts.drawSize, "draw", 20, "numbers drawn per game")
	f.IntVar(&opts.universeSize, "universe", 80, "size of the number pool")
	f.IntVar(&opts.maxSpots, "max-spots", payout.MaxSpots, "largest pick size")
	f.Float64Var(&opts.targetHouseEdge, "house-edge", 0.25, "target house edge")

	root.AddCommand(
		newReportCmd(opts),
		newAnalyzeCmd(opts),
		newQuoteCmd(opts),
		newRecommendCmd(opts),
	)
	return root
}

func newReportCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "House edge report for every pick size",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.analyzer()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SPOTS\tRTP\tTARGET\tHOUSE EDGE\tSTATUS")
			for _, line := range a.HouseEdgeReport(opts.targetHouseEdge) {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
					line.Spots, percent(line.CurrentRTP), percent(line.TargetRTP),
					percent(1-line.CurrentRTP), line.Recommendation)
			}
			return w.Flush()
		},
	}
}

func newAnalyzeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze SPOTS",
		Short: "Per-match probability breakdown for one pick size",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.analyzer()
			if err != nil {
				return err
			}
			spots, err := spotsArg(args[0], a.MaxSpots)
			if err != nil {
				return err
			}

			rtp := a.ExpectedReturn(spots)
			fmt.Fprintf(cmd.OutOrStdout(), "%d spots: RTP %s, house edge %s\n", spots, percent(rtp), percent(1-rtp))

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "MATCHES\tMULTIPLIER\tODDS\tFREQUENCY")
			for _, line := range a.MatchBreakdown(spots) {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", line.Matches, line.Multiplier, line.Odds, line.Frequency)
			}
			return w.Flush()
		},
	}
}

func newQuoteCmd(opts *options) *cobra.Command {
	var wager int64

	cmd := &cobra.Command{
		Use:   "quote SPOTS",
		Short: "Payout for every outcome of a bet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.analyzer()
			if err != nil {
				return err
			}
			spots, err := spotsArg(args[0], a.MaxSpots)
			if err != nil {
				return err
			}
			if wager <= 0 {
				return fmt.Errorf("bet must be positive, got %d", wager)
			}

			q := a.Quote(spots, wager)
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "MATCHES\tMULTIPLIER\tWIN\tODDS")
			for _, line := range q.Payouts {
				fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", line.Matches, line.Multiplier, line.WinAmount, line.Odds)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "expected RTP %s\n", percent(q.ExpectedRTP))
			return nil
		},
	}
	cmd.Flags().Int64VarP(&wager, "bet", "b", 100, "wager amount")
	return cmd
}

func newRecommendCmd(opts *options) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Suggest multipliers that meet the target house edge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.analyzer()
			if err != nil {
				return err
			}

			target := 1 - opts.targetHouseEdge
			table, err := payout.NewTable()
			if err != nil {
				return err
			}
			for spots := 1; spots <= a.MaxSpots; spots++ {
				for _, e := range a.Recommended(spots, target) {
					if err := table.SetMultiplier(e.Spots, e.Matches, e.Multiplier); err != nil {
						return err
					}
				}
			}

			if output != "" {
				if err := payout.SaveFile(output, table); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", output)
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SPOTS\tMATCHES\tMULTIPLIER")
			for _, e := range table.Entries() {
				if e.Multiplier.IsZero() {
					continue
				}
				fmt.Fprintf(w, "%d\t%d\t%s\n", e.Spots, e.Matches, e.Multiplier)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the recommended table to a yaml file")
	return cmd
}

func spotsArg(arg string, maxSpots int) (int, error) {
	spots, err := strconv.Atoi(arg)
	if err != nil || spots < 1 || spots > maxSpots {
		return 0, fmt.Errorf("spots must be between 1 and %d", maxSpots)
	}
	return spots, nil
}

func percent(v float64) string {
	return decimal.NewFromFloat(v*100).StringFixed(2) + "%"
}
