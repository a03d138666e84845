package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jmerrifield20/seasense/pkg/client"
	"github.com/jmerrifield20/seasense/pkg/imo"
)

// ── score ────────────────────────────────────────────────────────────────────

// scoreRow holds the outcome of scoring a single IMO.
type scoreRow struct {
	imo    string
	result *client.ScoreResult
	err    error
}

var scoreCmd = &cobra.Command{
	Use:   "score <imo> [imo] ...",
	Short: "Score one or more registry records",
	Long: `score evaluates the registry record of each IMO against the server's
ruleset. Every score is recorded in the server's assessment ledger.

Multiple IMOs are scored concurrently and displayed as a table:

  seasense score 9074729 9402081`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScore,
}

func runScore(cmd *cobra.Command, args []string) error {
	for _, id := range args {
		if !imo.ValidCheckDigit(id) {
			fmt.Fprintf(os.Stderr, "warning: %q fails the IMO check digit; scoring anyway\n", id)
		}
	}

	c, err := newClient()
	if err != nil {
		return err
	}

	ctx := context.Background()
	rows := make([]scoreRow, len(args))
	g := new(errgroup.Group)
	g.SetLimit(8)
	for i, id := range args {
		g.Go(func() error {
			res, err := c.Score(ctx, id)
			rows[i] = scoreRow{imo: id, result: res, err: err}
			return nil
		})
	}
	_ = g.Wait()

	if jsonOutput() {
		return printScoreJSON(rows)
	}
	return printScoreText(rows)
}

func printScoreJSON(rows []scoreRow) error {
	type jsonRow struct {
		IMO         string              `json:"imo"`
		Result      *client.ScoreResult `json:"result,omitempty"`
		LedgerIndex *int                `json:"ledgerIndex,omitempty"`
		Error       string              `json:"error,omitempty"`
	}
	out := make([]jsonRow, len(rows))
	for i, r := range rows {
		out[i] = jsonRow{IMO: r.imo}
		if r.err != nil {
			out[i].Error = r.err.Error()
			continue
		}
		out[i].Result = r.result
		if r.result.LedgerIndex >= 0 {
			idx := r.result.LedgerIndex
			out[i].LedgerIndex = &idx
		}
	}
	var v any = out
	if len(out) == 1 {
		v = out[0]
	}
	return printJSON(v)
}

func printScoreText(rows []scoreRow) error {
	if len(rows) == 1 {
		r := rows[0]
		if r.err != nil {
			return fmt.Errorf("score %q: %w", r.imo, r.err)
		}
		printScoreDetail(r.imo, r.result)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "IMO\tSCORE\tLEVEL\tTRIPPED\tERROR")
	for _, r := range rows {
		if r.err != nil {
			fmt.Fprintf(w, "%s\t\t\t\t%s\n", r.imo, r.err.Error())
			continue
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t\n", r.imo, r.result.Score, r.result.Level, strings.Join(tripped(r.result), ", "))
	}
	return w.Flush()
}

func printScoreDetail(id string, res *client.ScoreResult) {
	fmt.Printf("IMO:    %s\n", id)
	fmt.Printf("Score:  %d\n", res.Score)
	fmt.Printf("Level:  %d\n", res.Level)
	if res.LedgerIndex >= 0 {
		fmt.Printf("Ledger: entry %d\n", res.LedgerIndex)
	}
	fmt.Println()
	for _, cr := range res.CheckedRules {
		mark := " "
		if cr.Tripped {
			mark = "✓"
		}
		fmt.Printf("  [%s] %-28s %3d  %s\n", mark, cr.Name, cr.Weight, cr.Description)
	}
	if len(res.ManualRules) > 0 {
		fmt.Println("\n  Manual checks:")
		for _, mr := range res.ManualRules {
			fmt.Printf("  [?] %-28s %3d  %s\n", mr.Name, mr.Weight, mr.Description)
		}
	}
	for _, w := range res.Warnings {
		fmt.Printf("\n  warning: %s\n", w)
	}
}

func tripped(res *client.ScoreResult) []string {
	var names []string
	for _, cr := range res.CheckedRules {
		if cr.Tripped {
			names = append(names, cr.Name)
		}
	}
	return names
}

// ── arriving / search ────────────────────────────────────────────────────────

var (
	arrivingIMO    string
	arrivingWindow int
)

var arrivingCmd = &cobra.Command{
	Use:   "arriving",
	Short: "Assess vessels due to arrive",
	Long: `arriving lists the latest due-to-arrive record of every vessel expected
within the window, reconciled against the registry and scored.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		as, err := c.Arriving(context.Background(), arrivingIMO, arrivingWindow)
		if err != nil {
			return fmt.Errorf("arriving: %w", err)
		}
		return printAssessments(as)
	},
}

func init() {
	arrivingCmd.Flags().StringVar(&arrivingIMO, "imo", "", "Assess only this IMO")
	arrivingCmd.Flags().IntVar(&arrivingWindow, "window", 0, "Window in hours (server default when 0)")
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Assess recently arrived vessels by IMO, call sign or name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		as, err := c.Search(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}
		return printAssessments(as)
	},
}

func printAssessments(as []client.Assessment) error {
	if jsonOutput() {
		return printJSON(as)
	}
	if len(as) == 0 {
		fmt.Println("no vessels found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VESSEL\tIMO\tRESOLUTION\tSCORE\tLEVEL\tTRIPPED")
	for _, a := range as {
		var name, id string
		if arr := a.VesselArrivalDetails; arr != nil {
			name, id = arr.VesselName, arr.IMO
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
			name, id, a.Resolution, a.Score.Score, a.Score.Level, strings.Join(tripped(&a.Score), ", "))
	}
	return w.Flush()
}

// ── headers ──────────────────────────────────────────────────────────────────

var headersCmd = &cobra.Command{
	Use:   "headers",
	Short: "Print the export header row of the server's ruleset",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		h, err := c.Headers(context.Background())
		if err != nil {
			return err
		}
		if jsonOutput() {
			return printJSON(h)
		}
		fmt.Println(strings.Join(h, "\t"))
		return nil
	},
}

// ── ledger ───────────────────────────────────────────────────────────────────

var ledgerLimit int

var ledgerCmd = &cobra.Command{
	Use:   "ledger [imo]",
	Short: "Verify the assessment ledger, or show the history of one IMO",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx := context.Background()

		if len(args) == 0 {
			st, err := c.VerifyLedger(ctx)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return printJSON(st)
			}
			fmt.Printf("Entries: %d\nRoot:    %s\n", st.Entries, st.Root)
			if !st.Valid {
				return fmt.Errorf("ledger verification failed: %s", st.Error)
			}
			fmt.Println("Chain:   valid")
			return nil
		}

		entries, err := c.LedgerHistory(ctx, args[0], ledgerLimit)
		if err != nil {
			return err
		}
		if jsonOutput() {
			return printJSON(entries)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "INDEX\tTIME\tACTOR\tHASH")
		for _, e := range entries {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", e.Index, e.Timestamp.Format("2006-01-02 15:04:05Z"), e.Actor, e.Hash[:12])
		}
		return w.Flush()
	},
}

func init() {
	ledgerCmd.Flags().IntVar(&ledgerLimit, "limit", 20, "Maximum entries to show")
}
