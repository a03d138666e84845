package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/jmerrifield20/seasense/internal/auth"
	"github.com/jmerrifield20/seasense/internal/reconcile"
	"github.com/jmerrifield20/seasense/internal/similarity"
	"github.com/jmerrifield20/seasense/internal/threat"
	"github.com/jmerrifield20/seasense/internal/vessel/repository"
	"github.com/jmerrifield20/seasense/pkg/client"
	"github.com/jmerrifield20/seasense/pkg/imo"
)

// ── ruleset ──────────────────────────────────────────────────────────────────

var rulesetCmd = &cobra.Command{
	Use:   "ruleset",
	Short: "Validate or inspect threat rulesets",
}

var rulesetValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Compile a ruleset file and report any errors",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rs, err := threat.LoadRuleset(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("✓ %s is valid\n\n", args[0])
		fmt.Printf("  Door:         %s (%d)\n", rs.Door.Name, rs.Door.Weight)
		fmt.Printf("  Auto rules:   %d\n", len(rs.Rules))
		fmt.Printf("  Manual rules: %d\n", len(rs.ManualRules))
		fmt.Printf("  Levels:       %d\n", len(rs.Levels))
		return nil
	},
}

var rulesetShowRemote bool

var rulesetShowCmd = &cobra.Command{
	Use:   "show [file]",
	Short: "Print a ruleset (the embedded default when no file is given)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if rulesetShowRemote {
			c, err := newClient()
			if err != nil {
				return err
			}
			raw, err := c.Ruleset(context.Background())
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(append(raw, '\n'))
			return err
		}

		rs, err := loadLocalRuleset(args)
		if err != nil {
			return err
		}
		if jsonOutput() {
			return printJSON(rs.Config())
		}
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(rs.Config())
	},
}

func init() {
	rulesetShowCmd.Flags().BoolVar(&rulesetShowRemote, "remote", false, "Show the ruleset the server is using")
	rulesetCmd.AddCommand(rulesetValidateCmd)
	rulesetCmd.AddCommand(rulesetShowCmd)
}

func loadLocalRuleset(args []string) (*threat.Ruleset, error) {
	if len(args) > 0 && args[0] != "" {
		return threat.LoadRuleset(args[0])
	}
	return threat.DefaultRuleset()
}

// ── similarity ───────────────────────────────────────────────────────────────

var similarityCmd = &cobra.Command{
	Use:   "similarity <name> <name>",
	Short: "Compare two vessel names as the reconciler does",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		score := similarity.Score(args[0], args[1])
		match := score >= reconcile.NameMatchThreshold
		if jsonOutput() {
			return printJSON(map[string]any{
				"a":          similarity.Normalize(args[0]),
				"b":          similarity.Normalize(args[1]),
				"similarity": score,
				"threshold":  reconcile.NameMatchThreshold,
				"match":      match,
			})
		}
		fmt.Printf("%q vs %q\n", similarity.Normalize(args[0]), similarity.Normalize(args[1]))
		fmt.Printf("similarity: %.3f (threshold %.2f) match=%t\n", score, reconcile.NameMatchThreshold, match)
		return nil
	},
}

// ── local ────────────────────────────────────────────────────────────────────

var (
	localDB      string
	localRuleset string
)

var localCmd = &cobra.Command{
	Use:   "local",
	Short: "Work against a local SQLite registry without a server",
}

var localScoreCmd = &cobra.Command{
	Use:   "score <imo> [imo] ...",
	Short: "Score registry records from a local SQLite database",
	Long: `local score reads registry records from a SQLite database (as written by
cmd/seed with SEED_SQLITE) and scores them without contacting a server.
Nothing is recorded in a ledger.

  seasense local score --db seasense.sqlite 9074729`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLocalScore,
}

func init() {
	localScoreCmd.Flags().StringVar(&localDB, "db", "seasense.sqlite", "SQLite database path")
	localScoreCmd.Flags().StringVar(&localRuleset, "ruleset", "", "Ruleset file (embedded default when empty)")
	localCmd.AddCommand(localScoreCmd)
}

func runLocalScore(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(localDB); err != nil {
		return fmt.Errorf("open %s: %w", localDB, err)
	}
	st, err := repository.OpenSQLite(localDB)
	if err != nil {
		return err
	}
	defer st.Close()

	rs, err := loadLocalRuleset([]string{localRuleset})
	if err != nil {
		return err
	}

	ctx := context.Background()
	rows := make([]scoreRow, len(args))
	for i, id := range args {
		rows[i] = scoreRow{imo: id}
		v, err := st.GetByIMO(ctx, imo.Normalize(id))
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				err = client.ErrNotFound
			}
			rows[i].err = err
			continue
		}
		res := threat.ScoreVessel(v, rs)
		rows[i].result = &client.ScoreResult{
			Score:       res.Score,
			Level:       res.Level,
			Warnings:    res.Warnings,
			LedgerIndex: -1,
		}
		for _, cr := range res.CheckedRules {
			rows[i].result.CheckedRules = append(rows[i].result.CheckedRules, client.CheckedRule(cr))
		}
		for _, mr := range res.ManualRules {
			rows[i].result.ManualRules = append(rows[i].result.ManualRules, client.Rule{
				Name: mr.Name, Weight: mr.Weight, Description: mr.Description,
			})
		}
	}

	if jsonOutput() {
		return printScoreJSON(rows)
	}
	return printScoreText(rows)
}

// ── hash-password ────────────────────────────────────────────────────────────

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password",
	Short: "Print the bcrypt hash to configure as auth.password_hash",
	Long: `hash-password reads a password from the terminal (or one line of stdin)
and prints its bcrypt hash for the server's auth.password_hash setting.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pw, err := readPassword()
		if err != nil {
			return err
		}
		if pw == "" {
			return errors.New("password is empty")
		}
		h, err := auth.HashPassword(pw)
		if err != nil {
			return err
		}
		fmt.Println(h)
		return nil
	},
}

func readPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, "Password: ")
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
