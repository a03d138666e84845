package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmerrifield20/seasense/pkg/client"
)

// version is overridden via -ldflags "-X main.version=...".
var version = "dev"

var (
	serverURL    string
	cfgFile      string
	outputFormat string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "seasense",
	Short: "SeaSense vessel triage CLI",
	Long: `seasense is the command-line interface for SeaSense.

It scores vessels against the threat ruleset, assesses arrivals due in port,
and works offline against a local SQLite registry.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(home + "/.seasense")
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
		viper.SetEnvPrefix("seasense")
		viper.AutomaticEnv()
		_ = viper.ReadInConfig()

		if serverURL == "" {
			serverURL = viper.GetString("server_url")
		}
		if serverURL == "" {
			serverURL = "http://localhost:8080"
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.seasense/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "seasense-api URL (default http://localhost:8080)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "text", "Output format: text or json")

	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(arrivingCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(headersCmd)
	rootCmd.AddCommand(ledgerCmd)
	rootCmd.AddCommand(rulesetCmd)
	rootCmd.AddCommand(similarityCmd)
	rootCmd.AddCommand(localCmd)
	rootCmd.AddCommand(hashPasswordCmd)
	rootCmd.AddCommand(versionCmd)
}

// newClient builds an API client from the --server flag and the username /
// password config keys (SEASENSE_USERNAME, SEASENSE_PASSWORD).
func newClient() (*client.Client, error) {
	var opts []client.Option
	if user := viper.GetString("username"); user != "" {
		opts = append(opts, client.WithBasicAuth(user, viper.GetString("password")))
	}
	return client.New(serverURL, opts...)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func jsonOutput() bool {
	return strings.EqualFold(outputFormat, "json")
}

// ── version ──────────────────────────────────────────────────────────────────

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the seasense CLI version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("seasense %s\n", version)
	},
}
