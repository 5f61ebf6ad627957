// Package main is the pdftable command line tool. It converts PDF documents
// to CSV without running the web server.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/JonMunkholm/pdftable/internal/extract"
	"github.com/JonMunkholm/pdftable/internal/logging"
)

// version is set at build time via ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "pdftable",
	Short: "Extract the table from a multi-page PDF as CSV",
	Long: `pdftable reads the table spread over the pages of a PDF report, joins rows
that were split across page breaks, drops duplicated rows and writes the result
as CSV.

Settings come from flags, PDFTABLE_* environment variables or a pdftable.yaml
config file, in that order of precedence.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Logs go to stderr so CSV on stdout stays clean.
		slog.SetDefault(logging.New(os.Stderr, viper.GetString("log-level"), viper.GetString("log-format")))
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	defaults := extract.DefaultConfig()

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./pdftable.yaml or ~/.config/pdftable/pdftable.yaml)")
	pf.String("backend", defaults.Backend, "extraction backend: tabula or text")
	pf.Float64("min-confidence", defaults.MinConfidence, "tabula table detection threshold (0-1)")
	pf.Float64("row-tolerance", defaults.RowTolerance, "text backend: vertical points within which glyphs share a line")
	pf.Float64("column-gap", defaults.ColumnGap, "text backend: horizontal points that separate two cells")
	pf.String("log-level", "warn", "log level: debug, info, warn, error")
	pf.String("log-format", "text", "log format: text or json")

	_ = viper.BindPFlags(pf)
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("pdftable")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "pdftable"))
		}
	}

	viper.SetEnvPrefix("PDFTABLE")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// extractConfig builds the extraction settings from flags, env and config file.
func extractConfig() extract.Config {
	return extract.Config{
		Backend:       viper.GetString("backend"),
		MinConfidence: viper.GetFloat64("min-confidence"),
		RowTolerance:  viper.GetFloat64("row-tolerance"),
		ColumnGap:     viper.GetFloat64("column-gap"),
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// envKeyReplacer maps flag names to variable names: column-gap reads
// PDFTABLE_COLUMN_GAP.
var envKeyReplacer = strings.NewReplacer("-", "_")
