package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/pdftable/internal/core"
	"github.com/JonMunkholm/pdftable/internal/extract"
)

var convertCmd = &cobra.Command{
	Use:   "convert <file.pdf>",
	Short: "Convert the table in a PDF to CSV",
	Long: `Convert extracts the table from every page of the PDF, repairs rows split
across page breaks, removes duplicates and writes CSV.

Without --output the CSV is written to stdout. With --output - the name is
derived from the input: report.pdf becomes report.csv next to it.`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringP("output", "o", "", `output file ("-" derives it from the input name; default stdout)`)
	convertCmd.Flags().Bool("summary", true, "print row counts to stderr")

	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	input := args[0]
	output, _ := cmd.Flags().GetString("output")
	summary, _ := cmd.Flags().GetBool("summary")

	doc, err := os.ReadFile(input)
	if err != nil {
		return err
	}

	cfg := extractConfig()
	source, err := extract.New(cfg)
	if err != nil {
		return err
	}

	svc, err := core.NewService(core.Options{Source: source, Backend: cfg.Backend})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	res, err := svc.Convert(ctx, core.ConvertRequest{FileName: filepath.Base(input), Data: doc})
	if err != nil {
		return describe(input, err)
	}

	if err := writeOutput(cmd, input, output, res); err != nil {
		return err
	}

	if summary {
		fmt.Fprintf(cmd.ErrOrStderr(),
			"%s: %d pages, %d rows extracted, %d merged, %d malformed, %d duplicates, %d rows written\n",
			input, res.Pages, res.ExtractedRows, res.Merge.Merged, res.Merge.Malformed, res.Duplicates, res.OutputRows)
	}
	return nil
}

func writeOutput(cmd *cobra.Command, input, output string, res *core.ConvertResult) error {
	switch output {
	case "":
		_, err := cmd.OutOrStdout().Write(res.CSV)
		return err
	case "-":
		output = filepath.Join(filepath.Dir(input), res.FileName)
	}
	if err := os.WriteFile(output, res.CSV, 0o644); err != nil {
		return err
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "wrote", output)
	return nil
}

// describe turns a conversion error into the message shown to the user. The
// technical error stays reachable through the returned *core.UserError and is
// logged at debug level.
func describe(input string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	slog.Debug("conversion failed", "file", input, "error", err)

	ue := core.NewUserError(err)
	return fmt.Errorf("%s: %w (Code: %s). %s", input, ue, ue.User.Code, ue.User.Action)
}
