package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sakif/docrunner/internal/annotate"
	"github.com/sakif/docrunner/internal/book"
	"github.com/sakif/docrunner/internal/highlight"
)

var rescanCmd = &cobra.Command{
	Use:   "rescan",
	Short: "Annotate every page of the book once and report the result",
	Long: `Loads and annotates every page under book.dir without serving it. Useful to
check a freshly built book; running it twice gives the same result.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := newLogger(cfg)

		annotator := annotate.New(cfg.Conventions, highlight.New(), cfg.Editor.EditingAvailable)
		lib := book.NewLibrary(cfg.Book.Dir, annotator, logger)
		n, err := lib.Rescan()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d pages annotated\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rescanCmd)
}
