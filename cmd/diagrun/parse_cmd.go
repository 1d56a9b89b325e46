package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rendis/diagrun/internal/mermaid"
	"github.com/rendis/diagrun/pkg/diagrun"
)

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Check diagram text for validity (reads stdin with no argument or \"-\")",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runParse,
}

func runParse(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}

	var data []byte
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return err
	}

	logger := newLogger(settings.Site.LogLevel)
	api := diagrun.New(mermaid.New(settings.Site, logger), diagrun.WithLogger(logger))

	ok, err := api.Parse(cmd.Context(), string(data))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("diagram text is not valid")
	}
	fmt.Fprintln(cmd.OutOrStdout(), "ok")
	return nil
}
