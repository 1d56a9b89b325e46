package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rendis/diagrun/internal/mermaid"
	"github.com/rendis/diagrun/internal/store"
	"github.com/rendis/diagrun/internal/validation"
	"github.com/rendis/diagrun/pkg/diagrun"
	"github.com/rendis/diagrun/pkg/dom"
)

var renderFlags struct {
	selector       string
	filter         string
	deterministic  bool
	seed           string
	suppressErrors bool
	logDB          string
	outDir         string
	inPlace        bool
}

var renderCmd = &cobra.Command{
	Use:   "render <file.html>...",
	Short: "Scan HTML files and render their diagram blocks to inline SVG",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRender,
}

func init() {
	f := renderCmd.Flags()
	f.StringVar(&renderFlags.selector, "selector", "", "class selector for candidate elements (default from settings)")
	f.StringVar(&renderFlags.filter, "filter", "", "expr predicate over {id, tag, attrs, text}")
	f.BoolVar(&renderFlags.deterministic, "deterministic", false, "use seed-derived sequential diagram ids")
	f.StringVar(&renderFlags.seed, "seed", "", "id seed (implies --deterministic)")
	f.BoolVar(&renderFlags.suppressErrors, "suppress-errors", false, "log render failures instead of failing")
	f.StringVar(&renderFlags.logDB, "log-db", "", "path to a libSQL render log database")
	f.StringVarP(&renderFlags.outDir, "out", "o", "", "directory for rendered output files")
	f.BoolVarP(&renderFlags.inPlace, "write", "w", false, "rewrite input files in place")
}

func runRender(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	settings, err = applyRenderFlags(settings)
	if err != nil {
		return err
	}

	logger := newLogger(settings.Site.LogLevel)
	ctx := cmd.Context()

	opts := []diagrun.Option{diagrun.WithLogger(logger)}
	if settings.LogDB != "" {
		rlog, err := store.Open(settings.LogDB)
		if err != nil {
			return err
		}
		defer rlog.Close()
		if err := rlog.Migrate(ctx); err != nil {
			return err
		}
		opts = append(opts, diagrun.WithRecorder(rlog))
	}

	// One shared API: Run passes are serialized against each other, so the
	// engine stays single-flight even with files processed concurrently.
	api := diagrun.New(mermaid.New(settings.Site, logger), opts...)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, path := range args {
		path := path
		g.Go(func() error {
			return renderFile(gctx, api, settings, path)
		})
	}
	return g.Wait()
}

// applyRenderFlags layers command-line flags over the loaded settings. Flags
// mutate the site configuration after loadSettings has checked it, so the
// merged result is validated again here.
func applyRenderFlags(s Settings) (Settings, error) {
	if renderFlags.seed != "" {
		renderFlags.deterministic = true
	}
	if renderFlags.deterministic {
		s.Site.DeterministicIDs = true
		s.Site.DeterministicIDSeed = renderFlags.seed
	}
	if renderFlags.selector != "" {
		s.Selector = renderFlags.selector
	}
	if renderFlags.logDB != "" {
		s.LogDB = renderFlags.logDB
	}
	if err := validation.ValidateSiteConfig(s.Site); err != nil {
		return s, err
	}
	return s, nil
}

func renderFile(ctx context.Context, api *diagrun.API, settings Settings, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	doc, err := dom.Parse(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	if err := api.Run(ctx, doc, diagrun.RunOptions{
		Selector:       settings.Selector,
		Filter:         renderFlags.filter,
		SuppressErrors: renderFlags.suppressErrors,
	}); err != nil {
		return fmt.Errorf("render %s: %w", path, err)
	}

	out, err := doc.HTML()
	if err != nil {
		return fmt.Errorf("serialize %s: %w", path, err)
	}
	return writeOutput(path, out)
}

func writeOutput(path, content string) error {
	target := outputPath(path)
	if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}
	return nil
}

func outputPath(path string) string {
	if renderFlags.inPlace {
		return path
	}
	if renderFlags.outDir != "" {
		return filepath.Join(renderFlags.outDir, filepath.Base(path))
	}
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".rendered" + ext
}
