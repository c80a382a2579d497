package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"eventcal/internal/booklet"
	"eventcal/internal/capture"
	"eventcal/internal/catalog"
	"eventcal/internal/config"
	"eventcal/internal/ics"
	appLog "eventcal/internal/log"
	"eventcal/internal/model"
	"eventcal/internal/report"
	"eventcal/internal/selection"
	"eventcal/internal/storage"
	"eventcal/internal/template"
	"eventcal/internal/web"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	exportICS  string
	exportPDF  string
	template   string
	debug      bool
}

func main() {
	appLog.Info("eventcal starting", "version", "0.1.0-dev")

	flags := parseFlags()
	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	}

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"events", conf.Events.Location,
		"places", conf.Places.Location,
		"store", conf.StorePath,
		"export_ics", flags.exportICS,
		"export_pdf", flags.exportPDF,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if err := run(ctx, conf, flags); err != nil {
		appLog.Error("eventcal failed", err)
		os.Exit(1)
	}
	appLog.Info("eventcal exiting")
}

func run(ctx context.Context, conf *config.Config, flags flagConfig) error {
	fetcher := catalog.NewFetcher(conf.CacheDir)
	events, err := catalog.Load(ctx, fetcher, catalog.Sources{
		Events: catalog.Source{Name: "events", Location: conf.Events.Location},
		Places: catalog.Source{Name: "places", Location: conf.Places.Location},
	})
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	appLog.Info("catalog loaded", "events", len(events))

	kv, err := storage.OpenSQLite(conf.StorePath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer kv.Close()

	sel := selection.New(kv)
	reports := report.NewLog(kv)

	templates := template.NewRegistry()
	if conf.TemplatesDir != "" {
		templates.LoadDir(conf.TemplatesDir)
	}

	generator := booklet.NewGenerator(capture.NewChromium(capture.Options{}))

	// One-shot export mode: write the requested artifacts and exit.
	if flags.exportICS != "" || flags.exportPDF != "" {
		return runExports(ctx, events, sel, templates, generator, flags)
	}

	server := web.NewServer(conf, events, sel, reports, templates, generator)
	return web.StartServer(ctx, server)
}

// runExports resolves the stored selection against the loaded catalog
// and writes the requested export files.
func runExports(ctx context.Context, events []model.Event, sel *selection.Store, templates *template.Registry, generator *booklet.Generator, flags flagConfig) error {
	list, err := sel.ExportList(events)
	if err != nil {
		return fmt.Errorf("resolve selection: %w", err)
	}
	if len(list) == 0 {
		return errors.New("no events selected for export")
	}
	appLog.Info("exporting selection", "events", len(list))

	if flags.exportICS != "" {
		if err := os.WriteFile(flags.exportICS, ics.Generate(list), 0o644); err != nil {
			return fmt.Errorf("write ics: %w", err)
		}
		appLog.Info("ics written", "path", flags.exportICS)
	}

	if flags.exportPDF != "" {
		pdf, err := generator.Generate(ctx, list, templates.Get(flags.template))
		if err != nil {
			return fmt.Errorf("generate booklet: %w", err)
		}
		if err := os.WriteFile(flags.exportPDF, pdf, 0o644); err != nil {
			return fmt.Errorf("write pdf: %w", err)
		}
		appLog.Info("pdf written", "path", flags.exportPDF)
	}
	return nil
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "eventcal.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.exportICS, "export-ics", "", "Write the selection as an iCalendar file to the given path and exit")
	flag.StringVar(&cfg.exportPDF, "export-pdf", "", "Write the selection as a PDF booklet to the given path and exit")
	flag.StringVar(&cfg.template, "template", template.DefaultName, "Booklet template for -export-pdf")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Parse()

	return cfg
}
