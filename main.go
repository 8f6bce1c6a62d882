package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/bekirdag/cuesheet/internal/export"
	"github.com/bekirdag/cuesheet/internal/session"
	"github.com/bekirdag/cuesheet/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", filepath.Join(resolveConfigDir(), "config.yaml"), "Path to the YAML config file")
	dbPath := flag.String("db", "", "SQLite database (overrides config)")
	theme := flag.String("theme", "", "Markdown rendering theme: auto, light, or dark")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: cuesheet [flags] [project-id ...]\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *dbPath != "" {
		cfg.Database = expandHome(*dbPath)
	}
	if *theme != "" {
		cfg.Theme = *theme
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if args := flag.Args(); len(args) > 0 {
		cfg.OpenTabs = args
	}
	if err := cfg.validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	configDir := filepath.Dir(*configPath)
	logger, closer, err := openLogger(filepath.Join(configDir, "logs"), cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer closer.Close()
	slog.SetDefault(logger)

	db, err := store.Open(cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	activity := newActivityLogger(filepath.Join(configDir, "activity.jsonl"))
	activity.emitSimple("app.start", "", map[string]string{"database": db.Path()})

	m := newModel(appDeps{
		cfg:         cfg,
		configPath:  *configPath,
		logger:      logger,
		activity:    activity,
		backing:     db,
		catalog:     db,
		suggester:   store.NewPatternProvider(db, cfg.LookupLimit),
		annotations: db,
		exporter:    export.NewCSVExporter(cfg.ExportDir),
	})
	restoreTabs(m.manager, cfg.OpenTabs, logger)

	_, runErr := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion()).Run()

	if err := flushDirty(m.manager, logger); err != nil {
		fmt.Fprintln(os.Stderr, "warning:", err)
	}
	m.rememberTabs()
	if err := saveConfig(cfg, *configPath); err != nil {
		logger.Warn("save config", "path", *configPath, "err", err)
	}
	activity.emitSimple("app.exit", "", nil)
	return runErr
}

// restoreTabs loads the previous session's projects concurrently and
// installs them in their saved order. Projects that fail to load are logged
// and skipped.
func restoreTabs(mgr *session.Manager, projectIDs []string, logger *slog.Logger) {
	if len(projectIDs) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	payloads := make([]*session.Payload, len(projectIDs))
	var g errgroup.Group
	g.SetLimit(4)
	for i, id := range projectIDs {
		i, id := i, id
		g.Go(func() error {
			payload, err := mgr.Load(ctx, id)
			if err != nil {
				logger.Warn("restore tab", "project", id, "err", err)
				return nil
			}
			payloads[i] = &payload
			return nil
		})
	}
	_ = g.Wait()

	first := ""
	for i, payload := range payloads {
		if payload == nil {
			continue
		}
		doc, err := mgr.Adopt(projectIDs[i], *payload)
		if err != nil {
			logger.Warn("restore tab", "project", projectIDs[i], "err", err)
			continue
		}
		if first == "" {
			first = doc.ID
		}
	}
	if first != "" {
		_ = mgr.Switch(first)
	}
}

func flushDirty(mgr *session.Manager, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	var errs []error
	for _, tabID := range mgr.DirtyDocuments() {
		if err := mgr.Save(ctx, tabID); err != nil {
			logger.Error("save on exit", "tab", tabID, "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
