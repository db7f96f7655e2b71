package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/calegray/codedown/internal/api"
	"github.com/calegray/codedown/internal/config"
	"github.com/calegray/codedown/internal/engine"
	"github.com/calegray/codedown/internal/executor"
	"github.com/calegray/codedown/internal/model"
	"github.com/calegray/codedown/internal/session"
	"github.com/calegray/codedown/internal/store"
)

// runtime bundles the wired application dependencies.
type runtime struct {
	cfg      config.Config
	logger   *slog.Logger
	db       *store.SQLiteStore
	registry *engine.Registry
}

// newRuntime loads configuration and wires the store, executor, and
// per-document session pools behind a registry.
func newRuntime() (*runtime, error) {
	cfg := config.Load()
	logger := config.NewLogger(os.Stderr, cfg.LogLevel)

	db, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	exec := executor.New(executor.Config{
		Enabled:      cfg.EnableExecution,
		Timeout:      cfg.ExecutionTimeout,
		DefaultShell: cfg.DefaultShell,
		LaTeXEngine:  cfg.LaTeXEngine,
	}, logger)

	registry := engine.NewRegistry(func(docID string) *engine.Manager {
		sessions := session.NewManager(cfg.ExecutionTimeout, logger)
		return engine.NewManager(docID, exec, sessions, db, logger)
	})

	return &runtime{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		registry: registry,
	}, nil
}

// close releases all documents (killing their sessions) and the database.
func (rt *runtime) close() {
	rt.registry.ReleaseAll()
	rt.db.Close()
}

var rootCmd = &cobra.Command{
	Use:   "codedown",
	Short: "Execute fenced code chunks embedded in documents",
	Long: `codedown discovers executable code chunks in a document's fenced
blocks, runs them as external processes or against persistent interpreter
sessions, and renders their captured output.

Configuration comes from CODEDOWN_* environment variables.`,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Run every executable chunk in a document and print the results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.close()

		results, err := runDocument(cmd.Context(), rt, args[0], false)
		if err != nil {
			return err
		}
		printResults(results)

		for _, r := range results {
			if r.Status == model.StatusError {
				os.Exit(1)
			}
		}
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chunk execution HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.close()

		rt.logger.Info("codedown: starting",
			"listen_addr", rt.cfg.ListenAddr,
			"db_path", rt.cfg.DBPath,
		)

		srv := api.NewServer(rt.cfg.ListenAddr, rt.db, rt.registry, rt.logger)
		return srv.Run()
	},
}

// runDocument parses the file and executes its chunks, all of them or only
// the run_on_save set.
func runDocument(ctx context.Context, rt *runtime, path string, onSaveOnly bool) ([]model.ChunkResult, error) {
	text, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve document path: %w", err)
	}

	m := rt.registry.Get(abs)
	m.Parse(string(text))

	if onSaveOnly {
		return m.RunOnSave(ctx, filepath.Dir(abs)), nil
	}
	return m.RunAll(ctx, filepath.Dir(abs)), nil
}

// printResults writes each chunk's rendered output to stdout, with errors
// flagged on stderr.
func printResults(results []model.ChunkResult) {
	for _, r := range results {
		fmt.Printf("== %s (%s)\n", r.ChunkID, r.Status)
		if r.Rendered != "" {
			fmt.Println(r.Rendered)
		}
		if r.Status == model.StatusError && r.Error != "" {
			fmt.Fprintf(os.Stderr, "%s: %s\n", r.ChunkID, r.Error)
		}
	}
}

func main() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
