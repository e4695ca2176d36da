// ABOUTME: Maintenance CLI for the nurtab local store
// ABOUTME: status, migrate, export, import and reset commands

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/nurtab/nurtab-store/internal/config"
	"github.com/nurtab/nurtab-store/internal/state"
	"github.com/nurtab/nurtab-store/internal/store"
)

// Version is set by goreleaser at build time.
var version = "dev"

const usage = `Usage: nurtab-store <command>

Commands:
  status          Show store location, schema version and record counts
  migrate         Run the schema migration if needed
  export [file]   Write settings, favorites and tasks as JSON
  import <file>   Replace settings, favorites and tasks from an export file
  tasks           List tasks; subcommands: add <text>, done <id>, rm <id>
  reset           Clear all collections and reinsert default settings
`

// getConfigPath returns the path to the config file.
// Priority: NURTAB_CONFIG env var > XDG_CONFIG_HOME/nurtab/config.yaml > ~/.config/nurtab/config.yaml
func getConfigPath() string {
	if envPath := os.Getenv("NURTAB_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "nurtab", "config.yaml")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(1)
	}

	// Local overrides for development; missing .env is fine.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "status":
		err = runStatus(ctx)
	case "migrate":
		err = runMigrate(ctx)
	case "export":
		err = runExport(ctx, os.Args[2:])
	case "import":
		err = runImport(ctx, os.Args[2:])
	case "tasks":
		err = runTasks(ctx, os.Args[2:])
	case "reset":
		err = runReset(ctx)
	case "version":
		fmt.Println(version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// open loads the config, wires the logger and opens the store.
func open() (*store.SQLiteStore, *store.Migrator, *config.Config, error) {
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading config: %w", err)
	}

	slog.SetDefault(setupLogger(cfg.Logging))

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening store: %w", err)
	}
	return st, store.NewMigrator(st), cfg, nil
}

func runStatus(ctx context.Context) error {
	st, migrator, cfg, err := open()
	if err != nil {
		return err
	}
	defer st.Close()

	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("  ▶ ")
	fmt.Printf("Database:  %s\n", cfg.Database.Path)

	// Read directly; status must not create the settings record.
	schemaVersion := "absent"
	if s, err := st.GetSettings(ctx); err == nil {
		schemaVersion = s.Version
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	green.Print("  ▶ ")
	fmt.Print("Schema:    ")
	cyan.Println(schemaVersion)

	needs, err := migrator.NeedsMigration(ctx)
	if err != nil {
		return err
	}
	if needs {
		yellow.Println("  ! migration pending (run: nurtab-store migrate)")
	}

	favorites, err := st.ListFavorites(ctx)
	if err != nil {
		return err
	}
	tasks, err := st.ListTasks(ctx)
	if err != nil {
		return err
	}
	content, err := st.ListCachedContent(ctx)
	if err != nil {
		return err
	}
	images, err := st.ListCachedImages(ctx)
	if err != nil {
		return err
	}

	green.Print("  ▶ ")
	fmt.Printf("Favorites: %d\n", len(favorites))
	green.Print("  ▶ ")
	fmt.Printf("Tasks:     %d\n", len(tasks))
	green.Print("  ▶ ")
	fmt.Printf("Cache:     %d content, %d images\n", len(content), len(images))
	return nil
}

func runMigrate(ctx context.Context) error {
	st, migrator, _, err := open()
	if err != nil {
		return err
	}
	defer st.Close()

	needs, err := migrator.NeedsMigration(ctx)
	if err != nil {
		return err
	}
	if !needs {
		fmt.Printf("Schema already at %s, nothing to do\n", store.SchemaVersion)
		return nil
	}
	if err := migrator.Run(ctx); err != nil {
		return err
	}
	color.Green("Migrated to %s", store.SchemaVersion)
	return nil
}

func runExport(ctx context.Context, args []string) error {
	st, migrator, _, err := open()
	if err != nil {
		return err
	}
	defer st.Close()

	export, err := migrator.Export(ctx)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding export: %w", err)
	}

	if len(args) == 0 || args[0] == "-" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(args[0], data, 0600); err != nil {
		return fmt.Errorf("writing export file: %w", err)
	}
	color.Green("Exported %d favorites, %d tasks to %s",
		len(export.Favorites), len(export.Tasks), args[0])
	return nil
}

func runImport(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("import requires a file argument")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading import file: %w", err)
	}

	st, migrator, _, err := open()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := migrator.Import(ctx, data); err != nil {
		return err
	}
	color.Green("Import complete")
	return nil
}

func runTasks(ctx context.Context, args []string) error {
	st, migrator, _, err := open()
	if err != nil {
		return err
	}
	defer st.Close()

	tasks := state.NewTasksState(st, migrator)
	if err := tasks.Init(ctx); err != nil {
		return err
	}

	if len(args) > 0 {
		switch args[0] {
		case "add":
			if len(args) < 2 {
				return fmt.Errorf("tasks add requires text")
			}
			task, err := tasks.Add(ctx, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			color.Green("Added task %d", task.ID)
			return nil
		case "done":
			id, err := parseTaskID(args)
			if err != nil {
				return err
			}
			if err := tasks.Toggle(ctx, id); err != nil {
				return err
			}
			return nil
		case "rm":
			id, err := parseTaskID(args)
			if err != nil {
				return err
			}
			return tasks.Delete(ctx, id)
		default:
			return fmt.Errorf("unknown tasks subcommand: %s", args[0])
		}
	}

	green := color.New(color.FgGreen)
	for _, task := range tasks.List() {
		mark := " "
		if task.Done {
			mark = "x"
		}
		green.Printf("  [%s] ", mark)
		fmt.Printf("%d  %s\n", task.ID, task.Text)
	}
	stats := tasks.Stats()
	fmt.Printf("%d total, %d done, %d pending\n",
		stats.Total, stats.Completed, stats.Pending)
	return nil
}

func parseTaskID(args []string) (int64, error) {
	if len(args) < 2 {
		return 0, fmt.Errorf("tasks %s requires an id", args[0])
	}
	id, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid task id %q", args[1])
	}
	return id, nil
}

func runReset(ctx context.Context) error {
	fmt.Print("This deletes all settings, favorites, tasks and caches. Type 'yes' to continue: ")
	reader := bufio.NewReader(os.Stdin)
	answer, _ := reader.ReadString('\n')
	if strings.TrimSpace(answer) != "yes" {
		fmt.Println("Aborted")
		return nil
	}

	st, migrator, _, err := open()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := migrator.Reset(ctx); err != nil {
		return err
	}
	color.Green("Store reset to defaults")
	return nil
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}
