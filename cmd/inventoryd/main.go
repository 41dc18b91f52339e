package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/inventoryd/internal/config"
	"git.home.luguber.info/inful/inventoryd/internal/daemon"
	"git.home.luguber.info/inful/inventoryd/internal/inventory"
	"git.home.luguber.info/inful/inventoryd/internal/store"
	"git.home.luguber.info/inful/inventoryd/internal/version"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"inventoryd.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Serve struct{} `cmd:"" help:"Run the inventory daemon (HTTP API, reminders, event stream)"`

	Show struct {
		Date string `arg:"" optional:"" help:"Date to show (YYYY-MM-DD, default today)"`
	} `cmd:"" help:"Print one day's inventory answers"`

	Export struct {
		Output string `short:"o" help:"Output file (default stdout)"`
	} `cmd:"" help:"Export the full answer history as JSON"`

	Import struct {
		File string `arg:"" help:"JSON export file to import"`
	} `cmd:"" help:"Replace the answer history from a JSON export"`

	Reset struct {
		Confirm bool `help:"Required; deletes all recorded answers"`
	} `cmd:"" help:"Delete the entire answer history"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Initialize a new configuration file"`

	Version struct{} `cmd:"" help:"Print version information"`
}

func main() {
	ctx := kong.Parse(&CLI)

	cfg := loadConfig(ctx.Command())

	logger := config.BuildLogger(cfg.Logging)
	if CLI.Verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	slog.SetDefault(logger)

	var err error
	switch ctx.Command() {
	case "serve":
		err = runServe(cfg, logger)
	case "show", "show <date>":
		err = runShow(cfg, CLI.Show.Date)
	case "export":
		err = runExport(cfg, CLI.Export.Output)
	case "import <file>":
		err = runImport(cfg, CLI.Import.File)
	case "reset":
		err = runReset(cfg, CLI.Reset.Confirm)
	case "init":
		err = config.Init(CLI.Config, CLI.Init.Force)
	case "version":
		fmt.Printf("inventoryd %s (commit %s, built %s)\n",
			version.Version, version.GitCommit, version.BuildTime)
	default:
		err = fmt.Errorf("unknown command: %s", ctx.Command())
	}
	if err != nil {
		slog.Error("Command failed", "command", ctx.Command(), "error", err)
		os.Exit(1)
	}
}

// loadConfig loads the config file, falling back to defaults when the file is
// absent and the command can run without one.
func loadConfig(command string) *config.Config {
	if command == "init" || command == "version" {
		return config.Default()
	}
	if _, err := os.Stat(CLI.Config); os.IsNotExist(err) {
		// No config file; every command works with defaults.
		return config.Default()
	}
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		slog.Error("Failed to load configuration", "path", CLI.Config, "error", err)
		os.Exit(1)
	}
	return cfg
}

func runServe(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := daemon.New(cfg, CLI.Config, logger)
	if err != nil {
		return err
	}
	return d.Run(ctx)
}

func runShow(cfg *config.Config, date string) error {
	if date == "" {
		date = inventory.Today()
	}
	if _, err := inventory.ParseDateKey(date); err != nil {
		return err
	}

	history, err := store.Open(cfg.Storage.DataDir)
	if err != nil {
		return err
	}

	rec, err := history.Answers(date)
	if err != nil {
		return err
	}

	fmt.Printf("Daily inventory for %s\n\n", date)
	for i, pair := range inventory.TraitPairs {
		if i == inventory.HeaderRowIndex {
			fmt.Printf("     --- %s / %s ---\n", pair.SelfWill, pair.GodsWill)
			continue
		}
		marker := " "
		switch rec[i] {
		case inventory.Left:
			marker = "<"
		case inventory.Right:
			marker = ">"
		}
		fmt.Printf("%2d [%s] %-45s | %s\n", i, marker, pair.SelfWill, pair.GodsWill)
	}

	sum, err := history.Summary(date)
	if err != nil {
		return err
	}
	fmt.Printf("\nAnswered %d of %d (left %d, right %d)\n",
		inventory.AnswerableRowCount()-sum.Remaining, inventory.AnswerableRowCount(),
		sum.Left, sum.Right)
	return nil
}

func runExport(cfg *config.Config, output string) error {
	history, err := store.Open(cfg.Storage.DataDir)
	if err != nil {
		return err
	}
	blob, err := history.ExportAll()
	if err != nil {
		return err
	}

	if output == "" {
		_, err = os.Stdout.Write(append(blob, '\n'))
		return err
	}
	if err := os.WriteFile(output, blob, 0o644); err != nil {
		return err
	}
	fmt.Printf("Exported %d days to %s\n", history.Len(), output)
	return nil
}

func runImport(cfg *config.Config, file string) error {
	blob, err := os.ReadFile(file)
	if err != nil {
		return err
	}

	history, err := store.Open(cfg.Storage.DataDir)
	if err != nil {
		return err
	}
	if err := history.ImportAll(blob); err != nil {
		return err
	}
	fmt.Printf("Imported %d days from %s\n", history.Len(), file)
	return nil
}

func runReset(cfg *config.Config, confirm bool) error {
	if !confirm {
		return fmt.Errorf("reset deletes all recorded answers; rerun with --confirm")
	}

	history, err := store.Open(cfg.Storage.DataDir)
	if err != nil {
		return err
	}
	if err := history.ResetAll(); err != nil {
		return err
	}
	fmt.Println("Answer history deleted")
	return nil
}
