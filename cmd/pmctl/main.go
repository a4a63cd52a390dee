// main.go - Admin control tool for panelmetrics
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/term"

	"panelmetrics/internal"
	"panelmetrics/internal/flush"
	"panelmetrics/internal/pkg/sysinfo"
	"panelmetrics/internal/settings"
)

const (
	defaultShutdownTimeout = 30 * time.Second
)

// Command defines the interface for all command implementations
type Command interface {
	// Name returns the command name
	Name() string
	// Description returns the command description
	Description() string
	// Execute runs the command with the given app and args
	Execute(ctx context.Context, app *internal.Application, args []string) error
}

// The set of available commands
var commands = []Command{
	&MigrateCommand{},
	&StatusCommand{},
	&FlushCommand{},
	&RotateIntakeKeyCommand{},
	&SetCollectorCredentialCommand{},
	&HelpCommand{},
}

func main() {
	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	// Set up context with cancellation for cleanup
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals in a separate goroutine
	go func() {
		sig := <-sigChan
		log.Printf("Received signal: %v, initiating cleanup...", sig)
		cancel()
	}()

	// Parse command and arguments
	cmdName, args := parseArgs()

	// Find the requested command
	cmd := findCommand(cmdName)
	if cmd == nil {
		showUsageAndExit()
	}

	// Try to initialize the app
	app, err := internal.NewApp()
	if err != nil {
		log.Printf("Warning: Failed to initialize app: %v", err)
		log.Println("Proceeding with limited functionality...")
	}

	// Ensure app is cleaned up
	defer func() {
		if app != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
			defer cancel()
			if err := app.Shutdown(shutdownCtx); err != nil {
				log.Printf("Warning: Cleanup error: %v", err)
			}
		}
	}()

	// Execute the command
	if err := cmd.Execute(ctx, app, args); err != nil {
		log.Fatalf("Command failed: %v", err)
	}

	log.Printf("Command %s completed successfully", cmd.Name())
}

// MigrateCommand runs database migrations
type MigrateCommand struct{}

func (c *MigrateCommand) Name() string        { return "migrate" }
func (c *MigrateCommand) Description() string { return "Runs database migrations" }

func (c *MigrateCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	if app == nil {
		return fmt.Errorf("app initialization failed, cannot run migrations")
	}

	log.Println("Running database migrations...")

	if err := app.DBManager.MigrateDatabase(); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	log.Println("Migrations completed successfully")
	return nil
}

// StatusCommand prints the current analytics record and retention metrics
type StatusCommand struct{}

func (c *StatusCommand) Name() string        { return "status" }
func (c *StatusCommand) Description() string { return "Shows the analytics record and retention metrics" }

func (c *StatusCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	if app == nil {
		return fmt.Errorf("cannot check status: app initialization failed")
	}

	rec, err := app.Ledger.Snapshot()
	if err != nil {
		return fmt.Errorf("failed to read analytics record: %w", err)
	}

	if !rec.Installed() {
		log.Println("Analytics record not initialized yet")
		return nil
	}

	metrics, err := app.Ledger.RetentionMetrics()
	if err != nil {
		return fmt.Errorf("failed to compute retention metrics: %w", err)
	}

	locale := rec.Locale
	if country := sysinfo.CountryForLocale(rec.Locale); country != "" {
		locale = fmt.Sprintf("%s (%s)", rec.Locale, country)
	}

	log.Println("Analytics Status:")
	log.Printf("- Installed: %s", rec.FirstInstallDate)
	log.Printf("- Platform: %s, Locale: %s, Timezone: %s", rec.Platform, locale, rec.Timezone)
	log.Printf("- Total Uses: %d", metrics.TotalUses)
	log.Printf("- Days Since Install: %d", metrics.DaysSinceInstall)
	log.Printf("- Active Days: %d", metrics.ActiveDays)
	log.Printf("- Retention Rate: %.2f%%", metrics.RetentionRate)
	log.Printf("- Last Used: %s", metrics.LastUsed)
	log.Printf("- Logged In: %t, Signup Method: %s", metrics.HasLoggedIn, metrics.SignupMethod)
	log.Printf("- Onboarding Completed: %t, Tutorial: %s %s", rec.OnboardingCompleted, rec.TutorialStatus, rec.TutorialCurrentStep)
	log.Printf("- Last Analytics Sent: %s", rec.LastAnalyticsSent)

	return nil
}

// FlushCommand forces one collector upload attempt, ignoring the daily gate
type FlushCommand struct{}

func (c *FlushCommand) Name() string        { return "flush" }
func (c *FlushCommand) Description() string { return "Forces one collector upload attempt" }

func (c *FlushCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	if app == nil {
		return fmt.Errorf("cannot flush: app initialization failed")
	}

	result := app.Sender.Send()
	switch result.Outcome {
	case flush.OutcomeSent:
		log.Printf("Upload confirmed (status %d)", result.StatusCode)
	case flush.OutcomeSkipNoEndpoint:
		log.Println("No collector endpoint configured; nothing sent")
	default:
		return fmt.Errorf("upload failed (%s): %v", result.Outcome, result.Err)
	}
	return nil
}

// RotateIntakeKeyCommand generates a new intake API key
type RotateIntakeKeyCommand struct{}

func (c *RotateIntakeKeyCommand) Name() string { return "rotate-intake-key" }
func (c *RotateIntakeKeyCommand) Description() string {
	return "Generates a new intake API key and prints it once"
}

func (c *RotateIntakeKeyCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	if app == nil {
		return fmt.Errorf("cannot rotate intake key: app initialization failed")
	}

	db := app.DBManager.GetConnection()
	key, err := settings.RotateIntakeAPIKey(db)
	if err != nil {
		return fmt.Errorf("failed to rotate intake API key: %w", err)
	}

	// Only the hash is stored; this is the one chance to copy the key.
	fmt.Printf("New intake API key: %s\n", key)
	fmt.Println("Store it now - it cannot be displayed again.")
	return nil
}

// SetCollectorCredentialCommand stores a collector credential override
type SetCollectorCredentialCommand struct{}

func (c *SetCollectorCredentialCommand) Name() string { return "set-collector-credential" }
func (c *SetCollectorCredentialCommand) Description() string {
	return "Stores a collector credential override (prompted, hidden input)"
}

func (c *SetCollectorCredentialCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	if app == nil {
		return fmt.Errorf("cannot set credential: app initialization failed")
	}

	fmt.Print("Enter collector credential: ")
	credBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("failed to read credential: %w", err)
	}

	credential := string(credBytes)
	if credential == "" {
		return fmt.Errorf("credential cannot be empty")
	}

	db := app.DBManager.GetConnection()
	if err := settings.SaveCollectorCredential(db, credential); err != nil {
		return err
	}

	log.Println("Collector credential updated")
	return nil
}

// HelpCommand implements a command to show usage information
type HelpCommand struct{}

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Description() string { return "Shows usage information" }

func (c *HelpCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	fmt.Println("Usage: pmctl [command] [args...]")
	fmt.Println("Available commands:")

	for _, cmd := range commands {
		fmt.Printf("  %s: %s\n", cmd.Name(), cmd.Description())
	}

	return nil
}

// Helper functions

// parseArgs parses the command name and arguments
func parseArgs() (string, []string) {
	args := os.Args[1:]
	if len(args) == 0 {
		return "help", []string{}
	}
	return args[0], args[1:]
}

// findCommand finds a command by name
func findCommand(name string) Command {
	for _, cmd := range commands {
		if cmd.Name() == name {
			return cmd
		}
	}
	return nil
}

// showUsageAndExit prints usage information and exits
func showUsageAndExit() {
	help := &HelpCommand{}
	_ = help.Execute(context.Background(), nil, nil)
	os.Exit(1)
}
