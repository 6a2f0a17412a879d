package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/storeclerk/internal/config"
	"github.com/storeclerk/internal/database"
	"github.com/storeclerk/internal/mailer"
	"github.com/storeclerk/internal/workflow"
)

// SweepCommand returns the one-shot timeout sweep command, for cron-style
// deployments that do not run the long-lived server.
func SweepCommand() *cli.Command {
	return &cli.Command{
		Name:   "sweep",
		Usage:  "Escalate overdue warehouse workflows and send due reminders, then exit",
		Action: runSweep,
	}
}

func runSweep(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	db, err := database.NewDB()
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	mail := mailer.NewHTTPSender(cfg.Mail.RelayEndpoint, cfg.Mail.APIKey, cfg.Mail.RatePerSec)
	svc := workflow.NewService(workflow.NewPostgresStore(db), mail, workflow.Config{
		ReplyDeadline:    cfg.ReplyDeadline(),
		MaxParseAttempts: cfg.Workflow.MaxParseAttempts,
		RemindersEnabled: cfg.Workflow.RemindersEnabled,
	})

	res, err := svc.Sweep(context.Background())
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}

	fmt.Printf("Sweep complete: %d escalated, %d reminded\n", res.Escalated, res.Reminded)
	return nil
}
