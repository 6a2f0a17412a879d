package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/storeclerk/internal/api"
	"github.com/storeclerk/internal/audit"
	"github.com/storeclerk/internal/commerce"
	"github.com/storeclerk/internal/config"
	"github.com/storeclerk/internal/database"
	"github.com/storeclerk/internal/dispatch"
	"github.com/storeclerk/internal/jobqueue"
	"github.com/storeclerk/internal/mailer"
	"github.com/storeclerk/internal/queue"
	"github.com/storeclerk/internal/workflow"
	"github.com/storeclerk/pkg/models"
)

// ServeCommand returns the CLI command for starting the engine server
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the approval engine API server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port for the API server (overrides config)",
			},
			&cli.BoolFlag{
				Name:  "river",
				Usage: "Run the timeout sweep on the River job queue instead of the in-process scanner",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Record outbound email and platform calls instead of sending them",
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if c.Bool("dry-run") {
		// Outbound adapters are replaced with recorders, so only the
		// server section has to be usable.
		if cfg.Server.JWTSecret == "" {
			return fmt.Errorf("invalid configuration: server jwt_secret is required")
		}
	} else if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Int("port") > 0 {
		cfg.Server.Port = c.Int("port")
	}

	db, err := database.NewDB()
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(context.Background(), db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	var mail mailer.Sender = mailer.NewHTTPSender(cfg.Mail.RelayEndpoint, cfg.Mail.APIKey, cfg.Mail.RatePerSec)
	var platform commerce.Adapter = commerce.NewHTTPAdapter(cfg.Commerce.BaseURL, cfg.Commerce.APIKey)
	if c.Bool("dry-run") {
		log.Warn().Msg("dry run: outbound email and platform calls are recorded, not sent")
		mail = mailer.NewFake()
		platform = commerce.NewFake()
	}

	wfStore := workflow.NewPostgresStore(db)
	wfSvc := workflow.NewService(wfStore, mail, workflow.Config{
		ReplyDeadline:    cfg.ReplyDeadline(),
		MaxParseAttempts: cfg.Workflow.MaxParseAttempts,
		RemindersEnabled: cfg.Workflow.RemindersEnabled,
	})

	// Promo usage and email resolution live with the classifier service;
	// the in-process implementations here only keep the handler honest
	// until that API lands.
	registry, err := dispatch.NewRegistry(map[models.Classification]dispatch.Handler{
		models.ClassificationGenericReply:       dispatch.NewGenericReplyHandler(mail),
		models.ClassificationSubscriptionAction: dispatch.NewSubscriptionHandler(platform, mail),
		models.ClassificationPromoRefund:        dispatch.NewPromoHandler(dispatch.NewInMemoryPromoStore(), dispatch.NewInMemoryEmailResolver(), mail),
		models.ClassificationCancellation:       dispatch.NewCancellationHandler(wfSvc, cfg.Workflow.FulfillmentContact),
		models.ClassificationAddressChange:      dispatch.NewAddressChangeHandler(wfSvc, cfg.Workflow.FulfillmentContact),
	})
	if err != nil {
		return fmt.Errorf("failed to build handler registry: %w", err)
	}

	auditStore := audit.NewPostgresStore(db)
	queueSvc := queue.NewService(queue.NewPostgresStore(db), registry, audit.NewGenerator(auditStore), queue.AutoApprovePolicy{
		Enabled:       cfg.AutoApprove.Enabled,
		MinConfidence: cfg.AutoApprove.MinConfidence,
	})

	if c.Bool("river") {
		dbURL, err := database.URL()
		if err != nil {
			return fmt.Errorf("failed to resolve database URL: %w", err)
		}
		qcfg := jobqueue.DefaultQueueConfig()
		qcfg.SweepInterval = cfg.ScanInterval()
		jq, err := jobqueue.NewJobQueue(dbURL, wfSvc, qcfg)
		if err != nil {
			return fmt.Errorf("failed to create job queue: %w", err)
		}
		if err := jq.Start(context.Background()); err != nil {
			return fmt.Errorf("failed to start job queue: %w", err)
		}
		defer jq.Stop(context.Background())
		log.Info().Dur("interval", qcfg.SweepInterval).Msg("timeout sweep running on River")
	} else {
		scanner := workflow.NewScanner(wfSvc, cfg.ScanInterval())
		scanner.Start()
		defer scanner.Stop()
		log.Info().Dur("interval", cfg.ScanInterval()).Msg("timeout scanner started")
	}

	log.Info().Int("port", cfg.Server.Port).Msg("starting approval engine API server")
	server := api.NewServer(cfg.Server.Port, cfg.Server.JWTSecret, queueSvc, wfSvc, auditStore)
	return server.Start()
}
