package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	cli "github.com/urfave/cli/v3"

	"github.com/caseflowhq/caseflow/pkg/cmd"
	"github.com/caseflowhq/caseflow/pkg/log"
	"github.com/caseflowhq/caseflow/pkg/persistence"
	"github.com/caseflowhq/caseflow/pkg/registry"
	"github.com/caseflowhq/caseflow/pkg/web"
	"github.com/caseflowhq/caseflow/pkg/workflow"
)

const defaultPort = 8081

// API wires the engine, archive and registry into the HTTP surface.
type API struct {
	logger   *slog.Logger
	engine   *workflow.Engine
	archive  persistence.Archive
	registry *registry.Registry
	validate *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	engine *workflow.Engine,
	archive persistence.Archive,
	registry *registry.Registry,
) *API {
	return &API{
		logger:   logger,
		engine:   engine,
		archive:  archive,
		registry: registry,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.engine, a.archive, a.registry, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Caseflow API")
	})

	r := app.Group("/runs")
	r.Post("/", handlers.RunTicket)
	r.Get("/", handlers.GetRuns)
	r.Get("/:id", handlers.GetRun)

	app.Get("/pipeline", handlers.GetPipeline)
	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	return a.App().Listen(":" + strconv.Itoa(port))
}

// APICommand starts the REST API server.
func APICommand() *cli.Command {
	flags := []cli.Flag{
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Usage:   "Port to run the API server on",
			Value:   defaultPort,
			Sources: cli.EnvVars("PORT"),
		},
		&cli.StringFlag{
			Name:    "database-url",
			Usage:   "Archive URL (postgres://... or a file path)",
			Value:   "./data",
			Sources: cli.EnvVars("DATABASE_URL"),
		},
		&cli.StringFlag{
			Name:    "event-bus",
			Usage:   "Event bus type (gochannel, none)",
			Value:   "gochannel",
			Sources: cli.EnvVars("EVENT_BUS_TYPE"),
		},
		logLevelFlag(),
	}
	flags = append(flags, providerFlags()...)

	return &cli.Command{
		Name:    "api",
		Aliases: []string{"a"},
		Usage:   "Start the REST API server",
		Flags:   flags,
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("api")

			logger.InfoContext(ctx, "Initializing Caseflow API")

			archive, err := cmd.NewArchive(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := archive.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close archive", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger)

			if eventBus != nil {
				defer func() {
					if err := eventBus.Close(); err != nil {
						logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
					}
				}()
			}

			reg := cmd.NewRegistry(cmd.ProviderConfig{
				CommonURL: command.String("common-url"),
				AtlasURL:  command.String("atlas-url"),
			}, logger)

			engine, err := cmd.NewEngine(reg, eventBus, logger)
			if err != nil {
				return err
			}

			api := NewAPI(logger, engine, archive, reg)

			if err := api.Start(command.Int("port")); err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)

				return err
			}

			return nil
		},
	}
}
