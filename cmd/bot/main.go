package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/discordgo"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/ticket-bot/internal/api/http"
	"github.com/spec-kit/ticket-bot/internal/api/http/handlers"
	"github.com/spec-kit/ticket-bot/internal/auth"
	"github.com/spec-kit/ticket-bot/internal/config"
	"github.com/spec-kit/ticket-bot/internal/dispatch"
	"github.com/spec-kit/ticket-bot/internal/events"
	"github.com/spec-kit/ticket-bot/internal/observability"
	"github.com/spec-kit/ticket-bot/internal/persistence"
	"github.com/spec-kit/ticket-bot/internal/platform"
	"github.com/spec-kit/ticket-bot/internal/platform/discord"
	"github.com/spec-kit/ticket-bot/internal/render"
	"github.com/spec-kit/ticket-bot/internal/repository"
	"github.com/spec-kit/ticket-bot/internal/sequence"
	"github.com/spec-kit/ticket-bot/internal/service"
	"github.com/spec-kit/ticket-bot/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations && pg.Configured() {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	eventRepo := repository.NewEventRepository(pool)
	allocator := sequence.New(redis, ticketRepo)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	auditService := service.NewAuditService(dispatcher, metrics, logger)
	worker.StartAuditWorker(auditService, logger)

	var client platform.Client
	var session *discordgo.Session

	if cfg.Discord.Token != "" {
		session, err = discord.NewSession(cfg.Discord.Token)
		if err != nil {
			logger.Fatal("failed to build discord session", zap.Error(err))
		}
		client = discord.NewClient(session)
	} else {
		logger.Warn("DISCORD_TOKEN not provided; running ops API only")
	}

	statsService := service.NewStatsService(ticketRepo, client, logger)

	if session != nil {
		branding := render.BrandingFromConfig(cfg.Tickets, cfg.Discord)
		renderer, fallback := buildRenderers(cfg.Tickets.RenderMode, branding)

		ticketService := service.NewTicketService(cfg.Tickets, cfg.Discord.SupportRoleID, service.Dependencies{
			TicketRepo: ticketRepo,
			EventRepo:  eventRepo,
			Allocator:  allocator,
			Client:     client,
			Renderer:   renderer,
			Fallback:   fallback,
			Dispatcher: dispatcher,
			Logger:     logger,
		})
		transcriptService := service.NewTranscriptService(client, logger)

		actionDispatcher := dispatch.New(cfg.Tickets, branding,
			ticketService, statsService, transcriptService, client, metrics, logger)

		gateway := discord.NewGateway(session, actionDispatcher, cfg.Discord.SupportRoleID, logger)
		if err := gateway.Start(); err != nil {
			logger.Fatal("failed to open gateway", zap.Error(err))
		}
		defer gateway.Stop() //nolint:errcheck
	}

	var app *fiber.App
	if cfg.AdminAPI.Enabled {
		app = fiber.New(fiber.Config{DisableStartupMessage: true})
		httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

		tokens := auth.NewTokenManager(cfg.AdminAPI.JWTSecret, cfg.AdminAPI.TokenTTLMinutes)

		httptransport.RegisterRoutes(app, httptransport.RouteConfig{
			Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
			Stats:          handlers.NewStatsHandler(statsService, metrics),
			Events:         handlers.NewEventsHandler(eventRepo),
			AuthMiddleware: auth.NewAuthMiddleware(tokens),
		})

		go func() {
			if err := app.Listen(cfg.App.Addr()); err != nil {
				logger.Fatal("fiber listen", zap.Error(err))
			}
		}()
	}

	waitForShutdown(logger)

	if app != nil {
		_ = app.Shutdown()
	}
}

// buildRenderers negotiates the render mode once at startup. Rich mode
// keeps the embed renderer around as the per-send fallback; embed mode has
// nothing to fall back to.
func buildRenderers(mode config.RenderMode, branding render.Branding) (render.Renderer, render.Renderer) {
	renderer := render.NewRenderer(mode, branding)
	if mode == config.RenderModeEmbed {
		return renderer, nil
	}
	return renderer, render.NewRenderer(config.RenderModeEmbed, branding)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
