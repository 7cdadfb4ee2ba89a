package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"time"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/jackc/pgx/v5/pgxpool"

	migrationsdb "github.com/jellybridge/jellybridge/db"
	"github.com/jellybridge/jellybridge/internal/config"
	"github.com/jellybridge/jellybridge/internal/db"
	"github.com/jellybridge/jellybridge/internal/discord"
	"github.com/jellybridge/jellybridge/internal/expiry"
	"github.com/jellybridge/jellybridge/internal/handlers"
	"github.com/jellybridge/jellybridge/internal/jellyfin"
	"github.com/jellybridge/jellybridge/internal/jellyseerr"
	"github.com/jellybridge/jellybridge/internal/linked"
	"github.com/jellybridge/jellybridge/internal/linking"
	"github.com/jellybridge/jellybridge/internal/logger"
	"github.com/jellybridge/jellybridge/internal/provision"
	"github.com/jellybridge/jellybridge/internal/server"
	"github.com/jellybridge/jellybridge/internal/version"
)

const upstreamTimeout = 10 * time.Second

func provideConfig() (config.Config, error) {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Jellyfin.Validate("jellyfin"); err != nil {
		return config.Config{}, err
	}
	if err := cfg.Jellyseerr.Validate("jellyseerr"); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideDBConn(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	conn, err := db.Open(context.Background(), cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			conn.Close()
			return nil
		},
	})
	return conn, nil
}

func provideJellyfinClient(log *slog.Logger, cfg config.Config) (*jellyfin.Client, error) {
	return jellyfin.NewClient(log, cfg.Jellyfin.BaseURL, cfg.Jellyfin.APIKey, upstreamTimeout)
}

func provideJellyseerrClient(log *slog.Logger, cfg config.Config) (*jellyseerr.Client, error) {
	return jellyseerr.NewClient(log, cfg.Jellyseerr.BaseURL, cfg.Jellyseerr.APIKey, upstreamTimeout)
}

func provideBot(log *slog.Logger, cfg config.Config, seerr *jellyseerr.Client, fin *jellyfin.Client, store *linked.Service, linker *linking.Service) (*discord.Bot, error) {
	return discord.NewBot(log, cfg.Discord.BotToken, cfg.Discord.GuildID, seerr, fin, store, linker)
}

func provideProvisionService(log *slog.Logger, fin *jellyfin.Client, seerr *jellyseerr.Client, store *linked.Service, bot *discord.Bot) *provision.Service {
	return provision.NewService(log, fin, seerr, store, bot, bot)
}

func provideLinkingService(log *slog.Logger, fin *jellyfin.Client, seerr *jellyseerr.Client, store *linked.Service) *linking.Service {
	return linking.NewService(log, fin, seerr, store)
}

func provideReconciler(log *slog.Logger, store *linked.Service, fin *jellyfin.Client, bot *discord.Bot) *expiry.Reconciler {
	return expiry.NewReconciler(log, store, fin, bot, bot)
}

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

func provideAccountsHandler(log *slog.Logger, store *linked.Service) *handlers.AccountsHandler {
	return handlers.NewAccountsHandler(log, store)
}

func provideExpiryHandler(log *slog.Logger, reconciler *expiry.Reconciler) *handlers.ExpiryHandler {
	return handlers.NewExpiryHandler(log, reconciler)
}

type serverParams struct {
	fx.In

	Logger         *slog.Logger
	Config         config.Config
	ServerHandlers []server.Handler `group:"server_handlers"`
}

func provideServer(params serverParams) *server.Server {
	return server.NewServer(params.Logger, params.Config.Server.Addr, params.Config.Server.AdminToken, params.ServerHandlers...)
}

// connectProvisioner closes the bot/provisioner dependency loop: the
// provisioner sends DMs and grants roles through the bot, and the bot's
// admin commands call the provisioner.
func connectProvisioner(bot *discord.Bot, prov *provision.Service) {
	bot.SetProvisioner(prov)
}

func startBot(lc fx.Lifecycle, bot *discord.Bot) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return bot.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return bot.Stop(ctx)
		},
	})
}

// startExpiryScheduler begins periodic sweeps once the bot session is up, so
// role revocations and DMs have a live gateway to go through.
func startExpiryScheduler(lc fx.Lifecycle, logger *slog.Logger, cfg config.Config, reconciler *expiry.Reconciler, bot *discord.Bot) error {
	if cfg.Expiry.Disabled {
		logger.Warn("expiry sweeps disabled by configuration")
		return nil
	}
	scheduler, err := expiry.NewScheduler(logger, reconciler, cfg.Expiry.SweepInterval())
	if err != nil {
		return err
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			select {
			case <-bot.Ready():
			case <-ctx.Done():
				return ctx.Err()
			}
			return scheduler.Start()
		},
		OnStop: func(ctx context.Context) error {
			return scheduler.Stop(ctx)
		},
	})
	return nil
}

func startServer(lc fx.Lifecycle, logger *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner) {
	fmt.Printf("Starting jellybridge %s\n", version.GetInfo())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}

func runMigrate(args []string) error {
	cfg, err := provideConfig()
	if err != nil {
		return err
	}
	log := provideLogger(cfg)

	command := "up"
	if len(args) > 0 {
		command = args[0]
		args = args[1:]
	}
	migrations, err := fs.Sub(migrationsdb.MigrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migrations fs: %w", err)
	}
	return db.RunMigrate(log, cfg.Postgres, migrations, command, args)
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := runMigrate(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
			os.Exit(1)
		}
		return
	}

	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideDBConn,

			provideJellyfinClient,
			provideJellyseerrClient,

			linked.NewService,
			provideLinkingService,
			provideProvisionService,
			provideReconciler,
			provideBot,

			provideServerHandler(handlers.NewPingHandler),
			provideServerHandler(provideAccountsHandler),
			provideServerHandler(provideExpiryHandler),

			provideServer,
		),
		fx.Invoke(
			connectProvisioner,
			startBot,
			startExpiryScheduler,
			startServer,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	).Run()
}
