package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/matheuskafuri/briefly/internal/admin"
	"github.com/matheuskafuri/briefly/internal/broadcast"
	"github.com/matheuskafuri/briefly/internal/cache"
	"github.com/matheuskafuri/briefly/internal/category"
	"github.com/matheuskafuri/briefly/internal/config"
	"github.com/matheuskafuri/briefly/internal/feed"
	"github.com/matheuskafuri/briefly/internal/likes"
	"github.com/matheuskafuri/briefly/internal/logger"
	"github.com/matheuskafuri/briefly/internal/remote"
	"github.com/matheuskafuri/briefly/internal/session"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// app is everything a command needs, wired against one cache file.
type app struct {
	cfg *config.Config
	log *zap.Logger
	db  *cache.Cache

	client   *remote.Client
	bus      *broadcast.Bus
	relayed  bool
	redis    *redis.Client
	gov      *likes.Governor
	toggles  *likes.Coordinator
	feeds    *feed.Assembler
	sessions *session.Manager
	admin    *admin.Service
}

type openOpts struct {
	// fullScreen sends logs to a file next to the cache instead of stderr.
	fullScreen bool
	// relays connects the bus to other processes.
	relays bool
}

func openApp(ctx context.Context, opts openOpts) (*app, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	var log *zap.Logger
	if opts.fullScreen {
		log = zap.NewNop()
		if flagDebug {
			log, err = logger.NewFile("debug", filepath.Join(filepath.Dir(config.CachePath()), "briefly.log"))
		}
	} else {
		log, err = logger.New(cfg.Log.Level, cfg.Log.Format, flagDebug)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	db, err := cache.Open(config.CachePath())
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}

	a := &app{cfg: cfg, log: log, db: db}
	a.client = remote.New(cfg.APIURL, remote.Options{
		Timeout: cfg.RequestTimeoutDuration(),
		Retries: cfg.Retries(),
		Tokens:  db,
		Logger:  log,
	})

	var relays []broadcast.Relay
	if opts.relays {
		relays = a.dialRelays(ctx)
	}
	a.relayed = len(relays) > 0
	a.bus = broadcast.NewBus(db.Origin(), log, relays...)

	a.gov = likes.NewGovernor(db, a.client, cfg.CooldownDuration(), log)
	a.toggles = likes.NewCoordinator(a.client, db, a.bus, log)
	a.feeds = feed.NewAssembler(a.client, db, a.gov, log)
	a.sessions = session.NewManager(a.client, db, a.gov, log)
	a.admin = admin.NewService(a.client, db, log)

	log.Debug("app ready",
		zap.String("api", cfg.APIURL),
		zap.String("cache", logger.SanitizePath(db.Path())),
		zap.String("relay", cfg.Relay.Backend),
		zap.Bool("relayed", a.relayed))
	return a, nil
}

// dialRelays builds the configured relays. An unreachable Redis is logged and
// skipped; the file relay still covers processes on this machine.
func (a *app) dialRelays(ctx context.Context) []broadcast.Relay {
	origin := a.db.Origin()
	switch a.cfg.Relay.Backend {
	case "none":
		return nil
	case "redis":
		relays := []broadcast.Relay{broadcast.NewFileRelay(a.db.Path(), a.db, origin, a.log)}
		client, err := broadcast.DialRedis(ctx, a.cfg.Relay.RedisURL)
		if err != nil {
			a.log.Warn("redis relay unavailable", zap.String("error", logger.SanitizeError(err)))
			return relays
		}
		a.redis = client
		return append(relays, broadcast.NewRedisRelay(client, a.cfg.RelayChannel(), origin, a.log))
	default:
		return []broadcast.Relay{broadcast.NewFileRelay(a.db.Path(), a.db, origin, a.log)}
	}
}

func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Debug("closing redis", zap.String("error", logger.SanitizeError(err)))
		}
	}
	if err := a.db.Close(); err != nil {
		a.log.Warn("closing cache", zap.String("error", logger.SanitizeError(err)))
	}
	logger.Sync(a.log)
}

// signedIn returns the stored session or an auth error when there is none.
func (a *app) signedIn() (cache.Session, error) {
	s := a.sessions.Current()
	if !s.Authenticated() {
		return s, fmt.Errorf("not signed in: %w", remote.ErrAuth)
	}
	return s, nil
}

// category resolves flag, falling back to the configured category.
func (a *app) category(flag string) (category.Category, error) {
	if flag == "" {
		return category.Resolve(a.cfg.DefaultCategory), nil
	}
	return category.Parse(flag)
}
