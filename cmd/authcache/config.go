package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/authcache"
	"github.com/MrEthical07/authcache/profile"
	"github.com/MrEthical07/authcache/store"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"go.uber.org/zap"
)

// envPrefix marks variables read into the config tree. Nesting uses a
// double underscore: AUTHCACHE_ENGINE__CACHE__RATE_LIMIT=200.
const envPrefix = "AUTHCACHE_"

type appConfig struct {
	Environment string           `koanf:"environment"`
	Redis       redisConfig      `koanf:"redis"`
	Mongo       mongoConfig      `koanf:"mongo"`
	HTTP        httpConfig       `koanf:"http"`
	Engine      authcache.Config `koanf:"engine"`
}

type redisConfig struct {
	Addr          string        `koanf:"addr"`
	Username      string        `koanf:"username"`
	Password      string        `koanf:"password"`
	DB            int           `koanf:"db"`
	PoolSize      int           `koanf:"pool_size"`
	SocketTimeout time.Duration `koanf:"socket_timeout"`
}

type mongoConfig struct {
	URI        string `koanf:"uri"`
	Database   string `koanf:"database"`
	Collection string `koanf:"collection"`
}

type httpConfig struct {
	Addr string `koanf:"addr"`
}

func defaultAppConfig() appConfig {
	return appConfig{
		Environment: "production",
		HTTP:        httpConfig{Addr: ":9090"},
		Mongo:       mongoConfig{Collection: profile.DefaultCollection},
		Engine:      authcache.DefaultConfig(),
	}
}

// loadConfig layers defaults, the optional YAML file and AUTHCACHE_*
// variables, in that order. A .env file in the working directory is
// loaded into the process environment first when present.
func loadConfig(path string) (appConfig, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return appConfig{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}
	transform := func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
	}
	if err := k.Load(env.Provider(envPrefix, ".", transform), nil); err != nil {
		return appConfig{}, fmt.Errorf("load env: %w", err)
	}

	cfg := defaultAppConfig()
	if err := k.Unmarshal("", &cfg); err != nil {
		return appConfig{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func newLogger(environment string) (*zap.Logger, error) {
	if environment == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// runtime holds everything a command opens and must release.
type runtime struct {
	cfg    appConfig
	logger *zap.Logger
	redis  *store.Client
	mongo  *profile.MongoStore
	engine *authcache.Engine
}

func openRuntime(ctx context.Context, cfg appConfig, logger *zap.Logger) (*runtime, error) {
	rt := &runtime{cfg: cfg, logger: logger}

	for _, w := range cfg.Engine.Lint().BySeverity(authcache.LintWarn) {
		logger.Warn("config lint", zap.String("code", w.Code), zap.String("message", w.Message))
	}

	client, err := store.Open(ctx, store.Options{
		Addr:          cfg.Redis.Addr,
		Username:      cfg.Redis.Username,
		Password:      cfg.Redis.Password,
		DB:            cfg.Redis.DB,
		PoolSize:      cfg.Redis.PoolSize,
		SocketTimeout: cfg.Redis.SocketTimeout,
		Logger:        logger,
	})
	if err != nil {
		return nil, err
	}
	rt.redis = client

	builder := authcache.New().
		WithConfig(cfg.Engine).
		WithRedis(client.Redis()).
		WithLogger(logger).
		WithAuditSink(authcache.NewZapSink(logger))

	if cfg.Mongo.URI != "" {
		mongo, err := profile.OpenMongo(ctx, profile.MongoOptions{
			URI:        cfg.Mongo.URI,
			Database:   cfg.Mongo.Database,
			Collection: cfg.Mongo.Collection,
			Logger:     logger,
		})
		if err != nil {
			rt.close(ctx)
			return nil, err
		}
		rt.mongo = mongo
		builder.WithProfileStore(mongo)
	}
	engine, err := builder.Build()
	if err != nil {
		rt.close(ctx)
		return nil, fmt.Errorf("build engine: %w", err)
	}
	rt.engine = engine
	return rt, nil
}

func (rt *runtime) close(ctx context.Context) {
	if rt.engine != nil {
		rt.engine.Close()
	}
	var errs []error
	if rt.mongo != nil {
		errs = append(errs, rt.mongo.Close(ctx))
	}
	if rt.redis != nil {
		errs = append(errs, rt.redis.Close())
	}
	if err := errors.Join(errs...); err != nil {
		rt.logger.Warn("shutdown", zap.Error(err))
	}
}
