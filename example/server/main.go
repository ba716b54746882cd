package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/zitadel/dynconfig/pkg/config"
	httphelper "github.com/zitadel/dynconfig/pkg/http"
	"github.com/zitadel/dynconfig/pkg/idp"
	"github.com/zitadel/dynconfig/pkg/idp/oidcprovider"
	"github.com/zitadel/dynconfig/pkg/op"
	"github.com/zitadel/dynconfig/pkg/storage/memory"
	"github.com/zitadel/dynconfig/pkg/storage/redis"
	"github.com/zitadel/dynconfig/pkg/storage/sqlite"
)

func main() {
	var (
		configFile string
		debug      bool
	)
	root := &cobra.Command{
		Use:   "dynconfig",
		Short: "dynamic client registration and identity provider server",
	}
	root.SilenceUsage = true
	root.PersistentFlags().StringVar(&configFile, "config", os.Getenv("CONFIG_FILE"), "YAML configuration file")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Log at debug level")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Serve the registration endpoint and the identity provider listing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			level := slog.LevelInfo
			if debug {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
				AddSource: true,
				Level:     level,
			}))
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, logger)
		},
	}
	root.AddCommand(serve)

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type clientStore interface {
	op.ClientStore
	op.ClientReader
	op.Pinger
}

type providerStore interface {
	idp.Store
	idp.Lister
	idp.Writer
}

// stores are the storage backends selected by the configuration.
type stores struct {
	clients   clientStore
	providers providerStore
	// watch, if set, forwards provider changes made by other instances to the cache.
	watch func(ctx context.Context, invalidator idp.Invalidator) error
	close func() error
}

func openStores(ctx context.Context, cfg config.Storage, logger *slog.Logger) (*stores, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return &stores{
			clients:   sqlite.NewClientStore(db),
			providers: sqlite.NewProviderStore(db),
			close:     db.Close,
		}, nil
	case config.DriverRedis:
		client := redis.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		var opts []redis.Option
		if cfg.KeyPrefix != "" {
			opts = append(opts, redis.WithKeyPrefix(cfg.KeyPrefix))
		}
		providers := redis.NewProviderStore(client, opts...)
		return &stores{
			clients:   redis.NewClientStore(client, opts...),
			providers: providers,
			watch: func(ctx context.Context, invalidator idp.Invalidator) error {
				return providers.Watch(ctx, invalidator, logger, nil)
			},
			close: client.Close,
		}, nil
	default:
		return &stores{
			clients:   memory.NewClientStore(),
			providers: memory.NewProviderStore(),
			close:     func() error { return nil },
		}, nil
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := idp.NewMetrics(reg)

	st, err := openStores(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer st.close()

	registry := idp.NewRegistry()
	if err := oidcprovider.Register(registry, cfg.IdentityProviders.PathPrefix); err != nil {
		return err
	}
	registry.Freeze()

	cacheOpts, err := cfg.CacheOptions()
	if err != nil {
		return err
	}
	cache, err := idp.NewCache(st.providers, append(cacheOpts, idp.WithMetrics(metrics), idp.WithLogger(logger))...)
	if err != nil {
		return err
	}
	resolver := idp.NewResolver(cache, idp.NewOptionsFactory(registry), st.providers, metrics)
	providers := idp.NewNotifyingStore(st.providers, cache)
	for _, record := range cfg.Providers {
		if err := providers.Save(ctx, record); err != nil {
			return fmt.Errorf("seed provider %s: %w", record.Scheme, err)
		}
	}

	validatorConfig, err := cfg.ValidatorConfig()
	if err != nil {
		return err
	}
	var validatorOpts []op.ValidatorOption
	validatorOpts = append(validatorOpts, op.WithValidatorLogger(logger))
	if issuer := cfg.Registration.DiscoveryIssuer; issuer != "" {
		validatorOpts = append(validatorOpts, op.WithCustomValidator(&op.DiscoveryAuthMethodValidator{
			Issuer:     issuer,
			HTTPClient: httphelper.DefaultHTTPClient,
		}))
	}
	validator, err := op.NewValidator(validatorConfig, validatorOpts...)
	if err != nil {
		return err
	}
	registrar := op.NewRegistrar(validator, st.clients, op.WithRegistrarLogger(logger))

	federation, err := newFederation(resolver, cfg.Server.Issuer, cfg.IdentityProviders.PathPrefix, logger)
	if err != nil {
		return err
	}
	opts := []op.Option{
		op.WithLogger(logger),
		op.WithClientReader(st.clients),
		op.WithIdentityProviders(resolver),
		op.WithProbes(op.ReadyPinger(st.clients)),
	}
	if cfg.Server.AllowInsecure {
		opts = append(opts, op.WithAllowInsecure())
	}
	if cfg.Server.MaxBodySize > 0 {
		opts = append(opts, op.WithMaxBodySize(cfg.Server.MaxBodySize))
	}
	provider, err := op.NewProvider(cfg.Server.Issuer, registrar, opts...)
	if err != nil {
		return err
	}

	router := chi.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	router.Mount(federation.prefix, federation.routes())
	router.Mount("/", provider)

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httphelper.ListenAndServe(ctx, server, time.Duration(cfg.Server.ShutdownTimeout))
	})
	if st.watch != nil {
		g.Go(func() error {
			return st.watch(ctx, cache)
		})
	}
	logger.InfoContext(ctx, "server started", "issuer", cfg.Server.Issuer, "port", cfg.Server.Port, "storage", cfg.Storage.Driver)
	return g.Wait()
}
