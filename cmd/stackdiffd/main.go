package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/fluxcd/stackdiff/pkg/api"
	"github.com/fluxcd/stackdiff/pkg/compare"
	"github.com/fluxcd/stackdiff/pkg/http/daemon"
	"github.com/fluxcd/stackdiff/pkg/policy"
	"github.com/fluxcd/stackdiff/pkg/remote"
	"github.com/fluxcd/stackdiff/pkg/source"
	"github.com/fluxcd/stackdiff/pkg/source/memcached"
	"github.com/fluxcd/stackdiff/pkg/store"
	storesql "github.com/fluxcd/stackdiff/pkg/store/sql"
)

var version string

const (
	shutdownTimeout         = 10 * time.Second
	memcachedUpdateInterval = time.Minute
)

func main() {
	// Flag domain.
	fs := pflag.NewFlagSet("default", pflag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "DESCRIPTION\n")
		fmt.Fprintf(os.Stderr, "  stackdiffd compares the configuration of two stacks kept in GitHub.\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "FLAGS\n")
		fs.PrintDefaults()
	}

	v := viper.New()
	var (
		configPath  = fs.String("config", "", "path to a config file (YAML, JSON or TOML) giving values for any of the flags")
		versionFlag = fs.Bool("version", false, "get version number")
	)
	defineConfigFlags(fs, v, func(err error) {
		fmt.Fprintf(os.Stderr, "error defining flags: %s\n", err)
		os.Exit(1)
	})

	err := fs.Parse(os.Args[1:])
	switch {
	case err == pflag.ErrHelp:
		os.Exit(0)
	case err != nil:
		fmt.Fprintf(os.Stderr, "error: %s\n\nRun 'stackdiffd --help' for usage.\n", err)
		os.Exit(2)
	case *versionFlag:
		if version == "" {
			version = "unversioned"
		}
		fmt.Println(version)
		os.Exit(0)
	}

	config, err := loadConfig(v, fs, *configPath, os.LookupEnv)
	if err == nil {
		err = validate(config)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(2)
	}

	// Logger component.
	var logger log.Logger
	{
		switch config.LogFormat {
		case "json":
			logger = log.NewJSONLogger(log.NewSyncWriter(os.Stderr))
		default:
			logger = log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
		}
		logger = log.With(logger, "ts", log.DefaultTimestampUTC)
		logger = log.With(logger, "caller", log.DefaultCaller)
	}
	logger.Log("version", version)

	// Source component.
	var src source.Source
	{
		logger := log.With(logger, "component", "source")
		gh, err := source.NewGitHub(source.GitHubConfig{
			Token:            config.GitHubToken,
			Organization:     config.GitHubOrganization,
			Hostname:         config.GitHubHostname,
			RPS:              config.GitHubRPS,
			Burst:            config.GitHubBurst,
			MaxRateLimitWait: config.GitHubMaxRateLimitWait,
			Logger:           logger,
		})
		if err != nil {
			logger.Log("err", err)
			os.Exit(1)
		}
		if config.GitHubToken == "" {
			logger.Log("warning", "no GitHub token given; only public repositories can be read, at a low rate limit")
		}
		logger.Log("organization", config.GitHubOrganization, "hostname", config.GitHubHostname)
		src = gh
	}

	// Cache component.
	var memcacheClient *memcached.MemcacheClient
	if config.MemcachedHostname != "" {
		logger := log.With(logger, "component", "memcached")
		memcacheConfig := memcached.MemcacheConfig{
			Host:           config.MemcachedHostname,
			Service:        config.MemcachedService,
			Timeout:        config.MemcachedTimeout,
			UpdateInterval: memcachedUpdateInterval,
			Logger:         logger,
			MaxIdleConns:   config.Concurrency * 2,
		}
		if config.MemcachedPort > 0 {
			addr := net.JoinHostPort(config.MemcachedHostname, strconv.Itoa(config.MemcachedPort))
			memcacheClient, err = memcached.NewFixedServerMemcacheClient(memcacheConfig, addr)
			if err != nil {
				logger.Log("err", err)
				os.Exit(1)
			}
			logger.Log("servers", addr, "expiry", config.MemcachedExpiry)
		} else {
			memcacheClient = memcached.NewMemcacheClient(memcacheConfig)
			logger.Log("service", config.MemcachedService, "host", config.MemcachedHostname, "expiry", config.MemcachedExpiry)
		}
		src = memcached.NewSource(src, memcacheClient, config.MemcachedExpiry, logger)
	}

	// Store component.
	var diffStore store.Store
	{
		logger := log.With(logger, "component", "store")
		u, err := url.Parse(config.DatabaseURL)
		if err != nil {
			logger.Log("err", err)
			os.Exit(1)
		}
		if u.Scheme == "memory" && u.Opaque == "" && u.Path == "" {
			diffStore = store.NewInMem()
			logger.Log("store", "in-memory")
		} else {
			diffStore, err = storesql.Open(config.DatabaseURL)
			if err != nil {
				logger.Log("err", err)
				os.Exit(1)
			}
			logger.Log("store", "sql", "url", u.Redacted())
		}
	}

	// Service (business logic) domain.
	var server api.Server
	{
		logger := log.With(logger, "component", "compare")
		ignore, err := policy.ParseIgnore(config.Ignore)
		if err != nil {
			logger.Log("err", err)
			os.Exit(1)
		}
		service := compare.New(src, diffStore, compare.Config{
			FolderA:     config.FolderA,
			FolderB:     config.FolderB,
			ConfigFile:  config.ConfigFile,
			Concurrency: config.Concurrency,
			Ignore:      ignore,
		}, version, logger)
		logger.Log("folder-a", config.FolderA, "folder-b", config.FolderB, "config-file", config.ConfigFile, "ignore", len(ignore))
		server = remote.NewErrorLoggingServer(remote.Instrument(service), logger)
	}

	// Mechanical stuff.
	errc := make(chan error)
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errc <- fmt.Errorf("%s", <-c)
	}()

	// Transport domain.
	handler := daemon.NewHandler(server, daemon.NewRouter(), config.AllowedOrigins)
	mux := http.NewServeMux()
	mux.Handle("/", handler)

	var servers []*http.Server
	if config.ListenMetrics != "" {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		servers = append(servers, &http.Server{Addr: config.ListenMetrics, Handler: metricsMux})
	} else {
		mux.Handle("/metrics", promhttp.Handler())
	}
	servers = append(servers, &http.Server{Addr: config.Listen, Handler: mux})

	for _, srv := range servers {
		go func(srv *http.Server) {
			logger := log.With(logger, "component", "http")
			logger.Log("addr", srv.Addr)
			errc <- srv.ListenAndServe()
		}(srv)
	}

	// Go!
	logger.Log("exiting", <-errc)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Log("addr", srv.Addr, "err", err)
		}
	}
	if memcacheClient != nil {
		memcacheClient.Stop()
	}
	if err := diffStore.Close(); err != nil {
		logger.Log("component", "store", "err", err)
	}
}
