package main

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/fluxcd/stackdiff/pkg/compare"
	"github.com/fluxcd/stackdiff/pkg/source"
	"github.com/fluxcd/stackdiff/pkg/source/memcached"
)

const envPrefix = "STACKDIFF"

// Config is everything stackdiffd can be told, by flag, environment
// variable (e.g., STACKDIFF_GITHUB_TOKEN) or config file.
type Config struct {
	LogFormat     string `mapstructure:"log-format"`
	Listen        string `mapstructure:"listen"`
	ListenMetrics string `mapstructure:"listen-metrics"`

	AllowedOrigins []string `mapstructure:"allowed-origins"`

	GitHubToken            string        `mapstructure:"github-token"`
	GitHubOrganization     string        `mapstructure:"github-organization"`
	GitHubHostname         string        `mapstructure:"github-hostname"`
	GitHubRPS              float64       `mapstructure:"github-rps"`
	GitHubBurst            int           `mapstructure:"github-burst"`
	GitHubMaxRateLimitWait time.Duration `mapstructure:"github-max-rate-limit-wait"`

	FolderA     string   `mapstructure:"folder-a"`
	FolderB     string   `mapstructure:"folder-b"`
	ConfigFile  string   `mapstructure:"config-file"`
	Concurrency int      `mapstructure:"concurrency"`
	Ignore      []string `mapstructure:"ignore"`

	DatabaseURL string `mapstructure:"database-url"`

	MemcachedHostname string        `mapstructure:"memcached-hostname"`
	MemcachedPort     int           `mapstructure:"memcached-port"`
	MemcachedService  string        `mapstructure:"memcached-service"`
	MemcachedTimeout  time.Duration `mapstructure:"memcached-timeout"`
	MemcachedExpiry   time.Duration `mapstructure:"memcached-expiry"`
}

// legacyEnv names the environment variables of earlier deployments,
// honoured when the STACKDIFF_ equivalent is not set.
var legacyEnv = map[string]string{
	"allowed-origins":     "ORIGINS",
	"github-token":        "ACCESS_TOKEN_GH",
	"github-organization": "ORGANIZATION_GH",
	"github-hostname":     "HOSTNAME_GH",
	"folder-a":            "FOLDER_A_NAME",
	"folder-b":            "FOLDER_B_NAME",
}

// defineConfigFlags defines the flags that can also be set in a config
// file or the environment, binding each to the field of Config with
// the same name.
func defineConfigFlags(fs *pflag.FlagSet, v *viper.Viper, bail func(error)) {

	bind := func(fieldName, flagName string) error {
		configStruct := reflect.TypeOf(Config{})
		field, ok := configStruct.FieldByName(fieldName)
		if !ok {
			return fmt.Errorf("attempt to bind a flag to a field not present in Config, %q", fieldName)
		}
		mappedName := strings.Split(field.Tag.Get("mapstructure"), ",")[0]
		if mappedName == "" || mappedName == "-" {
			return fmt.Errorf("attempt to bind a flag to a field with no mapstructure name, %q", fieldName)
		}
		if mappedName != flagName {
			return fmt.Errorf("flag %q bound to field %q, which is named %q", flagName, fieldName, mappedName)
		}
		return v.BindPFlag(mappedName, fs.Lookup(flagName))
	}

	bindOrBail := func(fieldName, flagName string) {
		if err := bind(fieldName, flagName); err != nil {
			bail(err)
		}
	}

	defineString := func(fieldName, flagName, def, desc string) {
		fs.String(flagName, def, desc)
		bindOrBail(fieldName, flagName)
	}

	defineStringP := func(fieldName, flagName, short, def, desc string) {
		fs.StringP(flagName, short, def, desc)
		bindOrBail(fieldName, flagName)
	}

	defineStringSlice := func(fieldName, flagName string, def []string, desc string) {
		fs.StringSlice(flagName, def, desc)
		bindOrBail(fieldName, flagName)
	}

	defineDuration := func(fieldName, flagName string, def time.Duration, desc string) {
		fs.Duration(flagName, def, desc)
		bindOrBail(fieldName, flagName)
	}

	defineInt := func(fieldName, flagName string, def int, desc string) {
		fs.Int(flagName, def, desc)
		bindOrBail(fieldName, flagName)
	}

	defineFloat64 := func(fieldName, flagName string, def float64, desc string) {
		fs.Float64(flagName, def, desc)
		bindOrBail(fieldName, flagName)
	}

	defineString("LogFormat", "log-format", "fmt", "change the log format; one of {fmt,json}")
	defineStringP("Listen", "listen", "l", ":3030", "listen address where /metrics and API will be served")
	defineString("ListenMetrics", "listen-metrics", "", "listen address for /metrics endpoint, if it should be served separately")
	defineStringSlice("AllowedOrigins", "allowed-origins", []string{}, `origins browsers may call the API from; "*" allows any`)

	// GitHub
	defineString("GitHubToken", "github-token", "", "access token for the GitHub API")
	defineString("GitHubOrganization", "github-organization", "", "GitHub organisation owning a repository for each stack")
	defineString("GitHubHostname", "github-hostname", "", "hostname of a GitHub Enterprise server; leave empty for github.com")
	defineFloat64("GitHubRPS", "github-rps", 10, "maximum GitHub API requests per second; zero or less for no limit")
	defineInt("GitHubBurst", "github-burst", 10, "maximum burst of GitHub API requests")
	defineDuration("GitHubMaxRateLimitWait", "github-max-rate-limit-wait", source.DefaultMaxRateLimitWait, "longest time to wait for a GitHub rate limit to reset before failing the request")

	// comparison
	defineString("FolderA", "folder-a", "", "first folder of each stack whose directories hold configuration files")
	defineString("FolderB", "folder-b", "", "second folder of each stack whose directories hold configuration files")
	defineString("ConfigFile", "config-file", compare.DefaultConfigFile, "name of the configuration file compared in each directory")
	defineInt("Concurrency", "concurrency", compare.DefaultConcurrency, "number of directories compared at once")
	defineStringSlice("Ignore", "ignore", []string{}, "leave paths matching these glob (or regexp:-prefixed) patterns out of diffs")

	defineString("DatabaseURL", "database-url", "memory:", "where diffs are stored; file:///path/to/db for sqlite, memory: to keep them in memory")

	// memcached
	defineString("MemcachedHostname", "memcached-hostname", "", "hostname for memcached service used to cache GitHub files; empty to not cache")
	defineInt("MemcachedPort", "memcached-port", 11211, "memcached service port; zero to discover servers from SRV records")
	defineString("MemcachedService", "memcached-service", "memcached", "SRV service used to discover memcache servers")
	defineDuration("MemcachedTimeout", "memcached-timeout", time.Second, "maximum time to wait before giving up on memcached requests")
	defineDuration("MemcachedExpiry", "memcached-expiry", memcached.DefaultExpiry, "how long GitHub files stay cached")
}

// loadConfig reads the config file, if one is given, then settles each
// setting from (in order of precedence) flags, STACKDIFF_ environment
// variables, legacy environment variables, the config file, and the
// flag defaults.
func loadConfig(v *viper.Viper, fs *pflag.FlagSet, configPath string, lookupEnv func(string) (string, bool)) (Config, error) {
	var config Config

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return config, errors.Wrapf(err, "reading config file %s", configPath)
		}
	}

	for key, env := range legacyEnv {
		if f := fs.Lookup(key); f != nil && f.Changed {
			continue
		}
		if _, ok := lookupEnv(envPrefix + "_" + strings.ToUpper(strings.Replace(key, "-", "_", -1))); ok {
			continue
		}
		if value, ok := lookupEnv(env); ok {
			v.Set(key, value)
		}
	}

	if err := v.Unmarshal(&config); err != nil {
		return config, errors.Wrap(err, "decoding configuration")
	}
	return config, nil
}

func validate(config Config) error {
	switch {
	case config.GitHubOrganization == "":
		return errors.New("--github-organization (or $STACKDIFF_GITHUB_ORGANIZATION) must be set")
	case config.FolderA == "" || config.FolderB == "":
		return errors.New("both --folder-a and --folder-b must be set")
	case config.LogFormat != "fmt" && config.LogFormat != "json":
		return fmt.Errorf("unknown log format %q; use fmt or json", config.LogFormat)
	}
	return nil
}
