package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	pkgerrors "github.com/pkg/errors"

	"github.com/Illuminatus66/byqr/internal/persist"
)

const EnvPrefix = "BYQR_"

type Config struct {
	API struct {
		BaseURL string        `koanf:"baseURL" validate:"required,url"`
		Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
	} `koanf:"api"`

	Session struct {
		TTL time.Duration `koanf:"ttl" validate:"gt=0"`
	} `koanf:"session"`

	Persist struct {
		Driver        string `koanf:"driver" validate:"oneof=memory file redis postgres"`
		Path          string `koanf:"path" validate:"required_if=Driver file"`
		RedisAddr     string `koanf:"redisAddr" validate:"required_if=Driver redis"`
		RedisPassword string `koanf:"redisPassword"`
		RedisDB       int    `koanf:"redisDB" validate:"gte=0"`
		PostgresDSN   string `koanf:"postgresDSN" validate:"required_if=Driver postgres"`
	} `koanf:"persist"`

	Log struct {
		Service string `koanf:"service"`
		Level   string `koanf:"level" validate:"oneof=debug info warn error"`
	} `koanf:"log"`

	Backend struct {
		Port          string `koanf:"port"`
		JWTSecret     string `koanf:"jwtSecret"`
		PaymentKeyID  string `koanf:"paymentKeyID"`
		PaymentSecret string `koanf:"paymentSecret"`
	} `koanf:"backend"`

	Metrics struct {
		Enabled bool   `koanf:"enabled"`
		Token   string `koanf:"token"`
	} `koanf:"metrics"`
}

var defaults = map[string]any{
	"api.baseURL":           "http://localhost:8080",
	"api.timeout":           "10s",
	"session.ttl":           "24h",
	"persist.driver":        "file",
	"persist.path":          ".byqr",
	"persist.redisAddr":     "",
	"persist.redisPassword": "",
	"persist.redisDB":       0,
	"persist.postgresDSN":   "",
	"log.service":           "storefront",
	"log.level":             "info",
	"backend.port":          "8080",
	"backend.jwtSecret":     "dev-secret",
	"backend.paymentKeyID":  "rzp_test_local",
	"backend.paymentSecret": "dev-payment-secret",
	"metrics.enabled":       false,
	"metrics.token":         "",
}

// Load layers defaults, the optional YAML file at path, a .env file and BYQR_* environment variables.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, pkgerrors.Wrap(err, "load .env")
	}

	k := koanf.New(".")
	for key, v := range defaults {
		if err := k.Set(key, v); err != nil {
			return nil, pkgerrors.Wrapf(err, "default %s", key)
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, pkgerrors.Wrapf(err, "read config %s", path)
		}
	}

	known := k.Keys()
	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, v string) (string, any) {
			return canonicalKey(strings.TrimPrefix(key, EnvPrefix), known), v
		},
	}), nil); err != nil {
		return nil, pkgerrors.Wrap(err, "load env variables")
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, pkgerrors.Wrap(err, "unmarshal config")
	}
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
		return nil, pkgerrors.Wrap(err, "invalid config")
	}
	return &cfg, nil
}

// canonicalKey maps API_BASEURL onto the known key api.baseURL.
func canonicalKey(raw string, known []string) string {
	dotted := strings.ToLower(strings.ReplaceAll(raw, "_", "."))
	for _, k := range known {
		if strings.EqualFold(k, dotted) {
			return k
		}
	}
	return dotted
}

func (c *Config) PersistOptions() persist.Options {
	return persist.Options{
		Driver:        c.Persist.Driver,
		Path:          c.Persist.Path,
		RedisAddr:     c.Persist.RedisAddr,
		RedisPassword: c.Persist.RedisPassword,
		RedisDB:       c.Persist.RedisDB,
		RedisPrefix:   "byqr:",
		PostgresDSN:   c.Persist.PostgresDSN,
	}
}
