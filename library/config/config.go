package config

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"

	"github.com/Astemirdum/libsys/library/internal/metadata"
	"github.com/Astemirdum/libsys/pkg/auth"
	"github.com/Astemirdum/libsys/pkg/kafka"
	"github.com/Astemirdum/libsys/pkg/logger"
	"github.com/Astemirdum/libsys/pkg/postgres"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type HTTPServer struct {
	Host         string        `yaml:"host" envconfig:"LIBRARY_HTTP_HOST" default:"0.0.0.0"`
	Port         string        `yaml:"port" envconfig:"LIBRARY_HTTP_PORT" default:"8060"`
	ReadTimeout  time.Duration `yaml:"readTimeout" envconfig:"HTTP_READ" default:"10s"`
	WriteTimeout time.Duration `yaml:"writeTimeout" envconfig:"HTTP_WRITE" default:"10s"`
}

// Admin is the account created on startup when no user with Email exists.
type Admin struct {
	Name     string `envconfig:"ADMIN_NAME" default:"Administrator"`
	Email    string `envconfig:"ADMIN_EMAIL"`
	Password string `envconfig:"ADMIN_PASSWORD" json:"-"`
}

type Config struct {
	Server   HTTPServer  `yaml:"server"`
	Storage  string      `yaml:"storage" envconfig:"STORAGE_DRIVER" default:"postgres"`
	Database postgres.DB `yaml:"db"`
	Kafka    kafka.Config
	Auth     auth.Config
	Admin    Admin
	Metadata metadata.Config
	Log      logger.Log `yaml:"log"`
}

var (
	once sync.Once
	cfg  Config
)

// NewConfig reads config from environment. Options are applied on top of it.
func NewConfig(ops ...Option) Config {
	once.Do(func() {
		config, err := load(ops...)
		if err != nil {
			log.Fatal("NewConfig ", err)
		}
		cfg = config
		printConfig(cfg)
	})

	return cfg
}

func load(ops ...Option) (Config, error) {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return Config{}, errors.Wrap(err, "envconfig")
	}
	for _, op := range ops {
		op(&config)
	}
	switch config.Storage {
	case StoragePostgres, StorageMemory:
	default:
		return Config{}, errors.Errorf("unknown STORAGE_DRIVER %q", config.Storage)
	}
	if config.Auth.Secret == "" {
		return Config{}, errors.New("AUTH_SECRET is required")
	}
	return config, nil
}

func printConfig(cfg Config) {
	jscfg, _ := json.MarshalIndent(cfg, "", "	") //nolint:errcheck
	fmt.Println(string(jscfg))
}
