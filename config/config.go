package config

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/ekarpov/bookvault/internal/service"
	"github.com/ekarpov/bookvault/internal/storage"
	"github.com/ekarpov/bookvault/pkg/kafka"
	"github.com/ekarpov/bookvault/pkg/logger"
	md "github.com/ekarpov/bookvault/pkg/middleware"
	"github.com/ekarpov/bookvault/pkg/postgres"
	"github.com/ekarpov/bookvault/pkg/redis"
)

type HTTPServer struct {
	Host         string        `yaml:"host" envconfig:"HTTP_HOST"`
	Port         string        `yaml:"port" envconfig:"HTTP_PORT" default:"8080"`
	ReadTimeout  time.Duration `yaml:"readTimeout" envconfig:"HTTP_READ"`
	WriteTimeout time.Duration
}

type Config struct {
	Server   HTTPServer         `yaml:"server"`
	Database postgres.Config    `yaml:"db"`
	S3       storage.Config     `yaml:"s3"`
	Redis    redis.Config       `yaml:"redis"`
	Kafka    kafka.Config       `yaml:"kafka"`
	Auth     service.AuthConfig `yaml:"auth"`
	JWT      md.AuthConfig      `yaml:"jwt"`
	Log      logger.Log         `yaml:"log"`
}

var (
	once sync.Once
	cfg  *Config
)

// NewConfig reads config from environment.
func NewConfig(ops ...Option) *Config {
	once.Do(func() {
		var config Config
		for _, op := range ops {
			op(&config)
		}
		err := envconfig.Process("", &config)
		if err != nil {
			log.Fatal("NewConfig ", err)
		}
		cfg = &config
		printConfig(cfg)
	})

	return cfg
}

func printConfig(cfg *Config) {
	jscfg, _ := json.MarshalIndent(cfg, "", "	") //nolint:errcheck
	fmt.Println(string(jscfg))
}
