package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string     `yaml:"env" env-default:"local"`
	HTTPServer HTTPServer `yaml:"http_server"`
	Postgres   Postgres   `yaml:"postgres"`
	ES         ES         `yaml:"elasticsearch"`
	Minio      Minio      `yaml:"minio"`
	Publish    Publish    `yaml:"publish"`
	Assets     Assets     `yaml:"assets"`
	JWT        JWT        `yaml:"jwt"`
}

type Minio struct {
	Endpoint       string `yaml:"endpoint" env-default:"minio:9000"`
	AccessKey      string `yaml:"access_key"`
	SecretKey      string `yaml:"secret_key"`
	UseSSL         bool   `yaml:"use_ssl"`
	Enabled        bool   `yaml:"enabled" env-default:"true"`
	BlobBucket     string `yaml:"blob_bucket" env-default:"course-blobs"`
	RegistryBucket string `yaml:"registry_bucket" env-default:"course-registry"`
	AssetBucket    string `yaml:"asset_bucket" env-default:"course-assets"`
	PublicBaseURL  string `yaml:"public_base_url"`
}

type Publish struct {
	MetaTimeout time.Duration `yaml:"meta_timeout" env-default:"5s"`
	CacheTTL    time.Duration `yaml:"cache_ttl" env-default:"10m"`
	CacheSweep  time.Duration `yaml:"cache_sweep" env-default:"15m"`
}

type Assets struct {
	LegacyBaseURL string        `yaml:"legacy_base_url"`
	FetchTimeout  time.Duration `yaml:"fetch_timeout" env-default:"30s"`
}

type ES struct {
	Hosts    []string `yaml:"hosts"`
	Index    string   `yaml:"index" env-default:"courses"`
	Password string   `yaml:"password"`
}

type JWT struct {
	SecretKey string `yaml:"secret_key"`
}

type Postgres struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env-default:"localhost:8081"`
	Timeout     time.Duration `yaml:"timeout" env-default:"5s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("Config file not exist: %s", configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("Can not read config file %s", err)
	}

	return &cfg
}
