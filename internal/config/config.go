package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port        int              `json:"port"`
	JWTSecret   string           `json:"jwt_secret"`
	JWTTTLHours int              `json:"jwt_ttl_hours"`
	LogConfig   logger.LogConfig `json:"log_config"`
	Database    DatabaseConfig   `json:"database"`
	FileStore   FileStoreConfig  `json:"file_store"`
	Assets      AssetConfig      `json:"assets"`
	Import      ImportConfig     `json:"import"`
	CORSOrigins []string         `json:"cors_origins"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// ExtraContentTypes lists mime types that belong to a kind without
// following the "<kind>/..." naming convention.
type ExtraContentTypes struct {
	Movie []string `json:"movie"`
	Audio []string `json:"audio"`
	PDF   []string `json:"pdf"`
}

type AssetConfig struct {
	MultiSites        bool              `json:"multi_sites"`
	MaxSizeMB         int64             `json:"max_size_mb"`
	EnableThumbnails  *bool             `json:"enable_thumbnails"`
	Thumbnails        map[string]int    `json:"thumbnails"`
	ImageTypes        []string          `json:"image_types"`
	ExtraContentTypes ExtraContentTypes `json:"extra_content_types"`
	BackfillSpec      string            `json:"backfill_spec"`
}

type ImportConfig struct {
	SiteID                 string `json:"site_id"`
	Filter                 string `json:"filter"`
	NewUserPassword        string `json:"new_user_password"`
	LenientCommentRecovery bool   `json:"lenient_comment_recovery"`
}

const (
	defaultMaxSizeMB       = 30
	defaultFilter          = "markdown"
	defaultNewUserPassword = "mephistomigrator"
)

func DefaultThumbnails() map[string]int {
	return map[string]int{"thumb": 120, "tiny": 50}
}

func DefaultExtraContentTypes() ExtraContentTypes {
	return ExtraContentTypes{
		Movie: []string{"application/x-shockwave-flash"},
		Audio: []string{"application/ogg"},
		PDF:   []string{"application/pdf"},
	}
}

func DefaultImageTypes() []string {
	return []string{
		"image/jpeg",
		"image/pjpeg",
		"image/jpg",
		"image/gif",
		"image/png",
		"image/x-png",
		"image/bmp",
		"image/x-ms-bmp",
		"image/x-bmp",
		"image/tiff",
	}
}

func (c AssetConfig) ThumbnailsEnabled() bool {
	return c.EnableThumbnails == nil || *c.EnableThumbnails
}

func (c AssetConfig) MaxSizeBytes() int64 {
	return c.MaxSizeMB * 1024 * 1024
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() error {
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return fmt.Errorf("database.dsn or database.host is required")
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required")
	}
	if cfg.Port == 0 {
		return fmt.Errorf("port is required")
	}
	if cfg.JWTTTLHours == 0 {
		cfg.JWTTTLHours = 72
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	cfg.FileStore.Type = strings.ToLower(strings.TrimSpace(cfg.FileStore.Type))
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "local"
	}
	if cfg.FileStore.Type != "local" && cfg.FileStore.Type != "s3" {
		return fmt.Errorf("file_store.type must be local or s3")
	}
	if cfg.FileStore.Data == nil {
		return fmt.Errorf("file_store.data is required")
	}
	if cfg.Assets.MaxSizeMB <= 0 {
		cfg.Assets.MaxSizeMB = defaultMaxSizeMB
	}
	if len(cfg.Assets.Thumbnails) == 0 {
		cfg.Assets.Thumbnails = DefaultThumbnails()
	}
	for label, size := range cfg.Assets.Thumbnails {
		if label == "" || size <= 0 {
			return fmt.Errorf("assets.thumbnails: invalid entry %q=%d", label, size)
		}
	}
	if len(cfg.Assets.ImageTypes) == 0 {
		cfg.Assets.ImageTypes = DefaultImageTypes()
	}
	extra := DefaultExtraContentTypes()
	if cfg.Assets.ExtraContentTypes.Movie == nil {
		cfg.Assets.ExtraContentTypes.Movie = extra.Movie
	}
	if cfg.Assets.ExtraContentTypes.Audio == nil {
		cfg.Assets.ExtraContentTypes.Audio = extra.Audio
	}
	if cfg.Assets.ExtraContentTypes.PDF == nil {
		cfg.Assets.ExtraContentTypes.PDF = extra.PDF
	}
	if cfg.Import.Filter == "" {
		cfg.Import.Filter = defaultFilter
	}
	if cfg.Import.NewUserPassword == "" {
		cfg.Import.NewUserPassword = defaultNewUserPassword
	}
	return nil
}
