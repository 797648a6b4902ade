package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"mixer/internal/pkg/logger"
)

// ConfigFileEnv names an optional config file (yaml, toml, json). Environment
// variables always win over values from the file.
const ConfigFileEnv = "MIXER_CONFIG"

type Config struct {
	ServiceName   string
	HTTPPort      string
	PublicBaseURL string

	Log logger.Config

	// WorkDir is the parent of every request-scoped working directory.
	WorkDir        string
	MaxUploadBytes int64

	Fetch   FetchConfig
	Render  RenderConfig
	Storage StorageConfig

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	ManifestTTL   time.Duration

	CORSAllowedOrigins []string
	ShutdownTimeout    time.Duration
}

type FetchConfig struct {
	MaxAttempts  int
	BackoffUnit  time.Duration
	YtDlpPath    string
	AudioQuality string
}

type RenderConfig struct {
	FFmpegPath string
}

type StorageConfig struct {
	Provider  string
	LocalRoot string
	GDrive    GDriveConfig
}

type GDriveConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	FolderID     string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service_name", "mixer")
	v.SetDefault("http_port", "8080")
	v.SetDefault("public_base_url", "")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("log_source", false)
	v.SetDefault("log_file", "")
	v.SetDefault("log_file_max_size", 50)
	v.SetDefault("log_file_max_backups", 3)
	v.SetDefault("log_file_max_age", 7)
	v.SetDefault("log_file_compress", true)

	v.SetDefault("work_dir", os.TempDir())
	v.SetDefault("max_upload_mb", 512)

	v.SetDefault("fetch_max_attempts", 3)
	v.SetDefault("fetch_backoff_unit", "1s")
	v.SetDefault("ytdlp_path", "yt-dlp")
	v.SetDefault("fetch_audio_quality", "192K")

	v.SetDefault("ffmpeg_path", "ffmpeg")

	v.SetDefault("storage_provider", "localfs")
	v.SetDefault("storage_local_root", "data")

	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("manifest_ttl", "24h")

	v.SetDefault("cors_allowed_origins", "http://localhost:5173,http://localhost:8081")
	v.SetDefault("shutdown_timeout", "30s")
}

// Load reads configuration from defaults, the optional MIXER_CONFIG file and
// the environment, in increasing priority.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if file := strings.TrimSpace(os.Getenv(ConfigFileEnv)); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	cfg := Config{
		ServiceName:   v.GetString("service_name"),
		HTTPPort:      v.GetString("http_port"),
		PublicBaseURL: strings.TrimRight(v.GetString("public_base_url"), "/"),
		Log: logger.Config{
			Level:          v.GetString("log_level"),
			Format:         v.GetString("log_format"),
			AddSource:      v.GetBool("log_source"),
			ServiceName:    v.GetString("service_name"),
			File:           v.GetString("log_file"),
			FileMaxSizeMB:  v.GetInt("log_file_max_size"),
			FileMaxBackups: v.GetInt("log_file_max_backups"),
			FileMaxAgeDays: v.GetInt("log_file_max_age"),
			FileCompress:   v.GetBool("log_file_compress"),
		},
		WorkDir:        v.GetString("work_dir"),
		MaxUploadBytes: v.GetInt64("max_upload_mb") * 1024 * 1024,
		Fetch: FetchConfig{
			MaxAttempts:  v.GetInt("fetch_max_attempts"),
			BackoffUnit:  v.GetDuration("fetch_backoff_unit"),
			YtDlpPath:    v.GetString("ytdlp_path"),
			AudioQuality: v.GetString("fetch_audio_quality"),
		},
		Render: RenderConfig{
			FFmpegPath: v.GetString("ffmpeg_path"),
		},
		Storage: StorageConfig{
			Provider:  strings.ToLower(v.GetString("storage_provider")),
			LocalRoot: v.GetString("storage_local_root"),
			GDrive: GDriveConfig{
				ClientID:     v.GetString("gdrive_client_id"),
				ClientSecret: v.GetString("gdrive_client_secret"),
				RefreshToken: v.GetString("gdrive_refresh_token"),
				FolderID:     v.GetString("gdrive_folder_id"),
			},
		},
		RedisAddr:          v.GetString("redis_addr"),
		RedisPassword:      v.GetString("redis_password"),
		RedisDB:            v.GetInt("redis_db"),
		ManifestTTL:        v.GetDuration("manifest_ttl"),
		CORSAllowedOrigins: splitCSV(v.GetString("cors_allowed_origins")),
		ShutdownTimeout:    v.GetDuration("shutdown_timeout"),
	}

	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = "http://localhost:" + cfg.HTTPPort
	}

	if cfg.Storage.LocalRoot != "" {
		abs, err := filepath.Abs(cfg.Storage.LocalRoot)
		if err != nil {
			return Config{}, fmt.Errorf("resolve storage root: %w", err)
		}
		cfg.Storage.LocalRoot = abs
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first inconsistent setting.
func (c Config) Validate() error {
	if c.Fetch.MaxAttempts < 1 {
		return fmt.Errorf("FETCH_MAX_ATTEMPTS must be >= 1, got %d", c.Fetch.MaxAttempts)
	}
	if c.Fetch.BackoffUnit < 0 {
		return fmt.Errorf("FETCH_BACKOFF_UNIT must not be negative")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_MB must be positive")
	}

	switch c.Storage.Provider {
	case "localfs":
		if c.Storage.LocalRoot == "" {
			return fmt.Errorf("STORAGE_LOCAL_ROOT is required for localfs")
		}
	case "gdrive":
		g := c.Storage.GDrive
		if g.ClientID == "" || g.ClientSecret == "" || g.RefreshToken == "" {
			return fmt.Errorf("GDRIVE_CLIENT_ID, GDRIVE_CLIENT_SECRET and GDRIVE_REFRESH_TOKEN are required for gdrive")
		}
	default:
		return fmt.Errorf("unknown storage provider: %s", c.Storage.Provider)
	}
	return nil
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
