package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Storage   StorageConfig
	FFmpeg    FFmpegConfig
	Remote    RemoteConfig
	R2        R2Config
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	Enabled   bool
	JWTSecret string
}

type RateLimitConfig struct {
	UploadPerHour     int
	ProcessPerHour    int
	AIPerHour         int
	TranscribePerHour int
}

type StorageConfig struct {
	// Root is the local storage root; videos/ and processed/ live under it.
	Root string
	// HostDataRoot is the same tree as seen by the remote host that runs
	// the pipeline scripts. Used to build absolute paths for script args
	// and to normalize callback output paths back to relative form.
	HostDataRoot string
	// TempDir receives multipart uploads before they are moved into Root.
	TempDir string
}

type FFmpegConfig struct {
	BinPath   string
	ProbePath string
}

type RemoteConfig struct {
	Host       string
	User       string
	KeyPath    string
	ScriptsDir string
	// CallbackBaseURL must be reachable from the remote host, e.g.
	// http://localhost:3333 when scripts run on the docker host.
	CallbackBaseURL string
	// Connect timeouts in seconds per flow; they bound only the SSH
	// handshake, not remote execution.
	TriggerConnectTimeout    int
	TranscribeConnectTimeout int
	AnalyzeConnectTimeout    int
	// Whisper invocation parameters passed to transcribe.py.
	WhisperModel    string
	WhisperLanguage string
	// Model name passed to analyze.sh.
	AnalyzeModel string
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("JWT_SECRET")
	readSecret("R2_ACCOUNT_ID")
	readSecret("R2_ACCESS_KEY_ID")
	readSecret("R2_SECRET_ACCESS_KEY")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("auth.enabled", "AUTH_ENABLED")
	_ = viper.BindEnv("auth.jwt_secret", "JWT_SECRET")
	_ = viper.BindEnv("storage.root", "STORAGE_ROOT")
	_ = viper.BindEnv("storage.host_data_root", "HOST_DATA_ROOT")
	_ = viper.BindEnv("storage.temp_dir", "STORAGE_TEMP_DIR")
	_ = viper.BindEnv("ffmpeg.bin_path", "FFMPEG_PATH")
	_ = viper.BindEnv("ffmpeg.probe_path", "FFPROBE_PATH")
	_ = viper.BindEnv("remote.host", "REMOTE_HOST")
	_ = viper.BindEnv("remote.user", "REMOTE_USER")
	_ = viper.BindEnv("remote.key_path", "REMOTE_KEY_PATH")
	_ = viper.BindEnv("remote.scripts_dir", "REMOTE_SCRIPTS_DIR")
	_ = viper.BindEnv("remote.callback_base_url", "CALLBACK_BASE_URL")
	_ = viper.BindEnv("remote.trigger_connect_timeout", "REMOTE_TRIGGER_CONNECT_TIMEOUT")
	_ = viper.BindEnv("remote.transcribe_connect_timeout", "REMOTE_TRANSCRIBE_CONNECT_TIMEOUT")
	_ = viper.BindEnv("remote.analyze_connect_timeout", "REMOTE_ANALYZE_CONNECT_TIMEOUT")
	_ = viper.BindEnv("remote.whisper_model", "WHISPER_MODEL")
	_ = viper.BindEnv("remote.whisper_language", "WHISPER_LANGUAGE")
	_ = viper.BindEnv("remote.analyze_model", "ANALYZE_MODEL")
	_ = viper.BindEnv("r2.account_id", "R2_ACCOUNT_ID")
	_ = viper.BindEnv("r2.access_key_id", "R2_ACCESS_KEY_ID")
	_ = viper.BindEnv("r2.secret_access_key", "R2_SECRET_ACCESS_KEY")
	_ = viper.BindEnv("r2.bucket_name", "R2_BUCKET_NAME")
	_ = viper.BindEnv("r2.public_url", "R2_PUBLIC_URL")

	// Defaults
	viper.SetDefault("server.port", "3333")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("auth.enabled", false)
	viper.SetDefault("ratelimit.upload_per_hour", 50)
	viper.SetDefault("ratelimit.process_per_hour", 30)
	viper.SetDefault("ratelimit.ai_per_hour", 10)
	viper.SetDefault("ratelimit.transcribe_per_hour", 20)
	viper.SetDefault("storage.root", "data/uploads")
	viper.SetDefault("storage.temp_dir", "data/uploads/temp")
	viper.SetDefault("ffmpeg.bin_path", "ffmpeg")
	viper.SetDefault("ffmpeg.probe_path", "ffprobe")
	viper.SetDefault("remote.scripts_dir", "/opt/cutroom/scripts")
	viper.SetDefault("remote.callback_base_url", "http://localhost:3333")
	viper.SetDefault("remote.trigger_connect_timeout", 10)
	viper.SetDefault("remote.transcribe_connect_timeout", 30)
	viper.SetDefault("remote.analyze_connect_timeout", 120)
	viper.SetDefault("remote.whisper_model", "base")
	viper.SetDefault("remote.whisper_language", "en")
	viper.SetDefault("remote.analyze_model", "sonnet")

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:     viper.GetString("server.port"),
			Env:      viper.GetString("server.env"),
			LogLevel: viper.GetString("server.log_level"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		Auth: AuthConfig{
			Enabled:   viper.GetBool("auth.enabled"),
			JWTSecret: viper.GetString("auth.jwt_secret"),
		},
		RateLimit: RateLimitConfig{
			UploadPerHour:     viper.GetInt("ratelimit.upload_per_hour"),
			ProcessPerHour:    viper.GetInt("ratelimit.process_per_hour"),
			AIPerHour:         viper.GetInt("ratelimit.ai_per_hour"),
			TranscribePerHour: viper.GetInt("ratelimit.transcribe_per_hour"),
		},
		Storage: StorageConfig{
			Root:         viper.GetString("storage.root"),
			HostDataRoot: viper.GetString("storage.host_data_root"),
			TempDir:      viper.GetString("storage.temp_dir"),
		},
		FFmpeg: FFmpegConfig{
			BinPath:   viper.GetString("ffmpeg.bin_path"),
			ProbePath: viper.GetString("ffmpeg.probe_path"),
		},
		Remote: RemoteConfig{
			Host:                     viper.GetString("remote.host"),
			User:                     viper.GetString("remote.user"),
			KeyPath:                  viper.GetString("remote.key_path"),
			ScriptsDir:               viper.GetString("remote.scripts_dir"),
			CallbackBaseURL:          viper.GetString("remote.callback_base_url"),
			TriggerConnectTimeout:    viper.GetInt("remote.trigger_connect_timeout"),
			TranscribeConnectTimeout: viper.GetInt("remote.transcribe_connect_timeout"),
			AnalyzeConnectTimeout:    viper.GetInt("remote.analyze_connect_timeout"),
			WhisperModel:             viper.GetString("remote.whisper_model"),
			WhisperLanguage:          viper.GetString("remote.whisper_language"),
			AnalyzeModel:             viper.GetString("remote.analyze_model"),
		},
		R2: R2Config{
			AccountID:       viper.GetString("r2.account_id"),
			AccessKeyID:     viper.GetString("r2.access_key_id"),
			SecretAccessKey: viper.GetString("r2.secret_access_key"),
			BucketName:      viper.GetString("r2.bucket_name"),
			PublicURL:       viper.GetString("r2.public_url"),
		},
	}

	return cfg, nil
}
