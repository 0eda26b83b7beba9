package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"Server"`
	Database  DatabaseConfig  `mapstructure:"Database"`
	Recording RecordingConfig `mapstructure:"Recording"`
	Features  FeatureFlags    `mapstructure:"Features"`
}

type ServerConfig struct {
	Port string `mapstructure:"Port"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"Host"`
	Port     string `mapstructure:"Port"`
	User     string `mapstructure:"User"`
	Password string `mapstructure:"Password"`
	Name     string `mapstructure:"Name"`
	SSLMode  string `mapstructure:"SSLMode"`
}

type RecordingConfig struct {
	Bucket                    string `mapstructure:"Bucket"`
	ScreenWidth               int    `mapstructure:"ScreenWidth"`
	ScreenHeight              int    `mapstructure:"ScreenHeight"`
	AttendeeName              string `mapstructure:"AttendeeName"`
	PresignExpiresMinutes     int    `mapstructure:"PresignExpiresMinutes"`
	PlaybackSecurityProfileID string `mapstructure:"PlaybackSecurityProfileID"`
	TTLDays                   int    `mapstructure:"TTLDays"`

	ECSClusterARN        string `mapstructure:"ECSClusterARN"`
	ECSTaskDefinitionARN string `mapstructure:"ECSTaskDefinitionARN"`
	ECSContainerName     string `mapstructure:"ECSContainerName"`
	ECSAutoScalingGroup  string `mapstructure:"ECSAutoScalingGroup"`

	CacheTTLHours               int `mapstructure:"CacheTTLHours"`
	CacheRefreshCooldownMinutes int `mapstructure:"CacheRefreshCooldownMinutes"`
	PreWarmRetryDelaySeconds    int `mapstructure:"PreWarmRetryDelaySeconds"`
}

// FeatureFlags — флаги включения функциональности записи. Разрешаются один
// раз на старте, никаких строковых сентинелов в рантайме.
type FeatureFlags struct {
	RecordingStackDeployed bool `mapstructure:"RecordingStackDeployed"`
	StartStopEnabled       bool `mapstructure:"StartStopEnabled"`
	AutoStartEnabled       bool `mapstructure:"AutoStartEnabled"`
}

func NewConfig(path string) (*Config, error) {
	v := viper.New()

	// Устанавливаем файл конфигурации
	v.SetConfigFile(path)

	// Привязываем переменные окружения
	v.BindEnv("Database.Host", "DATABASE_HOST")
	v.BindEnv("Database.Port", "DATABASE_PORT")
	v.BindEnv("Database.User", "DATABASE_USER")
	v.BindEnv("Database.Password", "DATABASE_PASSWORD")
	v.BindEnv("Database.Name", "DATABASE_NAME")
	v.BindEnv("Database.SSLMode", "DATABASE_SSLMODE")
	v.BindEnv("Server.Port", "HTTP_PORT")
	v.BindEnv("Recording.Bucket", "RECORDING_BUCKET_NAME")
	v.BindEnv("Recording.ScreenWidth", "RECORDING_SCREEN_WIDTH")
	v.BindEnv("Recording.ScreenHeight", "RECORDING_SCREEN_HEIGHT")
	v.BindEnv("Recording.AttendeeName", "RECORDING_ATTENDEE_NAME")
	v.BindEnv("Recording.PresignExpiresMinutes", "RECORDING_PRESIGNED_URL_EXPIRES_MINUTES")
	v.BindEnv("Recording.PlaybackSecurityProfileID", "RECORDING_PLAYBACK_SECURITY_PROFILE_ID")
	v.BindEnv("Recording.TTLDays", "RECORDING_TTL_DAYS")
	v.BindEnv("Recording.CacheTTLHours", "RECORDING_CACHE_TTL_HOURS")
	v.BindEnv("Recording.CacheRefreshCooldownMinutes", "RECORDING_CACHE_REFRESH_COOLDOWN_MINUTES")
	v.BindEnv("Recording.PreWarmRetryDelaySeconds", "PREWARM_RETRY_DELAY_SECONDS")
	v.BindEnv("Recording.ECSClusterARN", "ECS_CLUSTER_ARN")
	v.BindEnv("Recording.ECSTaskDefinitionARN", "ECS_TASK_DEFINITION_ARN")
	v.BindEnv("Recording.ECSContainerName", "ECS_CONTAINER_NAME")
	v.BindEnv("Recording.ECSAutoScalingGroup", "ECS_ASG_NAME")
	v.BindEnv("Features.RecordingStackDeployed", "DEPLOY_RECORDING_STACK")
	v.BindEnv("Features.StartStopEnabled", "RECORDING_START_STOP_ENABLED")
	v.BindEnv("Features.AutoStartEnabled", "RECORDING_AUTO_START_ENABLED")

	// Читаем конфигурацию из файла
	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("Warning: using only environment variables: %v\n", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Значения по умолчанию
	if cfg.Server.Port == "" {
		cfg.Server.Port = "2525"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Recording.ScreenWidth == 0 {
		cfg.Recording.ScreenWidth = 1280
	}
	if cfg.Recording.ScreenHeight == 0 {
		cfg.Recording.ScreenHeight = 720
	}
	if cfg.Recording.AttendeeName == "" {
		cfg.Recording.AttendeeName = "recording-bot"
	}
	if cfg.Recording.PresignExpiresMinutes == 0 {
		cfg.Recording.PresignExpiresMinutes = 15
	}
	if cfg.Recording.TTLDays == 0 {
		cfg.Recording.TTLDays = 45
	}
	if cfg.Recording.CacheTTLHours == 0 {
		cfg.Recording.CacheTTLHours = 12
	}
	if cfg.Recording.CacheRefreshCooldownMinutes == 0 {
		cfg.Recording.CacheRefreshCooldownMinutes = 5
	}
	if cfg.Recording.PreWarmRetryDelaySeconds == 0 {
		cfg.Recording.PreWarmRetryDelaySeconds = 5
	}

	// Проверяем, что все необходимые поля заполнены
	if cfg.Database.Host == "" ||
		cfg.Database.Port == "" ||
		cfg.Database.User == "" ||
		cfg.Database.Password == "" ||
		cfg.Database.Name == "" {
		return nil, fmt.Errorf("database configuration is incomplete: host=%s, port=%s, user=%s, name=%s",
			cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Name)
	}

	if cfg.Recording.Bucket == "" {
		return nil, fmt.Errorf("recording bucket is required")
	}

	return &cfg, nil
}

func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Name,
		c.SSLMode,
	)
}
