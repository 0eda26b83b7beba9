package platform

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Region            string `mapstructure:"Region"`
	ConnectInstanceID string `mapstructure:"ConnectInstanceID"`
	AccessKeyID       string `mapstructure:"AccessKeyID"`
	SecretAccessKey   string `mapstructure:"SecretAccessKey"`
}

func NewConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.BindEnv("Region", "AWS_REGION")
	v.BindEnv("ConnectInstanceID", "CONNECT_INSTANCE_ID")
	v.BindEnv("AccessKeyID", "AWS_ACCESS_KEY_ID")
	v.BindEnv("SecretAccessKey", "AWS_SECRET_ACCESS_KEY")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("Warning: using only environment variables: %v\n", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("cannot unmarshal config: %w", err)
	}

	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	// Проверяем, что все необходимые поля заполнены
	if cfg.ConnectInstanceID == "" {
		return nil, fmt.Errorf("ConnectInstanceID is required")
	}

	return &cfg, nil
}
