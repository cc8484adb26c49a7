package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type EmailConfig struct {
	Region            string  `mapstructure:"region"`
	Sender            string  `mapstructure:"sender"`
	MaxSendsPerSecond float32 `mapstructure:"max_sends_per_second"`
}

func (config EmailConfig) validate() error {

	var missingFields []string

	if config.Region == "" {
		missingFields = append(missingFields, "region")
	}

	if config.Sender == "" {
		missingFields = append(missingFields, "sender")
	}

	if len(missingFields) > 0 {
		return fmt.Errorf("missing required variables: %s", strings.Join(missingFields, ", "))
	}

	return nil
}

func (config EmailConfig) bindEnvironmentVariables() error {

	err := viper.BindEnv("email.region", "AWS_REGION")
	if err != nil {
		return err
	}

	err = viper.BindEnv("email.sender", "SES_SENDER_EMAIL")
	if err != nil {
		return err
	}

	return viper.BindEnv("email.max_sends_per_second", "SES_MAX_SENDS_PER_SECOND")
}
