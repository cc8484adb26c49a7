package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Address        string `mapstructure:"address"`
	MetricsAddress string `mapstructure:"metrics_address"`
	AppURL         string `mapstructure:"app_url"`
}

func (config ServerConfig) validate() error {

	var missingFields []string

	if config.Address == "" {
		missingFields = append(missingFields, "address")
	}

	if config.AppURL == "" {
		missingFields = append(missingFields, "app_url")
	}

	if len(missingFields) > 0 {
		return fmt.Errorf("missing required variables: %s", strings.Join(missingFields, ", "))
	}

	return nil
}

func (config ServerConfig) bindEnvironmentVariables() error {

	err := viper.BindEnv("server.address", "SERVER_ADDRESS")
	if err != nil {
		return err
	}

	err = viper.BindEnv("server.metrics_address", "METRICS_ADDRESS")
	if err != nil {
		return err
	}

	return viper.BindEnv("server.app_url", "APP_URL")
}
