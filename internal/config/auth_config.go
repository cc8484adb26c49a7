package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type AuthConfig struct {
	JwksURL  string `mapstructure:"jwks_url"`
	Issuer   string `mapstructure:"issuer"`
	Audience string `mapstructure:"audience"`
}

func (config AuthConfig) validate() error {
	if config.JwksURL == "" {
		return fmt.Errorf("missing variable: jwks_url")
	}
	return nil
}

func (config AuthConfig) bindEnvironmentVariables() error {

	err := viper.BindEnv("auth.jwks_url", "AUTH_JWKS_URL")
	if err != nil {
		return err
	}

	err = viper.BindEnv("auth.issuer", "AUTH_ISSUER")
	if err != nil {
		return err
	}

	return viper.BindEnv("auth.audience", "AUTH_AUDIENCE")
}
