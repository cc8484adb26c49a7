package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type NewsletterConfig struct {
	BatchSize             int           `mapstructure:"batch_size"`
	DispatchInterval      time.Duration `mapstructure:"dispatch_interval"`
	ListingExpirationDays int           `mapstructure:"listing_expiration_days"`
}

func (config NewsletterConfig) validate() error {

	if config.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be greater than zero")
	}

	if config.ListingExpirationDays <= 0 {
		return fmt.Errorf("listing_expiration_days must be greater than zero")
	}

	return nil
}

func (config NewsletterConfig) bindEnvironmentVariables() error {

	err := viper.BindEnv("newsletter.batch_size", "NEWSLETTER_BATCH_SIZE")
	if err != nil {
		return err
	}

	err = viper.BindEnv("newsletter.dispatch_interval", "NEWSLETTER_DISPATCH_INTERVAL")
	if err != nil {
		return err
	}

	return viper.BindEnv("newsletter.listing_expiration_days", "LISTING_EXPIRATION_DAYS")
}
