package config

import (
	"errors"
	"fmt"
	"slices"

	"imfpack/internal/assets"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePackage(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePackage() error {
	if !slices.Contains(ContentKinds, c.Package.ContentKind) {
		return fmt.Errorf("package.content_kind %q is not supported (supported: %v)", c.Package.ContentKind, ContentKinds)
	}
	if _, err := c.EditRate(); err != nil {
		return fmt.Errorf("package.edit_rate: %w", err)
	}
	if c.Package.DigestWorkers < 0 {
		return errors.New("package.digest_workers must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

// EditRate parses the configured fallback edit rate.
func (c *Config) EditRate() (assets.Rational, error) {
	r, err := assets.ParseRational(c.Package.EditRate)
	if err != nil {
		return assets.Rational{}, err
	}
	if !r.Valid() {
		return assets.Rational{}, errors.New("edit rate must be set")
	}
	return r, nil
}
