package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizePackage()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir()
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizePackage() {
	c.Package.Creator = firstNonEmpty(c.Package.Creator, os.Getenv("IMFPACK_CREATOR"), defaultCreator)
	c.Package.Issuer = firstNonEmpty(c.Package.Issuer, os.Getenv("IMFPACK_ISSUER"), defaultIssuer)
	c.Package.ContentOriginator = strings.TrimSpace(c.Package.ContentOriginator)
	c.Package.ContentKind = strings.ToLower(firstNonEmpty(c.Package.ContentKind, defaultContentKind))
	c.Package.EditRate = firstNonEmpty(c.Package.EditRate, defaultEditRate)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(firstNonEmpty(c.Logging.Format, defaultLogFormat))
	c.Logging.Level = strings.ToLower(firstNonEmpty(c.Logging.Level, defaultLogLevel))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
