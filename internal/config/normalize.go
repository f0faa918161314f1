package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeService()
	c.normalizeLogging()
	c.Merge.ChunkGroup = strings.TrimSpace(c.Merge.ChunkGroup)
	if c.Merge.ChunkGroup == "" {
		c.Merge.ChunkGroup = defaultMergeGroup
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.OutputDir, err = ExpandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = ExpandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeService() {
	c.Service.Scheme = strings.ToLower(strings.TrimSpace(c.Service.Scheme))
	if c.Service.Scheme == "" {
		c.Service.Scheme = defaultServiceScheme
	}
	c.Service.Host = strings.TrimSpace(c.Service.Host)
	c.Service.Model = strings.TrimSpace(c.Service.Model)

	prefix := strings.TrimSpace(c.Service.PathPrefix)
	if prefix != "" && !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	c.Service.PathPrefix = strings.TrimSuffix(prefix, "/")
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
