package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeBinaries()
	c.normalizeOperations()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.LibraryDir, err = expandPath(c.Paths.LibraryDir); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DatabaseDir) == "" {
		c.Paths.DatabaseDir = defaultDatabaseDir
	}
	if c.Paths.DatabaseDir, err = expandPath(c.Paths.DatabaseDir); err != nil {
		return fmt.Errorf("paths.database_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeBinaries() {
	if c.Downloader.Binary = strings.TrimSpace(c.Downloader.Binary); c.Downloader.Binary == "" {
		c.Downloader.Binary = defaultDownloaderBinary
	}
	if c.FFmpeg.Binary = strings.TrimSpace(c.FFmpeg.Binary); c.FFmpeg.Binary == "" {
		c.FFmpeg.Binary = defaultFFmpegBinary
	}
	if c.Update.PipBinary = strings.TrimSpace(c.Update.PipBinary); c.Update.PipBinary == "" {
		c.Update.PipBinary = defaultPipBinary
	}
	if c.Update.Package = strings.TrimSpace(c.Update.Package); c.Update.Package == "" {
		c.Update.Package = defaultUpdatePackage
	}
}

func (c *Config) normalizeOperations() {
	if c.Operations.ReconcileIntervalMS <= 0 {
		c.Operations.ReconcileIntervalMS = defaultReconcileIntervalMS
	}
	if c.Operations.SubprocessIntervalMS <= 0 {
		c.Operations.SubprocessIntervalMS = defaultSubprocessIntervalMS
	}
	if c.FFmpeg.ProbeTimeoutSeconds <= 0 {
		c.FFmpeg.ProbeTimeoutSeconds = defaultProbeTimeoutSeconds
	}
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
