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
	c.normalizeService()
	if err := c.normalizeModel(); err != nil {
		return err
	}
	c.normalizeContract()
	c.normalizeRetarget()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DownloadDir) == "" {
		c.Paths.DownloadDir = defaultDownloadDir
	}
	if c.Paths.DownloadDir, err = expandPath(c.Paths.DownloadDir); err != nil {
		return fmt.Errorf("paths.download_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeService() {
	if value, ok := os.LookupEnv("RIGSHIFT_SERVICE_URL"); ok && strings.TrimSpace(value) != "" {
		c.Service.BaseURL = value
	}
	c.Service.BaseURL = strings.TrimRight(strings.TrimSpace(c.Service.BaseURL), "/")
	if c.Service.BaseURL == "" {
		c.Service.BaseURL = defaultServiceBaseURL
	}
	if c.Service.RequestTimeout <= 0 {
		c.Service.RequestTimeout = defaultRequestTimeout
	}
	if c.Service.PollInterval <= 0 {
		c.Service.PollInterval = defaultPollInterval
	}
}

func (c *Config) normalizeModel() error {
	var err error
	if c.Model.Path, err = expandPath(strings.TrimSpace(c.Model.Path)); err != nil {
		return fmt.Errorf("model.path: %w", err)
	}
	c.Model.Backend = strings.ToLower(strings.TrimSpace(c.Model.Backend))
	if c.Model.Backend == "" {
		c.Model.Backend = defaultModelBackend
	}
	c.Model.RuntimeLibrary = strings.TrimSpace(c.Model.RuntimeLibrary)
	if c.Model.RuntimeLibrary == "" {
		if value, ok := os.LookupEnv("ONNXRUNTIME_SHARED_LIBRARY_PATH"); ok {
			c.Model.RuntimeLibrary = strings.TrimSpace(value)
		}
	}
	if c.Model.RuntimeLibrary, err = expandPath(c.Model.RuntimeLibrary); err != nil {
		return fmt.Errorf("model.runtime_library: %w", err)
	}
	if c.Model.IntraOpThreads == 0 {
		c.Model.IntraOpThreads = defaultIntraOpThreads
	}
	return nil
}

func (c *Config) normalizeContract() {
	c.Contract.Name = strings.TrimSpace(c.Contract.Name)
	for i, joint := range c.Contract.Joints {
		c.Contract.Joints[i] = strings.TrimSpace(joint)
	}
	c.Contract.SequenceInput = strings.TrimSpace(c.Contract.SequenceInput)
	c.Contract.OrientationInput = strings.TrimSpace(c.Contract.OrientationInput)
	c.Contract.OffsetsInput = strings.TrimSpace(c.Contract.OffsetsInput)
	c.Contract.ShapeInput = strings.TrimSpace(c.Contract.ShapeInput)
	c.Contract.HeightInput = strings.TrimSpace(c.Contract.HeightInput)
	c.Contract.GlobalOutput = strings.TrimSpace(c.Contract.GlobalOutput)
	c.Contract.OrientationOutput = strings.TrimSpace(c.Contract.OrientationOutput)
}

func (c *Config) normalizeRetarget() {
	c.Retarget.ShapeMesh = strings.TrimSpace(c.Retarget.ShapeMesh)
	if c.Retarget.FallbackFPS <= 0 {
		c.Retarget.FallbackFPS = defaultRetargetFallbackFPS
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
