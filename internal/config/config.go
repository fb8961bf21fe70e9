package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"rigshift/internal/contract"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains local directory configuration.
type Paths struct {
	StateDir    string `toml:"state_dir"`
	LogDir      string `toml:"log_dir"`
	DownloadDir string `toml:"download_dir"`
}

// Service contains configuration for the remote distillation job service.
type Service struct {
	BaseURL        string `toml:"base_url"`
	RequestTimeout int    `toml:"request_timeout"`
	PollInterval   int    `toml:"poll_interval"`
}

// Model contains configuration for loading and running the retargeting model.
type Model struct {
	Path               string `toml:"path"`
	Backend            string `toml:"backend"`
	RuntimeLibrary     string `toml:"runtime_library"`
	IntraOpThreads     int    `toml:"intra_op_threads"`
	InferenceTimeoutMS int    `toml:"inference_timeout_ms"`
	Async              bool   `toml:"async"`
}

// Contract mirrors contract.Contract in TOML form.
type Contract struct {
	Name                string   `toml:"name"`
	Version             int      `toml:"version"`
	Joints              []string `toml:"joints"`
	UnitScale           float32  `toml:"unit_scale"`
	HeightJoints        []int    `toml:"height_joints"`
	VelocityEpsilon     float64  `toml:"velocity_epsilon"`
	VertexFallbackJoint int      `toml:"vertex_fallback_joint"`
	SequenceInput       string   `toml:"sequence_input"`
	OrientationInput    string   `toml:"orientation_input"`
	OffsetsInput        string   `toml:"offsets_input"`
	ShapeInput          string   `toml:"shape_input"`
	HeightInput         string   `toml:"height_input"`
	GlobalOutput        string   `toml:"global_output"`
	OrientationOutput   string   `toml:"orientation_output"`
}

// Retarget contains per-run defaults for the retarget command.
type Retarget struct {
	// ShapeMesh selects a mesh by name for shape extraction. Empty uses the
	// first skinned mesh of the target.
	ShapeMesh   string  `toml:"shape_mesh"`
	FallbackFPS float64 `toml:"fallback_fps"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for rigshift.
//
// Configuration sections by subsystem:
//   - Paths: state database, logs, and downloaded model artifacts
//   - Service: remote distillation job service
//   - Model: inference backend and model file
//   - Contract: joint convention and tensor names the model expects
//   - Retarget: retarget command defaults
//   - Logging: log format, level, and retention
type Config struct {
	Paths    Paths    `toml:"paths"`
	Service  Service  `toml:"service"`
	Model    Model    `toml:"model"`
	Contract Contract `toml:"contract"`
	Retarget Retarget `toml:"retarget"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("rigshift.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state, log, and download directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir, c.Paths.DownloadDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// JobsDBPath is the sqlite file that tracks the current distillation job.
func (c *Config) JobsDBPath() string {
	return filepath.Join(c.Paths.StateDir, "jobs.db")
}

// LockPath guards exclusive job polling.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "rigshift.lock")
}

// RequestTimeout returns the HTTP timeout for job service calls.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Service.RequestTimeout) * time.Second
}

// PollInterval returns the delay between job status polls.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Service.PollInterval) * time.Second
}

// InferenceTimeout returns the per-call inference deadline. Zero disables it.
func (c *Config) InferenceTimeout() time.Duration {
	return time.Duration(c.Model.InferenceTimeoutMS) * time.Millisecond
}

// ModelContract converts the [contract] section into a contract.Contract.
func (c *Config) ModelContract() contract.Contract {
	joints := make([]string, len(c.Contract.Joints))
	copy(joints, c.Contract.Joints)
	height := make([]int, len(c.Contract.HeightJoints))
	copy(height, c.Contract.HeightJoints)
	return contract.Contract{
		Name:                c.Contract.Name,
		Version:             c.Contract.Version,
		Joints:              joints,
		UnitScale:           c.Contract.UnitScale,
		HeightJoints:        height,
		VelocityEpsilon:     c.Contract.VelocityEpsilon,
		VertexFallbackJoint: c.Contract.VertexFallbackJoint,
		Inputs: contract.Inputs{
			Sequence:    c.Contract.SequenceInput,
			Orientation: c.Contract.OrientationInput,
			Offsets:     c.Contract.OffsetsInput,
			Shape:       c.Contract.ShapeInput,
			Height:      c.Contract.HeightInput,
		},
		Outputs: contract.Outputs{
			Global:      c.Contract.GlobalOutput,
			Orientation: c.Contract.OrientationOutput,
		},
	}
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
