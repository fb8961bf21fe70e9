package config

import "rigshift/internal/contract"

const (
	defaultConfigPath          = "~/.config/rigshift/config.toml"
	defaultStateDir            = "~/.local/share/rigshift"
	defaultLogDir              = "~/.local/share/rigshift/logs"
	defaultDownloadDir         = "~/.local/share/rigshift/models"
	defaultServiceBaseURL      = "http://127.0.0.1:8000"
	defaultRequestTimeout      = 30
	defaultPollInterval        = 5
	defaultModelBackend        = "cpu"
	defaultIntraOpThreads      = 1
	defaultInferenceTimeoutMS  = 0
	defaultRetargetFallbackFPS = 30
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultLogRetentionDays    = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	c := contract.Default()
	return Config{
		Paths: Paths{
			StateDir:    defaultStateDir,
			LogDir:      defaultLogDir,
			DownloadDir: defaultDownloadDir,
		},
		Service: Service{
			BaseURL:        defaultServiceBaseURL,
			RequestTimeout: defaultRequestTimeout,
			PollInterval:   defaultPollInterval,
		},
		Model: Model{
			Backend:            defaultModelBackend,
			IntraOpThreads:     defaultIntraOpThreads,
			InferenceTimeoutMS: defaultInferenceTimeoutMS,
		},
		Contract: Contract{
			Name:                c.Name,
			Version:             c.Version,
			Joints:              c.Joints,
			UnitScale:           c.UnitScale,
			HeightJoints:        c.HeightJoints,
			VelocityEpsilon:     c.VelocityEpsilon,
			VertexFallbackJoint: c.VertexFallbackJoint,
			SequenceInput:       c.Inputs.Sequence,
			OrientationInput:    c.Inputs.Orientation,
			OffsetsInput:        c.Inputs.Offsets,
			ShapeInput:          c.Inputs.Shape,
			HeightInput:         c.Inputs.Height,
			GlobalOutput:        c.Outputs.Global,
			OrientationOutput:   c.Outputs.Orientation,
		},
		Retarget: Retarget{
			FallbackFPS: defaultRetargetFallbackFPS,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
