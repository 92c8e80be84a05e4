package dsssmodem

import (
	"os"

	"github.com/hashicorp/go-version"
	"gopkg.in/yaml.v3"
)

// ConfigSchemaVersion is the version this binary's Config struct
// understands. Config files declaring a newer schema_version are
// rejected rather than silently misread.
const ConfigSchemaVersion = "1.0.0"

// Config pins the production constants that vary across deployments:
// SNR/threshold/decimation/training values that a hardcoded default
// would get wrong for some channel. Nothing in this module
// infers these from a test harness.
type Config struct {
	SchemaVersion string          `yaml:"schema_version"`
	Channel       ChannelConfig   `yaml:"channel"`
	Sync          SyncConfig      `yaml:"sync"`
	Equalizer     EqualizerConfig `yaml:"equalizer"`
	Filter        FilterConfig    `yaml:"filter"`
	PilotCode     GoldCodeConfig  `yaml:"pilot_code"`
	DataCode      LFSRConfig      `yaml:"data_code"`
}

// LFSRConfig pins a single LFSR's degree, polynomial, and initial
// state, used for the data-spreading code (as opposed to the two-LFSR
// Gold pilot).
type LFSRConfig struct {
	Degree int    `yaml:"degree"`
	Poly   uint32 `yaml:"poly"`
	Init   uint32 `yaml:"init"`
}

// GoldCodeConfig pins the two-LFSR Gold-code pilot generator's
// degree, polynomials, and initial states, and the pilot length in
// chips.
type GoldCodeConfig struct {
	Degree     int    `yaml:"degree"`
	PolyA      uint32 `yaml:"poly_a"`
	InitA      uint32 `yaml:"init_a"`
	PolyB      uint32 `yaml:"poly_b"`
	InitB      uint32 `yaml:"init_b"`
	PilotChips int    `yaml:"pilot_chips"`
}

// ChannelConfig describes the audio-band sample stream the modem
// operates over.
type ChannelConfig struct {
	SampleRateHz   float64 `yaml:"sample_rate_hz"`
	CarrierHz      float64 `yaml:"carrier_hz"`
	ChipSamples    int     `yaml:"chip_samples"`
	ConstellationM int     `yaml:"constellation_m"`
	ChipsPerSymbol int     `yaml:"chips_per_symbol"`
}

// SyncConfig pins the synchronizer's decimation, peak-detection
// threshold, and local refine window. Only Decimation is read by the
// CLI driver; pilotsync.FindHighestEnergyOffset refines over
// ±decimation samples and applies no threshold, so RefineWindow and
// PeakThreshold currently have no effect on it.
type SyncConfig struct {
	Decimation      int     `yaml:"decimation"`
	RefineWindow    int     `yaml:"refine_window"`
	PeakThreshold   float64 `yaml:"peak_threshold"`
}

// EqualizerConfig pins the DFE's tap counts, step size, and training
// length.
type EqualizerConfig struct {
	FeedforwardTaps int     `yaml:"feedforward_taps"`
	FeedbackTaps    int     `yaml:"feedback_taps"`
	StepSize        float64 `yaml:"step_size"`
	Epsilon         float64 `yaml:"epsilon"`
	TrainingSymbols int     `yaml:"training_symbols"`
	Iterations      int     `yaml:"iterations"`
}

// FilterConfig pins the Kaiser design parameters for the wideband,
// narrowband, and lowpass filters the transmit/receive chains share.
type FilterConfig struct {
	StopbandAttenuationDB float64 `yaml:"stopband_attenuation_db"`
	PassbandRippleDB      float64 `yaml:"passband_ripple_db"`
}

// DefaultConfig returns the pinned defaults used when no config file
// is supplied.
func DefaultConfig() *Config {
	return &Config{
		SchemaVersion: ConfigSchemaVersion,
		Channel: ChannelConfig{
			SampleRateHz:   48000,
			CarrierHz:      12000,
			ChipSamples:    8,
			ConstellationM: 2,
			ChipsPerSymbol: 31,
		},
		Sync: SyncConfig{
			Decimation:    16,
			RefineWindow:  32,
			PeakThreshold: 0.25,
		},
		Equalizer: EqualizerConfig{
			FeedforwardTaps: 10,
			FeedbackTaps:    5,
			StepSize:        0.01,
			Epsilon:         1e-6,
			TrainingSymbols: 32,
			Iterations:      1,
		},
		Filter: FilterConfig{
			StopbandAttenuationDB: 80,
			PassbandRippleDB:      0.1,
		},
		PilotCode: GoldCodeConfig{
			Degree:     7,
			PolyA:      0x12000000,
			InitA:      0x40000000,
			PolyB:      0x1E000000,
			InitB:      0x40000000,
			PilotChips: 127,
		},
		DataCode: LFSRConfig{
			Degree: 5,
			Poly:   0x14000000,
			Init:   0x08000000,
		},
	}
}

// LoadConfig reads and validates a yaml config file, falling back to
// DefaultConfig for any zero-valued section left unspecified.
func LoadConfig(path string) (*Config, error) {
	const op = "LoadConfig"

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapError(op, IO, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, WrapError(op, InvalidArgument, err)
	}

	if cfg.SchemaVersion == "" {
		cfg.SchemaVersion = ConfigSchemaVersion
	}
	if err := cfg.checkSchemaVersion(); err != nil {
		return nil, WrapError(op, InvalidArgument, err)
	}

	return cfg, nil
}

// checkSchemaVersion rejects config files declaring a schema newer
// than this binary understands.
func (c *Config) checkSchemaVersion() error {
	have, err := version.NewVersion(ConfigSchemaVersion)
	if err != nil {
		return err
	}
	declared, err := version.NewVersion(c.SchemaVersion)
	if err != nil {
		return err
	}
	if declared.GreaterThan(have) {
		return NewError("checkSchemaVersion", InvalidArgument)
	}
	return nil
}
