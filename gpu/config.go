package gpu

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config holds the structural parameters of a Device.
type Config struct {
	// NumCores is the number of compute cores.
	NumCores int `json:"num_cores"`

	// ThreadsPerBlock is the number of SIMD lanes per core, and therefore
	// the maximum thread count of one block.
	ThreadsPerBlock int `json:"threads_per_block"`

	// ProgramChannels is the number of program memory channels.
	ProgramChannels int `json:"program_channels"`

	// DataChannels is the number of data memory channels.
	DataChannels int `json:"data_channels"`

	// ProgramLatency is the program memory access latency in cycles.
	ProgramLatency int `json:"program_latency"`

	// DataLatency is the data memory access latency in cycles.
	DataLatency int `json:"data_latency"`

	// MemorySize is the number of words in each memory (8-bit address
	// space, so at most 256).
	MemorySize int `json:"memory_size"`
}

// DefaultConfig returns the reference configuration: 2 cores of 4 lanes,
// 1 program channel, 4 data channels, single-cycle 256-word memories.
func DefaultConfig() Config {
	return Config{
		NumCores:        2,
		ThreadsPerBlock: 4,
		ProgramChannels: 1,
		DataChannels:    4,
		ProgramLatency:  1,
		DataLatency:     1,
		MemorySize:      256,
	}
}

// Validate checks the configuration for structural errors.
func (c Config) Validate() error {
	if c.NumCores <= 0 {
		return fmt.Errorf("gpu: num_cores must be positive, got %d", c.NumCores)
	}
	if c.ThreadsPerBlock <= 0 {
		return fmt.Errorf("gpu: threads_per_block must be positive, got %d",
			c.ThreadsPerBlock)
	}
	if c.ProgramChannels <= 0 || c.DataChannels <= 0 {
		return fmt.Errorf("gpu: channel counts must be positive, got %d/%d",
			c.ProgramChannels, c.DataChannels)
	}
	if c.ProgramLatency < 0 || c.DataLatency < 0 {
		return fmt.Errorf("gpu: memory latencies must be non-negative, got %d/%d",
			c.ProgramLatency, c.DataLatency)
	}
	if c.MemorySize <= 0 || c.MemorySize > 256 {
		return fmt.Errorf("gpu: memory_size must be in [1, 256], got %d",
			c.MemorySize)
	}
	return nil
}

// LoadConfig reads a Config from a JSON file. Fields missing from the file
// keep their default values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("gpu: reading config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("gpu: parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}
