package memwatch

import (
	"context"
	"fmt"
	"os"

	"github.com/shirou/gopsutil/v3/process"
)

// Sampler reports the resident memory of the current process in bytes.
type Sampler interface {
	SampleResidentMemory(ctx context.Context) (uint64, error)
}

// SamplerFunc adapts a function to Sampler.
type SamplerFunc func(ctx context.Context) (uint64, error)

func (f SamplerFunc) SampleResidentMemory(ctx context.Context) (uint64, error) {
	return f(ctx)
}

// ProcessSampler reads RSS through the native per-OS process APIs.
type ProcessSampler struct {
	pid int32
}

// NewProcessSampler samples the calling process.
func NewProcessSampler() *ProcessSampler {
	return &ProcessSampler{pid: int32(os.Getpid())}
}

func (s *ProcessSampler) SampleResidentMemory(ctx context.Context) (uint64, error) {
	p, err := process.NewProcessWithContext(ctx, s.pid)
	if err != nil {
		return 0, fmt.Errorf("failed to open process %d: %w", s.pid, err)
	}
	info, err := p.MemoryInfoWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read memory info: %w", err)
	}
	return info.RSS, nil
}
