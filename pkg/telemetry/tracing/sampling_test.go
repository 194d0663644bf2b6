package tracing

import (
	"testing"
)

func TestCreateSampler(t *testing.T) {
	tests := []struct {
		name     string
		strategy string
		ratio    float64
		wantErr  bool
	}{
		{
			name:     "always sampler",
			strategy: SamplerAlways,
			ratio:    0.0,
			wantErr:  false,
		},
		{
			name:     "never sampler",
			strategy: SamplerNever,
			ratio:    0.0,
			wantErr:  false,
		},
		{
			name:     "ratio zero",
			strategy: SamplerRatio,
			ratio:    0.0,
			wantErr:  false,
		},
		{
			name:     "ratio half",
			strategy: SamplerRatio,
			ratio:    0.5,
			wantErr:  false,
		},
		{
			name:     "ratio one",
			strategy: SamplerRatio,
			ratio:    1.0,
			wantErr:  false,
		},
		{
			name:     "negative ratio",
			strategy: SamplerRatio,
			ratio:    -0.1,
			wantErr:  true,
		},
		{
			name:     "ratio above one",
			strategy: SamplerRatio,
			ratio:    1.5,
			wantErr:  true,
		},
		{
			name:     "unknown strategy",
			strategy: "unknown",
			ratio:    0.5,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sampler, err := createSampler(tt.strategy, tt.ratio)
			if (err != nil) != tt.wantErr {
				t.Errorf("createSampler() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr && sampler == nil {
				t.Error("createSampler() returned nil sampler without error")
			}
		})
	}
}
