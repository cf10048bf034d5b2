package tracing

import (
	"fmt"

	"mercator-hq/predicate/pkg/config"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Sampling strategies accepted in telemetry.tracing.sampler.
const (
	SamplerAlways = "always"
	SamplerNever  = "never"
	SamplerRatio  = "ratio"
)

// samplerFor returns the root sampler named by cfg, wrapped so that spans
// under a remote parent follow the parent's decision. An empty sampler name
// means always.
func samplerFor(cfg *config.TracingConfig) (sdktrace.Sampler, error) {
	root, err := rootSampler(cfg.Sampler, cfg.SampleRatio)
	if err != nil {
		return nil, err
	}
	return sdktrace.ParentBased(root), nil
}

func rootSampler(name string, ratio float64) (sdktrace.Sampler, error) {
	switch name {
	case "", SamplerAlways:
		return sdktrace.AlwaysSample(), nil
	case SamplerNever:
		return sdktrace.NeverSample(), nil
	case SamplerRatio:
		if ratio < 0 || ratio > 1 {
			return nil, fmt.Errorf("sample_ratio %g outside [0, 1]", ratio)
		}
		return sdktrace.TraceIDRatioBased(ratio), nil
	}
	return nil, fmt.Errorf("unknown sampler %q", name)
}
