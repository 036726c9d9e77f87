package config

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/akeren/waitlister-api/internal/log"
	"github.com/akeren/waitlister-api/pkg/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const (
	defaultOTLPEndpoint = "http://localhost:4318"
	defaultOTLPPath     = "/v1/traces"
)

// otlpEndpoint is the collector address split the way otlptracehttp wants it.
type otlpEndpoint struct {
	HostPort string
	Path     string
	Insecure bool
}

func (e otlpEndpoint) options() []otlptracehttp.Option {
	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(e.HostPort),
		otlptracehttp.WithURLPath(e.Path),
	}
	if e.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	return opts
}

type tracingConfig struct {
	ServiceName string
	Endpoint    otlpEndpoint
	SampleRatio float64
}

func newTracingConfig() (*tracingConfig, error) {
	endpoint, err := parseOTLPEndpoint(envString("OTEL_EXPORTER_OTLP_ENDPOINT", defaultOTLPEndpoint))
	if err != nil {
		return nil, err
	}

	ratio, err := parseSampleRatio(envString("OTEL_TRACES_SAMPLER_ARG", "1"))
	if err != nil {
		return nil, err
	}

	return &tracingConfig{
		ServiceName: utils.OTelServiceName(),
		Endpoint:    endpoint,
		SampleRatio: ratio,
	}, nil
}

// SetupTracing installs a global OTLP/HTTP tracer provider when
// OTEL_TRACES_ENABLED is true. The returned func flushes and stops it; it is
// nil when tracing is off.
func SetupTracing(logger *log.Logger) (func(context.Context) error, error) {
	if !utils.IsTracingEnabled() {
		return nil, nil
	}

	cfg, err := newTracingConfig()
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	exporter, err := otlptracehttp.New(ctx, cfg.Endpoint.options()...)
	if err != nil {
		return nil, fmt.Errorf("tracing exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(attribute.String("service.name", cfg.ServiceName)))
	if err != nil {
		return nil, fmt.Errorf("tracing resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	logger.Info("Tracing enabled",
		"service", cfg.ServiceName,
		"collector", cfg.Endpoint.HostPort+cfg.Endpoint.Path,
		"sample_ratio", cfg.SampleRatio,
	)
	return provider.Shutdown, nil
}

// parseOTLPEndpoint accepts http(s)://host:port[/path] or a bare host:port,
// which is treated as plain HTTP.
func parseOTLPEndpoint(raw string) (otlpEndpoint, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return otlpEndpoint{}, fmt.Errorf("OTLP endpoint is empty")
	}

	if !strings.Contains(raw, "://") {
		if strings.ContainsAny(raw, "/?#") {
			return otlpEndpoint{}, fmt.Errorf("OTLP endpoint %q has a path but no scheme", raw)
		}
		return otlpEndpoint{HostPort: raw, Path: defaultOTLPPath, Insecure: true}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return otlpEndpoint{}, fmt.Errorf("OTLP endpoint %q: %w", raw, err)
	}
	if u.Host == "" {
		return otlpEndpoint{}, fmt.Errorf("OTLP endpoint %q has no host", raw)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return otlpEndpoint{}, fmt.Errorf("OTLP endpoint %q: scheme must be http or https", raw)
	}

	path := u.EscapedPath()
	if path == "" || path == "/" {
		path = defaultOTLPPath
	}
	return otlpEndpoint{HostPort: u.Host, Path: path, Insecure: scheme == "http"}, nil
}

func parseSampleRatio(raw string) (float64, error) {
	ratio, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || ratio < 0 || ratio > 1 {
		return 0, fmt.Errorf("OTEL_TRACES_SAMPLER_ARG must be a number in [0, 1], got %q", raw)
	}
	return ratio, nil
}
