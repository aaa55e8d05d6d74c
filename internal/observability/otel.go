package observability

import (
	"context"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"

	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/logger"
)

// OtelConfig carries the identity attributes stamped on every span;
// transport settings (endpoint, headers, sampling) come from the standard
// OTEL_* environment variables so they can differ per deployment.
type OtelConfig struct {
	ServiceName string
	Environment string
	Version     string
}

// envSettings is the env-derived part of the tracing setup, read once.
type envSettings struct {
	enabled     bool
	endpoint    string
	headers     map[string]string
	insecure    bool
	sampleRatio float64
}

var (
	otelOnce     sync.Once
	otelShutdown func(context.Context) error
)

// InitOTel wires a global tracer provider for the crawl and recommendation
// spans. Tracing is opt-in via OTEL_ENABLED; when no OTLP endpoint is set
// spans go to stdout so local runs stay inspectable. Safe to call more
// than once; only the first call does anything. Returns nil when tracing
// is disabled.
func InitOTel(ctx context.Context, log *logger.Logger, cfg OtelConfig) func(context.Context) error {
	otelOnce.Do(func() {
		env := readEnvSettings()
		if !env.enabled {
			return
		}
		if cfg.ServiceName = strings.TrimSpace(cfg.ServiceName); cfg.ServiceName == "" {
			cfg.ServiceName = "lms-pipeline"
		}

		res, err := resource.New(ctx, resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(strings.TrimSpace(cfg.Version)),
			attribute.String("deployment.environment", strings.TrimSpace(cfg.Environment)),
		))
		if err != nil && log != nil {
			log.Warn("otel resource init failed (continuing)", "error", err)
		}

		sampler := sdktrace.ParentBased(sdktrace.TraceIDRatioBased(env.sampleRatio))
		opts := []sdktrace.TracerProviderOption{
			sdktrace.WithSampler(sampler),
			sdktrace.WithResource(res),
		}
		if exporter := newExporter(ctx, log, env); exporter != nil {
			opts = append(opts, sdktrace.WithBatcher(exporter,
				sdktrace.WithBatchTimeout(5*time.Second)))
		}

		tp := sdktrace.NewTracerProvider(opts...)
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))
		otelShutdown = tp.Shutdown

		if log != nil {
			log.Info("otel tracing initialized",
				"service", cfg.ServiceName,
				"endpoint", env.endpoint,
				"sample_ratio", env.sampleRatio,
			)
		}
	})
	return otelShutdown
}

func newExporter(ctx context.Context, log *logger.Logger, env envSettings) sdktrace.SpanExporter {
	if env.endpoint != "" {
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(env.endpoint)}
		if env.insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		if len(env.headers) > 0 {
			opts = append(opts, otlptracehttp.WithHeaders(env.headers))
		}
		exp, err := otlptracehttp.New(ctx, opts...)
		if err == nil {
			return exp
		}
		if log != nil {
			log.Warn("otlp exporter init failed, falling back to stdout", "error", err)
		}
	}
	exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		if log != nil {
			log.Warn("otel exporter init failed (spans will be dropped)", "error", err)
		}
		return nil
	}
	if log != nil && env.endpoint == "" {
		log.Warn("otel using stdout exporter (no OTLP endpoint configured)")
	}
	return exp
}

func readEnvSettings() envSettings {
	s := envSettings{
		enabled:     envBool("OTEL_ENABLED"),
		endpoint:    strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
		insecure:    envBool("OTEL_EXPORTER_OTLP_INSECURE"),
		sampleRatio: 0.1,
	}
	if raw := strings.TrimSpace(os.Getenv("OTEL_SAMPLER_RATIO")); raw != "" {
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			s.sampleRatio = min(max(f, 0), 1)
		}
	}
	if raw := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")); raw != "" {
		headers := map[string]string{}
		for _, pair := range strings.Split(raw, ",") {
			key, val, ok := strings.Cut(pair, "=")
			key, val = strings.TrimSpace(key), strings.TrimSpace(val)
			if ok && key != "" && val != "" {
				headers[key] = val
			}
		}
		if len(headers) > 0 {
			s.headers = headers
		}
	}
	return s
}

func envBool(key string) bool {
	switch strings.TrimSpace(strings.ToLower(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
