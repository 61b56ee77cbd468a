package action

import (
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/mineclover/context-action-sub008/backoff"
	"github.com/mineclover/context-action-sub008/hook"
	"github.com/mineclover/context-action-sub008/middleware"
	"github.com/mineclover/context-action-sub008/session"
)

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithLogger sets the pipeline logger. It is shared by the middleware
// chain, the hook registry, guards, and dispatch sessions.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) error {
		p.logger = l
		return nil
	}
}

// WithConfig replaces the pipeline configuration wholesale.
func WithConfig(cfg Config) Option {
	return func(p *Pipeline) error {
		p.config = cfg
		return nil
	}
}

// WithDefaultMode sets the execution mode used when a dispatch does not
// specify one.
func WithDefaultMode(m session.Mode) Option {
	return func(p *Pipeline) error {
		p.config.DefaultMode = m
		return nil
	}
}

// WithCollectResults sets whether dispatches retain per-handler
// outcomes by default.
func WithCollectResults(collect bool) Option {
	return func(p *Pipeline) error {
		p.config.CollectResults = collect
		return nil
	}
}

// WithMiddleware appends user middleware to the chain. User middleware
// runs inside the built-in logging middleware and outside the handler
// timeout.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(p *Pipeline) error {
		p.userMW = append(p.userMW, mws...)
		return nil
	}
}

// WithHook registers a lifecycle hook.
func WithHook(h hook.Hook) Option {
	return func(p *Pipeline) error {
		p.pendingHooks = append(p.pendingHooks, h)
		return nil
	}
}

// WithBackoff sets the retry backoff strategy for handler retries.
func WithBackoff(s backoff.Strategy) Option {
	return func(p *Pipeline) error {
		p.backoff = s
		return nil
	}
}

// WithTracerProvider sets a non-global TracerProvider for the built-in
// tracing middleware.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(p *Pipeline) error {
		p.tracer = tp.Tracer(instrumentationName)
		return nil
	}
}

// WithMeterProvider sets a non-global MeterProvider for the built-in
// metrics middleware.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(p *Pipeline) error {
		p.meter = mp.Meter(instrumentationName)
		return nil
	}
}
