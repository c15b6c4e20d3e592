package config

import (
	"context"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// configCounter is created lazily so that Load can run before the meter
// provider is installed; in that case events are simply dropped.
var configCounter = sync.OnceValue(func() metric.Int64Counter {
	counter, err := otel.Meter("passport").Int64Counter("config.validation.events")
	if err != nil {
		return nil
	}
	return counter
})

func recordConfigValidationEvent(ctx context.Context, profile, outcome, errorClass string) {
	counter := configCounter()
	if counter == nil {
		return
	}
	counter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("profile", normalizeConfigProfile(profile)),
		attribute.String("outcome", outcome),
		attribute.String("error_class", errorClass),
	))
}

func normalizeConfigProfile(profile string) string {
	p := strings.ToLower(strings.TrimSpace(profile))
	if p == "" {
		return "unknown"
	}
	return p
}

func classifyConfigLoadError(err error) string {
	if err == nil {
		return "none"
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "validate config:") {
		return "validation"
	}
	if strings.Contains(msg, "parse ") {
		return "parse"
	}
	return "load"
}
