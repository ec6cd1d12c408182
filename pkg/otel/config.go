package otel

import (
	"go.opentelemetry.io/otel/attribute"
)

type Config struct {
	ServiceName string
	EndpointURL string
	Enabled     bool
	SampleRatio float64
	Insecure    bool
	Environment string
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "unknown-service",
		EndpointURL: "",
		Enabled:     false,
		SampleRatio: 1.0,
		Insecure:    true,
	}
}

func (c Config) toResourceAttributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("service.name", c.ServiceName),
	}
	if c.Environment != "" {
		attrs = append(attrs, attribute.String("deployment.environment", c.Environment))
	}
	return attrs
}
