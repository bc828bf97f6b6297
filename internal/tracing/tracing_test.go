package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/termdock/termdock/internal/config"
)

func TestDisabledProviderIsNoop(t *testing.T) {
	p, err := NewProvider(config.TracingConfig{Enabled: false})
	require.NoError(t, err)
	require.False(t, p.Enabled())

	_, span := p.Tracer().Start(context.Background(), "open_session")
	require.False(t, span.SpanContext().IsValid())
	span.End()

	require.NoError(t, p.Shutdown(context.Background()))
}

func TestStdoutExporterProvider(t *testing.T) {
	p, err := NewProvider(config.TracingConfig{
		Enabled:    true,
		Exporter:   "stdout",
		SampleRate: 1.0,
	})
	require.NoError(t, err)
	require.True(t, p.Enabled())

	_, span := p.Tracer().Start(context.Background(), "open_session")
	require.True(t, span.SpanContext().IsValid())
	span.End()

	require.NoError(t, p.Shutdown(context.Background()))
}

func TestUnknownExporterRejected(t *testing.T) {
	_, err := NewProvider(config.TracingConfig{Enabled: true, Exporter: "carrier-pigeon"})
	require.Error(t, err)
}
