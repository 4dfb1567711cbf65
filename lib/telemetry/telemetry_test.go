package telemetry

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupWithoutEndpoints(t *testing.T) {
	tel, err := Setup(context.Background(), "test:telemetry", Config{})
	require.NoError(t, err)
	require.Nil(t, tel.TracerProvider)
	require.Nil(t, tel.MeterProvider)
	require.NoError(t, tel.Shutdown(context.Background()))
}

func TestInitSlogLevel(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	var buf bytes.Buffer
	InitSlogTo(&buf, false)
	slog.Debug("hidden")
	slog.Info("shown")
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "shown")

	buf.Reset()
	InitSlogTo(&buf, true)
	slog.Debug("visible now")
	require.Contains(t, buf.String(), "visible now")
}

func TestEndpointProtocol(t *testing.T) {
	require.False(t, Endpoint{}.enabled())
	require.Equal(t, "http", Endpoint{HttpEndpoint: "http://localhost:4318"}.protocol())
	require.Equal(t, "grpc", Endpoint{GrpcEndpoint: "http://localhost:4317", HttpEndpoint: "http://localhost:4318"}.protocol())
}
