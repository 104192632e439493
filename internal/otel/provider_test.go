package otel

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/log"
)

func TestNewDisabled(t *testing.T) {
	p, err := New(Config{Enabled: false})
	require.NoError(t, err)

	assert.Nil(t, p.LoggerProvider())
	assert.NoError(t, p.Flush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNewEnabledRequiresOutput(t *testing.T) {
	_, err := New(Config{Enabled: true, ServiceName: "cansim"})
	assert.Error(t, err)
}

func TestNewEnabledWithWriter(t *testing.T) {
	var buf bytes.Buffer
	p, err := New(Config{
		Enabled:      true,
		ServiceName:  "cansim",
		BatchTimeout: time.Second,
		LogWriter:    &buf,
	})
	require.NoError(t, err)
	require.NotNil(t, p.LoggerProvider())

	var record log.Record
	record.SetBody(log.StringValue("test log entry"))
	record.SetSeverity(log.SeverityInfo)
	p.LoggerProvider().Logger("test").Emit(context.Background(), record)

	require.NoError(t, p.Flush(context.Background()))
	assert.Contains(t, buf.String(), "test log entry")

	require.NoError(t, p.Shutdown(context.Background()))
}
