package telemetry

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type exportedRecord struct {
	body     string
	severity otellog.Severity
}

type recordingExporter struct {
	mu      sync.Mutex
	records []exportedRecord
}

func (e *recordingExporter) Export(_ context.Context, records []sdklog.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range records {
		e.records = append(e.records, exportedRecord{body: r.Body().AsString(), severity: r.Severity()})
	}
	return nil
}

func (e *recordingExporter) Shutdown(context.Context) error   { return nil }
func (e *recordingExporter) ForceFlush(context.Context) error { return nil }

func (e *recordingExporter) bodies() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.records))
	for _, r := range e.records {
		out = append(out, r.body)
	}
	return out
}

func TestNewLoggerProvider_Disabled(t *testing.T) {
	lp, err := NewLoggerProvider(context.Background(), LogsConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, err)

	assert.False(t, lp.IsEnabled())
	assert.NoError(t, lp.ForceFlush(context.Background()))
	assert.NoError(t, lp.Shutdown(context.Background()))

	core := NewZapOTELCore(ZapBridgeConfig{ServiceName: "omnisync", LoggerProvider: lp})
	assert.False(t, core.Enabled(zapcore.ErrorLevel))
}

func TestNewZapOTELCore_NilProvider(t *testing.T) {
	core := NewZapOTELCore(ZapBridgeConfig{ServiceName: "omnisync"})
	assert.False(t, core.Enabled(zapcore.ErrorLevel))
}

func TestBridgedLogger_ForwardsAtConfiguredLevel(t *testing.T) {
	exp := &recordingExporter{}
	provider := sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewSimpleProcessor(exp)))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	lp := &LoggerProvider{provider: provider, logger: zap.NewNop(), config: LogsConfig{Enabled: true, ServiceName: "omnisync"}}
	require.True(t, lp.IsEnabled())

	base, observed := observer.New(zapcore.DebugLevel)
	otelCore := NewZapOTELCore(ZapBridgeConfig{
		ServiceName:    "omnisync",
		LoggerProvider: lp,
		Level:          zapcore.InfoLevel,
	})
	log := NewBridgedLogger(base, otelCore).With(zap.String("channel", "naver"))

	log.Debug("Polling channel")
	log.Info("Orders ingested", zap.Int("upserted", 3))
	log.Warn("Invoice rejected by channel")
	require.NoError(t, lp.ForceFlush(context.Background()))

	assert.Equal(t, 3, observed.Len(), "console output keeps every level")
	assert.Equal(t, []string{"Orders ingested", "Invoice rejected by channel"}, exp.bodies())

	exp.mu.Lock()
	defer exp.mu.Unlock()
	assert.Equal(t, otellog.SeverityWarn, exp.records[1].severity)
}

func TestLevelFilterCore(t *testing.T) {
	base, _ := observer.New(zapcore.DebugLevel)
	core := &levelFilterCore{Core: base, minLevel: zapcore.WarnLevel}

	assert.False(t, core.Enabled(zapcore.InfoLevel))
	assert.True(t, core.Enabled(zapcore.ErrorLevel))

	child, ok := core.With([]zapcore.Field{zap.String("order_key", "naver:1")}).(*levelFilterCore)
	require.True(t, ok)
	assert.Equal(t, zapcore.WarnLevel, child.minLevel)
	assert.Nil(t, core.Check(zapcore.Entry{Level: zapcore.InfoLevel}, nil))
}
