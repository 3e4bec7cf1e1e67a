package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSetupOTel(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled tracing", func(t *testing.T) {
		tracer, cleanup, err := SetupOTel(ctx, TracingConfig{Enabled: false})
		require.NoError(t, err)
		require.NotNil(t, tracer)
		_, span := tracer.Start(ctx, "test")
		span.End()
		cleanup()
	})

	t.Run("enabled tracing with unreachable collector", func(t *testing.T) {
		tracer, cleanup, err := SetupOTel(ctx, TracingConfig{
			Enabled:     true,
			ServiceName: "test-service",
			ZipkinURL:   "http://invalid-url:9411/api/v2/spans",
		})
		require.NoError(t, err)
		require.NotNil(t, tracer)
		cleanup()
	})
}

func TestLoadTracingConfigFromEnv(t *testing.T) {
	t.Setenv("PUBSUB_TRACING_ENABLED", "true")
	t.Setenv("PUBSUB_TRACING_SERVICE_NAME", "roster-test")
	t.Setenv("PUBSUB_TRACING_ZIPKIN_URL", "")

	cfg := LoadTracingConfigFromEnv()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "roster-test", cfg.ServiceName)
	assert.Equal(t, DefaultTracingConfig().ZipkinURL, cfg.ZipkinURL)
}

func TestBridgeTracing(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := trace.NewTracerProvider(trace.WithSpanProcessor(recorder))
	bridge := NewWatermillBridgeWithTracer(tp.Tracer("test"))
	defer bridge.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan Message, 1)
	require.NoError(t, bridge.Subscribe(ctx, "userdata.changed", func(_ context.Context, msg Message) error {
		received <- msg
		return nil
	}))

	require.NoError(t, bridge.Publish(ctx, Message{
		Topic:    "userdata.changed",
		UserID:   "users:ada",
		Payload:  []byte(`{"user_id":"users:ada"}`),
		Metadata: map[string]string{"request_id": "req-1"},
	}))

	select {
	case msg := <-received:
		assert.Equal(t, "users:ada", msg.UserID)
		assert.Equal(t, "req-1", msg.Metadata["request_id"])
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}

	require.Eventually(t, func() bool {
		names := map[string]bool{}
		for _, s := range recorder.Ended() {
			names[s.Name()] = true
		}
		return names["pubsub.publish.userdata.changed"] && names["pubsub.process.userdata.changed"]
	}, 2*time.Second, 10*time.Millisecond)
}

func TestPayloadPreview(t *testing.T) {
	long := make([]byte, 150)
	for i := range long {
		long[i] = 'a'
	}
	assert.Len(t, payloadPreview(long), payloadPreviewLen+3)
	assert.Equal(t, "short", payloadPreview([]byte("short")))

	msg := message.NewMessage("id-1", []byte("x"))
	attrs := messageAttributes("publish", "t", msg)
	assert.NotEmpty(t, attrs)
}
