package telemetry

import (
	"context"
	"testing"
	"time"
)

func TestInitTracer(t *testing.T) {
	tests := []struct {
		name        string
		serviceName string
	}{
		{name: "named service", serviceName: "oraculo-test"},
		{name: "empty service name", serviceName: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			// The OTLP exporter connects lazily, so construction succeeds
			// even when no collector is listening.
			tp, err := InitTracer(ctx, tt.serviceName, "localhost:4318")
			if err != nil {
				t.Fatalf("InitTracer() error = %v", err)
			}
			if tp == nil {
				t.Fatal("InitTracer() returned nil provider")
			}

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := Shutdown(shutdownCtx, tp); err != nil {
				t.Errorf("Shutdown() error = %v", err)
			}
		})
	}
}

func TestShutdownNilProvider(t *testing.T) {
	if err := Shutdown(context.Background(), nil); err != nil {
		t.Errorf("Shutdown() with nil provider should not error, got: %v", err)
	}
}
