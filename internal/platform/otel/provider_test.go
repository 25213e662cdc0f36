package otel_test

import (
	"context"
	"testing"

	"github.com/abhipsabasu/Image-geoprofiling/internal/platform/otel"
)

func TestSetupNoopWhenEndpointEmpty(t *testing.T) {
	t.Setenv(otel.EndpointEnv, "")
	t.Setenv(otel.EnabledEnv, "")

	shutdown, err := otel.Setup(context.Background(), "survey-test")
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestSetupNoopWhenExplicitlyDisabled(t *testing.T) {
	t.Setenv(otel.EndpointEnv, "http://localhost:4318")
	t.Setenv(otel.EnabledEnv, "FALSE")

	shutdown, err := otel.Setup(context.Background(), "survey-test")
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := shutdown(ctx); err != nil {
		t.Fatalf("noop shutdown ignores a cancelled context, got %v", err)
	}
}

func TestSetupRejectsMalformedEnv(t *testing.T) {
	t.Setenv(otel.EndpointEnv, "http://localhost:4318")
	t.Setenv(otel.EnabledEnv, "maybe")

	if _, err := otel.Setup(context.Background(), "survey-test"); err == nil {
		t.Fatal("expected error for non-boolean enabled flag")
	}
}

func TestSetupWithConfigSampleRatio(t *testing.T) {
	cfg := otel.Config{Endpoint: "http://192.0.2.1:4318", Enabled: true, SampleRatio: 1.5}
	if _, err := otel.SetupWithConfig(context.Background(), "survey-test", cfg); err == nil {
		t.Fatal("expected error for sample ratio above 1")
	}
}

func TestConfigActive(t *testing.T) {
	tests := []struct {
		name string
		cfg  otel.Config
		want bool
	}{
		{name: "endpoint and enabled", cfg: otel.Config{Endpoint: "http://collector:4318", Enabled: true}, want: true},
		{name: "blank endpoint", cfg: otel.Config{Endpoint: "  ", Enabled: true}, want: false},
		{name: "disabled", cfg: otel.Config{Endpoint: "http://collector:4318"}, want: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.cfg.Active(); got != tc.want {
				t.Fatalf("Active() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSetupCreatesProviderWhenEndpointSet(t *testing.T) {
	// Non-routable address: nothing is exported before shutdown.
	t.Setenv(otel.EndpointEnv, "http://192.0.2.1:4318")
	t.Setenv(otel.EnabledEnv, "")
	t.Setenv(otel.SampleRatioEnv, "0.5")

	shutdown, err := otel.Setup(context.Background(), "survey-test")
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
