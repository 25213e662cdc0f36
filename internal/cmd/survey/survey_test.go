package survey

import (
	"flag"
	"testing"
	"time"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("survey", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.Variant != "geolocalization" {
		t.Fatalf("Variant = %q, want geolocalization", cfg.Variant)
	}
	if cfg.Sink != "sqlite" || cfg.Assets != "sqlite" {
		t.Fatalf("backends = %s/%s, want sqlite/sqlite", cfg.Sink, cfg.Assets)
	}
	if cfg.FirestoreDatabase != "(default)" {
		t.Fatalf("FirestoreDatabase = %q, want (default)", cfg.FirestoreDatabase)
	}
	if cfg.SessionTTL != 2*time.Hour {
		t.Fatalf("SessionTTL = %s, want 2h", cfg.SessionTTL)
	}
}

func TestParseConfigReadsPrefixedEnv(t *testing.T) {
	t.Setenv("SURVEY_VARIANT", "procurement")
	t.Setenv("SURVEY_GEOCODER", "gazetteer")

	fs := flag.NewFlagSet("survey", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.Variant != "procurement" || cfg.Geocoder != "gazetteer" {
		t.Fatalf("config = %s/%s, want procurement/gazetteer", cfg.Variant, cfg.Geocoder)
	}
}

func TestParseConfigFlagsOverrideEnv(t *testing.T) {
	t.Setenv("SURVEY_HTTP_ADDR", "127.0.0.1:9000")

	fs := flag.NewFlagSet("survey", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-http-addr", "127.0.0.1:9100", "-variant", "procurement-geo"})
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.HTTPAddr != "127.0.0.1:9100" {
		t.Fatalf("HTTPAddr = %q, want 127.0.0.1:9100", cfg.HTTPAddr)
	}
	if cfg.Variant != "procurement-geo" {
		t.Fatalf("Variant = %q, want procurement-geo", cfg.Variant)
	}
}

func TestParseConfigRejectsUnknownFlag(t *testing.T) {
	fs := flag.NewFlagSet("survey", flag.ContinueOnError)
	fs.SetOutput(discard{})
	if _, err := ParseConfig(fs, []string{"-nope"}); err == nil {
		t.Fatal("expected error for unknown flag")
	}
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
