package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFeaturesFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "features.yaml")
	content := "edit_submission: true\nline_chart: false\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write features file: %v", err)
	}

	if err := LoadFeatures(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f := GetFeatures()
	if !f.EditSubmission || f.LineChart {
		t.Fatalf("unexpected features: %+v", f)
	}
}

func TestLoadFeaturesPartialFileKeepsOmittedDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "features.yaml")
	// Only one flag named: the omitted flag must stay enabled.
	if err := os.WriteFile(path, []byte("line_chart: false\n"), 0o600); err != nil {
		t.Fatalf("failed to write features file: %v", err)
	}

	if err := LoadFeatures(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f := GetFeatures()
	if !f.EditSubmission {
		t.Fatalf("edit_submission must default on when the file omits it, got %+v", f)
	}
	if f.LineChart {
		t.Fatalf("line_chart should be disabled by the file, got %+v", f)
	}
}

func TestLoadFeaturesMissingFileUsesDefaults(t *testing.T) {
	if err := LoadFeatures(filepath.Join(t.TempDir(), "absent.yaml")); err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	f := GetFeatures()
	if !f.EditSubmission || !f.LineChart {
		t.Fatalf("expected defaults, got %+v", f)
	}
}

func TestLoadFeaturesRejectsBadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.yaml")
	if err := os.WriteFile(path, []byte("{nope"), 0o600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	if err := LoadFeatures(path); err == nil {
		t.Fatalf("expected error for malformed yaml")
	}
}

func TestConfigValidate(t *testing.T) {
	valid := &Config{BotToken: "t", DatabaseDSN: "dsn", WebhookPath: "/webhook"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cases := []*Config{
		{DatabaseDSN: "dsn", WebhookPath: "/webhook"},
		{BotToken: "t", WebhookPath: "/webhook"},
		{BotToken: "t", DatabaseDSN: "dsn", WebhookPath: "webhook"},
	}
	for i, cfg := range cases {
		if err := cfg.Validate(); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}
