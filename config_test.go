package ghostzola_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-ghostzola"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := ghostzola.DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Target.Flavor != ghostzola.FlavorZola || cfg.Target.Layout != ghostzola.LayoutDated {
		t.Fatalf("unexpected defaults %+v", cfg.Target)
	}
}

func TestConfigValidateRejectsUnknownFlavor(t *testing.T) {
	cfg := ghostzola.DefaultConfig()
	cfg.Target.Flavor = "jekyll"
	if err := cfg.Validate(); !errors.Is(err, ghostzola.ErrTargetFlavorUnknown) {
		t.Fatalf("expected ErrTargetFlavorUnknown, got %v", err)
	}
}

func TestLoadConfigOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ghostzola.yaml")
	raw := "target:\n  flavor: hugo\n  layout: flat\ncontent:\n  body_fallback: mobiledoc\n"
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := ghostzola.LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Target.Flavor != ghostzola.FlavorHugo || cfg.Content.BodyFallback != ghostzola.BodyFallbackMobiledoc {
		t.Fatalf("overlay not applied: %+v", cfg)
	}
	if cfg.Archive.DatabaseName != "ghost.db" {
		t.Fatalf("defaults lost: %+v", cfg.Archive)
	}
}
