package config

import (
	"path/filepath"
	"testing"

	"github.com/curator-app/agent/internal/models"
)

func appNamed(name string) models.WatchedApplication {
	return models.WatchedApplication{Name: name, Path: "/opt/" + name, ShouldBeRunning: true}
}

func TestStore_GetDotPath(t *testing.T) {
	store, err := NewStore(DefaultConfig(), "")
	if err != nil {
		t.Fatal(err)
	}

	v, err := store.Get("monitoring.thresholds.cpu_usage")
	if err != nil {
		t.Fatal(err)
	}
	switch got := v.(type) {
	case int:
		if got != 90 {
			t.Errorf("cpu_usage = %d, want 90", got)
		}
	case float64:
		if got != 90 {
			t.Errorf("cpu_usage = %v, want 90", got)
		}
	default:
		t.Errorf("cpu_usage has unexpected type %T", v)
	}

	if _, err := store.Get("monitoring.nope"); err == nil {
		t.Error("expected error for missing path")
	}
}

func TestStore_UpdateCreatesIntermediateMaps(t *testing.T) {
	store, err := NewStore(DefaultConfig(), "")
	if err != nil {
		t.Fatal(err)
	}

	if err := store.Update("installation.name", "Lobby Wall"); err != nil {
		t.Fatal(err)
	}
	v, err := store.Get("installation.name")
	if err != nil {
		t.Fatal(err)
	}
	if v != "Lobby Wall" {
		t.Errorf("installation.name = %v, want \"Lobby Wall\"", v)
	}
}

func TestStore_UpdatePersistsToDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.yaml")
	store, err := NewStore(DefaultConfig(), path)
	if err != nil {
		t.Fatal(err)
	}

	if err := store.Update("monitoring.enabled", false); err != nil {
		t.Fatal(err)
	}

	reloaded, err := LoadStore(path)
	if err != nil {
		t.Fatal(err)
	}
	v, err := reloaded.Get("monitoring.enabled")
	if err != nil {
		t.Fatal(err)
	}
	if v != false {
		t.Errorf("monitoring.enabled = %v after reload, want false", v)
	}
}

func TestStore_DecodeTypedSection(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Installation.Name = "Atrium Projection"
	store, err := NewStore(cfg, "")
	if err != nil {
		t.Fatal(err)
	}

	var inst InstallationConfig
	if err := store.Decode("installation", &inst); err != nil {
		t.Fatal(err)
	}
	if inst.Name != "Atrium Projection" {
		t.Errorf("Name = %q, want \"Atrium Projection\"", inst.Name)
	}
}

func TestStore_GetReturnsCopy(t *testing.T) {
	store, err := NewStore(DefaultConfig(), "")
	if err != nil {
		t.Fatal(err)
	}

	v, err := store.Get("monitoring")
	if err != nil {
		t.Fatal(err)
	}
	m := v.(map[string]interface{})
	m["enabled"] = false

	v2, err := store.Get("monitoring.enabled")
	if err != nil {
		t.Fatal(err)
	}
	if v2 != true {
		t.Error("mutating a Get result leaked into the store")
	}
}
