package plugin

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ayusman/repcoach/internal/workout"
)

func TestManager_Discover(t *testing.T) {
	tmpDir := t.TempDir()
	writePlugin(t, tmpDir, "notify", "true\n", workout.EventSetCompleted, workout.EventWorkoutCompleted)

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	plugin, err := manager.Get("notify")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if plugin.Manifest.Version != "1.0.0" {
		t.Errorf("expected version '1.0.0', got %q", plugin.Manifest.Version)
	}
	if len(plugin.Manifest.Events) != 2 {
		t.Errorf("expected 2 events, got %d", len(plugin.Manifest.Events))
	}
	if plugin.Path != filepath.Join(tmpDir, "notify") {
		t.Errorf("unexpected path %q", plugin.Path)
	}
	if plugin.Executable != filepath.Join(tmpDir, "notify", "run.sh") {
		t.Errorf("unexpected executable %q", plugin.Executable)
	}
}

func TestManager_Discover_SkipsInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	writePlugin(t, tmpDir, "good", "true\n")

	mkdir := func(name string) string {
		dir := filepath.Join(tmpDir, name)
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("failed to create dir: %v", err)
		}
		return dir
	}
	write := func(path, content string) {
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", path, err)
		}
	}

	mkdir("empty")
	write(filepath.Join(mkdir("broken"), ManifestFile), "{not json")
	write(filepath.Join(mkdir("partial"), ManifestFile), `{"name":"partial"}`)
	write(filepath.Join(tmpDir, "README"), "hi")

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}
	if plugins := manager.List(); len(plugins) != 1 || plugins[0].Manifest.Name != "good" {
		t.Errorf("List() = %v, want only 'good'", plugins)
	}
}

func TestManager_Discover_MissingDir(t *testing.T) {
	manager := NewManager(filepath.Join(t.TempDir(), "nope"))
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() on missing dir failed: %v", err)
	}
	if len(manager.List()) != 0 {
		t.Error("expected no plugins")
	}
}

func TestManager_Discover_NotADirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plugins")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	if err := NewManager(file).Discover(); err == nil {
		t.Error("expected error when plugin path is a file")
	}
}

func TestManager_GetNotFound(t *testing.T) {
	manager := NewManager(t.TempDir())
	if _, err := manager.Get("missing"); !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("expected ErrPluginNotFound, got %v", err)
	}
}

func TestManager_ForEvent(t *testing.T) {
	tmpDir := t.TempDir()
	writePlugin(t, tmpDir, "b-sets", "true\n", workout.EventSetCompleted)
	writePlugin(t, tmpDir, "a-all", "true\n")
	writePlugin(t, tmpDir, "c-done", "true\n", workout.EventWorkoutCompleted)

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	names := func(ps []*Plugin) []string {
		var out []string
		for _, p := range ps {
			out = append(out, p.Manifest.Name)
		}
		return out
	}

	got := names(manager.ForEvent(workout.EventSetCompleted))
	if len(got) != 2 || got[0] != "a-all" || got[1] != "b-sets" {
		t.Errorf("ForEvent(set_completed) = %v, want [a-all b-sets]", got)
	}
	got = names(manager.ForEvent(workout.EventRepCounted))
	if len(got) != 1 || got[0] != "a-all" {
		t.Errorf("ForEvent(rep_counted) = %v, want [a-all]", got)
	}
	if manager.PluginDir() != tmpDir {
		t.Errorf("PluginDir() = %q", manager.PluginDir())
	}
}
