package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/adrg/xdg"
)

func TestGetConfigPathsOrder(t *testing.T) {
	dirs := NewXDGDirs()

	paths := dirs.GetConfigPaths("config.json")
	if len(paths) == 0 {
		t.Fatal("Expected at least one config path")
	}

	// User path comes first and every path targets the app directory
	for i, path := range paths {
		if !strings.Contains(path, "riqpreview") {
			t.Errorf("Path %d should contain riqpreview: %s", i, path)
		}
		if filepath.Base(path) != "config.json" {
			t.Errorf("Path %d should end in config.json: %s", i, path)
		}
	}
}

func TestGetConfigPathsWithoutFilename(t *testing.T) {
	dirs := NewXDGDirs()

	paths := dirs.GetConfigPaths("")
	if len(paths) == 0 {
		t.Fatal("Expected at least one config path")
	}
	if filepath.Base(paths[0]) != "riqpreview" {
		t.Errorf("Directory path should end in riqpreview: %s", paths[0])
	}
}

func TestGetCachePath(t *testing.T) {
	dirs := NewXDGDirs()

	audioPath := dirs.GetCachePath("audio")
	if !strings.Contains(audioPath, filepath.Join("riqpreview", "audio")) {
		t.Errorf("Cache path should nest purpose under app dir: %s", audioPath)
	}

	bare := dirs.GetCachePath("")
	if filepath.Base(bare) != "riqpreview" {
		t.Errorf("Bare cache path should end in riqpreview: %s", bare)
	}
}

func TestCreateCacheDir(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", tempDir)
	xdg.Reload()
	t.Cleanup(xdg.Reload)

	dirs := NewXDGDirs()
	cachePath := dirs.GetCachePath("audio")

	if err := dirs.CreateCacheDir("audio"); err != nil {
		t.Fatalf("CreateCacheDir failed: %v", err)
	}

	info, err := os.Stat(cachePath)
	if err != nil {
		t.Fatalf("Cache directory should exist after CreateCacheDir: %v", err)
	}
	if !info.IsDir() {
		t.Error("Cache path should be a directory")
	}
}
