package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"DailyReleases/internal/config"
	"DailyReleases/internal/domain"
	"DailyReleases/internal/report"
)

func offlineConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.Sources = nil
	cfg.Stores.Steam.Enabled = false
	cfg.Stores.GOG.Enabled = false
	cfg.Stores.Epic.Enabled = false
	return cfg
}

func TestApplicationRunsOffline(t *testing.T) {
	t.Parallel()

	cfg := offlineConfig(t)
	if err := os.WriteFile(cfg.EpiloguePath(), []byte("See you tomorrow"), 0o644); err != nil {
		t.Fatalf("write epilogue: %v", err)
	}

	ctx := context.Background()
	application, err := New(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer application.Close()

	if _, err := os.Stat(filepath.Join(cfg.DataDir, "dailyreleases.db")); err != nil {
		t.Fatalf("database not created: %v", err)
	}

	res, err := application.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Post != report.EmptyPost+"\nSee you tomorrow" || res.Collected != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}

	if _, err := application.Clean(ctx); err != nil {
		t.Fatalf("Clean: %v", err)
	}
}

func TestApplicationClassify(t *testing.T) {
	t.Parallel()

	application, err := New(context.Background(), offlineConfig(t), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer application.Close()

	release, err := application.Classify(context.Background(), "Aztez.MacOS-DARKSiDERS", true)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if release.GameName != "Aztez" || release.Platform != domain.PlatformOSX || release.GroupName != "DARKSiDERS" {
		t.Fatalf("unexpected release: %+v", release)
	}

	if _, err := application.Classify(context.Background(), "NoGroupHere", false); !domain.IsParseError(err, domain.KindMalformed) {
		t.Fatalf("expected malformed, got %v", err)
	}
}

func TestNewRejectsUnknownScanner(t *testing.T) {
	t.Parallel()

	cfg := offlineConfig(t)
	cfg.Sources = []config.SourceConfig{{Name: "typo", Scanner: "xrell", Pages: 1}}
	if _, err := New(context.Background(), cfg, nil); err == nil || !strings.Contains(err.Error(), "xrell") {
		t.Fatalf("expected unknown scanner error, got %v", err)
	}
}
