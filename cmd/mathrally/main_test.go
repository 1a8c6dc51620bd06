package main

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/verte-zerg/mathrally/internal/achievement"
	"github.com/verte-zerg/mathrally/internal/config"
	"github.com/verte-zerg/mathrally/internal/profile"
)

func TestDefaultConfigTemplateDecodes(t *testing.T) {
	var lines []string
	for _, line := range strings.Split(defaultConfigTemplate(), "\n") {
		if strings.HasPrefix(line, "# ") && strings.Contains(line, " = ") {
			line = strings.TrimPrefix(line, "# ")
		}
		lines = append(lines, line)
	}
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Game.WeakTop == nil || *cfg.Game.WeakTop != defaultWeakTop {
		t.Fatalf("unexpected weak-top: %v", cfg.Game.WeakTop)
	}
	if cfg.Storage.SaveTimeout == nil || *cfg.Storage.SaveTimeout != defaultSaveTimeout {
		t.Fatalf("unexpected save-timeout: %v", cfg.Storage.SaveTimeout)
	}
	if cfg.Log.Level == nil || *cfg.Log.Level != defaultLogLevel {
		t.Fatalf("unexpected log level: %v", cfg.Log.Level)
	}
}

func TestFlagsOverrideConfig(t *testing.T) {
	cmd := newRootCmd()
	if err := cmd.ParseFlags([]string{"--questions", "7"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	fromFile := 12
	applyIntConfig(cmd, "questions", &playQuestions, &fromFile)
	if playQuestions != 7 {
		t.Fatalf("flag value overridden: %d", playQuestions)
	}
	top := 4
	applyIntConfig(cmd, "weak-top", &playWeakTop, &top)
	if playWeakTop != 4 {
		t.Fatalf("config value not applied: %d", playWeakTop)
	}
	applyIntConfig(cmd, "weak-top", &playWeakTop, nil)
	if playWeakTop != 4 {
		t.Fatalf("nil config value changed target: %d", playWeakTop)
	}
}

func TestStatsFilterValidation(t *testing.T) {
	defer func() {
		statsSince, statsLast, statsCurveWindow = "", 0, defaultCurveWindow
	}()

	statsSince, statsLast, statsCurveWindow = "2025-03-01", 4, 3
	filter, err := statsFilter()
	if err != nil {
		t.Fatalf("stats filter: %v", err)
	}
	if filter.Since == nil || filter.Last != 4 || filter.CurveWindow != 3 {
		t.Fatalf("unexpected filter: %+v", filter)
	}

	statsSince = "yesterday"
	if _, err := statsFilter(); err == nil {
		t.Fatalf("expected error for bad date")
	}
	statsSince, statsCurveWindow = "", 0
	if _, err := statsFilter(); err == nil {
		t.Fatalf("expected error for zero curve window")
	}
}

func TestOpenLoggerRejectsUnknownLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "mathrally.log")
	if _, _, err := openLogger(path, "chatty"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	logger, closeLog, err := openLogger(path, "debug")
	if err != nil {
		t.Fatalf("open logger: %v", err)
	}
	logger.Debug("hello")
	closeLog()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "msg=hello") {
		t.Fatalf("log missing entry: %q", data)
	}
}

func TestResolvePlayerReadOnlyRejectsUnknownName(t *testing.T) {
	defer func() { playerName = "" }()
	profiles, err := profile.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	if _, err := resolvePlayer(profiles, false); !errors.Is(err, profile.ErrNotFound) {
		t.Fatalf("expected ErrNotFound with no saved players, got %v", err)
	}
	if err := profiles.Save(profiles.LoadOrCreate("Charlie")); err != nil {
		t.Fatalf("save: %v", err)
	}

	playerName = "Charly"
	_, err = resolvePlayer(profiles, false)
	if !errors.Is(err, profile.ErrNotFound) || !strings.Contains(err.Error(), `"Charlie"`) {
		t.Fatalf("expected not found with suggestion, got %v", err)
	}
	if name, err := resolvePlayer(profiles, true); err != nil || name != "Charly" {
		t.Fatalf("play should start a new profile: %q %v", name, err)
	}

	playerName = "charlie"
	if name, err := resolvePlayer(profiles, false); err != nil || name != "charlie" {
		t.Fatalf("existing name rejected: %q %v", name, err)
	}
	playerName = ""
	if name, err := resolvePlayer(profiles, false); err != nil || name != "Charlie" {
		t.Fatalf("expected most recent player, got %q %v", name, err)
	}
	if names, _ := profiles.List(); len(names) != 1 {
		t.Fatalf("read-only lookups created profiles: %v", names)
	}
}

func TestResetProfileClearsProgress(t *testing.T) {
	catalog, err := achievement.LoadCatalog()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	profiles, err := profile.Open(t.TempDir(), profile.WithCatalog(catalog))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	p := profiles.LoadOrCreate("Ada")
	profiles.UpdateAchievementLedger(p, "getting_started", true, 1)
	if err := profiles.Save(p); err != nil {
		t.Fatalf("save: %v", err)
	}
	catalog.Unlock("getting_started")

	if err := resetProfile(profiles, "ada", slog.Default()); err != nil {
		t.Fatalf("reset: %v", err)
	}
	got := profiles.LoadOrCreate("Ada")
	if got.ID != p.ID || got.Achievements.UnlockedCount() != 0 || got.Achievements.TotalPoints != 0 {
		t.Fatalf("progress not cleared: %+v", got.Achievements)
	}
	if len(catalog.Unlocked()) != 0 {
		t.Fatalf("catalog kept unlocks after reset")
	}
	if err := resetProfile(profiles, "Adda", slog.Default()); !errors.Is(err, profile.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
