package simulation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/yungbote/brandpulse-backend/internal/types"
)

func TestDefaultCalibration_RatesIncreaseAcrossBehaviorTypes(t *testing.T) {
	calibration := DefaultCalibration(testLogger())

	var prev EngagementGates
	for i, behaviorType := range BehaviorTypes {
		gates := calibration.Profile(behaviorType).Gates
		if i > 0 {
			if gates.Stop <= prev.Stop || gates.Like <= prev.Like || gates.Comment <= prev.Comment || gates.Share <= prev.Share {
				t.Fatalf("gates for %q do not exceed the previous type: %+v vs %+v", behaviorType, gates, prev)
			}
		}
		prev = gates
	}
}

func TestDefaultCalibration_ExactRates(t *testing.T) {
	calibration := DefaultCalibration(testLogger())

	cases := map[string]EngagementGates{
		types.BehaviorLurker:          {Stop: 0.30, Like: 0.50, Comment: 0.08, Share: 0.02},
		types.BehaviorCasualEngager:   {Stop: 0.50, Like: 0.60, Comment: 0.18, Share: 0.06},
		types.BehaviorActiveCommenter: {Stop: 0.70, Like: 0.75, Comment: 0.35, Share: 0.12},
		types.BehaviorPowerSharer:     {Stop: 0.85, Like: 0.85, Comment: 0.45, Share: 0.22},
	}
	for behaviorType, want := range cases {
		got := calibration.Profile(behaviorType).Gates
		if got != want {
			t.Fatalf("gates for %q: got %+v want %+v", behaviorType, got, want)
		}
	}
}

func TestCalibration_UnknownTypeFallsBackToCasualEngager(t *testing.T) {
	calibration := DefaultCalibration(testLogger())

	fallback := calibration.Profile("influencer")
	casual := calibration.Profile(types.BehaviorCasualEngager)
	if fallback.Gates != casual.Gates {
		t.Fatalf("expected casual_engager gates for unknown type, got %+v", fallback.Gates)
	}
}

func TestIsKnownBehaviorType(t *testing.T) {
	for _, behaviorType := range BehaviorTypes {
		if !IsKnownBehaviorType(behaviorType) {
			t.Fatalf("%q should be known", behaviorType)
		}
	}
	if IsKnownBehaviorType("influencer") {
		t.Fatalf("influencer should not be known")
	}
}

func TestLoadCalibration_OverridesOnlyNamedTypes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calibration.yaml")
	content := "lurker:\n  stop: 0.40\n  like: 0.55\n  comment: 0.10\n  share: 0.03\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write calibration file: %v", err)
	}

	calibration, err := LoadCalibration(testLogger(), path)
	if err != nil {
		t.Fatalf("load calibration: %v", err)
	}
	lurker := calibration.Profile(types.BehaviorLurker).Gates
	want := EngagementGates{Stop: 0.40, Like: 0.55, Comment: 0.10, Share: 0.03}
	if lurker != want {
		t.Fatalf("lurker override not applied: got %+v want %+v", lurker, want)
	}
	casual := calibration.Profile(types.BehaviorCasualEngager).Gates
	if casual != (EngagementGates{Stop: 0.50, Like: 0.60, Comment: 0.18, Share: 0.06}) {
		t.Fatalf("casual_engager should keep defaults, got %+v", casual)
	}
}

func TestLoadCalibration_RejectsOutOfRangeRate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calibration.yaml")
	content := "lurker:\n  stop: 1.5\n  like: 0.5\n  comment: 0.1\n  share: 0.02\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write calibration file: %v", err)
	}
	if _, err := LoadCalibration(testLogger(), path); err == nil {
		t.Fatalf("expected error for stop rate > 1")
	}
}

func TestLoadCalibration_RejectsZeroRate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calibration.yaml")
	content := "power_sharer:\n  stop: 0.85\n  like: 0.85\n  comment: 0.45\n  share: 0\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write calibration file: %v", err)
	}
	if _, err := LoadCalibration(testLogger(), path); err == nil {
		t.Fatalf("expected error for zero share rate")
	}
}

func TestLoadCalibration_RejectsUnknownBehaviorType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calibration.yaml")
	content := "influencer:\n  stop: 0.9\n  like: 0.9\n  comment: 0.5\n  share: 0.3\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write calibration file: %v", err)
	}
	if _, err := LoadCalibration(testLogger(), path); err == nil {
		t.Fatalf("expected error for unknown behavior type")
	}
}

func TestLoadCalibration_MissingFile(t *testing.T) {
	if _, err := LoadCalibration(testLogger(), filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
