package simulation

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/brandpulse-backend/internal/logger"
	"github.com/yungbote/brandpulse-backend/internal/types"
)

// EngagementGates are the enforced probabilities that convert a judge's
// qualitative "would engage" into an actual action. They are independent of
// whatever rates the narrative context claims; the judge's output is signal,
// the gates set the real distribution.
type EngagementGates struct {
	Stop    float64 `yaml:"stop"`
	Like    float64 `yaml:"like"`
	Comment float64 `yaml:"comment"`
	Share   float64 `yaml:"share"`
}

// BehaviorProfile pairs the prompt-facing narrative with the enforced gates
// for one behavior type.
type BehaviorProfile struct {
	Context string
	Gates   EngagementGates
}

// BehaviorTypes lists the known types in calibration order; every rate in
// the default table increases monotonically along this sequence.
var BehaviorTypes = []string{
	types.BehaviorLurker,
	types.BehaviorCasualEngager,
	types.BehaviorActiveCommenter,
	types.BehaviorPowerSharer,
}

// IsKnownBehaviorType reports whether the type has a calibration row. API
// input validation uses this; the engine itself falls back instead.
func IsKnownBehaviorType(behaviorType string) bool {
	_, ok := defaultProfiles[behaviorType]
	return ok
}

var defaultProfiles = map[string]BehaviorProfile{
	types.BehaviorLurker: {
		Context: "This person is a lurker. They read a lot but rarely interact: they scroll past most content, occasionally like something that strongly resonates, and almost never comment or share.",
		Gates:   EngagementGates{Stop: 0.30, Like: 0.50, Comment: 0.08, Share: 0.02},
	},
	types.BehaviorCasualEngager: {
		Context: "This person is a casual engager. They stop for content that catches their eye, like posts fairly often, and leave a short comment or share only when something feels personally relevant.",
		Gates:   EngagementGates{Stop: 0.50, Like: 0.60, Comment: 0.18, Share: 0.06},
	},
	types.BehaviorActiveCommenter: {
		Context: "This person is an active commenter. They engage with most content in their feed, like generously, and frequently add their own perspective in the comments. Sharing is reserved for standout posts.",
		Gates:   EngagementGates{Stop: 0.70, Like: 0.75, Comment: 0.35, Share: 0.12},
	},
	types.BehaviorPowerSharer: {
		Context: "This person is a power sharer. They treat their feed as a curation channel: they stop for almost everything relevant, like and comment readily, and share anything they think their network should see.",
		Gates:   EngagementGates{Stop: 0.85, Like: 0.85, Comment: 0.45, Share: 0.22},
	},
}

// Calibration resolves a persona's behavior type to its profile. Unknown
// types fall back to casual_engager; that is a deliberate policy carried over
// from the original calibration, logged so upstream persona drift is visible.
// A stricter mode that rejects unknown types is a candidate follow-up.
type Calibration struct {
	log      *logger.Logger
	profiles map[string]BehaviorProfile
}

func DefaultCalibration(log *logger.Logger) *Calibration {
	profiles := make(map[string]BehaviorProfile, len(defaultProfiles))
	for k, v := range defaultProfiles {
		profiles[k] = v
	}
	return &Calibration{
		log:      log.With("component", "Calibration"),
		profiles: profiles,
	}
}

// LoadCalibration reads gate overrides from a YAML file keyed by behavior
// type. Narrative contexts are not overridable; only the enforced rates are.
func LoadCalibration(log *logger.Logger, path string) (*Calibration, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read calibration file: %w", err)
	}
	var overrides map[string]EngagementGates
	if err := yaml.Unmarshal(raw, &overrides); err != nil {
		return nil, fmt.Errorf("parse calibration file: %w", err)
	}
	c := DefaultCalibration(log)
	for behaviorType, gates := range overrides {
		if _, known := c.profiles[behaviorType]; !known {
			return nil, fmt.Errorf("calibration file references unknown behavior type %q", behaviorType)
		}
		if err := validateGates(gates); err != nil {
			return nil, fmt.Errorf("calibration for %q: %w", behaviorType, err)
		}
		profile := c.profiles[behaviorType]
		profile.Gates = gates
		c.profiles[behaviorType] = profile
	}
	return c, nil
}

func validateGates(g EngagementGates) error {
	for name, v := range map[string]float64{"stop": g.Stop, "like": g.Like, "comment": g.Comment, "share": g.Share} {
		if v <= 0 || v > 1 {
			return fmt.Errorf("%s rate %v out of range (0, 1]", name, v)
		}
	}
	return nil
}

func (c *Calibration) Profile(behaviorType string) BehaviorProfile {
	if profile, ok := c.profiles[behaviorType]; ok {
		return profile
	}
	c.log.Warn("Unknown behavior type, falling back to casual_engager", "behavior_type", behaviorType)
	return c.profiles[types.BehaviorCasualEngager]
}
