package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	MapSize float64 `yaml:"map_size"`

	TickMs int `yaml:"tick_ms"`

	FoodTarget  int `yaml:"food_target"`
	FoodBatch   int `yaml:"food_batch"`
	InitialFood int `yaml:"initial_food"`

	StartRadius    float64 `yaml:"start_radius"`
	GrowthPerFood  float64 `yaml:"growth_per_food"`
	XPPerFood      int64   `yaml:"xp_per_food"`
	ScorePerFood   int64   `yaml:"score_per_food"`
	BaseSpeed      float64 `yaml:"base_speed"`
	MinSpeed       float64 `yaml:"min_speed"`
	SizeDamping    float64 `yaml:"size_damping"`
	InputDeadZone  float64 `yaml:"input_dead_zone"`
	StarterSkinID  string  `yaml:"starter_skin_id"`
	ClientQueueLen int     `yaml:"client_queue_len"`
}

func Defaults() Tuning {
	return Tuning{
		MapSize:        4000,
		TickMs:         33,
		FoodTarget:     500,
		FoodBatch:      5,
		InitialFood:    500,
		StartRadius:    25,
		GrowthPerFood:  0.25,
		XPPerFood:      2,
		ScorePerFood:   1,
		BaseSpeed:      8,
		MinSpeed:       1,
		SizeDamping:    60,
		InputDeadZone:  10,
		StarterSkinID:  "starter",
		ClientQueueLen: 8,
	}
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) validate() error {
	if t.MapSize <= 0 {
		return fmt.Errorf("map_size must be positive, got %v", t.MapSize)
	}
	if t.TickMs <= 0 {
		return fmt.Errorf("tick_ms must be positive, got %d", t.TickMs)
	}
	if t.StartRadius <= 0 {
		return fmt.Errorf("start_radius must be positive, got %v", t.StartRadius)
	}
	if t.MinSpeed <= 0 || t.BaseSpeed < t.MinSpeed {
		return fmt.Errorf("speeds out of range: base=%v min=%v", t.BaseSpeed, t.MinSpeed)
	}
	if t.SizeDamping <= 0 {
		return fmt.Errorf("size_damping must be positive, got %v", t.SizeDamping)
	}
	return nil
}
