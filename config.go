package main

import "time"

const (
	TickRate       = 30 // simulation ticks per second
	BroadcastEvery = 2  // state broadcast every other tick
	TickDuration   = time.Second / TickRate
	MaintainEvery  = 30 // population maintenance once per second
)

// GameConfig holds the immutable per-room constants. Set once at room
// construction and shared read-only by every component.
type GameConfig struct {
	WorldSize      float64 // square world, coords in [0, WorldSize]
	BaseSpeed      float64 // units/s
	BoostSpeed     float64 // units/s while boosting
	BoostCost      float64 // length drained per second while boosting
	BoostScoreCost float64 // score drained per second while boosting
	GrowthRate     float64 // length gained per food value unit
	SegmentSize    float64 // visual/collision size of one segment
	TurnRate       float64 // max heading change in radians/s
	MinLength      float64 // boost drain floor
	TargetFood     int     // nominal food population
	MaxPlayers     int
	MinBots        int     // bot population target with no humans present
	ViewRadius     float64 // broadcast culling radius
	EdgeMargin     float64 // head within this distance of an edge is a wall hit
	RespawnMin     time.Duration
	RespawnMax     time.Duration
}

// DefaultGameConfig returns the tuning used by the public arena.
func DefaultGameConfig() GameConfig {
	return GameConfig{
		WorldSize:      5000,
		BaseSpeed:      150,
		BoostSpeed:     270,
		BoostCost:      2.5,
		BoostScoreCost: 4.0,
		GrowthRate:     1.0,
		SegmentSize:    12,
		TurnRate:       5.0,
		MinLength:      10,
		TargetFood:     600,
		MaxPlayers:     40,
		MinBots:        14,
		ViewRadius:     1400,
		EdgeMargin:     10,
		RespawnMin:     2 * time.Second,
		RespawnMax:     5 * time.Second,
	}
}

// EffectiveConfig is the slice of config echoed to clients in the welcome
// message so rendering matches the server simulation.
type EffectiveConfig struct {
	WorldSize   float64 `json:"world" msgpack:"world"`
	TickRate    int     `json:"tick" msgpack:"tick"`
	SegmentSize float64 `json:"seg" msgpack:"seg"`
	ViewRadius  float64 `json:"view" msgpack:"view"`
}

func (c GameConfig) Effective() EffectiveConfig {
	return EffectiveConfig{
		WorldSize:   c.WorldSize,
		TickRate:    TickRate,
		SegmentSize: c.SegmentSize,
		ViewRadius:  c.ViewRadius,
	}
}
