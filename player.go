package main

import (
	"math"
	"strconv"
)

const (
	StartLength     = 15.0
	MaxHashedSegs   = 80   // body segments indexed for collision, per snake
	SegFullDetail   = 120  // max segments sent for the viewer's own snake
	SegMidDetail    = 40   // segment cap for mid-distance snakes
	SegFarDetail    = 12   // segment cap for far snakes
	HeadCatchUpDist = 90.0 // max client-reported head correction per move msg
)

// Player is one snake in the arena, human or bot. The only structural
// difference is that bots carry a BotMemory.
type Player struct {
	ID       string
	Name     string
	Color    string
	Photo    string // optional avatar reference, cosmetic
	Segments []Vec  // index 0 = head, tail-ward order
	Dir      Vec    // unit heading
	WantDir  Vec    // desired heading, blended in with the turn-rate limit
	Length   float64
	Score    float64
	Kills    int
	Alive    bool
	Boosting bool
	AuthUID  int64 // 0 = guest

	Bot *BotMemory // nil for humans
}

// NewPlayer spawns a snake at a random position away from the edges.
func NewPlayer(id, name, color string, cfg GameConfig) *Player {
	x := cfg.WorldSize/4 + randFloat()*cfg.WorldSize/2
	y := cfg.WorldSize/4 + randFloat()*cfg.WorldSize/2
	dir := VecFromAngle(randFloat() * 2 * math.Pi)

	p := &Player{
		ID:      id,
		Name:    name,
		Color:   color,
		Dir:     dir,
		WantDir: dir,
		Length:  StartLength,
		Alive:   true,
	}
	// Lay the starting body out behind the head
	n := int(math.Ceil(p.Length))
	p.Segments = make([]Vec, 0, n)
	for i := 0; i < n; i++ {
		p.Segments = append(p.Segments, Vec{
			X: Clamp(x-dir.X*float64(i)*cfg.SegmentSize, 0, cfg.WorldSize),
			Y: Clamp(y-dir.Y*float64(i)*cfg.SegmentSize, 0, cfg.WorldSize),
		})
	}
	return p
}

// NewBot spawns a bot snake with randomized personality.
func NewBot(cfg GameConfig) *Player {
	p := NewPlayer("bot_"+GenerateID(4), botName(), botColor(), cfg)
	p.Bot = &BotMemory{
		State:       BotExplore,
		WanderAngle: p.Dir.Angle(),
		Aggression:  randFloat(),
		SpeedMul:    randRange(0.8, 1.2),
		EvalIn:      randInt(26) + 20,
	}
	return p
}

// StatsUID is the leaderboard key. Authenticated players key on the account
// id so entries merge across sessions; guests key on the per-session id.
func (p *Player) StatsUID() string {
	if p.AuthUID != 0 {
		return "acct:" + strconv.FormatInt(p.AuthUID, 10)
	}
	return p.ID
}

// Head returns the head position. Only valid while alive.
func (p *Player) Head() Vec {
	return p.Segments[0]
}

// Thickness is the sub-linear size multiplier derived from length, so long
// snakes get wider without becoming absurd.
func (p *Player) Thickness() float64 {
	return 1 + math.Log2(1+math.Max(0, p.Length-10)/12)*0.9
}

// CollisionRadius is the head radius used by the collision resolver.
func (p *Player) CollisionRadius(cfg GameConfig) float64 {
	return cfg.SegmentSize * p.Thickness()
}

// EatRadius is the effective mouth size; thicker snakes eat from further.
func (p *Player) EatRadius(cfg GameConfig) float64 {
	return cfg.SegmentSize * 1.6 * p.Thickness()
}

// Advance moves the snake one tick: blend heading toward WantDir under the
// turn-rate cap, step the head, clamp to the world, push the new head and
// trim the tail to match ceil(Length).
func (p *Player) Advance(cfg GameConfig, dt float64) {
	cur := p.Dir.Angle()
	want := p.WantDir.Norm().Angle()
	diff := NormalizeAngle(want - cur)
	maxTurn := cfg.TurnRate * dt
	if diff > maxTurn {
		diff = maxTurn
	} else if diff < -maxTurn {
		diff = -maxTurn
	}
	p.Dir = VecFromAngle(cur + diff)

	speed := cfg.BaseSpeed
	if p.Boosting {
		speed = cfg.BoostSpeed
	}
	if p.Bot != nil {
		speed *= p.Bot.SpeedMul
	}

	head := p.Head()
	next := Vec{
		X: Clamp(head.X+p.Dir.X*speed*dt, 0, cfg.WorldSize),
		Y: Clamp(head.Y+p.Dir.Y*speed*dt, 0, cfg.WorldSize),
	}
	p.Segments = append(p.Segments, Vec{})
	copy(p.Segments[1:], p.Segments)
	p.Segments[0] = next

	target := int(math.Ceil(p.Length))
	if target < 1 {
		target = 1
	}
	if len(p.Segments) > target {
		p.Segments = p.Segments[:target]
	}

	// Boost drain stops at the length floor
	if p.Boosting && p.Length > cfg.MinLength {
		p.Length = math.Max(cfg.MinLength, p.Length-cfg.BoostCost*dt)
		p.Score = math.Max(0, p.Score-cfg.BoostScoreCost*dt)
	}
}

// Eat applies a swallowed food item.
func (p *Player) Eat(f *Food, cfg GameConfig) {
	p.Score += float64(f.Value)
	p.Length += cfg.GrowthRate * float64(f.Value)
}

// segmentCap returns how many segments to transmit for a snake at the given
// squared distance from the viewer. Distant snakes never need full fidelity.
func segmentCap(distSq, viewRadius float64, own bool) int {
	if own {
		return SegFullDetail
	}
	near := viewRadius * 0.33
	mid := viewRadius * 0.66
	switch {
	case distSq <= near*near:
		return SegFullDetail
	case distSq <= mid*mid:
		return SegMidDetail
	default:
		return SegFarDetail
	}
}

// ToState converts to protocol state, truncating the segment list to limit.
func (p *Player) ToState(limit int) PlayerState {
	n := len(p.Segments)
	if n > limit {
		n = limit
	}
	segs := make([]Vec, n)
	for i := 0; i < n; i++ {
		segs[i] = Vec{X: round1(p.Segments[i].X), Y: round1(p.Segments[i].Y)}
	}
	return PlayerState{
		ID:       p.ID,
		Name:     p.Name,
		Color:    p.Color,
		Segments: segs,
		Dir:      Vec{X: round2(p.Dir.X), Y: round2(p.Dir.Y)},
		Length:   round1(p.Length),
		Score:    int(p.Score),
		Alive:    p.Alive,
		Boost:    p.Boosting,
		Bot:      p.Bot != nil,
	}
}

var botNames = []string{
	"Sidewinder", "Mamba", "Viper", "Cobra", "Boa", "Adder",
	"Taipan", "Krait", "Python", "Racer", "Asp", "Copperhead",
}

var botColors = []string{
	"#ff6b6b", "#ffd93d", "#6bcb77", "#4d96ff", "#b76bff",
	"#ff9f45", "#2ec4b6", "#e71d73",
}

func botName() string {
	return botNames[randInt(len(botNames))] + "-" + GenerateID(1)
}

func botColor() string {
	return botColors[randInt(len(botColors))]
}
