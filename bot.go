package main

import "math"

// BotState is the behavior state of one bot.
type BotState int

const (
	BotExplore BotState = iota
	BotHunt
	BotFlee
	BotAmbush
)

const (
	BotEvalMin       = 20    // min ticks between state re-evaluations
	BotEvalMax       = 45    // max ticks between state re-evaluations
	BotExploreChance = 0.08  // forced explore, breaks hunt/flee loops
	BotThreatRadius  = 500.0 // larger snake inside this triggers flee
	BotVictimRadius  = 420.0 // smaller snake inside this triggers ambush
	BotFoodRadius    = 650.0 // how far a bot looks for food
	BotWanderDrift   = 1.2   // radians/s the wander angle drifts
	BotFleeNoise     = 0.25  // radians of jitter on the flee heading
	BotAmbushFreq    = 4.0   // rad/s of the lateral coil oscillation
	BotAmbushAmp     = 0.6   // lateral oscillation strength
	BotAvoidRadius   = 140.0 // body repulsion sensing radius
	BotAvoidForce    = 60.0  // repulsion weight, divided by distance
	BotWallMargin    = 350.0 // wall repulsion starts this far from an edge
	BotWallForce     = 2.5   // wall repulsion weight, quadratic falloff
)

// BotMemory is the per-bot control record. Personality scalars are fixed at
// spawn so the population stays behaviorally diverse.
type BotMemory struct {
	State       BotState
	EvalIn      int     // ticks until the next state re-evaluation
	WanderAngle float64 // slowly-rotating explore heading
	FleeDir     Vec     // heading away from the last seen threat
	AmbushPhase float64 // phase of the lateral coil oscillation
	Aggression  float64 // 0..1, biases flee vs ambush transitions
	SpeedMul    float64 // ~0.8..1.2 movement speed multiplier
}

// steerBot produces the bot's desired heading and boost intent for this
// tick. State transitions only happen at the randomized re-evaluation
// interval; the safety layers (body and wall avoidance) apply every tick.
func (r *Room) steerBot(idx int, p *Player, dt float64) {
	m := p.Bot
	m.EvalIn--
	if m.EvalIn <= 0 {
		r.evaluateBot(idx, p)
		m.EvalIn = BotEvalMin + randInt(BotEvalMax-BotEvalMin+1)
	}

	head := p.Head()
	var desired Vec
	boost := false

	switch m.State {
	case BotExplore:
		m.WanderAngle += randRange(-1, 1) * BotWanderDrift * dt
		desired = VecFromAngle(m.WanderAngle)
	case BotHunt, BotAmbush:
		fi := r.foodIdx.QueryNearest(r.foods, head.X, head.Y, BotFoodRadius)
		if fi >= 0 {
			f := r.foods[fi]
			desired = Vec{X: f.Pos.X - head.X, Y: f.Pos.Y - head.Y}.Norm()
		} else {
			m.WanderAngle += randRange(-1, 1) * BotWanderDrift * dt
			desired = VecFromAngle(m.WanderAngle)
		}
		if m.State == BotAmbush {
			m.AmbushPhase += BotAmbushFreq * dt
			lat := math.Sin(m.AmbushPhase) * BotAmbushAmp
			desired = Vec{X: desired.X - desired.Y*lat, Y: desired.Y + desired.X*lat}.Norm()
		}
	case BotFlee:
		desired = VecFromAngle(m.FleeDir.Angle() + randRange(-BotFleeNoise, BotFleeNoise))
		boost = true
	}

	avoid := r.bodyAvoidance(idx, head)
	wall := wallAvoidance(head, r.cfg)
	p.WantDir = Vec{
		X: desired.X + avoid.X + wall.X,
		Y: desired.Y + avoid.Y + wall.Y,
	}.Norm()
	p.Boosting = boost && p.Length > r.cfg.MinLength+2
}

// evaluateBot runs the state transition logic against the head hash.
func (r *Room) evaluateBot(idx int, p *Player) {
	m := p.Bot

	if randFloat() < BotExploreChance {
		m.State = BotExplore
		m.WanderAngle = p.Dir.Angle()
		return
	}

	head := p.Head()
	var threat, victim *Player
	threatD := BotThreatRadius * BotThreatRadius
	victimD := BotVictimRadius * BotVictimRadius

	refs := r.headGrid.QueryBuf(head.X, head.Y, BotThreatRadius, r.queryBuf[:0])
	for _, ref := range refs {
		if int(ref.Idx) == idx {
			continue
		}
		o := r.players[ref.Idx]
		if o == nil || !o.Alive {
			continue
		}
		oh := o.Head()
		d := DistanceSq(head.X, head.Y, oh.X, oh.Y)
		if o.Length > p.Length*1.1 && d < threatD {
			threat = o
			threatD = d
		}
		if o.Length < p.Length*0.8 && d < victimD {
			victim = o
			victimD = d
		}
	}
	r.queryBuf = refs[:0]

	switch {
	case threat != nil && m.Aggression < 0.6:
		m.State = BotFlee
		th := threat.Head()
		m.FleeDir = Vec{X: head.X - th.X, Y: head.Y - th.Y}.Norm()
		p.WantDir = m.FleeDir
	case victim != nil && m.Aggression > 0.6:
		m.State = BotAmbush
	default:
		m.State = BotHunt
	}
}

// bodyAvoidance sums repulsion away from nearby segments of other snakes,
// inversely proportional to distance.
func (r *Room) bodyAvoidance(idx int, head Vec) Vec {
	refs := r.bodyGrid.QueryBuf(head.X, head.Y, BotAvoidRadius, r.queryBuf[:0])
	var f Vec
	for _, ref := range refs {
		if int(ref.Idx) == idx {
			continue
		}
		o := r.players[ref.Idx]
		if o == nil || !o.Alive || int(ref.Seg) >= len(o.Segments) {
			continue
		}
		s := o.Segments[ref.Seg]
		d := Distance(head.X, head.Y, s.X, s.Y)
		if d > BotAvoidRadius {
			continue
		}
		if d < 1 {
			d = 1
		}
		w := BotAvoidForce / d
		f.X += (head.X - s.X) / d * w
		f.Y += (head.Y - s.Y) / d * w
	}
	r.queryBuf = refs[:0]
	return f
}

// wallAvoidance pushes inward with quadratic falloff starting BotWallMargin
// units from any edge.
func wallAvoidance(head Vec, cfg GameConfig) Vec {
	var f Vec
	if head.X < BotWallMargin {
		t := 1 - head.X/BotWallMargin
		f.X += t * t * BotWallForce
	}
	if head.X > cfg.WorldSize-BotWallMargin {
		t := 1 - (cfg.WorldSize-head.X)/BotWallMargin
		f.X -= t * t * BotWallForce
	}
	if head.Y < BotWallMargin {
		t := 1 - head.Y/BotWallMargin
		f.Y += t * t * BotWallForce
	}
	if head.Y > cfg.WorldSize-BotWallMargin {
		t := 1 - (cfg.WorldSize-head.Y)/BotWallMargin
		f.Y -= t * t * BotWallForce
	}
	return f
}
