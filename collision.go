package main

import "math"

const (
	BodyQueryScale    = 4.0 // body broad-phase query radius = head radius * this
	BodyHitSelfScale  = 0.5 // forgiving near the attacker's own radius
	BodyHitOtherScale = 0.8 // stricter near the victim's body radius
	HeadOnRangeScale  = 1.8 // head-to-head test range = segment size * this
	KillScoreShare    = 0.3 // killer's cut of the victim's score
)

// Death records one entity killed during collision resolution.
type Death struct {
	Victim *Player
	Killer *Player // nil for wall deaths and mutual head-on ties
}

// resolveCollisions runs the per-tick collision pass: boundary, then
// head-to-head, then body checks. Head-to-head goes before body so a true
// head-on meeting is decided by the length rule, not by whoever's neck
// segment happens to be closer. A killed snake is marked dead immediately so
// it is excluded from every later check in the same tick — nothing can be
// killed twice or kill after its own death.
func (r *Room) resolveCollisions() []Death {
	var deaths []Death

	kill := func(victim, killer *Player) {
		victim.Alive = false
		if killer != nil {
			killer.Score += math.Floor(victim.Score * KillScoreShare)
			killer.Kills++
		}
		deaths = append(deaths, Death{Victim: victim, Killer: killer})
	}

	for idx, p := range r.players {
		if p == nil || !p.Alive {
			continue
		}

		if r.boundaryHit(p) {
			kill(p, nil)
			continue
		}

		head := p.Head()
		myR := p.CollisionRadius(r.cfg)

		// Head-to-head: shorter dies, exact tie kills both. Each pair is
		// processed once, from the lower slot.
		hr := r.cfg.SegmentSize * HeadOnRangeScale
		refs := r.headGrid.QueryBuf(head.X, head.Y, hr, r.queryBuf[:0])
		for _, ref := range refs {
			if int(ref.Idx) <= idx {
				continue
			}
			o := r.players[ref.Idx]
			if o == nil || !o.Alive {
				continue
			}
			oh := o.Head()
			if DistanceSq(head.X, head.Y, oh.X, oh.Y) > hr*hr {
				continue
			}
			switch {
			case p.Length == o.Length:
				p.Alive = false
				o.Alive = false
				deaths = append(deaths, Death{Victim: p}, Death{Victim: o})
			case p.Length < o.Length:
				kill(p, o)
			default:
				kill(o, p)
			}
			if !p.Alive {
				break
			}
		}
		r.queryBuf = refs[:0]
		if !p.Alive {
			continue
		}

		// Body collisions: broad phase over the segment hash, refined with
		// an exact squared-distance check.
		refs = r.bodyGrid.QueryBuf(head.X, head.Y, myR*BodyQueryScale, r.queryBuf[:0])
		for _, ref := range refs {
			if int(ref.Idx) == idx || ref.Seg == 0 {
				continue // own body; heads are handled by the head pass
			}
			o := r.players[ref.Idx]
			if o == nil || !o.Alive || int(ref.Seg) >= len(o.Segments) {
				continue
			}
			seg := o.Segments[ref.Seg]
			hitR := myR*BodyHitSelfScale + o.CollisionRadius(r.cfg)*BodyHitOtherScale
			if DistanceSq(head.X, head.Y, seg.X, seg.Y) <= hitR*hitR {
				kill(p, o)
				break
			}
		}
		r.queryBuf = refs[:0]
	}

	return deaths
}

// boundaryHit checks the world edge. Humans die within EdgeMargin of any
// edge; bots soft-bounce instead — the offending direction component flips
// and the head is clamped inward. The asymmetry is deliberate: bots trade a
// life-or-death boundary for gameplay tolerance.
func (r *Room) boundaryHit(p *Player) bool {
	head := p.Head()
	m := r.cfg.EdgeMargin
	w := r.cfg.WorldSize
	if head.X >= m && head.X <= w-m && head.Y >= m && head.Y <= w-m {
		return false
	}
	if p.Bot == nil {
		return true
	}

	if head.X < m {
		p.Dir.X = math.Abs(p.Dir.X)
		head.X = m
	} else if head.X > w-m {
		p.Dir.X = -math.Abs(p.Dir.X)
		head.X = w - m
	}
	if head.Y < m {
		p.Dir.Y = math.Abs(p.Dir.Y)
		head.Y = m
	} else if head.Y > w-m {
		p.Dir.Y = -math.Abs(p.Dir.Y)
		head.Y = w - m
	}
	p.Dir = p.Dir.Norm()
	p.WantDir = p.Dir
	if p.Bot.State == BotExplore || p.Bot.State == BotFlee {
		p.Bot.WanderAngle = p.Dir.Angle()
	}
	p.Segments[0] = head
	return false
}
