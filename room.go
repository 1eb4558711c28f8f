package main

import (
	"log"
	"math"
	"sync"
	"time"
)

const maxBotSpawnsPerCycle = 5

// Broadcaster interface for sending messages to clients
type Broadcaster interface {
	SendJSON(msg interface{})
	SendBinary(data []byte)
}

// Room owns the entire world state: the player arena, the food list and the
// spatial indices. Everything is advanced by a single tick loop; connection
// goroutines only enqueue intent into player records under the room lock.
type Room struct {
	mu  sync.Mutex
	id  string
	cfg GameConfig

	// Dense player arena. Slots are reused via the free list; byID maps the
	// wire id to a slot. Iteration skips nil slots.
	players []*Player
	free    []int
	byID    map[string]int

	foods    []*Food
	foodByID map[string]int

	bodyGrid *SpatialGrid
	headGrid *SpatialGrid
	foodIdx  *FoodIndex

	clients   map[string]Broadcaster // playerID -> client
	respawnAt []time.Time            // pending bot respawns

	tick      uint64
	running   bool
	stop      chan struct{}
	startedAt time.Time

	stats *StatsRecorder // may be nil; never awaited inline

	// scratch buffers reused across ticks
	queryBuf []SegRef
	foodBuf  []int32
}

// NewRoom creates a room with the initial food and bot population.
func NewRoom(cfg GameConfig, stats *StatsRecorder) *Room {
	r := &Room{
		id:        GenerateUUID(),
		cfg:       cfg,
		byID:      make(map[string]int),
		foodByID:  make(map[string]int),
		bodyGrid:  NewSpatialGrid(cfg.WorldSize),
		headGrid:  NewSpatialGrid(cfg.WorldSize),
		foodIdx:   NewFoodIndex(cfg.WorldSize),
		clients:   make(map[string]Broadcaster),
		stop:      make(chan struct{}),
		startedAt: time.Now(),
		stats:     stats,
	}
	for i := 0; i < cfg.TargetFood; i++ {
		r.addFood(NewFood(cfg))
	}
	for i := 0; i < cfg.MinBots; i++ {
		r.spawnBot()
	}
	return r
}

// Run drives the tick loop. The timer self-corrects for drift: each delay is
// shortened by how long the previous tick's work took, so the long-run
// average rate matches TickRate even under load.
func (r *Room) Run() {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.mu.Unlock()

	log.Printf("room %s: tick loop started", r.id)

	timer := time.NewTimer(TickDuration)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			start := time.Now()
			r.safeTick()
			delay := TickDuration - time.Since(start)
			if delay < time.Millisecond {
				delay = time.Millisecond
			}
			timer.Reset(delay)
		case <-r.stop:
			return
		}
	}
}

// Stop terminates the tick loop.
func (r *Room) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		r.running = false
		close(r.stop)
	}
}

// safeTick catches per-tick panics at the loop boundary: one bad tick must
// not kill the server process.
func (r *Room) safeTick() {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("tick %d panic: %v", r.tick, rec)
		}
	}()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tickOnce()
}

// tickOnce advances the simulation one step. Fixed order, no re-entrancy.
func (r *Room) tickOnce() {
	dt := 1.0 / float64(TickRate)
	r.tick++

	r.rebuildIndices()

	// Movement: bots steer first, then everyone advances under the same
	// turn-rate-limited blend.
	for idx, p := range r.players {
		if p == nil || !p.Alive {
			continue
		}
		if p.Bot != nil {
			r.steerBot(idx, p, dt)
		}
		p.Advance(r.cfg, dt)
	}

	r.consumeFood()

	deaths := r.resolveCollisions()
	r.processDeaths(deaths)

	if r.tick%MaintainEvery == 0 {
		r.maintainPopulation()
	}

	if r.tick%BroadcastEvery == 0 {
		r.broadcastState()
	}
}

// rebuildIndices clears and refills both spatial hashes from scratch. Body
// insertion is capped per snake for cost control; the food index only
// rebuilds when dirty.
func (r *Room) rebuildIndices() {
	r.bodyGrid.Clear()
	r.headGrid.Clear()
	for idx, p := range r.players {
		if p == nil || !p.Alive {
			continue
		}
		n := len(p.Segments)
		if n > MaxHashedSegs {
			n = MaxHashedSegs
		}
		for s := 0; s < n; s++ {
			seg := p.Segments[s]
			r.bodyGrid.Insert(seg.X, seg.Y, SegRef{Idx: int32(idx), Seg: int32(s)})
		}
		head := p.Head()
		r.headGrid.Insert(head.X, head.Y, SegRef{Idx: int32(idx)})
	}
	if r.foodIdx.Dirty() {
		r.foodIdx.Build(r.foods)
	}
}

// consumeFood feeds every snake the nearest food within its eat radius.
// Eaten food is replaced in place so the index stays slot-stable; the dirty
// flag defers the rebuild to the next tick.
func (r *Room) consumeFood() {
	for _, p := range r.players {
		if p == nil || !p.Alive {
			continue
		}
		head := p.Head()
		fi := r.foodIdx.QueryNearest(r.foods, head.X, head.Y, p.EatRadius(r.cfg))
		if fi < 0 {
			continue
		}
		r.eatFood(p, fi)
	}
}

// eatFood awards a food item to a snake and respawns the slot elsewhere.
func (r *Room) eatFood(p *Player, fi int) {
	f := r.foods[fi]
	delete(r.foodByID, f.ID)
	p.Eat(f, r.cfg)
	f.Respawn(r.cfg)
	r.foodByID[f.ID] = fi
	r.foodIdx.MarkDirty()
}

// processDeaths handles everything a death triggers: food drop, death
// notifications, final-stats emission and bot respawn scheduling.
func (r *Room) processDeaths(deaths []Death) {
	for _, d := range deaths {
		v := d.Victim
		r.dropBodyFood(v)

		var killedBy *string
		if d.Killer != nil {
			name := d.Killer.Name
			killedBy = &name
		}
		msg := Envelope{T: MsgDeath, Data: DeathMsg{
			ID:       v.ID,
			KilledBy: killedBy,
			Score:    int(v.Score),
			Length:   round1(v.Length),
		}}
		for _, c := range r.clients {
			c.SendJSON(msg)
		}

		if v.Bot != nil {
			// Bots are fully removed; a fresh id spawns later
			r.freeSlot(v.ID)
			delay := r.cfg.RespawnMin + time.Duration(randFloat()*float64(r.cfg.RespawnMax-r.cfg.RespawnMin))
			r.respawnAt = append(r.respawnAt, time.Now().Add(delay))
		} else if r.stats != nil {
			// Humans linger until disconnect or rejoin
			r.stats.Record(FinalStats{
				UID:    v.StatsUID(),
				Name:   v.Name,
				Score:  int(v.Score),
				Length: v.Length,
				Kills:  v.Kills,
			})
		}
	}
}

// dropBodyFood scatters food along a dead snake's former body. The count is
// proportional to length but capped, and stops entirely once the world is at
// twice the nominal food target.
func (r *Room) dropBodyFood(v *Player) {
	n := int(v.Length / 2)
	if n > MaxDropItems {
		n = MaxDropItems
	}
	if n < 1 {
		n = 1
	}
	step := len(v.Segments) / n
	if step < 1 {
		step = 1
	}
	for i := 0; i < len(v.Segments) && n > 0; i += step {
		if len(r.foods) >= r.cfg.TargetFood*2 {
			break
		}
		r.addFood(NewDropFood(v.Segments[i], r.cfg))
		n--
	}
	r.foodIdx.MarkDirty()
}

// maintainPopulation runs once per MaintainEvery ticks: due bot respawns and
// deficit top-up toward the effective target, plus bounded food refill.
func (r *Room) maintainPopulation() {
	now := time.Now()

	// Effective bot target shrinks as humans join so the arena never feels
	// overcrowded when people are around.
	humans, bots := 0, 0
	for _, p := range r.players {
		if p == nil {
			continue
		}
		if p.Bot != nil {
			bots++
		} else if p.Alive {
			humans++
		}
	}
	target := r.cfg.MinBots - humans*2
	if target < 4 {
		target = 4
	}

	// Due respawns spawn only while under target; stale ones are dropped
	pending := r.respawnAt[:0]
	spawned := 0
	for _, at := range r.respawnAt {
		if now.Before(at) {
			pending = append(pending, at)
			continue
		}
		if bots < target && spawned < maxBotSpawnsPerCycle {
			r.spawnBot()
			bots++
			spawned++
		}
	}
	r.respawnAt = pending

	for bots+len(r.respawnAt) < target && spawned < maxBotSpawnsPerCycle {
		r.spawnBot()
		bots++
		spawned++
	}

	// Food refill in bounded batches toward the target
	if deficit := r.cfg.TargetFood - len(r.foods); deficit > 0 {
		batch := deficit
		if batch > FoodBatchMax {
			batch = FoodBatchMax
		}
		for i := 0; i < batch; i++ {
			r.addFood(NewFood(r.cfg))
		}
		r.foodIdx.MarkDirty()
	}
}

// --- player arena management ---

func (r *Room) allocSlot(p *Player) int {
	var idx int
	if n := len(r.free); n > 0 {
		idx = r.free[n-1]
		r.free = r.free[:n-1]
		r.players[idx] = p
	} else {
		idx = len(r.players)
		r.players = append(r.players, p)
	}
	r.byID[p.ID] = idx
	return idx
}

func (r *Room) freeSlot(id string) {
	idx, ok := r.byID[id]
	if !ok {
		return
	}
	r.players[idx] = nil
	r.free = append(r.free, idx)
	delete(r.byID, id)
}

func (r *Room) spawnBot() {
	r.allocSlot(NewBot(r.cfg))
}

func (r *Room) addFood(f *Food) {
	r.foodByID[f.ID] = len(r.foods)
	r.foods = append(r.foods, f)
}

// --- connection-facing operations (called from client goroutines) ---

// AddPlayer creates a human-controlled snake. A join for an id that is
// already present (rejoin after death) replaces the old record.
func (r *Room) AddPlayer(id, name, color, photo string, authUID int64) *Player {
	r.mu.Lock()
	defer r.mu.Unlock()

	humans := 0
	for _, p := range r.players {
		if p != nil && p.Bot == nil {
			humans++
		}
	}
	if _, rejoining := r.byID[id]; !rejoining && humans >= r.cfg.MaxPlayers {
		return nil
	}

	p := NewPlayer(id, name, color, r.cfg)
	p.Photo = photo
	p.AuthUID = authUID
	if idx, ok := r.byID[id]; ok {
		r.players[idx] = p
	} else {
		r.allocSlot(p)
	}
	return p
}

// RemovePlayer destroys a human record on disconnect, dropping any remaining
// body as food first.
func (r *Room) RemovePlayer(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx, ok := r.byID[id]
	if !ok {
		return
	}
	p := r.players[idx]
	if p != nil && p.Alive {
		p.Alive = false
		r.dropBodyFood(p)
	}
	r.players[idx] = nil
	r.free = append(r.free, idx)
	delete(r.byID, id)
	delete(r.clients, id)
}

// SetClient associates a broadcaster with a player
func (r *Room) SetClient(playerID string, client Broadcaster) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[playerID] = client
}

// HandleMove applies movement intent, last-writer-wins per field. Invalid
// numbers are dropped silently.
func (r *Room) HandleMove(playerID string, msg MoveMsg) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, ok := r.byID[playerID]
	if !ok {
		return
	}
	p := r.players[idx]
	if p == nil || !p.Alive || p.Bot != nil {
		return
	}

	if finite(msg.Dir.X) && finite(msg.Dir.Y) && (msg.Dir.X != 0 || msg.Dir.Y != 0) {
		p.WantDir = msg.Dir.Norm()
	}
	p.Boosting = msg.Boost && p.Length > r.cfg.MinLength

	// Optional client head correction, bounded so it cannot teleport
	if msg.Head != nil && finite(msg.Head.X) && finite(msg.Head.Y) {
		head := p.Head()
		if DistanceSq(head.X, head.Y, msg.Head.X, msg.Head.Y) <= HeadCatchUpDist*HeadCatchUpDist {
			p.Segments[0] = Vec{
				X: Clamp(msg.Head.X, 0, r.cfg.WorldSize),
				Y: Clamp(msg.Head.Y, 0, r.cfg.WorldSize),
			}
		}
	}
}

// HandleFoodEaten validates a client's food claim against the live index.
// Stale or bogus claims are ignored without penalty.
func (r *Room) HandleFoodEaten(playerID, foodID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, ok := r.byID[playerID]
	if !ok {
		return
	}
	p := r.players[idx]
	if p == nil || !p.Alive {
		return
	}
	fi, ok := r.foodByID[foodID]
	if !ok {
		return
	}
	f := r.foods[fi]
	head := p.Head()
	// Claim tolerance is a bit wider than the server-side eat radius to
	// absorb client/server position skew
	maxR := p.EatRadius(r.cfg) * 1.5
	if DistanceSq(head.X, head.Y, f.Pos.X, f.Pos.Y) > maxR*maxR {
		return
	}
	r.eatFood(p, fi)
}

// Health returns live counts for the introspection endpoint.
func (r *Room) Health() HealthInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	humans, bots := 0, 0
	for _, p := range r.players {
		if p == nil {
			continue
		}
		if p.Bot != nil {
			bots++
		} else {
			humans++
		}
	}
	return HealthInfo{
		UptimeSec: time.Since(r.startedAt).Seconds(),
		Humans:    humans,
		Bots:      bots,
		Food:      len(r.foods),
		Clients:   len(r.clients),
		Tick:      r.tick,
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
