package main

import (
	"math"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

type mockClient struct {
	jsonMsgs []interface{}
	binMsgs  [][]byte
}

func (m *mockClient) SendJSON(msg interface{}) { m.jsonMsgs = append(m.jsonMsgs, msg) }
func (m *mockClient) SendBinary(b []byte)      { m.binMsgs = append(m.binMsgs, b) }

func (m *mockClient) deathMsgs() []DeathMsg {
	var out []DeathMsg
	for _, raw := range m.jsonMsgs {
		env, ok := raw.(Envelope)
		if !ok || env.T != MsgDeath {
			continue
		}
		if d, ok := env.Data.(DeathMsg); ok {
			out = append(out, d)
		}
	}
	return out
}

func TestTickInvariants(t *testing.T) {
	cfg := DefaultGameConfig()
	cfg.MinBots = 8
	cfg.TargetFood = 100
	r := NewRoom(cfg, nil)

	for i := 0; i < 120; i++ {
		r.tickOnce()
	}

	for _, p := range r.players {
		if p == nil || !p.Alive {
			continue
		}
		h := p.Head()
		if h.X < 0 || h.X > cfg.WorldSize || h.Y < 0 || h.Y > cfg.WorldSize {
			t.Errorf("head out of bounds: %v", h)
		}
		if math.Abs(math.Hypot(p.Dir.X, p.Dir.Y)-1) > 1e-6 {
			t.Errorf("heading not unit length: %v", p.Dir)
		}
		if len(p.Segments) == 0 {
			t.Error("alive snake with no segments")
		}
	}
}

func TestInitialPopulation(t *testing.T) {
	cfg := DefaultGameConfig()
	cfg.MinBots = 6
	cfg.TargetFood = 80
	r := NewRoom(cfg, nil)

	if len(r.foods) != 80 {
		t.Errorf("expected 80 initial food, got %d", len(r.foods))
	}
	bots := 0
	for _, p := range r.players {
		if p != nil && p.Bot != nil {
			bots++
		}
	}
	if bots != 6 {
		t.Errorf("expected 6 initial bots, got %d", bots)
	}
}

func TestFoodRefillBatched(t *testing.T) {
	r := quietRoom()
	r.cfg.TargetFood = 120 // starts empty, the deficit is the full target

	r.tick = MaintainEvery - 1
	r.tickOnce()

	if len(r.foods) != FoodBatchMax {
		t.Errorf("one maintenance cycle refills at most %d food, got %d", FoodBatchMax, len(r.foods))
	}

	r.tick = MaintainEvery - 1
	r.tickOnce()
	if len(r.foods) != 2*FoodBatchMax {
		t.Errorf("second cycle should add another batch, got %d", len(r.foods))
	}

	r.tick = MaintainEvery - 1
	r.tickOnce()
	if len(r.foods) != 120 {
		t.Errorf("refill should stop at the target, got %d", len(r.foods))
	}
}

func TestBotPopulationConvergesFromBelow(t *testing.T) {
	r := quietRoom()
	r.cfg.MinBots = 12

	countBots := func() int {
		n := 0
		for _, p := range r.players {
			if p != nil && p.Bot != nil {
				n++
			}
		}
		return n
	}

	r.maintainPopulation()
	if got := countBots(); got != maxBotSpawnsPerCycle {
		t.Errorf("spawns are rate-limited to %d per cycle, got %d bots", maxBotSpawnsPerCycle, got)
	}

	for i := 0; i < 3; i++ {
		r.maintainPopulation()
	}
	if got := countBots(); got != 12 {
		t.Errorf("bot population should converge to the target, got %d", got)
	}

	// At target, maintenance never over-spawns
	r.maintainPopulation()
	if got := countBots(); got > 12 {
		t.Errorf("maintenance must not exceed the target, got %d", got)
	}
}

func TestBotTargetShrinksWithHumans(t *testing.T) {
	r := quietRoom()
	r.cfg.MinBots = 10

	for i := 0; i < 3; i++ {
		r.AddPlayer(GenerateID(4), "Human", "#fff", "", 0)
	}

	for i := 0; i < 4; i++ {
		r.maintainPopulation()
	}

	bots := 0
	for _, p := range r.players {
		if p != nil && p.Bot != nil {
			bots++
		}
	}
	// 10 - 3*2 = 4, which is also the floor
	if bots != 4 {
		t.Errorf("expected bot target 4 with 3 humans present, got %d", bots)
	}
}

func TestHandleMoveSetsIntent(t *testing.T) {
	r := quietRoom()
	p := r.AddPlayer("h1", "Human", "#fff", "", 0)
	p.Length = 30

	r.HandleMove("h1", MoveMsg{Dir: Vec{X: 0, Y: 5}, Boost: true})

	if math.Abs(p.WantDir.Y-1) > 1e-9 || p.WantDir.X != 0 {
		t.Errorf("direction should be normalized, got %v", p.WantDir)
	}
	if !p.Boosting {
		t.Error("boost intent should be applied above the length floor")
	}
}

func TestHandleMoveBoostDeniedAtFloor(t *testing.T) {
	r := quietRoom()
	p := r.AddPlayer("h1", "Human", "#fff", "", 0)
	p.Length = r.cfg.MinLength

	r.HandleMove("h1", MoveMsg{Dir: Vec{X: 1, Y: 0}, Boost: true})
	if p.Boosting {
		t.Error("boost must be denied at the length floor")
	}
}

func TestHandleMoveRejectsBadNumbers(t *testing.T) {
	r := quietRoom()
	p := r.AddPlayer("h1", "Human", "#fff", "", 0)
	want := p.WantDir

	r.HandleMove("h1", MoveMsg{Dir: Vec{X: math.NaN(), Y: 1}})
	if p.WantDir != want {
		t.Error("NaN direction should be ignored")
	}
	r.HandleMove("h1", MoveMsg{Dir: Vec{X: math.Inf(1), Y: 0}})
	if p.WantDir != want {
		t.Error("Inf direction should be ignored")
	}
	r.HandleMove("h1", MoveMsg{Dir: Vec{}})
	if p.WantDir != want {
		t.Error("zero direction should be ignored")
	}
}

func TestHandleMoveHeadCorrectionBounded(t *testing.T) {
	r := quietRoom()
	p := r.AddPlayer("h1", "Human", "#fff", "", 0)
	head := p.Head()

	// Small correction is accepted
	near := Vec{X: head.X + 20, Y: head.Y}
	r.HandleMove("h1", MoveMsg{Dir: Vec{X: 1, Y: 0}, Head: &near})
	if p.Head() != near {
		t.Error("in-range head correction should be applied")
	}

	// Teleport attempt is ignored
	far := Vec{X: head.X + HeadCatchUpDist*3, Y: head.Y}
	r.HandleMove("h1", MoveMsg{Dir: Vec{X: 1, Y: 0}, Head: &far})
	if p.Head() == far {
		t.Error("out-of-range head correction must be ignored")
	}
}

func TestHandleMoveIgnoresBots(t *testing.T) {
	r := quietRoom()
	b := NewBot(r.cfg)
	r.allocSlot(b)
	want := b.WantDir

	r.HandleMove(b.ID, MoveMsg{Dir: Vec{X: 0, Y: 1}})
	if b.WantDir != want {
		t.Error("move messages must never steer bots")
	}
}

func TestHandleFoodEatenValidClaim(t *testing.T) {
	r := quietRoom()
	r.cfg.TargetFood = 1 // keep one slot
	p := r.AddPlayer("h1", "Human", "#fff", "", 0)
	head := p.Head()

	f := testFoodAt(head.X+5, head.Y)
	r.addFood(f)
	oldID := f.ID

	r.HandleFoodEaten("h1", oldID)

	if p.Score == 0 {
		t.Error("valid claim should award the food")
	}
	if f.ID == oldID {
		t.Error("eaten food should respawn with a fresh id")
	}
	if _, ok := r.foodByID[oldID]; ok {
		t.Error("old food id should be unmapped")
	}
	if _, ok := r.foodByID[f.ID]; !ok {
		t.Error("respawned food should be mapped under its new id")
	}
	if !r.foodIdx.Dirty() {
		t.Error("eating should mark the food index dirty")
	}
}

func TestHandleFoodEatenRejectsFarClaim(t *testing.T) {
	r := quietRoom()
	p := r.AddPlayer("h1", "Human", "#fff", "", 0)
	head := p.Head()

	f := testFoodAt(head.X+1000, head.Y)
	r.addFood(f)

	r.HandleFoodEaten("h1", f.ID)
	if p.Score != 0 {
		t.Error("far claims must be rejected")
	}
}

func TestHandleFoodEatenStaleID(t *testing.T) {
	r := quietRoom()
	p := r.AddPlayer("h1", "Human", "#fff", "", 0)

	r.HandleFoodEaten("h1", "nope")
	if p.Score != 0 {
		t.Error("unknown food ids are a no-op")
	}
}

func TestHumanWallDeathNotifiesClients(t *testing.T) {
	r := quietRoom()
	r.cfg.TargetFood = 10 // allow the corpse to drop food
	p := r.AddPlayer("h1", "Human", "#fff", "", 0)
	mock := &mockClient{}
	r.SetClient("h1", mock)

	p.Segments[0] = Vec{X: r.cfg.WorldSize - 5, Y: 2500}
	p.Dir = Vec{X: 1, Y: 0}
	p.WantDir = p.Dir
	p.Score = 42

	r.tickOnce()

	if p.Alive {
		t.Fatal("human should die at the wall")
	}
	deaths := mock.deathMsgs()
	if len(deaths) != 1 {
		t.Fatalf("expected 1 death notification, got %d", len(deaths))
	}
	if deaths[0].ID != "h1" {
		t.Errorf("death notification for wrong player: %s", deaths[0].ID)
	}
	if deaths[0].KilledBy != nil {
		t.Error("wall deaths carry a null killer")
	}
	if len(r.foods) == 0 {
		t.Error("the corpse should drop food")
	}
	// The record lingers for a possible rejoin
	if _, ok := r.byID["h1"]; !ok {
		t.Error("dead humans linger until disconnect or rejoin")
	}
}

func TestBotDeathSchedulesRespawn(t *testing.T) {
	r := quietRoom()
	r.cfg.TargetFood = 10
	b := NewBot(r.cfg)
	b.Segments = []Vec{{X: 2500, Y: 2500}}
	r.allocSlot(b)
	longer := placeSnake(r, "big", Vec{X: 2505, Y: 2500}, Vec{X: -1, Y: 0}, 200, 0)

	r.rebuildIndices()
	deaths := r.resolveCollisions()
	if len(deaths) != 1 || deaths[0].Victim != b {
		t.Fatal("bot should lose the head-on")
	}
	r.processDeaths(deaths)

	if _, ok := r.byID[b.ID]; ok {
		t.Error("dead bots are removed immediately")
	}
	if len(r.respawnAt) != 1 {
		t.Errorf("expected 1 scheduled respawn, got %d", len(r.respawnAt))
	}
	if !longer.Alive {
		t.Error("winner should survive")
	}
}

func TestRejoinReplacesRecord(t *testing.T) {
	r := quietRoom()
	p1 := r.AddPlayer("h1", "First", "#fff", "", 0)
	p1.Alive = false

	p2 := r.AddPlayer("h1", "Second", "#0f0", "", 0)
	if p2 == nil {
		t.Fatal("rejoin should succeed")
	}
	if !p2.Alive || p2.Name != "Second" {
		t.Error("rejoin should produce a fresh live snake")
	}

	slots := 0
	for _, p := range r.players {
		if p != nil {
			slots++
		}
	}
	if slots != 1 {
		t.Errorf("rejoin must reuse the slot, got %d occupied slots", slots)
	}
}

func TestAddPlayerArenaFull(t *testing.T) {
	r := quietRoom()
	r.cfg.MaxPlayers = 1

	if r.AddPlayer("h1", "A", "#fff", "", 0) == nil {
		t.Fatal("first player should be admitted")
	}
	if r.AddPlayer("h2", "B", "#fff", "", 0) != nil {
		t.Error("arena at capacity should reject new humans")
	}
	// Bots never count against the human cap
	r.allocSlot(NewBot(r.cfg))
	if r.AddPlayer("h1", "A", "#fff", "", 0) == nil {
		t.Error("rejoin bypasses the capacity check")
	}
}

func TestRemovePlayerFreesSlot(t *testing.T) {
	r := quietRoom()
	r.cfg.TargetFood = 10
	r.AddPlayer("h1", "A", "#fff", "", 0)
	mock := &mockClient{}
	r.SetClient("h1", mock)

	r.RemovePlayer("h1")

	if _, ok := r.byID["h1"]; ok {
		t.Error("removed player should be unmapped")
	}
	if len(r.free) != 1 {
		t.Errorf("slot should return to the free list, got %d", len(r.free))
	}
	if _, ok := r.clients["h1"]; ok {
		t.Error("client registration should be dropped")
	}
	if len(r.foods) == 0 {
		t.Error("disconnect while alive should drop the body as food")
	}
}

func TestBroadcastViewCulling(t *testing.T) {
	r := quietRoom()
	viewer := r.AddPlayer("h1", "Viewer", "#fff", "", 0)
	viewer.Segments[0] = Vec{X: 2500, Y: 2500}
	mock := &mockClient{}
	r.SetClient("h1", mock)

	near := placeSnake(r, "near", Vec{X: 2700, Y: 2500}, Vec{X: 1, Y: 0}, 20, 0)
	_ = placeSnake(r, "far", Vec{X: 100, Y: 100}, Vec{X: 1, Y: 0}, 20, 0)

	nearFood := testFoodAt(2600, 2500)
	farFood := testFoodAt(4900, 4900)
	r.addFood(nearFood)
	r.addFood(farFood)
	r.foodIdx.MarkDirty()

	r.rebuildIndices()
	r.broadcastState()

	if len(mock.binMsgs) != 1 {
		t.Fatalf("expected 1 binary snapshot, got %d", len(mock.binMsgs))
	}
	var state StateMsg
	if err := msgpack.Unmarshal(mock.binMsgs[0], &state); err != nil {
		t.Fatalf("snapshot should decode as msgpack: %v", err)
	}

	ids := map[string]bool{}
	for _, ps := range state.Players {
		ids[ps.ID] = true
	}
	if !ids["h1"] {
		t.Error("viewer must always see their own snake")
	}
	if !ids[near.ID] {
		t.Error("in-view snake should be included")
	}
	if ids["far"] {
		t.Error("out-of-view snake must be culled")
	}

	foodIDs := map[string]bool{}
	for _, fs := range state.Foods {
		foodIDs[fs.ID] = true
	}
	if !foodIDs[nearFood.ID] {
		t.Error("in-view food should be included")
	}
	if foodIDs[farFood.ID] {
		t.Error("out-of-view food must be culled")
	}
}

func TestBroadcastDeadViewerStillSees(t *testing.T) {
	r := quietRoom()
	viewer := r.AddPlayer("h1", "Viewer", "#fff", "", 0)
	viewer.Segments[0] = Vec{X: 2500, Y: 2500}
	viewer.Alive = false
	mock := &mockClient{}
	r.SetClient("h1", mock)

	r.rebuildIndices()
	r.broadcastState()

	if len(mock.binMsgs) != 1 {
		t.Fatalf("dead viewer should still receive snapshots, got %d", len(mock.binMsgs))
	}
	var state StateMsg
	if err := msgpack.Unmarshal(mock.binMsgs[0], &state); err != nil {
		t.Fatal(err)
	}
	if len(state.Players) != 1 || state.Players[0].ID != "h1" || state.Players[0].Alive {
		t.Error("snapshot should carry the viewer's own corpse")
	}
}

func TestHealthCounts(t *testing.T) {
	cfg := DefaultGameConfig()
	cfg.MinBots = 3
	cfg.TargetFood = 40
	r := NewRoom(cfg, nil)
	r.AddPlayer("h1", "A", "#fff", "", 0)

	h := r.Health()
	if h.Humans != 1 {
		t.Errorf("expected 1 human, got %d", h.Humans)
	}
	if h.Bots != 3 {
		t.Errorf("expected 3 bots, got %d", h.Bots)
	}
	if h.Food != 40 {
		t.Errorf("expected 40 food, got %d", h.Food)
	}
}

func TestStatsRecorderNilDB(t *testing.T) {
	s := NewStatsRecorder(nil)
	for i := 0; i < 10; i++ {
		s.Record(FinalStats{UID: "u", Score: i})
	}
	s.Stop() // must drain and exit without panicking
}
