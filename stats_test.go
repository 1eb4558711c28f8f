package main

import (
	"testing"
	"time"
)

func TestStatsRecorderFlushOnStop(t *testing.T) {
	db := testDB(t)
	s := NewStatsRecorder(db)

	s.Record(FinalStats{UID: "u1", Name: "Ana", Score: 70, Length: 30, Kills: 1})
	s.Record(FinalStats{UID: "u1", Name: "Ana", Score: 40, Length: 20, Kills: 0})
	s.Stop()

	e, err := db.GetPlayerStats("u1")
	if err != nil {
		t.Fatal(err)
	}
	if e == nil {
		t.Fatal("stop should flush pending events")
	}
	if e.Games != 2 {
		t.Errorf("both events should be merged, got %d games", e.Games)
	}
	if e.BestScore != 70 {
		t.Errorf("best score should be the max, got %d", e.BestScore)
	}
}

func TestStatsRecorderRecordAfterStop(t *testing.T) {
	db := testDB(t)
	s := NewStatsRecorder(db)

	s.Record(FinalStats{UID: "u1", Name: "Ana", Score: 10})
	s.Stop()

	// A straggling tick during shutdown must be a silent no-op
	s.Record(FinalStats{UID: "u2", Name: "Bob", Score: 20})
	s.Stop() // idempotent

	if e, _ := db.GetPlayerStats("u1"); e == nil {
		t.Error("events before stop should be flushed")
	}
	if e, _ := db.GetPlayerStats("u2"); e != nil {
		t.Error("events after stop must be dropped")
	}
}

func TestFinalStatsMergeAcrossSessions(t *testing.T) {
	db := testDB(t)
	s := NewStatsRecorder(db)
	r := quietRoom()
	r.stats = s

	// Two sessions, two session ids, one account
	p1 := r.AddPlayer("sess-1", "Ana", "#fff", "", 42)
	p1.Score = 80
	p1.Kills = 1
	p1.Alive = false
	r.processDeaths([]Death{{Victim: p1}})
	r.RemovePlayer("sess-1")

	p2 := r.AddPlayer("sess-2", "Ana", "#fff", "", 42)
	p2.Score = 50
	p2.Kills = 2
	p2.Alive = false
	r.processDeaths([]Death{{Victim: p2}})

	s.Stop()

	e, err := db.GetPlayerStats("acct:42")
	if err != nil {
		t.Fatal(err)
	}
	if e == nil {
		t.Fatal("authenticated deaths should key on the account id")
	}
	if e.Games != 2 {
		t.Errorf("both sessions should merge into one row, got %d games", e.Games)
	}
	if e.BestScore != 80 {
		t.Errorf("best score should carry across sessions, got %d", e.BestScore)
	}
	if e.Kills != 3 {
		t.Errorf("kills should accumulate across sessions, got %d", e.Kills)
	}
	if row, _ := db.GetPlayerStats("sess-1"); row != nil {
		t.Error("session ids must not leak into the leaderboard for authenticated players")
	}
}

func TestStatsRecorderBatchFlush(t *testing.T) {
	db := testDB(t)
	s := NewStatsRecorder(db)
	defer s.Stop()

	// Filling past the batch threshold forces a flush without waiting for
	// the ticker
	for i := 0; i < 30; i++ {
		s.Record(FinalStats{UID: "u1", Name: "Ana", Score: i})
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if e, _ := db.GetPlayerStats("u1"); e != nil && e.Games >= 25 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Error("batch threshold should trigger a flush")
}
