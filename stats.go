package main

import (
	"log"
	"sync"
	"time"
)

// FinalStats is emitted when a human-controlled snake dies. The leaderboard
// store merges it: best score/length are kept as maxima, games played is
// incremented, kills accumulate.
type FinalStats struct {
	UID    string
	Name   string
	Score  int
	Length float64
	Kills  int
	At     time.Time
}

// StatsRecorder decouples the tick loop from persistence: deaths are pushed
// into a bounded channel and a background worker batches them into the
// database. A slow or failing store can never stall a tick.
type StatsRecorder struct {
	db     *DB
	events chan FinalStats
	stop   chan struct{}
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewStatsRecorder creates and starts the background writer.
func NewStatsRecorder(db *DB) *StatsRecorder {
	s := &StatsRecorder{
		db:     db,
		events: make(chan FinalStats, 256),
		stop:   make(chan struct{}),
	}
	s.wg.Add(1)
	go s.writer()
	return s
}

// Record enqueues final stats without blocking. If the channel is full the
// event is dropped rather than stalling the game loop. A straggling tick can
// still call this during shutdown, so events after Stop are dropped rather
// than sent into a stopping worker.
func (s *StatsRecorder) Record(fs FinalStats) {
	fs.At = time.Now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.events <- fs:
	default:
	}
}

// Stop drains and flushes remaining events, then shuts the worker down.
// Idempotent.
func (s *StatsRecorder) Stop() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	close(s.stop)
	s.wg.Wait()
}

func (s *StatsRecorder) writer() {
	defer s.wg.Done()

	batch := make([]FinalStats, 0, 32)
	ticker := time.NewTicker(3 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case fs := <-s.events:
			batch = append(batch, fs)
			if len(batch) >= 25 {
				s.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				s.flush(batch)
				batch = batch[:0]
			}
		case <-s.stop:
			// Record stops enqueueing once closed is set, so the channel
			// only holds what was buffered before Stop; drain it without
			// closing so no sender can ever hit a closed channel
			for {
				select {
				case fs := <-s.events:
					batch = append(batch, fs)
					continue
				default:
				}
				break
			}
			if len(batch) > 0 {
				s.flush(batch)
			}
			return
		}
	}
}

func (s *StatsRecorder) flush(batch []FinalStats) {
	if s.db == nil {
		return
	}
	for _, fs := range batch {
		if err := s.db.MergeFinalStats(fs); err != nil {
			log.Printf("stats: merge %s: %v", fs.UID, err)
		}
	}
}
