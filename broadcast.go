package main

import (
	"log"

	"github.com/vmihailenco/msgpack/v5"
)

// broadcastState sends each connected client its own view-culled snapshot.
// Runs every BroadcastEvery ticks under the room lock; nothing here mutates
// shared state.
func (r *Room) broadcastState() {
	viewR := r.cfg.ViewRadius
	viewRSq := viewR * viewR

	for pid, client := range r.clients {
		idx, ok := r.byID[pid]
		if !ok {
			continue
		}
		viewer := r.players[idx]
		if viewer == nil || len(viewer.Segments) == 0 {
			continue
		}
		center := viewer.Head()

		state := StateMsg{Tick: r.tick}

		// The viewer's own snake is always included at full detail, even
		// briefly after death so the client can render the corpse
		state.Players = append(state.Players, viewer.ToState(SegFullDetail))

		for oidx, o := range r.players {
			if o == nil || oidx == idx || !o.Alive || len(o.Segments) == 0 {
				continue
			}
			oh := o.Head()
			d := DistanceSq(center.X, center.Y, oh.X, oh.Y)
			if d > viewRSq {
				continue
			}
			state.Players = append(state.Players, o.ToState(segmentCap(d, viewR, false)))
		}

		r.foodBuf = r.foodIdx.QueryInRange(r.foods, center.X, center.Y, viewR, r.foodBuf[:0])
		state.Foods = make([]FoodState, 0, len(r.foodBuf))
		for _, fi := range r.foodBuf {
			state.Foods = append(state.Foods, r.foods[fi].ToState())
		}

		data, err := msgpack.Marshal(state)
		if err != nil {
			log.Printf("state marshal: %v", err)
			continue
		}
		client.SendBinary(data)
	}
}
