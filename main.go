package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const shutdownGrace = 10 * time.Second

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	dbPath := flag.String("db", "serpent.db", "Path to SQLite database")
	flag.Parse()

	// A missing database degrades to guest-only play without a leaderboard;
	// the only fatal startup failure is the port bind
	db, err := OpenDB(*dbPath)
	if err != nil {
		log.Printf("database unavailable, continuing without persistence: %v", err)
		db = nil
	}

	var stats *StatsRecorder
	if db != nil {
		stats = NewStatsRecorder(db)
	}

	room := NewRoom(DefaultGameConfig(), stats)
	go room.Run()

	hub := NewHub(room, db)
	go hub.Run()

	mux := SetupRoutes(hub)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	server := &http.Server{Addr: *addr, Handler: mux}

	go func() {
		log.Printf("Server starting on %s", *addr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down...")

	// Hard fallback: force exit if graceful shutdown hangs
	forced := time.AfterFunc(shutdownGrace, func() {
		log.Println("shutdown timed out, forcing exit")
		os.Exit(1)
	})
	defer forced.Stop()

	room.Stop()
	hub.CloseAll()
	if stats != nil {
		stats.Stop()
	}
	if db != nil {
		db.Close()
	}
	server.Close()
}
