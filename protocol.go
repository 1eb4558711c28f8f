package main

import "encoding/json"

// Client -> Server message types
const (
	MsgJoin      = "join"
	MsgMove      = "move"
	MsgFoodEaten = "food_eaten"
	MsgPing      = "ping"
	MsgRegister  = "register"
	MsgLogin     = "login"
	MsgAuth      = "auth"
)

// Server -> Client message types
const (
	MsgWelcome = "welcome"
	MsgState   = "state"
	MsgDeath   = "death"
	MsgPong    = "pong"
	MsgAuthOK  = "auth_ok"
	MsgError   = "error"
)

// Envelope wraps all outgoing JSON messages with a type field
type Envelope struct {
	T    string      `json:"t"`
	Data interface{} `json:"d,omitempty"`
}

// InEnvelope is used for incoming messages — json.RawMessage avoids
// double-unmarshal
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// JoinMsg is sent when a player wants to enter the arena
type JoinMsg struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Photo string `json:"photo,omitempty"`
	Token string `json:"token,omitempty"` // optional identity token
}

// MoveMsg carries the client's movement intent, applied last-writer-wins
// before the next tick reads it
type MoveMsg struct {
	Dir   Vec  `json:"dir"`
	Head  *Vec `json:"head,omitempty"` // optional client head correction
	Boost bool `json:"boost"`
}

// FoodEatenMsg is a client claim, validated against the live food index
type FoodEatenMsg struct {
	FoodID string `json:"fid"`
}

// PingMsg carries a client timestamp for RTT measurement
type PingMsg struct {
	TS int64 `json:"ts"`
}

// PongMsg echoes the ping timestamp
type PongMsg struct {
	TS int64 `json:"ts"`
}

// WelcomeMsg is sent once after a successful join
type WelcomeMsg struct {
	ID     string          `json:"id"`
	Config EffectiveConfig `json:"cfg"`
}

// DeathMsg notifies a player they died
type DeathMsg struct {
	ID       string  `json:"id"`
	KilledBy *string `json:"killedBy"` // killer name, null for wall deaths
	Score    int     `json:"score"`
	Length   float64 `json:"len"`
}

// PlayerState is one visible snake in a snapshot. The segment list is
// truncated by distance band before transmission.
type PlayerState struct {
	ID       string  `json:"id" msgpack:"id"`
	Name     string  `json:"n" msgpack:"n"`
	Color    string  `json:"c" msgpack:"c"`
	Segments []Vec   `json:"sg" msgpack:"sg"`
	Dir      Vec     `json:"d" msgpack:"d"`
	Length   float64 `json:"l" msgpack:"l"`
	Score    int     `json:"sc" msgpack:"sc"`
	Alive    bool    `json:"a" msgpack:"a"`
	Boost    bool    `json:"b,omitempty" msgpack:"b"`
	Bot      bool    `json:"bt,omitempty" msgpack:"bt"`
}

// FoodState is one visible food item in a snapshot
type FoodState struct {
	ID    string  `json:"id" msgpack:"id"`
	X     float64 `json:"x" msgpack:"x"`
	Y     float64 `json:"y" msgpack:"y"`
	Color string  `json:"c" msgpack:"c"`
	Size  float64 `json:"s" msgpack:"s"`
	Value int     `json:"v" msgpack:"v"`
}

// StateMsg is the per-client culled snapshot, msgpack-encoded and sent as a
// binary frame every broadcast tick
type StateMsg struct {
	Players []PlayerState `json:"p" msgpack:"p"`
	Foods   []FoodState   `json:"f" msgpack:"f"`
	Tick    uint64        `json:"tick" msgpack:"tick"`
}

// RegisterMsg creates a named account
type RegisterMsg struct {
	Username string `json:"u"`
	Password string `json:"p"`
}

// LoginMsg authenticates a named account
type LoginMsg struct {
	Username string `json:"u"`
	Password string `json:"p"`
}

// AuthMsg resumes an identity from a previously issued token
type AuthMsg struct {
	Token string `json:"token"`
}

// AuthOKMsg confirms identity
type AuthOKMsg struct {
	Token    string `json:"token"`
	Username string `json:"u"`
	PlayerID int64  `json:"pid"`
}

// ErrorMsg sends an error to the client
type ErrorMsg struct {
	Msg string `json:"msg"`
}

// HealthInfo is the /health response used by operational monitoring
type HealthInfo struct {
	UptimeSec float64 `json:"uptime_sec"`
	Humans    int     `json:"humans"`
	Bots      int     `json:"bots"`
	Food      int     `json:"food"`
	Clients   int     `json:"clients"`
	Tick      uint64  `json:"tick"`
}
