package main

import (
	crand "crypto/rand"
	"encoding/hex"
	"math"
	"math/rand"

	"github.com/google/uuid"
)

// Vec is a 2D position or direction.
type Vec struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

// Norm returns v scaled to unit length. Zero vectors come back as +X so a
// snake always has a valid heading.
func (v Vec) Norm() Vec {
	l := math.Sqrt(v.X*v.X + v.Y*v.Y)
	if l < 1e-9 {
		return Vec{X: 1}
	}
	return Vec{X: v.X / l, Y: v.Y / l}
}

// Angle returns the heading angle of v in radians.
func (v Vec) Angle() float64 {
	return math.Atan2(v.Y, v.X)
}

// VecFromAngle returns the unit vector for a heading angle.
func VecFromAngle(a float64) Vec {
	return Vec{X: math.Cos(a), Y: math.Sin(a)}
}

// GenerateID returns a random hex string of the given byte length
func GenerateID(byteLen int) string {
	b := make([]byte, byteLen)
	crand.Read(b)
	return hex.EncodeToString(b)
}

// GenerateUUID returns a random v4 UUID string
func GenerateUUID() string {
	return uuid.NewString()
}

// Clamp restricts v to [min, max]
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// DistanceSq returns the squared distance between two points
func DistanceSq(x1, y1, x2, y2 float64) float64 {
	dx := x2 - x1
	dy := y2 - y1
	return dx*dx + dy*dy
}

// Distance returns the distance between two points
func Distance(x1, y1, x2, y2 float64) float64 {
	return math.Sqrt(DistanceSq(x1, y1, x2, y2))
}

// NormalizeAngle wraps angle to [-PI, PI]
func NormalizeAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

// round1 rounds to one decimal place, enough precision for the wire
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// round2 rounds to two decimal places, used for unit vectors
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Game randomness uses math/rand: the top-level generator is goroutine-safe,
// which matters because the tick loop and connection goroutines both roll.

// randFloat returns a random float64 in [0, 1)
func randFloat() float64 {
	return rand.Float64()
}

// randRange returns a random float64 in [min, max)
func randRange(min, max float64) float64 {
	return min + rand.Float64()*(max-min)
}

// randInt returns a random int in [0, n)
func randInt(n int) int {
	if n <= 0 {
		return 0
	}
	return rand.Intn(n)
}
