// Package world declares the query surface the routing engine expects from
// the game engine's entity layer. The engine never walks world state on its
// own; everything it knows about positions, occlusion, and vehicles comes
// through a Provider.
package world

import "math"

// EntityID is the stable identifier the game assigns to a participant.
type EntityID uint64

// Vec3 is a position or direction in world space, meters.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

// DistanceTo returns the euclidean distance between v and o.
func (v Vec3) DistanceTo(o Vec3) float64 {
	d := v.Sub(o)
	return math.Sqrt(d.X*d.X + d.Y*d.Y + d.Z*d.Z)
}

// VehicleInfo describes the acoustic situation of an entity's vehicle, if
// any. Model is the game's vehicle model token, used against the allow-list
// of vehicles treated as always open.
type VehicleInfo struct {
	ID      uint64
	Model   string
	Closed  bool
	HasSeat bool
}

// Provider answers per-tick world queries for the frame builder and the
// discrete subsystems. Implementations are supplied by the game layer; a
// fake lives in the engine tests.
type Provider interface {
	// StreamedIn lists every entity currently streamed in around the local
	// participant, excluding the local participant itself.
	StreamedIn() []EntityID

	Position(id EntityID) (Vec3, bool)
	Forward(id EntityID) Vec3

	// CameraDirection is the local participant's view direction, used for
	// the self record of the periodic frame.
	CameraDirection() Vec3

	// RoomKey identifies the acoustic room an entity occupies. Two entities
	// in different rooms without a clear line of sight are maximally
	// muffled against each other.
	RoomKey(id EntityID) int
	HasClearLineOfSight(a, b EntityID) bool
	IsUnderwater(id EntityID) bool

	Vehicle(id EntityID) (VehicleInfo, bool)

	// IsActionBlocked reports whether the entity is in a state that forbids
	// starting a radio transmission, such as reloading.
	IsActionBlocked(id EntityID) bool
}
