// Package scene contains the input model of an xSIT calculation: the ball, the
// goalkeeper, the outfield defenders and the goal being attacked.
package scene

import (
	"fmt"
	"math"

	"github.com/okian/xsit/internal/domain/geometry"
)

// Pitch dimensions and goal mouth, in pitch units.
const (
	PitchLength   = 120.0
	PitchWidth    = 75.0
	HalfwayX      = 60.0
	GoalPostLowY  = 32.0
	GoalPostHighY = 43.0
)

// Role tags a defender.
type Role int

// Defender roles.
const (
	Outfield Role = iota
	Goalkeeper
)

func (r Role) String() string {
	switch r {
	case Outfield:
		return "outfield"
	case Goalkeeper:
		return "goalkeeper"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// MarshalText renders the role name in JSON payloads.
func (r Role) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// BallState is the ball position and its speed in km/h.
type BallState struct {
	Position geometry.Point
	SpeedKmh float64
}

// Defender is a player who can obstruct the shot.
type Defender struct {
	Position geometry.Point
	Role     Role
}

// Goal is the pair of posts of the goal being attacked.
type Goal struct {
	Post1 geometry.Point
	Post2 geometry.Point
}

// GoalFor selects the goal the ball is attacking: the far goal (x=120) when the
// ball is at or past halfway, the near goal (x=0) otherwise.
func GoalFor(ball geometry.Point) Goal {
	x := 0.0
	if ball.X >= HalfwayX {
		x = PitchLength
	}
	return Goal{Post1: geometry.Pt(x, GoalPostLowY), Post2: geometry.Pt(x, GoalPostHighY)}
}

// ShotTriangle is the direct shooting lane.
type ShotTriangle struct {
	Ball  geometry.Point
	Post1 geometry.Point
	Post2 geometry.Point
}

// Vertices returns the triangle corners in a fixed order.
func (t ShotTriangle) Vertices() [3]geometry.Point {
	return [3]geometry.Point{t.Ball, t.Post1, t.Post2}
}

// Area returns the lane area in pitch units squared.
func (t ShotTriangle) Area() float64 {
	return geometry.TriangleArea(t.Ball, t.Post1, t.Post2)
}

// Contains reports whether p is inside the lane within eps.
func (t ShotTriangle) Contains(p geometry.Point, eps float64) bool {
	return geometry.PointInTriangle(p, t.Ball, t.Post1, t.Post2, eps)
}

// Degenerate reports whether the lane has collapsed to a line or point.
func (t ShotTriangle) Degenerate(eps float64) bool {
	return geometry.Degenerate(t.Ball, t.Post1, t.Post2, eps)
}

// Scene is the aggregate input of one calculation.
type Scene struct {
	Ball       BallState
	Goalkeeper Defender
	Outfield   []Defender
}

// New builds a Scene from raw positions and validates it.
func New(ball geometry.Point, speedKmh float64, keeper geometry.Point, outfield []geometry.Point) (Scene, error) {
	s := Scene{
		Ball:       BallState{Position: ball, SpeedKmh: speedKmh},
		Goalkeeper: Defender{Position: keeper, Role: Goalkeeper},
		Outfield:   make([]Defender, len(outfield)),
	}
	for i, p := range outfield {
		s.Outfield[i] = Defender{Position: p, Role: Outfield}
	}
	if err := s.Validate(); err != nil {
		return Scene{}, err
	}
	return s, nil
}

// Validate checks the scene invariants.
func (s Scene) Validate() error {
	if !(s.Ball.SpeedKmh > 0) || math.IsInf(s.Ball.SpeedKmh, 0) {
		return fmt.Errorf("velocidad_balon %v: %w", s.Ball.SpeedKmh, ErrInvalidKinematics)
	}
	if err := checkPosition("pos_balon", s.Ball.Position); err != nil {
		return err
	}
	if s.Goalkeeper.Role != Goalkeeper {
		return fmt.Errorf("goalkeeper slot holds %s: %w", s.Goalkeeper.Role, ErrInvalidRole)
	}
	if err := checkPosition("portero", s.Goalkeeper.Position); err != nil {
		return err
	}
	for i, d := range s.Outfield {
		if d.Role != Outfield {
			return fmt.Errorf("jugadores[%d] holds %s: %w", i, d.Role, ErrInvalidRole)
		}
		if err := checkPosition(fmt.Sprintf("jugadores[%d]", i), d.Position); err != nil {
			return err
		}
	}
	return nil
}

// OnPitch reports whether p lies inside the pitch rectangle, lines included.
func OnPitch(p geometry.Point) bool {
	return p.X >= 0 && p.X <= PitchLength && p.Y >= 0 && p.Y <= PitchWidth
}

func checkPosition(field string, p geometry.Point) error {
	if !p.Finite() {
		return fmt.Errorf("%s: %w", field, ErrInvalidCoordinates)
	}
	if !OnPitch(p) {
		return fmt.Errorf("%s (%v, %v) is off the pitch: %w", field, p.X, p.Y, ErrInvalidCoordinates)
	}
	return nil
}

// Goal returns the goal attacked from the ball position.
func (s Scene) Goal() Goal { return GoalFor(s.Ball.Position) }

// Triangle returns the shooting lane for the scene.
func (s Scene) Triangle() ShotTriangle {
	g := s.Goal()
	return ShotTriangle{Ball: s.Ball.Position, Post1: g.Post1, Post2: g.Post2}
}

// Defenders returns outfield defenders in input order followed by the
// goalkeeper.
func (s Scene) Defenders() []Defender {
	out := make([]Defender, 0, len(s.Outfield)+1)
	out = append(out, s.Outfield...)
	return append(out, s.Goalkeeper)
}
