package interference

import (
	"math"

	"github.com/okian/xsit/internal/domain/geometry"
	"github.com/okian/xsit/internal/domain/scene"
)

// Tag classifies a canvas pixel.
type Tag uint8

// Pixel tags. Disk tags are only ever applied to pixels inside the lane.
const (
	TagOutside Tag = iota
	TagTriangle
	TagDefender
	TagGoalkeeper
)

// Canvas is a tagged pixel grid covering the whole pitch. Row 0 is the top
// touchline (y = PitchWidth); pixel (i, j) is sampled at its center.
//
// A Canvas is not safe for concurrent use.
type Canvas struct {
	Width  int
	Height int
	scale  float64
	tags   []Tag
}

// NewCanvas allocates a canvas with pixelsPerUnit pixels per pitch unit.
func NewCanvas(pixelsPerUnit int) *Canvas {
	if pixelsPerUnit <= 0 {
		pixelsPerUnit = DefaultPixelsPerUnit
	}
	w := int(scene.PitchLength) * pixelsPerUnit
	h := int(scene.PitchWidth) * pixelsPerUnit
	return &Canvas{
		Width:  w,
		Height: h,
		scale:  float64(pixelsPerUnit),
		tags:   make([]Tag, w*h),
	}
}

// Scale returns the number of pixels per pitch unit.
func (c *Canvas) Scale() float64 { return c.scale }

// ToCanvas maps a pitch point to canvas coordinates.
func (c *Canvas) ToCanvas(p geometry.Point) geometry.Point {
	return geometry.Pt(p.X*c.scale, (scene.PitchWidth-p.Y)*c.scale)
}

// At returns the tag of pixel (i, j). Out-of-range pixels are TagOutside.
func (c *Canvas) At(i, j int) Tag {
	if i < 0 || j < 0 || i >= c.Width || j >= c.Height {
		return TagOutside
	}
	return c.tags[j*c.Width+i]
}

// Count returns the number of pixels carrying tag.
func (c *Canvas) Count(tag Tag) int {
	n := 0
	for _, t := range c.tags {
		if t == tag {
			n++
		}
	}
	return n
}

// FillTriangle tags every pixel whose center lies inside the pitch triangle
// (a, b, d) as TagTriangle and returns how many were tagged. eps is the
// membership tolerance in pitch units squared.
func (c *Canvas) FillTriangle(a, b, d geometry.Point, eps float64) int {
	ca, cb, cd := c.ToCanvas(a), c.ToCanvas(b), c.ToCanvas(d)
	pixelEps := eps * c.scale * c.scale

	lo, hi := geometry.Bounds(ca, cb, cd)
	x0, x1 := c.clampX(lo.X), c.clampX(hi.X)
	y0, y1 := c.clampY(lo.Y), c.clampY(hi.Y)

	n := 0
	for j := y0; j <= y1; j++ {
		row := j * c.Width
		cy := float64(j) + 0.5
		for i := x0; i <= x1; i++ {
			p := geometry.Pt(float64(i)+0.5, cy)
			if geometry.PointInTriangle(p, ca, cb, cd, pixelEps) {
				c.tags[row+i] = TagTriangle
				n++
			}
		}
	}
	return n
}

// PaintDisk applies tag to lane pixels whose center lies within radius (pitch
// units) of center and returns how many it covered. Pixels outside the lane
// are left untouched.
func (c *Canvas) PaintDisk(center geometry.Point, radius float64, tag Tag) int {
	if !(radius > 0) {
		return 0
	}
	cc := c.ToCanvas(center)
	r := radius * c.scale
	r2 := r * r

	x0, x1 := c.clampX(cc.X-r), c.clampX(cc.X+r)
	y0, y1 := c.clampY(cc.Y-r), c.clampY(cc.Y+r)
	n := 0
	for j := y0; j <= y1; j++ {
		row := j * c.Width
		dy := float64(j) + 0.5 - cc.Y
		for i := x0; i <= x1; i++ {
			if c.tags[row+i] == TagOutside {
				continue
			}
			dx := float64(i) + 0.5 - cc.X
			if dx*dx+dy*dy <= r2 {
				c.tags[row+i] = tag
				n++
			}
		}
	}
	return n
}

func (c *Canvas) clampX(x float64) int { return clampIndex(x, c.Width) }
func (c *Canvas) clampY(y float64) int { return clampIndex(y, c.Height) }

// clampIndex clamps in float space first; converting an out-of-range float
// to int is implementation-defined.
func clampIndex(v float64, n int) int {
	switch f := math.Floor(v); {
	case !(f >= 0):
		return 0
	case f >= float64(n):
		return n - 1
	default:
		return int(f)
	}
}
