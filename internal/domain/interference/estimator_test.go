package interference_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/okian/xsit/internal/domain/geometry"
	"github.com/okian/xsit/internal/domain/interference"
	"github.com/okian/xsit/internal/domain/scene"
	. "github.com/smartystreets/goconvey/convey"
)

func mustScene(ball geometry.Point, speed float64, keeper geometry.Point, outfield ...geometry.Point) scene.Scene {
	s, err := scene.New(ball, speed, keeper, outfield)
	if err != nil {
		panic(err)
	}
	return s
}

func compute(s scene.Scene, kind interference.Kind) interference.Result {
	r, err := interference.Compute(context.Background(), s, kind, interference.Options{})
	So(err, ShouldBeNil)
	return r
}

func TestAnalyticEstimator(t *testing.T) {
	ctx := context.Background()
	centre := geometry.Pt(60, 37.5)

	Convey("Given the centre-spot ball and a goalkeeper on his line", t, func() {
		s := mustScene(centre, 50, geometry.Pt(118, 37.5))

		Convey("Then the goalkeeper interferes and xsit is 2/2", func() {
			r := compute(s, interference.Analytic)
			So(r.XSIT, ShouldEqual, 1.0)
			So(r.Degenerate, ShouldBeFalse)
			So(len(r.Defenders), ShouldEqual, 1)
			So(r.Defenders[0].Role, ShouldEqual, scene.Goalkeeper)
			So(r.Defenders[0].Interferes, ShouldBeTrue)
		})

		Convey("And the reach radius is still reported", func() {
			r := compute(s, interference.Analytic)
			// 58 units at 50 km/h, goalkeeper constants.
			expected := 2.0 * (58 / (50 * 1000.0 / 3600.0)) / 0.23
			So(r.Defenders[0].Radius, ShouldAlmostEqual, expected, 1e-9)
		})
	})

	Convey("Given the goalkeeper far from the lane", t, func() {
		s := mustScene(centre, 50, geometry.Pt(10, 10))

		Convey("Then xsit is zero", func() {
			So(compute(s, interference.Analytic).XSIT, ShouldEqual, 0.0)
		})
	})

	Convey("Given an empty outfield and a non-interfering goalkeeper", t, func() {
		s := mustScene(geometry.Pt(30, 30), 70, geometry.Pt(100, 70))

		Convey("Then xsit is 0/2", func() {
			So(compute(s, interference.Analytic).XSIT, ShouldEqual, 0.0)
		})
	})

	Convey("Given the goalkeeper standing on the ball", t, func() {
		s := mustScene(geometry.Pt(90, 20), 60, geometry.Pt(90, 20))

		Convey("Then the goalkeeper interferes with a zero radius", func() {
			r := compute(s, interference.Analytic)
			So(r.Defenders[0].Interferes, ShouldBeTrue)
			So(r.Defenders[0].Radius, ShouldEqual, 0.0)
			So(r.XSIT, ShouldEqual, 1.0)
		})
	})

	Convey("Given a mixed scene", t, func() {
		s := mustScene(centre, 50, geometry.Pt(10, 10),
			geometry.Pt(100, 37.5), // inside
			geometry.Pt(90, 70),    // outside
			geometry.Pt(110, 38),   // inside
		)

		Convey("Then two of five weighted slots are blocked", func() {
			r := compute(s, interference.Analytic)
			So(r.XSIT, ShouldEqual, 0.4)
			So(r.Defenders[0].Interferes, ShouldBeTrue)
			So(r.Defenders[1].Interferes, ShouldBeFalse)
			So(r.Defenders[2].Interferes, ShouldBeTrue)
			So(r.Defenders[3].Interferes, ShouldBeFalse)
		})
	})

	Convey("Given a score that is not a round number", t, func() {
		s := mustScene(centre, 50, geometry.Pt(10, 10),
			geometry.Pt(100, 37.5), geometry.Pt(90, 70), geometry.Pt(5, 5), geometry.Pt(5, 6), geometry.Pt(5, 7))

		Convey("Then it is rounded to four decimals", func() {
			So(compute(s, interference.Analytic).XSIT, ShouldEqual, 0.1429)
		})
	})

	Convey("Given an interfering defender added to a scene", t, func() {
		base := []geometry.Point{geometry.Pt(100, 37.5), geometry.Pt(90, 70)}
		keepers := []geometry.Point{geometry.Pt(118, 37.5), geometry.Pt(10, 10)}

		Convey("Then the score never decreases", func() {
			for _, k := range keepers {
				pts := append([]geometry.Point(nil), base...)
				prev := compute(mustScene(centre, 50, k, pts...), interference.Analytic).XSIT
				for i := 0; i < 6; i++ {
					pts = append(pts, geometry.Pt(80+float64(i)*5, 37.5))
					next := compute(mustScene(centre, 50, k, pts...), interference.Analytic).XSIT
					So(next, ShouldBeGreaterThanOrEqualTo, prev)
					prev = next
				}
			}
		})
	})

	Convey("Given a ball on the goal line", t, func() {
		s := mustScene(geometry.Pt(120, 20), 50, geometry.Pt(120, 60))

		Convey("Then the lane is degenerate and nothing interferes", func() {
			r := compute(s, interference.Analytic)
			So(r.Degenerate, ShouldBeTrue)
			So(r.XSIT, ShouldEqual, 0.0)
			So(r.Defenders[0].Interferes, ShouldBeFalse)
		})
	})

	Convey("Given a cancelled context", t, func() {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := interference.Compute(cctx, mustScene(centre, 50, geometry.Pt(1, 1)), interference.Analytic, interference.Options{})

		Convey("Then the estimation is aborted", func() {
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})
}

func TestAreaEstimators(t *testing.T) {
	Convey("Given a scene with no defender near the lane and a slow keeper", t, func() {
		// Keeper on the ball: zero radius, nothing covered.
		s := mustScene(geometry.Pt(60, 37.5), 50, geometry.Pt(60, 37.5))

		Convey("Then both area estimators see a fully open lane", func() {
			for _, k := range []interference.Kind{interference.Rasterized, interference.Vector} {
				r := compute(s, k)
				So(r.OpenFraction, ShouldBeGreaterThan, 0.999)
				So(r.XSIT, ShouldBeLessThan, 0.001)
				So(r.Defenders[0].Interferes, ShouldBeFalse)
			}
		})
	})

	Convey("Given a keeper whose disk swallows the whole lane", t, func() {
		s := mustScene(geometry.Pt(100, 37.5), 5, geometry.Pt(119, 37.5))

		Convey("Then the lane is fully obstructed", func() {
			for _, k := range []interference.Kind{interference.Rasterized, interference.Vector} {
				r := compute(s, k)
				So(r.OpenFraction, ShouldAlmostEqual, 0.0, 1e-9)
				So(r.XSIT, ShouldAlmostEqual, 1.0, 1e-9)
				So(r.Defenders[0].Interferes, ShouldBeTrue)
			}
		})
	})

	Convey("Given a partially covered lane", t, func() {
		s := mustScene(geometry.Pt(60, 37.5), 120, geometry.Pt(118, 37.5), geometry.Pt(100, 40))

		Convey("Then the raster estimate converges to the exact overlay", func() {
			exact := compute(s, interference.Vector).OpenFraction
			So(exact, ShouldBeGreaterThan, 0.05)
			So(exact, ShouldBeLessThan, 0.95)

			coarse, err := interference.Compute(context.Background(), s, interference.Rasterized, interference.Options{PixelsPerUnit: 2})
			So(err, ShouldBeNil)
			fine, err := interference.Compute(context.Background(), s, interference.Rasterized, interference.Options{PixelsPerUnit: 16})
			So(err, ShouldBeNil)

			So(math.Abs(coarse.OpenFraction-exact), ShouldBeLessThan, 0.05)
			So(math.Abs(fine.OpenFraction-exact), ShouldBeLessThan, 0.01)
		})

		Convey("And xsit is the complement of the open fraction", func() {
			r := compute(s, interference.Rasterized)
			So(r.XSIT+r.OpenFraction, ShouldAlmostEqual, 1.0, 1e-12)
		})
	})

	Convey("Given a ball on the goal line", t, func() {
		s := mustScene(geometry.Pt(0, 10), 50, geometry.Pt(1, 37))

		Convey("Then the area estimators report a degenerate, non-interfering result", func() {
			for _, k := range []interference.Kind{interference.Rasterized, interference.Vector} {
				r := compute(s, k)
				So(r.Degenerate, ShouldBeTrue)
				So(r.XSIT, ShouldEqual, 0.0)
				So(r.OpenFraction, ShouldEqual, 0.0)
			}
		})
	})
}

func TestScoreRange(t *testing.T) {
	Convey("Given random valid scenes", t, func() {
		rng := rand.New(rand.NewSource(7))
		randPt := func() geometry.Point {
			return geometry.Pt(rng.Float64()*scene.PitchLength, rng.Float64()*scene.PitchWidth)
		}

		Convey("Then every estimator stays inside [0, 1]", func() {
			for n := 0; n < 12; n++ {
				outfield := make([]geometry.Point, rng.Intn(6))
				for i := range outfield {
					outfield[i] = randPt()
				}
				s := mustScene(randPt(), 20+rng.Float64()*100, randPt(), outfield...)
				for _, k := range interference.Kinds {
					r, err := interference.Compute(context.Background(), s, k, interference.Options{PixelsPerUnit: 2})
					So(err, ShouldBeNil)
					So(r.XSIT, ShouldBeBetweenOrEqual, 0.0, 1.0)
					So(r.OpenFraction, ShouldBeBetweenOrEqual, 0.0, 1.0)
					So(len(r.Defenders), ShouldEqual, len(outfield)+1)
				}
			}
		})
	})
}

func TestKinds(t *testing.T) {
	Convey("Given estimator names", t, func() {
		Convey("Then known names parse case-insensitively", func() {
			k, err := interference.ParseKind(" Rasterized ")
			So(err, ShouldBeNil)
			So(k, ShouldEqual, interference.Rasterized)
			k, err = interference.ParseKind("vector")
			So(err, ShouldBeNil)
			So(k, ShouldEqual, interference.Vector)
		})

		Convey("And unknown names are rejected", func() {
			_, err := interference.ParseKind("heatmap")
			So(errors.Is(err, interference.ErrUnknownEstimator), ShouldBeTrue)
			_, err = interference.New(interference.Kind(42), interference.Options{})
			So(errors.Is(err, interference.ErrUnknownEstimator), ShouldBeTrue)
		})

		Convey("And every kind round-trips through its name", func() {
			for _, k := range interference.Kinds {
				parsed, err := interference.ParseKind(k.String())
				So(err, ShouldBeNil)
				So(parsed, ShouldEqual, k)
				est, err := interference.New(k, interference.Options{})
				So(err, ShouldBeNil)
				So(est.Kind(), ShouldEqual, k)
			}
		})
	})

	Convey("Given an invalid scene", t, func() {
		s := scene.Scene{
			Ball:       scene.BallState{Position: geometry.Pt(60, 30), SpeedKmh: -1},
			Goalkeeper: scene.Defender{Position: geometry.Pt(1, 1), Role: scene.Goalkeeper},
		}

		Convey("Then Compute rejects it before estimating", func() {
			_, err := interference.Compute(context.Background(), s, interference.Rasterized, interference.Options{})
			So(errors.Is(err, scene.ErrInvalidKinematics), ShouldBeTrue)
		})
	})

	Convey("Given a scene with a ball far off the pitch", t, func() {
		for _, ball := range []geometry.Point{geometry.Pt(1e300, 37.5), geometry.Pt(500, 37.5)} {
			s := scene.Scene{
				Ball:       scene.BallState{Position: ball, SpeedKmh: 50},
				Goalkeeper: scene.Defender{Position: geometry.Pt(118, 37.5), Role: scene.Goalkeeper},
			}

			Convey(fmt.Sprintf("Then Compute rejects %v for every estimator", ball), func() {
				for _, k := range interference.Kinds {
					var err error
					So(func() { _, err = interference.Compute(context.Background(), s, k, interference.Options{}) }, ShouldNotPanic)
					So(errors.Is(err, scene.ErrInvalidCoordinates), ShouldBeTrue)
				}
			})
		}
	})
}
