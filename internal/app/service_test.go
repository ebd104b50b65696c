package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	service "github.com/okian/xsit/internal/app"
	"github.com/okian/xsit/internal/domain/geometry"
	"github.com/okian/xsit/internal/domain/interference"
	"github.com/okian/xsit/internal/domain/scene"
	"github.com/okian/xsit/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

func centreScene(keeper geometry.Point, outfield ...geometry.Point) scene.Scene {
	s, err := scene.New(geometry.Pt(60, 37.5), 50, keeper, outfield)
	if err != nil {
		panic(err)
	}
	return s
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should have sensible defaults", func() {
			So(svc, ShouldNotBeNil)
			So(svc.DefaultKind(), ShouldEqual, interference.Analytic)
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, false)
			So(stats["estimations"], ShouldEqual, int64(0))
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithWorkerCount(8),
			service.WithQueueSize(32),
			service.WithDefaultEstimator(interference.Rasterized),
			service.WithEstimatorOptions(interference.Options{PixelsPerUnit: 2}),
			service.WithLogger(logger.Get().Named("test")),
		)

		Convey("Then the options are applied", func() {
			stats := svc.GetStats()
			So(stats["workerCount"], ShouldEqual, 8)
			So(stats["queueSize"], ShouldEqual, 32)
			So(stats["defaultEstimator"], ShouldEqual, "rasterized")
		})
	})
}

func TestService_Compute(t *testing.T) {
	Convey("Given a service that was never started", t, func() {
		svc := service.New()
		ctx := context.Background()

		Convey("When computing a single scene", func() {
			res, err := svc.Compute(ctx, centreScene(geometry.Pt(118, 37.5)), interference.Analytic)

			Convey("Then it is evaluated inline", func() {
				So(err, ShouldBeNil)
				So(res.XSIT, ShouldEqual, 1.0)
			})

			Convey("And the counters are updated", func() {
				stats := svc.GetStats()
				So(stats["estimations"], ShouldEqual, int64(1))
				So(stats["byEstimator"].(map[string]int64)["analytic"], ShouldEqual, int64(1))
			})
		})

		Convey("When computing a degenerate scene", func() {
			s, err := scene.New(geometry.Pt(120, 20), 50, geometry.Pt(1, 1), nil)
			So(err, ShouldBeNil)
			res, err := svc.Compute(ctx, s, interference.Analytic)

			Convey("Then it is counted as degenerate", func() {
				So(err, ShouldBeNil)
				So(res.Degenerate, ShouldBeTrue)
				So(svc.GetStats()["degenerate"], ShouldEqual, int64(1))
			})
		})

		Convey("When computing an invalid scene", func() {
			bad := centreScene(geometry.Pt(1, 1))
			bad.Ball.SpeedKmh = 0
			_, err := svc.Compute(ctx, bad, interference.Analytic)

			Convey("Then the failure is reported and counted", func() {
				So(errors.Is(err, scene.ErrInvalidKinematics), ShouldBeTrue)
				So(svc.GetStats()["failures"], ShouldEqual, int64(1))
			})
		})

		Convey("When submitting a batch", func() {
			_, err := svc.ComputeBatch(ctx, []scene.Scene{centreScene(geometry.Pt(1, 1))}, interference.Analytic)

			Convey("Then it is refused", func() {
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})
		})
	})
}

func TestService_Start(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New(service.WithWorkerCount(2))
		defer svc.Stop()

		Convey("When starting the service", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			err := svc.Start(ctx)

			Convey("Then it should start successfully", func() {
				So(err, ShouldBeNil)
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats["queueLength"], ShouldEqual, 0)
			})

			Convey("And starting twice is a no-op", func() {
				So(svc.Start(ctx), ShouldBeNil)
			})

			Convey("And stopping marks it as stopped", func() {
				svc.Stop()
				So(svc.GetStats()["started"], ShouldEqual, false)
				svc.Stop()
			})
		})
	})
}
