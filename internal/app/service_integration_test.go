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
	. "github.com/smartystreets/goconvey/convey"
)

func TestServiceBatchIntegration(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := service.New(
			service.WithWorkerCount(3),
			service.WithQueueSize(64),
			service.WithEstimatorOptions(interference.Options{PixelsPerUnit: 2}),
		)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When a mixed batch is submitted", func() {
			bad := centreScene(geometry.Pt(1, 1))
			bad.Ball.SpeedKmh = -1
			scenes := []scene.Scene{
				centreScene(geometry.Pt(118, 37.5)),
				centreScene(geometry.Pt(10, 10)),
				bad,
				centreScene(geometry.Pt(10, 10), geometry.Pt(100, 37.5), geometry.Pt(90, 70), geometry.Pt(110, 38)),
			}
			items, err := svc.ComputeBatch(ctx, scenes, interference.Analytic)

			Convey("Then results come back in submission order", func() {
				So(err, ShouldBeNil)
				So(len(items), ShouldEqual, 4)
				So(items[0].Err, ShouldBeNil)
				So(items[0].Result.XSIT, ShouldEqual, 1.0)
				So(items[1].Result.XSIT, ShouldEqual, 0.0)
				So(errors.Is(items[2].Err, scene.ErrInvalidKinematics), ShouldBeTrue)
				So(items[3].Result.XSIT, ShouldEqual, 0.4)
			})

			Convey("And the batch is counted", func() {
				stats := svc.GetStats()
				So(stats["batches"], ShouldEqual, int64(1))
				So(stats["estimations"], ShouldEqual, int64(3))
				So(stats["failures"], ShouldEqual, int64(1))
			})
		})

		Convey("When a batch uses an area estimator", func() {
			scenes := make([]scene.Scene, 12)
			for i := range scenes {
				scenes[i] = centreScene(geometry.Pt(118, 37.5), geometry.Pt(100, 40))
			}
			raster, err := svc.ComputeBatch(ctx, scenes, interference.Rasterized)
			So(err, ShouldBeNil)

			Convey("Then every item matches the inline estimate", func() {
				single, err := svc.Compute(ctx, scenes[0], interference.Rasterized)
				So(err, ShouldBeNil)
				for _, it := range raster {
					So(it.Err, ShouldBeNil)
					So(it.Result.XSIT, ShouldEqual, single.XSIT)
				}
			})
		})

		Convey("When an empty batch is submitted", func() {
			items, err := svc.ComputeBatch(ctx, nil, interference.Analytic)

			Convey("Then an empty result is returned", func() {
				So(err, ShouldBeNil)
				So(len(items), ShouldEqual, 0)
			})
		})

		Convey("When the batch exceeds the queue", func() {
			scenes := make([]scene.Scene, 65)
			for i := range scenes {
				scenes[i] = centreScene(geometry.Pt(118, 37.5))
			}
			small := service.New(service.WithWorkerCount(1), service.WithQueueSize(1))
			So(small.Start(ctx), ShouldBeNil)
			defer small.Stop()
			_, err := small.ComputeBatch(ctx, scenes, interference.Vector)

			Convey("Then back pressure is reported", func() {
				So(errors.Is(err, service.ErrBackpressure), ShouldBeTrue)
			})
		})

		Convey("When the caller gives up", func() {
			cctx, ccancel := context.WithCancel(ctx)
			ccancel()
			_, err := svc.ComputeBatch(cctx, []scene.Scene{centreScene(geometry.Pt(1, 1))}, interference.Analytic)

			Convey("Then the batch is aborted", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})
	})
}
