package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/okian/xsit/internal/config"
	"github.com/okian/xsit/internal/domain/interference"
	"github.com/okian/xsit/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.InitWith(io.Discard, logger.FormatText); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

const centreScene = `{"pos_balon":[60,37.5],"velocidad_balon":50,"portero":[118,37.5],"jugadores":[]}`

func TestServiceWiring(t *testing.T) {
	convey.Convey("Given configuration from the environment", t, func() {
		_ = os.Setenv("XSIT_ADDR", ":8080")
		_ = os.Setenv("XSIT_BATCH_WORKERS", "2")
		_ = os.Setenv("XSIT_DEFAULT_ESTIMATOR", "vector")
		defer func() {
			_ = os.Unsetenv("XSIT_ADDR")
			_ = os.Unsetenv("XSIT_BATCH_WORKERS")
			_ = os.Unsetenv("XSIT_DEFAULT_ESTIMATOR")
		}()

		cfg, err := config.Load(context.Background())
		convey.So(err, convey.ShouldBeNil)
		convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
		convey.So(cfg.BatchWorkers, convey.ShouldEqual, 2)

		convey.Convey("When the service is built", func() {
			svc, err := newService(cfg)

			convey.Convey("Then it carries the configured defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(svc.DefaultKind(), convey.ShouldEqual, interference.Vector)
				stats := svc.GetStats()
				convey.So(stats["workerCount"], convey.ShouldEqual, 2)
				convey.So(stats["started"], convey.ShouldBeFalse)
			})
		})
	})

	convey.Convey("Given an unknown default estimator", t, func() {
		cfg := config.New()
		cfg.DefaultEstimator = "heatmap"

		convey.Convey("Then the service cannot be built", func() {
			_, err := newService(cfg)
			convey.So(err, convey.ShouldNotBeNil)
		})
	})

	convey.Convey("Given an empty listen address", t, func() {
		_ = os.Setenv("XSIT_ADDR", "")
		defer func() { _ = os.Unsetenv("XSIT_ADDR") }()

		convey.Convey("Then configuration loading fails", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})
	})
}

func TestHandlerRoutes(t *testing.T) {
	convey.Convey("Given a started service behind the full handler chain", t, func() {
		ctx := context.Background()
		cfg := config.New()
		cfg.BatchWorkers = 2
		cfg.CORSAllowedOrigins = []string{"http://pitch.example"}

		svc, err := newService(cfg)
		convey.So(err, convey.ShouldBeNil)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		srv := httptest.NewServer(newHandler(ctx, cfg, svc))
		defer srv.Close()

		convey.Convey("When a single scene is posted", func() {
			resp, err := http.Post(srv.URL+"/calculate_xsit", "application/json", strings.NewReader(centreScene))
			convey.So(err, convey.ShouldBeNil)
			defer resp.Body.Close()

			convey.Convey("Then the goalkeeper alone yields full interference", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
				convey.So(resp.Header.Get("X-Request-ID"), convey.ShouldNotBeEmpty)
				var body map[string]any
				convey.So(json.NewDecoder(resp.Body).Decode(&body), convey.ShouldBeNil)
				convey.So(body["xsit"], convey.ShouldEqual, 1.0)
				convey.So(body["estimator"], convey.ShouldEqual, "analytic")
			})
		})

		convey.Convey("When a batch is posted", func() {
			payload := `{"scenes":[` + centreScene + `,` + centreScene + `]}`
			resp, err := http.Post(srv.URL+"/calculate_xsit/batch", "application/json", strings.NewReader(payload))
			convey.So(err, convey.ShouldBeNil)
			defer resp.Body.Close()

			convey.Convey("Then every scene is answered by the worker pool", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
				var body struct {
					Results []map[string]any `json:"results"`
				}
				convey.So(json.NewDecoder(resp.Body).Decode(&body), convey.ShouldBeNil)
				convey.So(len(body.Results), convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When the auxiliary pages are requested", func() {
			for path, want := range map[string]string{
				"/":             "text/html",
				"/api-docs":     "text/html",
				"/openapi.yaml": "application/yaml",
				"/healthz":      "text/plain",
				"/stats":        "application/json",
			} {
				resp, err := http.Get(srv.URL + path)
				convey.So(err, convey.ShouldBeNil)
				_ = resp.Body.Close()
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
				convey.So(resp.Header.Get("Content-Type"), convey.ShouldStartWith, want)
			}
		})

		convey.Convey("When a browser sends a preflight from an allowed origin", func() {
			req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/calculate_xsit", http.NoBody)
			req.Header.Set("Origin", "http://pitch.example")
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			resp, err := http.DefaultClient.Do(req)
			convey.So(err, convey.ShouldBeNil)
			_ = resp.Body.Close()

			convey.So(resp.Header.Get("Access-Control-Allow-Origin"), convey.ShouldEqual, "http://pitch.example")
		})
	})
}

func TestMetricsUpdaters(t *testing.T) {
	convey.Convey("Given the background metrics updaters", t, func() {
		svc, err := newService(config.New())
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then single updates never panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
			convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)
		})

		convey.Convey("And the loops return once the context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			done := make(chan struct{})
			go func() {
				startSystemMetricsUpdater(ctx)
				startServiceMetricsUpdater(ctx, svc)
				close(done)
			}()

			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Fatal("metrics updaters did not stop")
			}
		})
	})
}
