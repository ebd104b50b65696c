package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

// gathered returns the families of reg keyed by name.
func gathered(reg *prometheus.Registry) map[string]int {
	families, err := reg.Gather()
	So(err, ShouldBeNil)
	out := make(map[string]int, len(families))
	for _, f := range families {
		out[f.GetName()] = len(f.GetMetric())
	}
	return out
}

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given a manager on a private registry", t, func() {
		reg := prometheus.NewRegistry()
		m := NewManager(
			WithNamespace("test"),
			WithSubsystem("unit"),
			WithHistogramBuckets([]float64{1, 10}),
			WithCustomLabels(map[string]string{"env": "test"}),
			WithPrometheusRegistry(reg),
		)

		Convey("When an estimation is recorded", func() {
			m.RecordEstimation("analytic", 0.3, 0.4, false)
			m.RecordEstimation("analytic", 0.2, 1, true)

			Convey("Then the counters carry the configured names", func() {
				names := gathered(reg)
				So(names, ShouldContainKey, "test_unit_estimations_total")
				So(names, ShouldContainKey, "test_unit_estimation_latency_milliseconds")
				So(names, ShouldContainKey, "test_unit_xsit_value")
				So(names, ShouldContainKey, "test_unit_degenerate_scenes_total")
			})

			Convey("And the estimator label splits the series", func() {
				m.RecordEstimation("rasterized", 12, 0.7, false)
				So(gathered(reg)["test_unit_estimations_total"], ShouldEqual, 2)
			})

			Convey("And the constant labels are attached", func() {
				families, err := reg.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() != "test_unit_estimations_total" {
						continue
					}
					for _, lp := range f.GetMetric()[0].GetLabel() {
						if lp.GetName() == "env" && lp.GetValue() == "test" {
							found = true
						}
					}
					So(f.GetMetric()[0].GetCounter().GetValue(), ShouldEqual, 2.0)
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When request level metrics are recorded", func() {
			m.RecordValidationError("missing_field")
			m.RecordBatchSize(12)
			m.RecordHTTPRequest("/calculate_xsit", "POST", "200", 1.5)

			Convey("Then they are gathered", func() {
				names := gathered(reg)
				So(names["test_unit_validation_errors_total"], ShouldEqual, 1)
				So(names["test_unit_batch_size"], ShouldEqual, 1)
				So(names["test_unit_http_requests_total"], ShouldEqual, 1)
				So(names["test_unit_http_request_duration_milliseconds"], ShouldEqual, 1)
			})
		})
	})

	Convey("Given a manager with defaults", t, func() {
		reg := prometheus.NewRegistry()
		m := NewManager(WithPrometheusRegistry(reg), WithNamespace(""), WithHistogramBuckets(nil))

		Convey("Then empty options keep the defaults", func() {
			So(m.namespace, ShouldEqual, "xsit")
			So(m.subsystem, ShouldEqual, "service")
			So(len(m.histogramBuckets), ShouldBeGreaterThan, 0)
		})
	})
}

func TestGlobalMetrics(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When every recorder is called", func() {
			So(func() {
				RecordEstimation("vector", 3, 0.5, false)
				RecordValidationError("invalid_kinematics")
				RecordBatchSize(4)
				RecordHTTPRequest("/stats", "GET", "200")
				RecordHTTPRequestDuration("/stats", "GET", "200", 0.4)
				UpdateQueueSize(3)
				UpdateQueueCapacity(16)
				UpdateQueueUtilization(3.0 / 16)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				RecordQueueProcessingLatency(0.1)
				UpdateWorkerCount(4)
				UpdateWorkerActiveCount(1)
				RecordWorkerProcessingLatency(2)
				RecordWorkerError()
				RecordErrorByComponent("worker", "estimate")
				RecordErrorByEndpoint("/calculate_xsit", "POST", "invalid_json")
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.3)
			}, ShouldNotPanic)

			Convey("Then the shared registry exposes them", func() {
				names := gathered(GetRegistry())
				So(names, ShouldContainKey, "xsit_service_estimations_total")
				So(names, ShouldContainKey, "xsit_service_queue_capacity")
				So(names, ShouldContainKey, "xsit_service_worker_errors_total")
				So(names, ShouldContainKey, "xsit_service_system_goroutine_count")
			})
		})
	})
}
