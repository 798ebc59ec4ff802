package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 5, 10}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then collectors are registered under the namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.transactionsProcessed.Inc()

				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "test_unit_transactions_processed_total" {
						found = true
						So(f.GetMetric()[0].GetLabel()[0].GetValue(), ShouldEqual, "test")
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When two managers share a registry", func() {
			registry := prometheus.NewRegistry()
			_ = NewManager(WithPrometheusRegistry(registry))

			Convey("Then registering again panics", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording a processed fraud transaction", func() {
			before := testutil.ToFloat64(globalManager.transactionsFraud)
			RecordTransactionProcessed(true, "high", 0.91)

			Convey("Then the fraud counter grows", func() {
				So(testutil.ToFloat64(globalManager.transactionsFraud), ShouldEqual, before+1)
				So(testutil.ToFloat64(globalManager.riskLevels.WithLabelValues("high")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When recording pipeline events", func() {
			So(func() {
				RecordTransactionReceived("submit")
				RecordTransactionDuplicate()
				RecordTransactionMalformed()
				RecordTransactionDropped("persist")
				RecordProcessingLatency(3.5)
				RecordClassifierLatency(0.2)
				RecordStoreLatency("insert", 1.1)
				RecordWorkerPanic("scoring")
				RecordReputationRequest("internal", "ok", 2)
				RecordAlertCreated()
				RecordAlertNotification("webhook", "error")
				RecordReconcileRun("ok", 3)
				UpdateQueueDepth("ingestion", 7)
				UpdateWorkerCount("alert", 2)
				UpdateUptime(12)
				UpdateFraudRate(0.25)
				RecordHTTPRequest("/stats", "GET", "200")
				RecordHTTPRequestDuration("/stats", "GET", "200", 1.5)
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(10)
			}, ShouldNotPanic)

			Convey("Then gauges hold the last value", func() {
				So(testutil.ToFloat64(globalManager.queueDepth.WithLabelValues("ingestion")), ShouldEqual, 7)
				So(testutil.ToFloat64(globalManager.fraudRate), ShouldEqual, 0.25)
			})
		})

		Convey("When gathering the custom registry", func() {
			families, err := GetRegistry().Gather()

			Convey("Then every metric carries the default namespace", func() {
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
				for _, f := range families {
					So(strings.HasPrefix(f.GetName(), "fraudscope_pipeline_"), ShouldBeTrue)
				}
			})
		})
	})
}
