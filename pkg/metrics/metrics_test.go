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
		Convey("When creating with default options on a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then collectors use the foosrank namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.matchesDuplicate.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(families, ShouldNotBeEmpty)
				found := false
				for _, f := range families {
					if f.GetName() == "foosrank_ratings_matches_duplicate_total" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("club"),
				WithSubsystem("ladder"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.sweeps.WithLabelValues("solo").Inc()

			Convey("Then names and constant labels follow the options", func() {
				expected := `
# HELP club_ladder_sweeps_total Total number of best-of-3 series won 2-0
# TYPE club_ladder_sweeps_total counter
club_ladder_sweeps_total{discipline="solo",env="test"} 1
`
				err := testutil.GatherAndCompare(registry, strings.NewReader(expected), "club_ladder_sweeps_total")
				So(err, ShouldBeNil)
			})
		})

		Convey("When two managers share a registry", func() {
			registry := prometheus.NewRegistry()
			NewManager(WithPrometheusRegistry(registry))

			Convey("Then the second registration panics", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When a match is processed", func() {
			before := testutil.ToFloat64(globalManager.matchesProcessed.WithLabelValues("team"))
			RecordMatchProcessed("team")
			RecordMatchProcessed("team")

			Convey("Then the per-discipline counter increases", func() {
				after := testutil.ToFloat64(globalManager.matchesProcessed.WithLabelValues("team"))
				So(after-before, ShouldEqual, 2)
			})
		})

		Convey("When rejections and duplicates are recorded", func() {
			rej := testutil.ToFloat64(globalManager.matchesRejected.WithLabelValues("series_undecided"))
			dup := testutil.ToFloat64(globalManager.matchesDuplicate)
			RecordMatchRejected("series_undecided")
			RecordMatchDuplicate()

			Convey("Then both counters move", func() {
				So(testutil.ToFloat64(globalManager.matchesRejected.WithLabelValues("series_undecided"))-rej, ShouldEqual, 1)
				So(testutil.ToFloat64(globalManager.matchesDuplicate)-dup, ShouldEqual, 1)
			})
		})

		Convey("When gauges are set", func() {
			UpdateParticipants("solo", 42)
			UpdateQueueSize(7)
			UpdateQueueCapacity(100)
			UpdateQueueUtilization(0.07)
			UpdateWorkerCount(4)

			Convey("Then they report the last value", func() {
				So(testutil.ToFloat64(globalManager.participants.WithLabelValues("solo")), ShouldEqual, 42)
				So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 7)
				So(testutil.ToFloat64(globalManager.queueCapacity), ShouldEqual, 100)
				So(testutil.ToFloat64(globalManager.queueUtilization), ShouldEqual, 0.07)
				So(testutil.ToFloat64(globalManager.workerCount), ShouldEqual, 4)
			})
		})

		Convey("When histograms and remaining counters are recorded", func() {
			Convey("Then nothing panics", func() {
				So(func() {
					RecordRatingDelta("solo", -16)
					RecordRatingDelta("team", 25)
					RecordRatingLatency(0.4)
					RecordSweep("solo")
					RecordStoreLatency("apply", 1.5)
					RecordStoreError("apply")
					RecordQueueEnqueue()
					RecordQueueDequeue()
					RecordQueueEnqueueError()
					UpdateWorkerActiveCount(4)
					RecordWorkerProcessingLatency(2)
					RecordWorkerError()
					RecordHTTPRequest("/matches", "POST", "202")
					RecordHTTPRequestDuration("/matches", "POST", "202", 3)
					RecordErrorByComponent("worker", "store")
					UpdateSystemMemoryUsage(1 << 20)
					UpdateSystemGoroutineCount(12)
					RecordSystemGCPauseTime(0.2)
				}, ShouldNotPanic)
			})
		})

		Convey("When the registry is requested", func() {
			Convey("Then it is the custom registry", func() {
				So(GetRegistry(), ShouldEqual, customRegistry)
				_, err := GetRegistry().Gather()
				So(err, ShouldBeNil)
			})
		})
	})
}
