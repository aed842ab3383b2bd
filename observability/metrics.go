package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	skippedActivities = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "carbon_tracker",
		Subsystem: "footprint",
		Name:      "skipped_activities_total",
		Help:      "Activities left out of a footprint aggregation, by reason.",
	}, []string{"reason"})
	recommendationOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "carbon_tracker",
		Subsystem: "advice",
		Name:      "recommendations_total",
		Help:      "Recommendation lists served, by selection outcome.",
	}, []string{"reason"})
	activityWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "carbon_tracker",
		Subsystem: "activities",
		Name:      "writes_total",
		Help:      "Activity create/delete attempts, by operation and result.",
	}, []string{"op", "result"})
)

func init() {
	prometheus.MustRegister(skippedActivities, recommendationOutcomes, activityWrites)
}

// RecordSkippedActivity counts an activity skipped during aggregation.
func RecordSkippedActivity(reason string) {
	skippedActivities.WithLabelValues(reason).Inc()
}

// RecordRecommendation counts a served recommendation list.
func RecordRecommendation(reason string) {
	recommendationOutcomes.WithLabelValues(reason).Inc()
}

// RecordActivityWrite counts an activity write; err == nil means success.
func RecordActivityWrite(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	activityWrites.WithLabelValues(op, result).Inc()
}
