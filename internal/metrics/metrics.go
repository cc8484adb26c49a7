package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

var (
	ErrorsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newsletter_errors_total",
			Help: "Total number of occurred errors.",
		},
		[]string{"type"},
	)
	DispatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "newsletter_dispatch_duration_seconds",
			Help:    "Duration of each newsletter dispatch run in seconds.",
			Buckets: []float64{1, 5, 30, 120, 600},
		},
	)
	DispatchStepDuration = prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "newsletter_dispatch_step_duration_seconds",
			Help:       "Duration of each step in the dispatch process.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"step"},
	)
	EmailsSentCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "newsletter_emails_sent_total",
			Help: "Total number of newsletter emails delivered to the gateway.",
		},
	)
	EmailSendFailuresCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "newsletter_email_send_failures_total",
			Help: "Total number of newsletter emails that failed to send.",
		},
	)
	MatchedListingsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "newsletter_listings_matched_total",
			Help: "Total number of listing-to-user matches produced.",
		},
	)
)

func StartMetricsServer(address string) {

	prometheus.MustRegister(ErrorsCounter)
	prometheus.MustRegister(DispatchDuration)
	prometheus.MustRegister(DispatchStepDuration)
	prometheus.MustRegister(EmailsSentCounter)
	prometheus.MustRegister(EmailSendFailuresCounter)
	prometheus.MustRegister(MatchedListingsCounter)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Fatal(http.ListenAndServe(address, mux))
	}()
}
