package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	challengesIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "localboost_challenges_issued_total",
			Help: "Total number of challenges issued",
		},
	)

	challengeVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "localboost_challenge_verifications_total",
			Help: "Challenge verification attempts by outcome",
		},
		[]string{"outcome"},
	)

	challengesSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "localboost_challenges_swept_total",
			Help: "Total number of expired challenges reclaimed by the sweeper",
		},
	)

	reviewsAdmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "localboost_reviews_admitted_total",
			Help: "Total number of reviews persisted",
		},
	)

	consistencyFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "localboost_aggregate_consistency_failures_total",
			Help: "Aggregate updates that failed after the review was persisted",
		},
	)

	reconciliations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "localboost_aggregate_reconciliations_total",
			Help: "Aggregate recomputations by result",
		},
		[]string{"result"},
	)

	rankingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "localboost_ranking_duration_seconds",
			Help:    "Time spent building a snapshot and ranking a listing",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5},
		},
	)
)
