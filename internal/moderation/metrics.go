package moderation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var filterMatches = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "mothy_filter_matches_total",
	Help: "Link filter matches by outcome",
}, []string{"result"})

var filterEvaluations = promauto.NewCounter(prometheus.CounterOpts{
	Name: "mothy_filter_evaluations_total",
	Help: "Denylist patterns evaluated against link buffers",
})

var imageSpamFlagged = promauto.NewCounter(prometheus.CounterOpts{
	Name: "mothy_image_spam_flagged_total",
	Help: "Messages flagged as image spam",
})
