package serial

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.dedis.ch/tokenlock"
)

const (
	statusAccepted = "accepted"
	statusRejected = "rejected"
	statusFailed   = "failed"
)

var promTxs = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "tokenlock_transactions_total",
	Help: "total number of processed transactions by status",
}, []string{"status"})

func init() {
	tokenlock.PromCollectors = append(tokenlock.PromCollectors, promTxs)
}
