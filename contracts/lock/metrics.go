package lock

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.dedis.ch/tokenlock"
)

var (
	promLocked = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tokenlock_locked_amount_total",
		Help: "total amount locked by the lock contract",
	})

	promUnlocked = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tokenlock_unlocked_amount_total",
		Help: "total amount unlocked by the lock contract",
	})

	promRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tokenlock_rejections_total",
		Help: "total number of refused lock commands by kind of error",
	}, []string{"kind"})
)

func init() {
	tokenlock.PromCollectors = append(tokenlock.PromCollectors, promLocked,
		promUnlocked, promRejections)
}
