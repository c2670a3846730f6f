package ordernum

import "github.com/prometheus/client_golang/prometheus"

var (
	AllocationRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "farmgate_order_allocation_retries_total",
		Help: "Number of order number allocation attempts lost to a concurrent allocator.",
	})
	AllocationFallbacks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "farmgate_order_allocation_fallback_total",
		Help: "Number of order numbers issued via the timestamp fallback scheme.",
	})
)

func init() {
	prometheus.MustRegister(AllocationRetries, AllocationFallbacks)
}
