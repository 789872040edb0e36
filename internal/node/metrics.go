package node

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// batchItems counts executed items by resource and outcome
var batchItems = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "bitrix24_node_items_total",
		Help: "Batch items executed by resource and outcome",
	},
	[]string{"resource", "outcome"}, // "ok", "error"
)
