// Package metrics содержит счётчики Prometheus основного сервиса.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RewritesTotal — количество успешно выполненных переписываний.
	RewritesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "linkedrite_rewrites_total",
		Help: "Total number of successfully served rewrite requests.",
	})

	// QuotaDeniedTotal — количество отказов по дневному лимиту.
	QuotaDeniedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "linkedrite_quota_denied_total",
		Help: "Total number of rewrite requests denied by the daily quota.",
	})

	// CompletionFailuresTotal — количество ошибок внешнего сервиса генерации,
	// с разбивкой по виду ошибки.
	CompletionFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "linkedrite_completion_failures_total",
		Help: "Total number of completion service failures by kind.",
	}, []string{"kind"})
)
