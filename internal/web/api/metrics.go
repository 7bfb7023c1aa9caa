package api

import "github.com/prometheus/client_golang/prometheus"

type domainMetrics struct {
	ruleChanges *prometheus.CounterVec
	documents   *prometheus.CounterVec
}

func newDomainMetrics(reg prometheus.Registerer) *domainMetrics {
	m := &domainMetrics{
		ruleChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dqrules",
			Name:      "rule_changes_total",
			Help:      "Registry mutations by operation.",
		}, []string{"op"}),
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dqrules",
			Name:      "documents_total",
			Help:      "Documents rendered or loaded, by direction and outcome.",
		}, []string{"direction", "outcome"}),
	}
	reg.MustRegister(m.ruleChanges, m.documents)
	return m
}
