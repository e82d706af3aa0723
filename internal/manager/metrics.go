package manager

import "github.com/prometheus/client_golang/prometheus"

var (
	serverStateDesc = prometheus.NewDesc("llmctl_server_state",
		"Serving unit state (1 for the current state).", []string{"state"}, nil)
	modelStateDesc = prometheus.NewDesc("llmctl_model_state",
		"Model state (1 for the current state).", []string{"state"}, nil)
	inflightDesc = prometheus.NewDesc("llmctl_generations_inflight",
		"Generations holding a lease on the live handle.", nil, nil)
	queuedDesc = prometheus.NewDesc("llmctl_generations_queued",
		"Generations waiting for an admission slot.", nil, nil)
	loadsDesc = prometheus.NewDesc("llmctl_model_loads_total",
		"Successful model loads.", nil, nil)
	layersDesc = prometheus.NewDesc("llmctl_model_layers",
		"Layer count from the last capacity probe.", nil, nil)
)

var (
	serverStates = []ServerState{ServerStopped, ServerStarting, ServerRunning, ServerStopping}
	modelStates  = []ModelState{ModelUnloaded, ModelLoading, ModelLoaded, ModelUnloading, ModelLoadFailed}
)

// Describe implements prometheus.Collector.
func (m *Manager) Describe(ch chan<- *prometheus.Desc) {
	ch <- serverStateDesc
	ch <- modelStateDesc
	ch <- inflightDesc
	ch <- queuedDesc
	ch <- loadsDesc
	ch <- layersDesc
}

// Collect implements prometheus.Collector from a Snapshot.
func (m *Manager) Collect(ch chan<- prometheus.Metric) {
	s := m.Snapshot()
	for _, st := range serverStates {
		ch <- prometheus.MustNewConstMetric(serverStateDesc, prometheus.GaugeValue, b2f(s.Server == st), st.String())
	}
	for _, st := range modelStates {
		ch <- prometheus.MustNewConstMetric(modelStateDesc, prometheus.GaugeValue, b2f(s.Model == st), st.String())
	}
	ch <- prometheus.MustNewConstMetric(inflightDesc, prometheus.GaugeValue, float64(s.Inflight))
	ch <- prometheus.MustNewConstMetric(queuedDesc, prometheus.GaugeValue, float64(s.Queued))
	ch <- prometheus.MustNewConstMetric(loadsDesc, prometheus.CounterValue, float64(s.LoadsTotal))
	ch <- prometheus.MustNewConstMetric(layersDesc, prometheus.GaugeValue, float64(s.MaxLayers))
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// NewQueueGauge exports the backlog of q. A growing value means the observer
// stopped draining.
func NewQueueGauge(q *Queue) prometheus.GaugeFunc {
	return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "llmctl_events_pending",
		Help: "Events published but not yet drained by the observer.",
	}, func() float64 { return float64(q.Len()) })
}
