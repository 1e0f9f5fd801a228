// Package metrics exposes Prometheus metrics for the keypad link.
//
// A Collector is handed to the transport, which reports bytes, dispatcher
// counters, state changes, reconnects and errors. Handler serves the
// collector's registry for scraping:
//
//	m := metrics.New(metrics.WithConstLabels(prometheus.Labels{"mount": name}))
//	http.Handle("/metrics", m.Handler())
package metrics
