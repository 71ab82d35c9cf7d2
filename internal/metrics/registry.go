// Package metrics exposes the Prometheus instrumentation every domain
// package records against: transfer sessions, channel witnesses, MFA
// gates, and the audit/alert pipeline.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "dronelink"

// Registry is the Prometheus registry every metric in this package is
// registered against, and that Handler/StartServer serve.
var Registry = prometheus.NewRegistry()
