// Package metrics records cache and upstream activity in a go-ethereum metrics
// registry and exposes it in the Prometheus text format.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/metrics"
	"github.com/ethereum/go-ethereum/metrics/prometheus"
)

const namespace = "contractcache"

// Enable turns on metric collection. go-ethereum hands out no-op metrics while
// disabled, so this must run before the first metric is recorded.
func Enable(enabled bool) {
	metrics.Enabled = enabled
}

// Recorder records pipeline outcomes. A nil Recorder records nothing.
type Recorder struct {
	registry metrics.Registry
}

// NewRecorder creates a Recorder backed by its own registry
func NewRecorder() *Recorder {
	return &Recorder{registry: metrics.NewRegistry()}
}

// CacheHit counts a request served from the cache
func (r *Recorder) CacheHit() {
	r.mark("%s/cache/hit", namespace)
}

// CacheMiss counts a request that had to call the node
func (r *Recorder) CacheMiss() {
	r.mark("%s/cache/miss", namespace)
}

// StaleServed counts an upstream failure answered with a cached value
func (r *Recorder) StaleServed() {
	r.mark("%s/cache/stale", namespace)
}

// StaleMiss counts an upstream failure with nothing to fall back on
func (r *Recorder) StaleMiss() {
	r.mark("%s/cache/stale/miss", namespace)
}

// StoreError counts a failed store operation
func (r *Recorder) StoreError(op string) {
	if r == nil {
		return
	}
	metrics.GetOrRegisterCounter(fmt.Sprintf("%s/store/error/%s", namespace, op), r.registry).Inc(1)
}

// UpstreamCall times one upstream call by function and outcome
func (r *Recorder) UpstreamCall(function string, start time.Time, err error) {
	if r == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	name := fmt.Sprintf("%s/upstream/%s/%s", namespace, function, outcome)
	metrics.GetOrRegisterTimer(name, r.registry).UpdateSince(start)
}

// Handler serves the registry in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	return prometheus.Handler(r.registry)
}

// Count returns the value of a counter or meter, or 0 if it was never recorded
func (r *Recorder) Count(name string) int64 {
	if r == nil {
		return 0
	}
	switch m := r.registry.Get(name).(type) {
	case metrics.Counter:
		return m.Snapshot().Count()
	case metrics.Meter:
		return m.Snapshot().Count()
	case metrics.Timer:
		return m.Snapshot().Count()
	default:
		return 0
	}
}

func (r *Recorder) mark(format string, args ...interface{}) {
	if r == nil {
		return
	}
	metrics.GetOrRegisterMeter(fmt.Sprintf(format, args...), r.registry).Mark(1)
}
