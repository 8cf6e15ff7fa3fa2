package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCountersRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.CombineOp("strict")
	m.CombineOp("strict")
	m.UpstreamCall("search", "search", OutcomeFallback)
	m.StatusTransition("unseen", "seen")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.combineOps.WithLabelValues("strict")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.upstreamCalls.WithLabelValues("search", "search", OutcomeFallback)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.statusTransitions.WithLabelValues("unseen", "seen")))

	m.ObserveStoreOp("query", 3*time.Millisecond, nil)
	m.ObserveStoreOp("query", 3*time.Millisecond, errors.New("boom"))
	assert.Equal(t, 2, testutil.CollectAndCount(m.storeOpDuration))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.CombineOp("all")
		m.ListingCreated()
		m.EventAppended("chat_message")
		m.ObserveStoreOp("get", time.Millisecond, nil)
		m.SocketConnected()
	})
}
