package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMonitor(t *testing.T) *Monitor {
	t.Helper()
	m := New(100)
	t.Cleanup(m.Close)
	return m
}

func TestMonitor_RegisterAgent(t *testing.T) {
	m := newTestMonitor(t)
	m.RegisterAgent("alpha", "Alpha Agent", []string{"analysis"})

	state := m.RealTimeState()
	snap, ok := state.Agents["alpha"]
	require.True(t, ok)
	assert.Equal(t, "Alpha Agent", snap.Name)
	assert.Equal(t, StateIdle, snap.State)
	assert.Equal(t, []string{"analysis"}, snap.Capabilities)
}

func TestMonitor_MessageFlowTracking(t *testing.T) {
	m := newTestMonitor(t)
	m.RegisterAgent("alpha", "Alpha", nil)
	m.RegisterAgent("beta", "Beta", nil)

	m.LogMessageSent("alpha", "beta", "msg-1", "request", 128)
	m.LogMessageReceived("beta", "alpha", "msg-1", "request", 128)

	t.Run("states transition", func(t *testing.T) {
		state := m.RealTimeState()
		assert.Equal(t, StateCommunicating, state.Agents["alpha"].State)
		assert.Equal(t, StateProcessing, state.Agents["beta"].State)
	})

	t.Run("relationship is symmetric", func(t *testing.T) {
		state := m.RealTimeState()
		assert.Contains(t, state.Relationships["alpha"], "beta")
		assert.Contains(t, state.Relationships["beta"], "alpha")
	})

	t.Run("counters increment", func(t *testing.T) {
		state := m.RealTimeState()
		assert.Equal(t, 1, state.Agents["alpha"].Metrics.TotalMessagesSent)
		assert.Equal(t, 1, state.Agents["beta"].Metrics.TotalMessagesReceived)
	})
}

func TestMonitor_ProcessingAverage(t *testing.T) {
	m := newTestMonitor(t)
	m.RegisterAgent("alpha", "Alpha", nil)

	// Each completion carries one received message so the sample count
	// advances with the observations.
	m.LogMessageReceived("alpha", "beta", "m1", "request", 10)
	m.LogProcessingComplete("alpha", "task", 2.0, nil)

	m.LogMessageReceived("alpha", "beta", "m2", "request", 10)
	m.LogProcessingComplete("alpha", "task", 4.0, nil)

	state := m.RealTimeState()
	avg := state.Agents["alpha"].Metrics.AverageProcessingTime
	assert.InDelta(t, 3.0, avg, 0.0001)
}

func TestMonitor_ErrorTracking(t *testing.T) {
	m := newTestMonitor(t)
	m.RegisterAgent("alpha", "Alpha", nil)

	m.LogProcessingError("alpha", "task", "boom")

	state := m.RealTimeState()
	assert.Equal(t, StateError, state.Agents["alpha"].State)
	assert.Equal(t, 1, state.Agents["alpha"].Metrics.ErrorCount)
}

func TestMonitor_IdleReset(t *testing.T) {
	m := newTestMonitor(t)
	m.RegisterAgent("alpha", "Alpha", nil)

	m.LogMessageReceived("alpha", "beta", "m1", "request", 10)
	m.LogProcessingComplete("alpha", "task", 0.5, nil)

	assert.Eventually(t, func() bool {
		return m.RealTimeState().Agents["alpha"].State == StateIdle
	}, 3*time.Second, 50*time.Millisecond)
}

func TestMonitor_SnapshotTail(t *testing.T) {
	m := newTestMonitor(t)
	m.RegisterAgent("alpha", "Alpha", nil)
	m.RegisterAgent("beta", "Beta", nil)

	for i := 0; i < 30; i++ {
		m.LogMessageSent("alpha", "beta", "m", "request", 1)
	}

	state := m.RealTimeState()
	assert.Len(t, state.RecentMessageFlows, 20)
	assert.Len(t, state.RecentActivities, 20)

	t.Run("repeated snapshots are identical when nothing happened", func(t *testing.T) {
		before := m.RealTimeState()
		after := m.RealTimeState()
		assert.Equal(t, before.RecentActivities, after.RecentActivities)
		assert.Equal(t, before.RecentMessageFlows, after.RecentMessageFlows)
	})
}

func TestMonitor_ActivityHistoryLimit(t *testing.T) {
	m := newTestMonitor(t)
	m.RegisterAgent("alpha", "Alpha", nil)
	for i := 0; i < 10; i++ {
		m.LogProcessingStart("alpha", "task", nil)
	}

	assert.Len(t, m.ActivityHistory(3), 3)
	assert.GreaterOrEqual(t, len(m.ActivityHistory(100)), 10)
}

func TestMonitor_NetworkTopology(t *testing.T) {
	m := newTestMonitor(t)
	m.RegisterAgent("alpha", "Alpha", nil)
	m.RegisterAgent("beta", "Beta", nil)

	for i := 0; i < 3; i++ {
		m.LogMessageSent("alpha", "beta", "m", "request", 1)
	}
	for i := 0; i < 2; i++ {
		m.LogMessageSent("beta", "alpha", "m", "response", 1)
	}

	topo := m.NetworkTopology()
	assert.Len(t, topo.Nodes, 2)
	require.Len(t, topo.Edges, 1, "reverse traffic must not create a second edge")
	assert.Equal(t, 5, topo.Edges[0].MessageCount)
}

func TestMonitor_Workflows(t *testing.T) {
	m := newTestMonitor(t)
	m.StartWorkflow("wf-1", "test_pipeline", []string{"alpha", "beta"}, nil)

	state := m.RealTimeState()
	require.Contains(t, state.ActiveWorkflows, "wf-1")
	assert.Equal(t, "active", state.ActiveWorkflows["wf-1"].Status)

	m.CompleteWorkflow("wf-1", map[string]any{"result": "ok"})
	state = m.RealTimeState()
	assert.NotContains(t, state.ActiveWorkflows, "wf-1")
}

func TestMonitor_Subscribe(t *testing.T) {
	m := newTestMonitor(t)
	m.RegisterAgent("alpha", "Alpha", nil)
	m.RegisterAgent("beta", "Beta", nil)

	events := m.Subscribe()
	m.LogMessageSent("alpha", "beta", "m1", "request", 1)

	deadline := time.After(time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Type == "message_flow" {
				m.Unsubscribe(events)
				return
			}
		case <-deadline:
			t.Fatal("expected a message_flow event")
		}
	}
}

func TestMonitor_Uptime(t *testing.T) {
	m := newTestMonitor(t)
	assert.GreaterOrEqual(t, m.Uptime(), time.Duration(0))
}
