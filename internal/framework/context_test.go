package framework

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astc-project/astc-backend/internal/framework/messaging"
	"github.com/astc-project/astc-backend/internal/framework/monitor"
)

func newTestContext(t *testing.T) *Context {
	t.Helper()
	mon := monitor.New(100)
	t.Cleanup(mon.Close)
	return NewContext(messaging.NewRouter(100), mon)
}

func newHandlerAgent(id string, kind string, fn HandlerFunc) *BaseAgent {
	a := NewBaseAgent(id, id+" agent", []string{"testing"})
	a.On(kind, fn)
	return a
}

func TestRegister_WiresMonitorAndRouter(t *testing.T) {
	fw := newTestContext(t)
	fw.Register(newHandlerAgent("worker", "noop", func(ctx context.Context, msg *messaging.Message) (messaging.Payload, error) {
		return messaging.Payload{Kind: "noop_done"}, nil
	}))

	state := fw.Monitor.RealTimeState()
	require.Contains(t, state.Agents, "worker")
	assert.Equal(t, monitor.StateIdle, state.Agents["worker"].State)

	assert.Equal(t, 1, fw.Router.Stats().ActiveAgents)
}

func TestSend_DeliversAndReplies(t *testing.T) {
	fw := newTestContext(t)
	fw.Register(newHandlerAgent("responder", "greet", func(ctx context.Context, msg *messaging.Message) (messaging.Payload, error) {
		return messaging.NewPayload("greeting", map[string]any{"text": "hello"})
	}))

	payload, err := messaging.NewPayload("greet", nil)
	require.NoError(t, err)

	resp, ok := fw.Send(context.Background(), messaging.NewMessage("caller", "responder", payload))
	require.True(t, ok)
	assert.Equal(t, "greeting", resp.Kind)

	var body struct {
		Text string `json:"text"`
	}
	require.NoError(t, resp.Decode(&body))
	assert.Equal(t, "hello", body.Text)
}

func TestSend_UnknownRecipient(t *testing.T) {
	fw := newTestContext(t)

	payload, err := messaging.NewPayload("greet", nil)
	require.NoError(t, err)

	resp, ok := fw.Send(context.Background(), messaging.NewMessage("caller", "nobody", payload))
	assert.False(t, ok)
	assert.Equal(t, "error", resp.Kind)
}

func TestSend_AgentErrorBecomesStructuredReply(t *testing.T) {
	fw := newTestContext(t)
	fw.Register(newHandlerAgent("broken", "work", func(ctx context.Context, msg *messaging.Message) (messaging.Payload, error) {
		return messaging.Payload{}, errors.New("downstream unavailable")
	}))

	payload, err := messaging.NewPayload("work", nil)
	require.NoError(t, err)

	resp, ok := fw.Send(context.Background(), messaging.NewMessage("caller", "broken", payload))
	require.True(t, ok)
	assert.Equal(t, "error", resp.Kind)

	var body struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
		Agent   string `json:"agent"`
	}
	require.NoError(t, resp.Decode(&body))
	assert.False(t, body.Success)
	assert.Equal(t, "downstream unavailable", body.Error)
	assert.Equal(t, "broken", body.Agent)

	// The dispatch boundary converts the error, so the router still counts a
	// successful delivery.
	assert.Equal(t, 1, fw.Router.Stats().Delivered)
}

func TestAgentsStatus_PreservesRegistrationOrder(t *testing.T) {
	fw := newTestContext(t)
	for _, id := range []string{"zulu", "alpha", "mike"} {
		fw.Register(newHandlerAgent(id, "noop", func(ctx context.Context, msg *messaging.Message) (messaging.Payload, error) {
			return messaging.Payload{Kind: "noop_done"}, nil
		}))
	}

	statuses := fw.AgentsStatus()
	require.Len(t, statuses, 3)
	assert.Equal(t, "zulu", statuses[0].ID)
	assert.Equal(t, "alpha", statuses[1].ID)
	assert.Equal(t, "mike", statuses[2].ID)
	for _, s := range statuses {
		assert.Equal(t, "idle", s.Status)
		assert.Equal(t, []string{"testing"}, s.Capabilities)
	}
}

func TestFrameworkStatus(t *testing.T) {
	fw := newTestContext(t)
	fw.Register(newHandlerAgent("worker", "noop", func(ctx context.Context, msg *messaging.Message) (messaging.Payload, error) {
		return messaging.Payload{Kind: "noop_done"}, nil
	}))

	status := fw.FrameworkStatus()
	assert.Equal(t, "operational", status["status"])
	assert.Equal(t, 1, status["total_agents"])
	assert.Equal(t, 0, status["active_agents"])
	assert.Contains(t, status, "message_stats")
	assert.Contains(t, status, "uptime_seconds")
}

func TestBaseAgent_UnknownKind(t *testing.T) {
	a := NewBaseAgent("solo", "Solo Agent", nil)

	resp, err := a.Handle(context.Background(), messaging.NewMessage("caller", "solo", messaging.Payload{Kind: "mystery"}))
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Kind)

	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, resp.Decode(&body))
	assert.Equal(t, "unknown message type: mystery", body.Error)
}
