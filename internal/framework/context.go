package framework

import (
	"context"
	"time"

	"github.com/astc-project/astc-backend/internal/framework/messaging"
	"github.com/astc-project/astc-backend/internal/framework/monitor"
)

// Context wires the router, monitor, and registered agents together. It is
// constructed once at bootstrap and passed explicitly; there are no package
// level singletons.
type Context struct {
	Router  *messaging.Router
	Monitor *monitor.Monitor

	agents map[string]Agent
	order  []string
}

func NewContext(router *messaging.Router, mon *monitor.Monitor) *Context {
	return &Context{
		Router:  router,
		Monitor: mon,
		agents:  make(map[string]Agent),
	}
}

// Register installs an agent: the monitor starts tracking it and the router
// delivers to a wrapper that logs receipt, completion, and errors around the
// agent's own dispatch.
func (c *Context) Register(agent Agent) {
	if _, exists := c.agents[agent.ID()]; !exists {
		c.order = append(c.order, agent.ID())
	}
	c.agents[agent.ID()] = agent
	c.Monitor.RegisterAgent(agent.ID(), agent.Name(), agent.Capabilities())
	c.Router.Register(agent.ID(), c.deliveryHandler(agent))
}

func (c *Context) deliveryHandler(agent Agent) messaging.Handler {
	return func(ctx context.Context, msg *messaging.Message) (*messaging.Message, error) {
		c.Monitor.LogMessageReceived(agent.ID(), msg.From, msg.ID, msg.Payload.Kind, msg.Payload.Size())

		start := time.Now()
		payload, err := agent.Handle(ctx, msg)
		elapsed := time.Since(start).Seconds()

		if err != nil {
			// Errors at the dispatch boundary become structured responses;
			// only panics propagate to the router's failure accounting.
			c.Monitor.LogProcessingError(agent.ID(), msg.Payload.Kind, err.Error())
			return messaging.NewReply(msg, agent.ID(), ErrorPayload(agent.ID(), err.Error())), nil
		}

		c.Monitor.LogProcessingComplete(agent.ID(), msg.Payload.Kind, elapsed, map[string]any{
			"status":        "success",
			"response_size": payload.Size(),
		})
		return messaging.NewReply(msg, agent.ID(), payload), nil
	}
}

// Send routes a message from one agent to another, logging the send. The
// returned payload is the recipient's response.
func (c *Context) Send(ctx context.Context, msg *messaging.Message) (messaging.Payload, bool) {
	c.Monitor.LogMessageSent(msg.From, msg.To, msg.ID, msg.Payload.Kind, msg.Payload.Size())
	resp, ok := c.Router.Request(ctx, msg)
	if !ok || resp == nil {
		return ErrorPayload("router", "agent "+msg.To+" not found or delivery failed"), false
	}
	return resp.Payload, true
}

// AgentStatus is the status projection used by the HTTP surface.
type AgentStatus struct {
	ID           string               `json:"id"`
	Name         string               `json:"name"`
	Capabilities []string             `json:"capabilities"`
	Status       string               `json:"status"`
	CurrentState monitor.AgentState   `json:"current_state"`
	Metrics      monitor.AgentMetrics `json:"metrics"`
}

// AgentsStatus lists all registered agents with their live state.
func (c *Context) AgentsStatus() []AgentStatus {
	state := c.Monitor.RealTimeState()

	out := make([]AgentStatus, 0, len(c.order))
	for _, id := range c.order {
		agent := c.agents[id]
		snap := state.Agents[id]
		status := "idle"
		if snap.State == monitor.StateProcessing || snap.State == monitor.StateCommunicating {
			status = "active"
		}
		out = append(out, AgentStatus{
			ID:           id,
			Name:         agent.Name(),
			Capabilities: agent.Capabilities(),
			Status:       status,
			CurrentState: snap.State,
			Metrics:      snap.Metrics,
		})
	}
	return out
}

// FrameworkStatus summarizes the whole framework for the status endpoint.
func (c *Context) FrameworkStatus() map[string]any {
	agents := c.AgentsStatus()
	active := 0
	for _, a := range agents {
		if a.Status == "active" {
			active++
		}
	}
	return map[string]any{
		"status":         "operational",
		"total_agents":   len(agents),
		"active_agents":  active,
		"uptime_seconds": int(c.Monitor.Uptime().Seconds()),
		"agents":         agents,
		"message_stats":  c.Router.Stats(),
	}
}
