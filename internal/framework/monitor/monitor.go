package monitor

import (
	"log"
	"sync"
	"time"
)

// AgentState is the visualized processing state of an agent.
type AgentState string

const (
	StateIdle          AgentState = "idle"
	StateProcessing    AgentState = "processing"
	StateWaiting       AgentState = "waiting"
	StateComplete      AgentState = "complete"
	StateError         AgentState = "error"
	StateCommunicating AgentState = "communicating"
)

// Activity is an immutable record of one agent event.
type Activity struct {
	AgentID        string         `json:"agent_id"`
	Timestamp      time.Time      `json:"timestamp"`
	ActivityType   string         `json:"activity_type"`
	State          AgentState     `json:"state"`
	Details        map[string]any `json:"details"`
	MessageID      string         `json:"message_id,omitempty"`
	TargetAgent    string         `json:"target_agent,omitempty"`
	ProcessingTime float64        `json:"processing_time,omitempty"`
}

// MessageFlow records one message transit between two agents.
type MessageFlow struct {
	MessageID   string    `json:"message_id"`
	FromAgent   string    `json:"from_agent"`
	ToAgent     string    `json:"to_agent"`
	MessageType string    `json:"message_type"`
	Timestamp   time.Time `json:"timestamp"`
	Direction   string    `json:"direction"`
	PayloadSize int       `json:"payload_size"`
}

// AgentMetrics aggregates per-agent counters.
type AgentMetrics struct {
	AgentID               string     `json:"agent_id"`
	TotalMessagesSent     int        `json:"total_messages_sent"`
	TotalMessagesReceived int        `json:"total_messages_received"`
	AverageProcessingTime float64    `json:"average_processing_time"`
	CurrentState          AgentState `json:"current_state"`
	LastActivity          time.Time  `json:"last_activity"`
	ErrorCount            int        `json:"error_count"`
}

// Workflow tracks one named multi-agent workflow.
type Workflow struct {
	WorkflowID          string         `json:"workflow_id"`
	WorkflowType        string         `json:"workflow_type"`
	ParticipatingAgents []string       `json:"participating_agents"`
	StartTime           time.Time      `json:"start_time"`
	EndTime             *time.Time     `json:"end_time,omitempty"`
	Status              string         `json:"status"`
	Data                map[string]any `json:"workflow_data,omitempty"`
	ResultSummary       map[string]any `json:"result_summary,omitempty"`
}

// AgentSnapshot pairs state and metrics for one agent.
type AgentSnapshot struct {
	Name         string       `json:"name"`
	Capabilities []string     `json:"capabilities"`
	State        AgentState   `json:"state"`
	Metrics      AgentMetrics `json:"metrics"`
}

// RealTimeState is the snapshot returned to the monitoring surface.
type RealTimeState struct {
	Timestamp          time.Time                `json:"timestamp"`
	Agents             map[string]AgentSnapshot `json:"agents"`
	Relationships      map[string][]string      `json:"relationships"`
	ActiveWorkflows    map[string]Workflow      `json:"active_workflows"`
	RecentActivities   []Activity               `json:"recent_activities"`
	RecentMessageFlows []MessageFlow            `json:"recent_message_flows"`
}

// TopologyNode is one agent in the communication graph.
type TopologyNode struct {
	ID            string       `json:"id"`
	State         AgentState   `json:"state"`
	Metrics       AgentMetrics `json:"metrics"`
	TotalMessages int          `json:"total_messages"`
}

// TopologyEdge is one undirected relationship annotated with observed traffic.
type TopologyEdge struct {
	Source       string `json:"source"`
	Target       string `json:"target"`
	MessageCount int    `json:"message_count"`
}

// Topology is the agent network graph.
type Topology struct {
	Nodes     []TopologyNode `json:"nodes"`
	Edges     []TopologyEdge `json:"edges"`
	Timestamp time.Time      `json:"timestamp"`
}

// Event is pushed to subscribers for live streaming.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

const snapshotTail = 20

// Monitor is the process-wide activity log for the agent framework. A single
// mutex guards all mutable state; snapshot reads take the same lock.
type Monitor struct {
	mu             sync.Mutex
	maxHistorySize int

	names         map[string]string
	capabilities  map[string][]string
	states        map[string]AgentState
	metrics       map[string]*AgentMetrics
	relationships map[string]map[string]struct{}
	workflows     map[string]*Workflow

	activities []Activity
	flows      []MessageFlow

	resetTimers map[string]*time.Timer
	subscribers []chan Event
	closed      bool
	startTime   time.Time
}

func New(maxHistorySize int) *Monitor {
	if maxHistorySize <= 0 {
		maxHistorySize = 1000
	}
	return &Monitor{
		maxHistorySize: maxHistorySize,
		names:          make(map[string]string),
		capabilities:   make(map[string][]string),
		states:         make(map[string]AgentState),
		metrics:        make(map[string]*AgentMetrics),
		relationships:  make(map[string]map[string]struct{}),
		workflows:      make(map[string]*Workflow),
		resetTimers:    make(map[string]*time.Timer),
		startTime:      time.Now(),
	}
}

// RegisterAgent initializes tracking for an agent.
func (m *Monitor) RegisterAgent(agentID, name string, capabilities []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.names[agentID] = name
	m.capabilities[agentID] = capabilities
	m.states[agentID] = StateIdle
	m.metrics[agentID] = &AgentMetrics{AgentID: agentID, CurrentState: StateIdle}

	m.appendActivityLocked(Activity{
		AgentID:      agentID,
		Timestamp:    time.Now(),
		ActivityType: "agent_registered",
		State:        StateIdle,
		Details: map[string]any{
			"agent_name":   name,
			"capabilities": capabilities,
		},
	})
	log.Printf("[monitor] agent registered: %s (%s)", agentID, name)
}

// LogMessageSent records an outgoing message and links both agents as peers.
func (m *Monitor) LogMessageSent(fromAgent, toAgent, messageID, messageType string, payloadSize int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.setStateLocked(fromAgent, StateCommunicating)

	flow := MessageFlow{
		MessageID:   messageID,
		FromAgent:   fromAgent,
		ToAgent:     toAgent,
		MessageType: messageType,
		Timestamp:   now,
		Direction:   "outgoing",
		PayloadSize: payloadSize,
	}
	m.flows = append(m.flows, flow)
	if len(m.flows) > m.maxHistorySize {
		m.flows = m.flows[len(m.flows)-m.maxHistorySize:]
	}
	m.publishLocked(Event{Type: "message_flow", Data: flow})

	m.metricsLocked(fromAgent).TotalMessagesSent++

	m.addRelationshipLocked(fromAgent, toAgent)
	m.addRelationshipLocked(toAgent, fromAgent)

	m.appendActivityLocked(Activity{
		AgentID:      fromAgent,
		Timestamp:    now,
		ActivityType: "message_sent",
		State:        StateCommunicating,
		Details: map[string]any{
			"to_agent":     toAgent,
			"message_type": messageType,
			"payload_size": payloadSize,
		},
		MessageID:   messageID,
		TargetAgent: toAgent,
	})
}

// LogMessageReceived records an incoming message for the recipient.
func (m *Monitor) LogMessageReceived(toAgent, fromAgent, messageID, messageType string, payloadSize int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.setStateLocked(toAgent, StateProcessing)
	m.metricsLocked(toAgent).TotalMessagesReceived++

	m.appendActivityLocked(Activity{
		AgentID:      toAgent,
		Timestamp:    time.Now(),
		ActivityType: "message_received",
		State:        StateProcessing,
		Details: map[string]any{
			"from_agent":   fromAgent,
			"message_type": messageType,
			"payload_size": payloadSize,
		},
		MessageID:   messageID,
		TargetAgent: fromAgent,
	})
}

// LogProcessingStart marks the agent as busy with a task.
func (m *Monitor) LogProcessingStart(agentID, taskType string, details map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.setStateLocked(agentID, StateProcessing)
	m.appendActivityLocked(Activity{
		AgentID:      agentID,
		Timestamp:    time.Now(),
		ActivityType: "processing_start",
		State:        StateProcessing,
		Details: map[string]any{
			"task_type":    taskType,
			"task_details": details,
		},
	})
}

// LogProcessingComplete records a finished task and folds the elapsed time
// into the agent's running average.
func (m *Monitor) LogProcessingComplete(agentID, taskType string, processingTime float64, summary map[string]any) {
	m.mu.Lock()

	m.setStateLocked(agentID, StateComplete)

	metrics := m.metricsLocked(agentID)
	count := metrics.TotalMessagesSent + metrics.TotalMessagesReceived
	if count > 0 {
		metrics.AverageProcessingTime = (metrics.AverageProcessingTime*float64(count-1) + processingTime) / float64(count)
	} else {
		metrics.AverageProcessingTime = processingTime
	}

	m.appendActivityLocked(Activity{
		AgentID:      agentID,
		Timestamp:    time.Now(),
		ActivityType: "processing_complete",
		State:        StateComplete,
		Details: map[string]any{
			"task_type":      taskType,
			"result_summary": summary,
			"success":        true,
		},
		ProcessingTime: processingTime,
	})
	m.mu.Unlock()

	// Cosmetic return to idle for the topology view; must not block the caller.
	m.scheduleIdleReset(agentID, 1*time.Second)
}

// LogProcessingError records a failed task.
func (m *Monitor) LogProcessingError(agentID, taskType, errorMessage string) {
	m.mu.Lock()

	m.setStateLocked(agentID, StateError)
	m.metricsLocked(agentID).ErrorCount++

	m.appendActivityLocked(Activity{
		AgentID:      agentID,
		Timestamp:    time.Now(),
		ActivityType: "processing_error",
		State:        StateError,
		Details: map[string]any{
			"task_type":     taskType,
			"error_message": errorMessage,
			"success":       false,
		},
	})
	m.mu.Unlock()

	m.scheduleIdleReset(agentID, 2*time.Second)
}

// StartWorkflow begins tracking a multi-agent workflow.
func (m *Monitor) StartWorkflow(workflowID, workflowType string, participants []string, data map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wf := &Workflow{
		WorkflowID:          workflowID,
		WorkflowType:        workflowType,
		ParticipatingAgents: participants,
		StartTime:           time.Now(),
		Status:              "active",
		Data:                data,
	}
	m.workflows[workflowID] = wf
	m.publishLocked(Event{Type: "workflow_update", Data: *wf})
}

// CompleteWorkflow finishes a tracked workflow.
func (m *Monitor) CompleteWorkflow(workflowID string, summary map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wf, ok := m.workflows[workflowID]
	if !ok {
		return
	}
	now := time.Now()
	wf.Status = "completed"
	wf.EndTime = &now
	wf.ResultSummary = summary
	m.publishLocked(Event{Type: "workflow_update", Data: *wf})
}

// RealTimeState returns a consistent snapshot for the monitoring surface.
func (m *Monitor) RealTimeState() RealTimeState {
	m.mu.Lock()
	defer m.mu.Unlock()

	agents := make(map[string]AgentSnapshot, len(m.states))
	for id, state := range m.states {
		agents[id] = AgentSnapshot{
			Name:         m.names[id],
			Capabilities: m.capabilities[id],
			State:        state,
			Metrics:      *m.metricsLocked(id),
		}
	}

	relationships := make(map[string][]string, len(m.relationships))
	for id, peers := range m.relationships {
		list := make([]string, 0, len(peers))
		for peer := range peers {
			list = append(list, peer)
		}
		relationships[id] = list
	}

	workflows := make(map[string]Workflow, len(m.workflows))
	for id, wf := range m.workflows {
		if wf.Status == "active" {
			workflows[id] = *wf
		}
	}

	return RealTimeState{
		Timestamp:          time.Now(),
		Agents:             agents,
		Relationships:      relationships,
		ActiveWorkflows:    workflows,
		RecentActivities:   tail(m.activities, snapshotTail),
		RecentMessageFlows: tail(m.flows, snapshotTail),
	}
}

// ActivityHistory returns the most recent activities, newest last.
func (m *Monitor) ActivityHistory(limit int) []Activity {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = snapshotTail
	}
	return tail(m.activities, limit)
}

// NetworkTopology derives the agent communication graph.
func (m *Monitor) NetworkTopology() Topology {
	m.mu.Lock()
	defer m.mu.Unlock()

	nodes := make([]TopologyNode, 0, len(m.states))
	for id, state := range m.states {
		metrics := m.metricsLocked(id)
		nodes = append(nodes, TopologyNode{
			ID:            id,
			State:         state,
			Metrics:       *metrics,
			TotalMessages: metrics.TotalMessagesSent + metrics.TotalMessagesReceived,
		})
	}

	seen := make(map[[2]string]struct{})
	edges := make([]TopologyEdge, 0, len(m.relationships))
	for id, peers := range m.relationships {
		for peer := range peers {
			key := [2]string{id, peer}
			if peer < id {
				key = [2]string{peer, id}
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			edges = append(edges, TopologyEdge{
				Source:       key[0],
				Target:       key[1],
				MessageCount: m.flowCountLocked(key[0], key[1]),
			})
		}
	}

	return Topology{Nodes: nodes, Edges: edges, Timestamp: time.Now()}
}

// Uptime reports how long the monitor has been tracking.
func (m *Monitor) Uptime() time.Duration {
	return time.Since(m.startTime)
}

// Subscribe returns a channel of live events for streaming clients. Slow
// subscribers have events dropped rather than blocking the logging path.
func (m *Monitor) Subscribe() <-chan Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan Event, 64)
	m.subscribers = append(m.subscribers, ch)
	return ch
}

// Unsubscribe removes and closes a subscriber channel.
func (m *Monitor) Unsubscribe(ch <-chan Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, sub := range m.subscribers {
		if sub == ch {
			close(sub)
			m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
			return
		}
	}
}

// Close cancels pending idle-reset timers and closes all subscriber channels.
func (m *Monitor) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	for id, timer := range m.resetTimers {
		timer.Stop()
		delete(m.resetTimers, id)
	}
	for _, sub := range m.subscribers {
		close(sub)
	}
	m.subscribers = nil
}

func (m *Monitor) scheduleIdleReset(agentID string, delay time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	if prev, ok := m.resetTimers[agentID]; ok {
		prev.Stop()
	}
	m.resetTimers[agentID] = time.AfterFunc(delay, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.resetTimers, agentID)
		if !m.closed {
			m.setStateLocked(agentID, StateIdle)
		}
	})
}

func (m *Monitor) setStateLocked(agentID string, state AgentState) {
	old, known := m.states[agentID]
	m.states[agentID] = state

	metrics := m.metricsLocked(agentID)
	metrics.CurrentState = state
	metrics.LastActivity = time.Now()

	if !known || old != state {
		m.publishLocked(Event{Type: "state_change", Data: map[string]any{
			"agent_id":  agentID,
			"old_state": old,
			"new_state": state,
		}})
	}
}

func (m *Monitor) metricsLocked(agentID string) *AgentMetrics {
	metrics, ok := m.metrics[agentID]
	if !ok {
		metrics = &AgentMetrics{AgentID: agentID, CurrentState: StateIdle}
		m.metrics[agentID] = metrics
	}
	return metrics
}

func (m *Monitor) addRelationshipLocked(a, b string) {
	peers, ok := m.relationships[a]
	if !ok {
		peers = make(map[string]struct{})
		m.relationships[a] = peers
	}
	peers[b] = struct{}{}
}

func (m *Monitor) appendActivityLocked(activity Activity) {
	m.activities = append(m.activities, activity)
	if len(m.activities) > m.maxHistorySize {
		m.activities = m.activities[len(m.activities)-m.maxHistorySize:]
	}
	m.publishLocked(Event{Type: "agent_activity", Data: activity})
}

func (m *Monitor) publishLocked(event Event) {
	for _, sub := range m.subscribers {
		select {
		case sub <- event:
		default:
		}
	}
}

func (m *Monitor) flowCountLocked(a, b string) int {
	count := 0
	for _, flow := range m.flows {
		if (flow.FromAgent == a && flow.ToAgent == b) || (flow.FromAgent == b && flow.ToAgent == a) {
			count++
		}
	}
	return count
}

func tail[T any](items []T, n int) []T {
	if n > len(items) {
		n = len(items)
	}
	out := make([]T, n)
	copy(out, items[len(items)-n:])
	return out
}
