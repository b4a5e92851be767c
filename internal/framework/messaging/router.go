package messaging

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
)

// Handler processes a message delivered to an agent and returns its response.
type Handler func(ctx context.Context, msg *Message) (*Message, error)

// Stats is a snapshot of router delivery counters.
type Stats struct {
	Sent          int     `json:"sent"`
	Delivered     int     `json:"delivered"`
	Failed        int     `json:"failed"`
	Expired       int     `json:"expired"`
	SuccessRate   float64 `json:"success_rate"`
	ActiveAgents  int     `json:"active_agents"`
	Subscriptions int     `json:"subscription_patterns"`
}

// Router delivers messages between registered agents in process. All shared
// state (handlers, subscriptions, history, counters) is guarded by one mutex;
// handlers run outside the lock so they may send further messages.
type Router struct {
	mu           sync.Mutex
	handlers     map[string]Handler
	subscription map[string][]string // pattern -> subscriber agent ids
	history      []*Message
	historyLimit int

	sent      int
	delivered int
	failed    int
	expired   int
}

const defaultHistoryLimit = 1000

func NewRouter(historyLimit int) *Router {
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}
	return &Router{
		handlers:     make(map[string]Handler),
		subscription: make(map[string][]string),
		historyLimit: historyLimit,
	}
}

// Register installs the delivery handler for an agent id. Registering an id
// twice overwrites the previous handler (last write wins).
func (r *Router) Register(agentID string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[agentID]; exists {
		log.Printf("[router] handler for %s overwritten", agentID)
	}
	r.handlers[agentID] = h
}

// Unregister removes an agent's handler and all of its subscriptions.
func (r *Router) Unregister(agentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, agentID)
	for pattern, subs := range r.subscription {
		filtered := subs[:0]
		for _, id := range subs {
			if id != agentID {
				filtered = append(filtered, id)
			}
		}
		if len(filtered) == 0 {
			delete(r.subscription, pattern)
		} else {
			r.subscription[pattern] = filtered
		}
	}
}

// Subscribe registers interest in messages matching a pattern. Patterns are
// matched as substrings of the message type and payload kind; "*" matches
// everything.
func (r *Router) Subscribe(agentID, pattern string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.subscription[pattern] {
		if id == agentID {
			return
		}
	}
	r.subscription[pattern] = append(r.subscription[pattern], agentID)
}

func (r *Router) Unsubscribe(agentID, pattern string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	subs := r.subscription[pattern]
	filtered := subs[:0]
	for _, id := range subs {
		if id != agentID {
			filtered = append(filtered, id)
		}
	}
	if len(filtered) == 0 {
		delete(r.subscription, pattern)
	} else {
		r.subscription[pattern] = filtered
	}
}

// Send delivers a message to its recipient's handler. Expired messages are
// dropped without delivery. Returns false when the message expired, the
// recipient is unknown, or the handler failed.
func (r *Router) Send(ctx context.Context, msg *Message) bool {
	_, ok := r.Request(ctx, msg)
	return ok
}

// Request delivers a message and returns the handler's response.
func (r *Router) Request(ctx context.Context, msg *Message) (*Message, bool) {
	r.mu.Lock()
	if msg.Expired(time.Now()) {
		r.expired++
		r.mu.Unlock()
		return nil, false
	}

	r.sent++
	r.appendHistoryLocked(msg)
	handler, found := r.handlers[msg.To]
	if !found {
		r.failed++
		r.mu.Unlock()
		return nil, false
	}
	r.mu.Unlock()

	resp, err := r.invoke(ctx, handler, msg)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.failed++
		log.Printf("[router] delivery to %s failed: %v", msg.To, err)
		return nil, false
	}
	r.delivered++
	return resp, true
}

// invoke runs the handler with panic recovery so a misbehaving agent cannot
// take down the router.
func (r *Router) invoke(ctx context.Context, h Handler, msg *Message) (resp *Message, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler panic: %v", rec)
		}
	}()
	return h(ctx, msg)
}

// Broadcast delivers a copy of the message to every subscribed agent whose
// pattern matches, excluding the sender. The result maps agent id to delivery
// outcome.
func (r *Router) Broadcast(ctx context.Context, msg *Message) map[string]bool {
	r.mu.Lock()
	recipients := make(map[string]struct{})
	for pattern, subs := range r.subscription {
		if !matches(msg, pattern) {
			continue
		}
		for _, id := range subs {
			recipients[id] = struct{}{}
		}
	}
	r.mu.Unlock()

	results := make(map[string]bool, len(recipients))
	for id := range recipients {
		if id == msg.From {
			continue
		}
		dup := NewMessage(msg.From, id, msg.Payload,
			WithType(TypeBroadcast),
			WithPriority(msg.Priority),
			WithCorrelationID(msg.CorrelationID))
		results[id] = r.Send(ctx, dup)
	}
	return results
}

// Stats returns a snapshot of the delivery counters.
func (r *Router) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	finished := r.delivered + r.failed + r.expired
	rate := 0.0
	if finished > 0 {
		rate = float64(r.delivered) / float64(finished) * 100
	}
	return Stats{
		Sent:          r.sent,
		Delivered:     r.delivered,
		Failed:        r.failed,
		Expired:       r.expired,
		SuccessRate:   rate,
		ActiveAgents:  len(r.handlers),
		Subscriptions: len(r.subscription),
	}
}

// History returns the most recent messages, newest last.
func (r *Router) History(limit int) []*Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit <= 0 || limit > len(r.history) {
		limit = len(r.history)
	}
	out := make([]*Message, limit)
	copy(out, r.history[len(r.history)-limit:])
	return out
}

// ConversationHistory returns recent messages exchanged between two agents,
// oldest first.
func (r *Router) ConversationHistory(agent1, agent2 string, limit int) []*Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit <= 0 {
		limit = 50
	}
	var conv []*Message
	for i := len(r.history) - 1; i >= 0 && len(conv) < limit; i-- {
		m := r.history[i]
		if (m.From == agent1 && m.To == agent2) || (m.From == agent2 && m.To == agent1) {
			conv = append(conv, m)
		}
	}
	for i, j := 0, len(conv)-1; i < j; i, j = i+1, j-1 {
		conv[i], conv[j] = conv[j], conv[i]
	}
	return conv
}

func (r *Router) appendHistoryLocked(msg *Message) {
	r.history = append(r.history, msg)
	if len(r.history) > r.historyLimit {
		r.history = r.history[len(r.history)-r.historyLimit:]
	}
}

func matches(msg *Message, pattern string) bool {
	if pattern == "*" {
		return true
	}
	if strings.Contains(msg.Payload.Kind, pattern) {
		return true
	}
	return strings.Contains(string(msg.Type), pattern)
}
