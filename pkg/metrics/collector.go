package metrics

import (
	"context"
	"time"

	"github.com/Proton-105/arbor-bot/internal/state"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	botCommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_commands_total",
			Help: "Total number of slash commands received labeled by command and status",
		},
		[]string{"command", "status"},
	)
	commandDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "command_duration_seconds",
			Help:    "Duration of slash commands in seconds, including time spent waiting on the user",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 240},
		},
		[]string{"command"},
	)
	stateTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "state_transitions_total",
			Help: "Total number of conversation state transitions",
		},
		[]string{"from", "to"},
	)
	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors split by type and severity",
		},
		[]string{"type", "severity"},
	)
	arborRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arbor_requests_total",
			Help: "Total number of wallet API requests labeled by endpoint and status",
		},
		[]string{"endpoint", "status"},
	)
	arborRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "arbor_request_duration_seconds",
			Help:    "Duration of wallet API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)
	conversationTimeoutsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversation_timeouts_total",
			Help: "Total number of conversations abandoned because the user did not answer in time",
		},
		[]string{"command"},
	)
	activeConversations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_conversations",
			Help: "Current number of running conversations",
		},
	)
	conversationsByState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "conversations_by_state",
			Help: "Number of conversations per state",
		},
		[]string{"state"},
	)
)

var trackedStates = []state.State{
	state.StateAwaitingPrivateChannel,
	state.StateAwaitingReply,
	state.StateCallingRemote,
	state.StatePersisting,
	state.StateReplied,
	state.StateError,
}

func init() {
	state.RegisterTransitionRecorder(RecordStateTransition)
}

// RecordCommand increments command counters and records duration.
func RecordCommand(command, status string, duration time.Duration) {
	if command == "" {
		command = "unknown"
	}
	if status == "" {
		status = "unknown"
	}

	botCommandsTotal.WithLabelValues(command, status).Inc()
	commandDurationSeconds.WithLabelValues(command).Observe(duration.Seconds())
}

// RecordStateTransition tracks FSM transitions.
func RecordStateTransition(from, to string) {
	if from == "" {
		from = "unknown"
	}
	if to == "" {
		to = "unknown"
	}

	stateTransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordError increments error counters with metadata.
func RecordError(errType, severity string) {
	if errType == "" {
		errType = "unknown"
	}
	if severity == "" {
		severity = "unknown"
	}

	errorsTotal.WithLabelValues(errType, severity).Inc()
}

// RecordArborRequest counts a wallet API call and its latency.
func RecordArborRequest(endpoint, status string, duration time.Duration) {
	if endpoint == "" {
		endpoint = "unknown"
	}
	if status == "" {
		status = "unknown"
	}

	arborRequestsTotal.WithLabelValues(endpoint, status).Inc()
	arborRequestDurationSeconds.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordConversationTimeout counts a conversation the user walked away from.
func RecordConversationTimeout(command string) {
	if command == "" {
		command = "unknown"
	}
	conversationTimeoutsTotal.WithLabelValues(command).Inc()
}

// SetActiveConversations updates the gauge for running conversations.
func SetActiveConversations(count int) {
	activeConversations.Set(float64(count))
}

// SetConversationsByState updates the gauge for the given state.
func SetConversationsByState(state string, count int) {
	if state == "" {
		state = "unknown"
	}

	conversationsByState.WithLabelValues(state).Set(float64(count))
}

// StateCollector periodically gathers FSM state counts and emits gauge metrics.
type StateCollector struct {
	fsm      state.StateMachine
	interval time.Duration
}

// NewStateCollector builds a metrics collector bound to the provided FSM.
func NewStateCollector(fsm state.StateMachine) *StateCollector {
	return &StateCollector{fsm: fsm, interval: 10 * time.Second}
}

// Run polls the FSM every interval, updating conversation gauges until ctx is cancelled.
func (c *StateCollector) Run(ctx context.Context) {
	if c == nil || c.fsm == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	for {
		_ = c.collect(ctx)

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.interval):
		}
	}
}

func (c *StateCollector) collect(ctx context.Context) error {
	states, err := c.fsm.GetAllStates(ctx)
	if err != nil {
		return err
	}

	stateCounts := make(map[string]int, len(states))
	active := 0
	for _, st := range states {
		label := "unknown"
		if st != nil && st.CurrentState != "" {
			label = string(st.CurrentState)
			if st.CurrentState.Active() {
				active++
			}
		}
		stateCounts[label]++
	}

	SetActiveConversations(active)
	conversationsByState.Reset()

	for _, tracked := range trackedStates {
		label := string(tracked)
		SetConversationsByState(label, stateCounts[label])
		delete(stateCounts, label)
	}

	for label, count := range stateCounts {
		SetConversationsByState(label, count)
	}

	return nil
}
