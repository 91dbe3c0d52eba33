package alerts

import (
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/netpulse/netpulse/pkg/types"
	"github.com/netpulse/netpulse/server/internal/config"
)

const (
	defaultCooldown   = 15 * time.Minute
	maxHistoryLen     = 200
	recentWindowHours = 1
)

// Alert states.
const (
	StateFiring   = "firing"
	StateResolved = "resolved"
)

// Alert represents a single alert event produced by the rule engine.
// BatchID, Value and Score describe the batch that last changed its state.
type Alert struct {
	ID         string     `json:"id"`
	RuleName   string     `json:"rule_name"`
	DeviceID   string     `json:"device_id"`
	BatchID    string     `json:"batch_id"`
	Origin     string     `json:"origin"`
	Severity   string     `json:"severity"`
	Message    string     `json:"message"`
	Metric     string     `json:"metric"`
	Value      float64    `json:"value"`
	Score      *float64   `json:"optimization_score,omitempty"`
	FiredAt    time.Time  `json:"fired_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	State      string     `json:"state"`
}

type rule struct {
	config.AlertRule
	cond condition
}

// Engine evaluates alert rules against every device of incoming batches and
// delivers webhook notifications when rules fire or resolve.
//
// Engine is safe for concurrent use.
type Engine struct {
	rules    []rule
	webhooks []config.WebhookConfig

	mu       sync.Mutex
	active   map[string]*Alert    // key: alertKey
	lastFire map[string]time.Time // last fire time per key (for cooldown)
	history  []*Alert             // recently resolved alerts
	client   *http.Client
	now      func() time.Time
	wg       sync.WaitGroup
}

// New creates an Engine from the server alert configuration. It fails if a
// rule condition cannot be parsed. An Engine with no rules is valid and
// Evaluate becomes a no-op.
func New(cfg config.AlertsConfig) (*Engine, error) {
	rules := make([]rule, 0, len(cfg.Rules))
	for _, r := range cfg.Rules {
		c, err := parseCondition(r.Condition)
		if err != nil {
			return nil, fmt.Errorf("alerts: rule %q: %w", r.Name, err)
		}
		rules = append(rules, rule{AlertRule: r, cond: c})
	}
	return &Engine{
		rules:    rules,
		webhooks: cfg.Webhooks,
		active:   make(map[string]*Alert),
		lastFire: make(map[string]time.Time),
		client:   &http.Client{Timeout: 10 * time.Second},
		now:      time.Now,
	}, nil
}

// Evaluate tests all configured rules against every device in b, which came
// from origin. Alerts that fire are stored and webhook delivery is triggered
// asynchronously. Alerts that were firing but whose condition is now false
// are resolved.
//
// Alert state is tracked per origin. Device IDs are positional, so every
// agent reporting to one server shares the agent origin's Device_N slots.
func (e *Engine) Evaluate(b *types.Batch, origin string) {
	if len(e.rules) == 0 {
		return
	}

	now := e.now()
	var outbox []Alert

	e.mu.Lock()
	for _, r := range e.rules {
		for _, d := range b.Devices {
			if a := e.evalOne(r, d, b.ID, origin, now); a != nil {
				outbox = append(outbox, *a)
			}
		}
	}
	e.mu.Unlock()

	for i := range outbox {
		a := outbox[i]
		if a.State == StateFiring {
			slog.Warn("alert fired",
				"rule", a.RuleName,
				"origin", a.Origin,
				"device_id", a.DeviceID,
				"value", a.Value,
				"severity", a.Severity,
			)
		} else {
			slog.Info("alert resolved", "rule", a.RuleName, "origin", a.Origin, "device_id", a.DeviceID)
		}
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			e.deliver(&a)
		}()
	}
}

// evalOne applies r to d and returns a copy of the alert that changed state,
// if any. Caller holds e.mu.
func (e *Engine) evalOne(r rule, d types.Device, batchID, origin string, now time.Time) *Alert {
	key := alertKey(origin, r.Name, d.DeviceID)
	fires, value := r.cond.eval(d)

	if fires {
		cooldown := r.Cooldown
		if cooldown <= 0 {
			cooldown = defaultCooldown
		}
		if _, firing := e.active[key]; firing {
			return nil
		}
		if last, ok := e.lastFire[key]; ok && now.Sub(last) <= cooldown {
			return nil
		}
		sev := r.Severity
		if sev == "" {
			sev = "warning"
		}
		a := &Alert{
			ID:       uuid.NewString(),
			RuleName: r.Name,
			DeviceID: d.DeviceID,
			BatchID:  batchID,
			Origin:   origin,
			Severity: sev,
			Metric:   r.cond.field,
			Value:    value,
			Score:    scoreOf(d),
			Message: fmt.Sprintf("[%s] %s fired on %s: %s (value %.2f)",
				sev, r.Name, d.DeviceID, r.Condition, value),
			FiredAt: now,
			State:   StateFiring,
		}
		e.active[key] = a
		e.lastFire[key] = now
		cp := *a
		return &cp
	}

	a, ok := e.active[key]
	if !ok {
		return nil
	}
	resolved := now
	a.State = StateResolved
	a.ResolvedAt = &resolved
	a.BatchID = batchID
	a.Value = value
	a.Score = scoreOf(d)
	delete(e.active, key)

	e.history = append(e.history, a)
	if len(e.history) > maxHistoryLen {
		e.history = e.history[len(e.history)-maxHistoryLen:]
	}
	cp := *a
	return &cp
}

func scoreOf(d types.Device) *float64 {
	if d.OptimizationScore == nil {
		return nil
	}
	return types.Float(*d.OptimizationScore)
}

func alertKey(origin, rule, deviceID string) string {
	return origin + "/" + rule + "/" + deviceID
}

// Active returns copies of all currently firing alerts plus any alerts
// resolved within the past hour, sorted newest first.
func (e *Engine) Active() []*Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := e.now().Add(-recentWindowHours * time.Hour)
	out := make([]*Alert, 0, len(e.active))

	for _, a := range e.active {
		cp := *a
		out = append(out, &cp)
	}
	for _, a := range e.history {
		if a.ResolvedAt != nil && a.ResolvedAt.After(cutoff) {
			cp := *a
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *Alert) int { return b.FiredAt.Compare(a.FiredAt) })
	return out
}

// Wait blocks until all in-flight webhook deliveries have finished.
func (e *Engine) Wait() { e.wg.Wait() }
