package simulator

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/netpulse/netpulse/pkg/compute"
	"github.com/netpulse/netpulse/pkg/types"
)

// Settings are the tunable inputs of a Simulator.
type Settings struct {
	Devices int
	Seed    *int64
	Weights types.Weights
}

func (s Settings) validate() error {
	if s.Devices <= 0 {
		return fmt.Errorf("simulator: device count %d must be positive: %w", s.Devices, compute.ErrInvalidArgument)
	}
	return nil
}

// Simulator generates scored batches. All exported methods are safe for
// concurrent use.
type Simulator struct {
	mu       sync.Mutex
	settings Settings
	rng      *rand.Rand
	newID    func() string // injectable for tests
}

// New returns a Simulator seeded from s.Seed.
func New(s Settings) (*Simulator, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &Simulator{
		settings: s,
		rng:      compute.NewRand(s.Seed),
		newID:    uuid.NewString,
	}, nil
}

// Run generates, normalizes and scores one batch stamped with now.
func (s *Simulator) Run(now time.Time) (*types.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := compute.Generate(s.settings.Devices, s.rng)
	if err != nil {
		return nil, err
	}
	scored, err := compute.Pipeline(raw, s.settings.Weights)
	if err != nil {
		return nil, err
	}

	w := s.settings.Weights
	b := &types.Batch{
		ID:          s.newID(),
		GeneratedAt: now.UTC(),
		Seed:        copySeed(s.settings.Seed),
		Weights:     &w,
		Devices:     scored,
	}
	slog.Debug("simulator: batch generated",
		"batch_id", b.ID,
		"devices", len(scored),
		"best", scored[0].DeviceID,
		"best_score", scored[0].Score(),
	)
	return b, nil
}

// Reconfigure swaps in next. The random source is reseeded only when the
// seed differs from the current one.
func (s *Simulator) Reconfigure(next Settings) error {
	if err := next.validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !sameSeed(s.settings.Seed, next.Seed) {
		s.rng = compute.NewRand(next.Seed)
		slog.Info("simulator: reseeded", "seed", seedAttr(next.Seed))
	}
	s.settings = Settings{Devices: next.Devices, Seed: copySeed(next.Seed), Weights: next.Weights}
	return nil
}

// Settings returns a copy of the current settings.
func (s *Simulator) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Settings{Devices: s.settings.Devices, Seed: copySeed(s.settings.Seed), Weights: s.settings.Weights}
}

func sameSeed(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func copySeed(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func seedAttr(p *int64) any {
	if p == nil {
		return "random"
	}
	return *p
}
