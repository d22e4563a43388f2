package circuits

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/blochd/internal/modules/engine"
	"github.com/aristath/blochd/internal/modules/measurement"
	"github.com/aristath/blochd/internal/modules/snapshots"
)

// SimulateResult pairs a snapshot sequence with its cache provenance.
type SimulateResult struct {
	Fingerprint string
	Snapshots   []engine.Snapshot
	Cached      bool
}

// Service runs simulations through the snapshot cache and derives measurement
// statistics from cached sequences.
type Service struct {
	sim          *engine.Simulator
	cache        *snapshots.Cache
	sampler      *measurement.Sampler
	defaultShots int
	log          zerolog.Logger
}

// NewService creates the circuit service.
func NewService(
	sim *engine.Simulator,
	cache *snapshots.Cache,
	sampler *measurement.Sampler,
	defaultShots int,
	log zerolog.Logger,
) *Service {
	return &Service{
		sim:          sim,
		cache:        cache,
		sampler:      sampler,
		defaultShots: defaultShots,
		log:          log.With().Str("component", "circuits").Logger(),
	}
}

// Simulate runs the request through the cache. Identical requests return the
// same stored sequence without recomputation.
func (s *Service) Simulate(req SimulateRequest) (*SimulateResult, error) {
	circuit := req.Circuit()
	focus := req.Focus()
	key := engine.Fingerprint(circuit, req.Noise, focus)

	snaps, cached, err := s.cache.GetOrCompute(key, func() ([]engine.Snapshot, error) {
		return s.sim.Simulate(circuit, req.Noise, focus)
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug().
		Str("fingerprint", key[:12]).
		Int("steps", len(snaps)).
		Bool("cached", cached).
		Msg("Simulation served")

	return &SimulateResult{Fingerprint: key, Snapshots: snaps, Cached: cached}, nil
}

// Measure simulates the circuit (through the cache) and samples shot outcomes
// from the focus qubit's Bloch vector at the requested step. Only the
// deterministic simulation is cached; the shot draw itself never is.
func (s *Service) Measure(req MeasureRequest) (*measurement.Result, error) {
	basis, err := measurement.ParseBasis(req.Basis)
	if err != nil {
		return nil, err
	}

	sim, err := s.Simulate(req.SimulateRequest)
	if err != nil {
		return nil, err
	}

	step := len(sim.Snapshots) - 1
	if req.Step != nil {
		step = *req.Step
		if step < 0 || step >= len(sim.Snapshots) {
			return nil, fmt.Errorf("%w: step %d (sequence has %d snapshots)",
				engine.ErrIndexOutOfRange, step, len(sim.Snapshots))
		}
	}

	shots := s.defaultShots
	if req.Shots != nil {
		shots = *req.Shots
	}

	return s.sampler.Sample(sim.Snapshots[step].Bloch, basis, step, shots, req.Seed)
}

// Validate checks a request without running it.
func (s *Service) Validate(req SimulateRequest) error {
	return s.sim.Validate(req.Circuit(), req.Noise, req.Focus())
}

// CacheStats exposes the snapshot cache counters.
func (s *Service) CacheStats() snapshots.Stats {
	return s.cache.Stats()
}

// PruneCache drops cached sequences older than maxAge and returns the number
// removed.
func (s *Service) PruneCache(maxAge time.Duration) int {
	return s.cache.PruneOlderThan(maxAge)
}
