package tick

import (
	"time"

	"github.com/mythosmud/mudserver/internal/auth"
	"github.com/mythosmud/mudserver/internal/combat"
	"github.com/mythosmud/mudserver/internal/subject"
	"go.uber.org/zap"
)

// MaintenanceSystem sweeps stale combats and ages out idle
// authentication rate limiters.
type MaintenanceSystem struct {
	Combat *combat.Engine
	Gate   *auth.Gate
	Log    *zap.Logger
}

func (s *MaintenanceSystem) Phase() Phase { return PhaseMaintenance }

func (s *MaintenanceSystem) Run(now time.Time) {
	ended := s.Combat.CleanupStaleCombats(now)
	if len(ended) > 0 {
		s.Log.Info("ended stale combats", zap.Strings("combat_ids", ended))
	}
	if s.Gate != nil {
		if dropped := s.Gate.PruneLimiters(); dropped > 0 {
			s.Log.Debug("pruned idle rate limiters", zap.Int("count", dropped))
		}
	}
}

// MetricsSystem emits the subject registry's rolling metrics window.
type MetricsSystem struct {
	Registry *subject.Registry
	Log      *zap.Logger
}

func (s *MetricsSystem) Phase() Phase { return PhaseMetrics }

func (s *MetricsSystem) Run(now time.Time) {
	snap := s.Registry.Metrics()
	s.Log.Info("subject registry metrics",
		zap.Uint64("build_count", snap.BuildCount),
		zap.Uint64("validation_count", snap.ValidationCount),
		zap.Uint64("cache_hits", snap.CacheHits),
		zap.Uint64("cache_misses", snap.CacheMisses),
		zap.Duration("avg_duration", snap.AverageDuration),
		zap.Duration("p95_duration", snap.P95Duration),
	)
}
