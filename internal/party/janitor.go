package party

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ekoclu/aniparty/internal/domain"
)

// RunJanitor ends parties that have sat empty longer than idleTTL,
// checking every interval until ctx is canceled. The TTL is measured
// from the party's last membership or playback activity, so an active
// but briefly-empty party is not collected immediately.
func (m *Manager) RunJanitor(ctx context.Context, interval, idleTTL time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "party").Msg("janitor stopped")
			return
		case <-ticker.C:
			m.CollectIdle(idleTTL)
		}
	}
}

// CollectIdle ends every empty party idle for longer than ttl and
// returns how many were collected.
func (m *Manager) CollectIdle(ttl time.Duration) int {
	cutoff := m.now().Add(-ttl)

	m.mu.Lock()
	var idle []domain.PartyID
	for id, rec := range m.byID {
		if len(rec.participants) == 0 && rec.lastActivity.Before(cutoff) {
			idle = append(idle, id)
		}
	}
	for _, id := range idle {
		_, _ = m.endLocked(id)
	}
	m.mu.Unlock()

	if len(idle) > 0 {
		log.Info().Str("module", "party").Int("collected", len(idle)).Msg("collected idle parties")
	}
	return len(idle)
}
