package service

import (
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/coursecatalog/catalog-api/internal/core/domain"
)

// Projector applies sparse updates to a course, restricted to a whitelist.
type Projector struct {
	whitelist domain.Whitelist
	now       func() time.Time
	log       zerolog.Logger
}

func NewProjector(whitelist domain.Whitelist, now func() time.Time, log zerolog.Logger) *Projector {
	if now == nil {
		now = utcNow
	}
	return &Projector{whitelist: whitelist, now: now, log: log}
}

// Apply returns a copy of c with every whitelisted key of updates written.
// Keys outside the whitelist are skipped and returned in ignored. DateUpdated
// always advances, even when nothing was applied.
func (p *Projector) Apply(c *domain.Course, updates map[string]any) (updated *domain.Course, ignored []string, err error) {
	next := *c
	now := p.now()

	keys := make([]string, 0, len(updates))
	for k := range updates {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if !p.whitelist.Allows(key) {
			ignored = append(ignored, key)
			continue
		}
		if err := p.whitelist.Set(&next, key, updates[key], now); err != nil {
			return nil, nil, err
		}
	}

	if len(ignored) > 0 {
		p.log.Warn().Str("course_id", c.ID).Strs("fields", ignored).Msg("ignored non-updatable fields")
	}

	next.DeriveStatus()
	next.DateUpdated = now
	return &next, ignored, nil
}
