package handlers

import (
	"net/http"
	"time"
)

// StatsSummary reports cache effectiveness and task throughput: artifact
// counts by status, the rolling hit/miss window, average artifact age at
// consumption and tasks by status. Provider credits are included when a
// probe is configured and reachable.
func (a *App) StatsSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	artifactCounts, err := a.Artifacts.CountByStatus(ctx)
	if err != nil {
		a.Logger.Error().Err(err).Msg("handlers: artifact counts failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load stats")
		return
	}
	avgAge, err := a.Artifacts.AvgAgeAtConsumption(ctx)
	if err != nil {
		a.Logger.Error().Err(err).Msg("handlers: avg age failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load stats")
		return
	}

	hits, misses := a.Matcher.Stats()
	hitRate := 0.0
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	payload := map[string]any{
		"artifacts":                      artifactCounts,
		"tasks":                          a.Registry.CountByStatus(),
		"hits":                           hits,
		"misses":                         misses,
		"hit_rate":                       hitRate,
		"avg_age_at_consumption_seconds": int64(avgAge / time.Second),
	}

	if a.Credits != nil {
		// Best effort: a provider outage must not break the dashboard.
		if credits, err := a.Credits.Credits(ctx); err == nil {
			payload["provider_credits"] = credits
		} else {
			a.Logger.Warn().Err(err).Msg("handlers: credits probe failed")
		}
	}

	a.json(w, http.StatusOK, payload)
}
