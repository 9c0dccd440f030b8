package mission

import "sort"

// SelectReady keeps ready L1 missions ordered by (priority, mission id) and
// truncates to max. The id tie-break makes the cut-off deterministic.
func SelectReady(missions []Mission, max int) []Mission {
	if max <= 0 {
		return nil
	}
	var ready []Mission
	for _, m := range missions {
		if m.Status != StatusReady || m.RiskTier != TierAutomatic {
			continue
		}
		ready = append(ready, m)
	}

	sort.SliceStable(ready, func(i, j int) bool {
		if ready[i].Priority != ready[j].Priority {
			return ready[i].Priority < ready[j].Priority
		}
		return ready[i].ID < ready[j].ID
	})

	if len(ready) > max {
		ready = ready[:max]
	}
	return ready
}
