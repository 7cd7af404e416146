package services

import (
	"route-dispatch-service/internal/domain"
	"slices"
)

type jobTeamCandidate struct {
	job    *domain.Job
	load   *domain.TeamLoad
	meters float64
}

// AssignJobsByDepotDistance partitions jobs across teams nearest-depot-first.
//
// Every (job, team) pair is ranked by straight-line distance from the team's
// depot; pairs are taken greedily while the job is unplaced and the team has
// capacity. Ties fall back to the lower job id, then the lower team id, so
// identical inputs always produce identical loads. Jobs left over once every
// reachable team is full are returned in id order.
func AssignJobsByDepotDistance(teams []*domain.Team, jobs []*domain.Job) ([]*domain.TeamLoad, []*domain.Job) {
	sortedTeams := slices.Clone(teams)
	slices.SortFunc(sortedTeams, func(a, b *domain.Team) int { return cmpInt64(a.ID, b.ID) })

	sortedJobs := slices.Clone(jobs)
	slices.SortFunc(sortedJobs, func(a, b *domain.Job) int { return cmpInt64(a.ID, b.ID) })

	loads := make([]*domain.TeamLoad, 0, len(sortedTeams))
	for _, t := range sortedTeams {
		loads = append(loads, domain.NewTeamLoad(t))
	}

	candidates := make([]jobTeamCandidate, 0, len(sortedJobs)*len(loads))
	for _, j := range sortedJobs {
		for _, l := range loads {
			if l.Team.Capacity <= 0 {
				continue
			}
			candidates = append(candidates, jobTeamCandidate{
				job:    j,
				load:   l,
				meters: haversineMeters(l.Team.Depot, j.Location),
			})
		}
	}

	slices.SortStableFunc(candidates, func(a, b jobTeamCandidate) int {
		if a.meters < b.meters {
			return -1
		}
		if a.meters > b.meters {
			return 1
		}
		if c := cmpInt64(a.job.ID, b.job.ID); c != 0 {
			return c
		}
		return cmpInt64(a.load.Team.ID, b.load.Team.ID)
	})

	placed := make(map[int64]struct{}, len(sortedJobs))
	for _, c := range candidates {
		if _, ok := placed[c.job.ID]; ok {
			continue
		}
		if c.load.Full() {
			continue
		}
		// Full() was checked above, so Load cannot fail here.
		_ = c.load.Load(c.job)
		placed[c.job.ID] = struct{}{}
	}

	unassigned := make([]*domain.Job, 0)
	for _, j := range sortedJobs {
		if _, ok := placed[j.ID]; !ok {
			unassigned = append(unassigned, j)
		}
	}

	// Keep each team's jobs in id order; matrix indices and tie-breaks rely on it.
	for _, l := range loads {
		slices.SortFunc(l.Jobs, func(a, b *domain.Job) int { return cmpInt64(a.ID, b.ID) })
	}

	return loads, unassigned
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
