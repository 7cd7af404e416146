package domain

import "fmt"

// TeamLoad is the set of jobs partitioned onto one team for a day.
type TeamLoad struct {
	Team *Team
	Jobs []*Job
}

func NewTeamLoad(team *Team) *TeamLoad {
	return &TeamLoad{Team: team}
}

// Full reports whether the team has reached its daily job capacity.
func (l *TeamLoad) Full() bool {
	return len(l.Jobs) >= l.Team.Capacity
}

// Load adds a single job to the team.
func (l *TeamLoad) Load(job *Job) error {
	if l.Full() {
		return fmt.Errorf("load team: team %d is at full capacity (capacity=%d)", l.Team.ID, l.Team.Capacity)
	}
	l.Jobs = append(l.Jobs, job)
	return nil
}

// Load multiple jobs onto the team.
func (l *TeamLoad) LoadMultiple(jobs []*Job) error {
	for _, job := range jobs {
		if err := l.Load(job); err != nil {
			return err
		}
	}

	return nil
}

// Remove all jobs from the team.
func (l *TeamLoad) Clear() {
	l.Jobs = nil
}
