// Package normalizer turns Jira CSV/JSON exports into canonical defect
// records: column aliasing, date coercion, lifecycle metrics and priority
// scoring.
package normalizer

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/HamedShams/defect-pulse/internal/canonical"
	"github.com/HamedShams/defect-pulse/internal/domain"
)

var priorityScores = map[string]int{
	"Highest": 5,
	"High":    4,
	"Medium":  3,
	"Low":     2,
	"Lowest":  1,
}

// PriorityScore maps a Jira priority name to 1..5; anything else, nil
// included, scores 0.
func PriorityScore(priority *string) int {
	if priority == nil {
		return 0
	}
	return priorityScores[*priority]
}

// TimeToResolveDays is resolved-created in fractional days, nil unless both
// endpoints are known.
func TimeToResolveDays(created, resolved *time.Time) *float64 {
	if created == nil || resolved == nil {
		return nil
	}
	// time.Duration overflows past ~292 years, so work from Unix seconds.
	days := float64(resolved.Unix()-created.Unix())/86400 +
		float64(resolved.Nanosecond()-created.Nanosecond())/86400e9
	return &days
}

type Normalizer struct {
	log zerolog.Logger
}

func New(log zerolog.Logger) *Normalizer {
	return &Normalizer{log: log.With().Str("component", "normalizer").Logger()}
}

// Normalize aliases the table's columns and projects every row, in order,
// onto a canonical defect. Columns that are not canonical are dropped.
func (n *Normalizer) Normalize(t *Table) []domain.Defect {
	if renamed := t.ApplyAliases(); len(renamed) > 0 {
		n.log.Debug().Interface("renamed", renamed).Msg("columns aliased")
	}
	out := make([]domain.Defect, 0, t.Len())
	coerced := 0
	for i := 0; i < t.Len(); i++ {
		cell := func(col string) *string { return t.Value(i, col) }
		d := domain.Defect{
			Summary:    cell(domain.ColSummary),
			Status:     cell(domain.ColStatus),
			Priority:   cell(domain.ColPriority),
			Reporter:   cell(domain.ColReporter),
			Assignee:   cell(domain.ColAssignee),
			IssueType:  cell(domain.ColIssueType),
			Components: cell(domain.ColComponents),
			Labels:     cell(domain.ColLabels),
		}
		if k := cell(domain.ColIssueKey); k != nil {
			d.IssueKey = *k
		}
		var bad bool
		d.Created, bad = coerceDate(cell(domain.ColCreated))
		if bad {
			coerced++
		}
		d.Resolved, bad = coerceDate(cell(domain.ColResolved))
		if bad {
			coerced++
		}
		d.TimeToResolveDays = TimeToResolveDays(d.Created, d.Resolved)
		d.IsOpen = d.Resolved == nil
		d.PriorityScore = PriorityScore(d.Priority)
		out = append(out, d)
	}
	if coerced > 0 {
		n.log.Warn().Int("cells", coerced).Msg("unparseable dates coerced to null")
	}
	return out
}

// coerceDate reports bad=true when a non-empty value failed to parse.
func coerceDate(v *string) (t *time.Time, bad bool) {
	if v == nil {
		return nil, false
	}
	t = canonical.ParseTimestamp(*v)
	return t, t == nil && *v != ""
}
