package domain

import (
	"errors"
	"time"
)

// Canonical column names, in the order they appear in the canonical CSV header.
const (
	ColIssueKey          = "issue_key"
	ColSummary           = "summary"
	ColStatus            = "status"
	ColCreated           = "created"
	ColResolved          = "resolved"
	ColTimeToResolveDays = "time_to_resolve_days"
	ColIsOpen            = "is_open"
	ColPriority          = "priority"
	ColPriorityScore     = "priority_score"
	ColReporter          = "reporter"
	ColAssignee          = "assignee"
	ColIssueType         = "issuetype"
	ColComponents        = "components"
	ColLabels            = "labels"
)

// Columns is the canonical defect header.
var Columns = []string{
	ColIssueKey, ColSummary, ColStatus, ColCreated, ColResolved,
	ColTimeToResolveDays, ColIsOpen, ColPriority, ColPriorityScore,
	ColReporter, ColAssignee, ColIssueType, ColComponents, ColLabels,
}

// ErrMissingIssueKey is returned when a record has no natural key.
var ErrMissingIssueKey = errors.New("missing issue_key")

// Defect is one normalized issue, the interchange record between the
// normalizer and the loader. Nil pointers are nulls.
type Defect struct {
	IssueKey          string
	Summary           *string
	Status            *string
	Created           *time.Time
	Resolved          *time.Time
	TimeToResolveDays *float64
	IsOpen            bool
	Priority          *string
	PriorityScore     int
	Reporter          *string
	Assignee          *string
	IssueType         *string
	Components        *string
	Labels            *string
}

// OpenFlag is IsOpen as stored in the defects table.
func (d Defect) OpenFlag() int {
	if d.IsOpen {
		return 1
	}
	return 0
}
