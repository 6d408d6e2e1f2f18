package normalizer

import "github.com/HamedShams/defect-pulse/internal/domain"

type columnAlias struct {
	from string
	to   string
}

// columnAliases maps Jira export headers onto canonical names. Rules run in
// order and never overwrite a canonical column that is already present, so
// Issue key wins over Key and Resolved wins over Resolutiondate.
var columnAliases = []columnAlias{
	{"Issue key", domain.ColIssueKey},
	{"Key", domain.ColIssueKey},
	{"Created", domain.ColCreated},
	{"Resolved", domain.ColResolved},
	{"Resolutiondate", domain.ColResolved},
	{"Status", domain.ColStatus},
	{"Priority", domain.ColPriority},
}

// ApplyAliases renames recognized alternate columns in place and returns the
// renames it made as from->to pairs.
func (t *Table) ApplyAliases() map[string]string {
	applied := map[string]string{}
	for _, a := range columnAliases {
		if !t.Has(a.from) || t.Has(a.to) {
			continue
		}
		t.Rename(a.from, a.to)
		applied[a.from] = a.to
	}
	return applied
}
