package normalizer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/tidwall/gjson"

	"github.com/HamedShams/defect-pulse/internal/domain"
)

var (
	// ErrMalformedJSON is returned for JSON exports that do not parse or are
	// neither an issue list nor an object holding one under "issues".
	ErrMalformedJSON = errors.New("malformed json export")
	// ErrMalformedCSV is returned for CSV exports that are not tabular.
	ErrMalformedCSV = errors.New("malformed csv export")
)

// Format is the export encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// DetectFormat infers the format from the file extension: .csv is CSV,
// anything else is treated as JSON.
func DetectFormat(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return FormatCSV
	}
	return FormatJSON
}

// Load reads an export file into a table.
func Load(fs afero.Fs, path string) (*Table, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()
	if DetectFormat(path) == FormatCSV {
		return ReadCSV(f)
	}
	return ReadJSON(f)
}

// naTokens are read as nulls, like blank cells.
var naTokens = map[string]struct{}{
	"": {}, "NA": {}, "N/A": {}, "n/a": {}, "NaN": {}, "nan": {},
	"NULL": {}, "null": {}, "None": {}, "<NA>": {}, "#N/A": {},
}

// ReadCSV reads every cell as text; no type inference happens here.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: no columns to parse", ErrMalformedCSV)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedCSV, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	t := NewTable(header)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedCSV, err)
		}
		row := make([]*string, len(rec))
		for i, v := range rec {
			if _, na := naTokens[v]; na {
				continue
			}
			row[i] = &v
		}
		if err := t.Append(row); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedCSV, err)
		}
	}
	return t, nil
}

// jsonColumns is the flat shape extracted from each Jira issue object.
var jsonColumns = []string{
	domain.ColIssueKey, domain.ColSummary, domain.ColStatus, domain.ColCreated,
	domain.ColResolved, domain.ColPriority, domain.ColReporter, domain.ColAssignee,
	domain.ColIssueType, domain.ColComponents, domain.ColLabels,
}

// ReadJSON accepts a bare issue list or a search response with an "issues"
// list and flattens each issue.
func ReadJSON(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: invalid json", ErrMalformedJSON)
	}
	issues := gjson.ParseBytes(data)
	if issues.IsObject() {
		issues = issues.Get("issues")
	}
	if !issues.IsArray() {
		return nil, fmt.Errorf("%w: expected an issue list or an object with \"issues\"", ErrMalformedJSON)
	}

	t := NewTable(jsonColumns)
	for i, issue := range issues.Array() {
		if !issue.IsObject() {
			return nil, fmt.Errorf("%w: issue %d is %s, not an object", ErrMalformedJSON, i, issue.Type)
		}
		if err := t.Append(flattenIssue(issue)); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func flattenIssue(issue gjson.Result) []*string {
	key := issue.Get("key")
	if !truthy(key) {
		key = issue.Get("id")
	}
	fields := issue.Get("fields")
	resolved := fields.Get("resolutiondate")
	if !truthy(resolved) {
		resolved = fields.Get("resolved")
	}
	return []*string{
		text(key),
		text(fields.Get("summary")),
		nested(fields, "status", "name"),
		text(fields.Get("created")),
		text(resolved),
		nested(fields, "priority", "name"),
		nested(fields, "reporter", "displayName"),
		nested(fields, "assignee", "displayName"),
		nested(fields, "issuetype", "name"),
		joined(fields.Get("components"), "name"),
		joined(fields.Get("labels"), ""),
	}
}

// truthy follows Jira payload conventions: null, false, "", 0, {} and [] are
// all treated as absent.
func truthy(r gjson.Result) bool {
	switch r.Type {
	case gjson.Null, gjson.False:
		return false
	case gjson.String:
		return r.Str != ""
	case gjson.Number:
		return r.Num != 0
	case gjson.JSON:
		if r.IsArray() {
			return len(r.Array()) > 0
		}
		return len(r.Map()) > 0
	}
	return true
}

func text(r gjson.Result) *string {
	if r.Type == gjson.Null {
		return nil
	}
	s := r.String()
	return &s
}

// nested projects fields.<parent>.<sub>; a falsy parent yields nil.
func nested(fields gjson.Result, parent, sub string) *string {
	p := fields.Get(parent)
	if !truthy(p) {
		return nil
	}
	return text(p.Get(sub))
}

// joined comma-joins an array of strings, or of objects by their sub field.
// Empty or absent arrays yield nil, never "".
func joined(arr gjson.Result, sub string) *string {
	if !arr.IsArray() {
		return nil
	}
	var parts []string
	for _, el := range arr.Array() {
		if sub != "" {
			el = el.Get(sub)
		}
		if el.Type == gjson.Null {
			continue
		}
		parts = append(parts, el.String())
	}
	if len(parts) == 0 {
		return nil
	}
	s := strings.Join(parts, ",")
	return &s
}
