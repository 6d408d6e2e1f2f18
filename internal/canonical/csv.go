// Package canonical reads and writes the canonical defect CSV exchanged
// between the normalizer and the loader.
package canonical

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/HamedShams/defect-pulse/internal/domain"
)

// DefaultOutput is the file the normalizer writes when no path is given.
const DefaultOutput = "clean_jira_defects.csv"

// ErrMalformedRow is returned when a canonical CSV cell cannot be decoded.
var ErrMalformedRow = errors.New("malformed canonical row")

// Write serializes defects with a header row and no index column.
func Write(w io.Writer, defects []domain.Defect) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(domain.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, d := range defects {
		if err := cw.Write(encode(d)); err != nil {
			return fmt.Errorf("write %s: %w", d.IssueKey, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes defects to path, replacing any existing file.
func WriteFile(fs afero.Fs, path string, defects []domain.Defect) error {
	f, err := fs.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := Write(f, defects); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func encode(d domain.Defect) []string {
	return []string{
		d.IssueKey,
		str(d.Summary),
		str(d.Status),
		FormatTimestamp(d.Created),
		FormatTimestamp(d.Resolved),
		FormatFloat(d.TimeToResolveDays),
		FormatBool(d.IsOpen),
		str(d.Priority),
		strconv.Itoa(d.PriorityScore),
		str(d.Reporter),
		str(d.Assignee),
		str(d.IssueType),
		str(d.Components),
		str(d.Labels),
	}
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// FormatFloat renders integral values with a trailing ".0" so 2 days reads
// as 2.0; nil renders as an empty cell.
func FormatFloat(f *float64) string {
	if f == nil || math.IsNaN(*f) {
		return ""
	}
	s := strconv.FormatFloat(*f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// FormatBool renders True/False tokens.
func FormatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// Read decodes a canonical CSV. Columns are matched by header name; unknown
// columns are ignored and missing ones decode as nulls.
func Read(r io.Reader) ([]domain.Defect, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty file", ErrMalformedRow)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimPrefix(strings.TrimSpace(h), "\ufeff")
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}

	var out []domain.Defect
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedRow, line, err)
		}
		cell := func(col string) *string {
			i, ok := idx[col]
			if !ok || i >= len(rec) || rec[i] == "" {
				return nil
			}
			v := rec[i]
			return &v
		}
		d, err := decode(cell)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedRow, line, err)
		}
		out = append(out, d)
	}
	return out, nil
}

// ReadFile decodes the canonical CSV at path.
func ReadFile(fs afero.Fs, path string) ([]domain.Defect, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open canonical csv: %w", err)
	}
	defer f.Close()
	return Read(f)
}

func decode(cell func(string) *string) (domain.Defect, error) {
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
	if v := cell(domain.ColCreated); v != nil {
		d.Created = ParseTimestamp(*v)
	}
	if v := cell(domain.ColResolved); v != nil {
		d.Resolved = ParseTimestamp(*v)
	}
	if v := cell(domain.ColTimeToResolveDays); v != nil && !strings.EqualFold(*v, "nan") {
		f, err := strconv.ParseFloat(*v, 64)
		if err != nil {
			return d, fmt.Errorf("%s: %w", domain.ColTimeToResolveDays, err)
		}
		d.TimeToResolveDays = &f
	}
	if v := cell(domain.ColPriorityScore); v != nil {
		n, err := strconv.Atoi(*v)
		if err != nil {
			return d, fmt.Errorf("%s: %w", domain.ColPriorityScore, err)
		}
		d.PriorityScore = n
	}
	if v := cell(domain.ColIsOpen); v != nil {
		b, err := strconv.ParseBool(*v)
		if err != nil {
			return d, fmt.Errorf("%s: %w", domain.ColIsOpen, err)
		}
		d.IsOpen = b
	} else {
		d.IsOpen = d.Resolved == nil
	}
	return d, nil
}
