package jira

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/afero"
	"github.com/tidwall/gjson"
)

// DefaultExport is where fetched issues are written when no path is given.
const DefaultExport = "jira_export.json"

type exportFile struct {
	Total  int               `json:"total"`
	Issues []json.RawMessage `json:"issues"`
}

// ExportIssues pages through a JQL search and writes every issue, verbatim,
// to path as {"total": n, "issues": [...]}. It returns the issue count.
func (c *Client) ExportIssues(ctx context.Context, fs afero.Fs, jql, path string) (int, error) {
	pageSize := c.pageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	issues := []json.RawMessage{}
	startAt := 0
	prevFirst := ""
	for {
		page, err := c.Search(ctx, jql, startAt, pageSize)
		if err != nil {
			return 0, fmt.Errorf("search startAt=%d: %w", startAt, err)
		}
		if !gjson.ValidBytes(page) {
			return 0, fmt.Errorf("search startAt=%d: invalid json response", startAt)
		}
		res := gjson.ParseBytes(page)
		arr := res.Get("issues").Array()
		if len(arr) > 0 {
			// a server that ignores startAt serves the same page forever
			first := arr[0].Raw
			if startAt > 0 && first == prevFirst {
				c.log.Warn().Str("key", arr[0].Get("key").String()).Int("fetched", startAt).Msg("jira page repeated, stopping")
				break
			}
			prevFirst = first
		}
		for _, it := range arr {
			issues = append(issues, json.RawMessage(it.Raw))
		}
		startAt += len(arr)
		c.log.Debug().Int("page", len(arr)).Int("fetched", startAt).Msg("jira page fetched")

		if len(arr) == 0 {
			break
		}
		if total := res.Get("total"); total.Exists() {
			if startAt >= int(total.Int()) {
				break
			}
		} else if len(arr) < pageSize {
			break
		}
	}

	b, err := json.Marshal(exportFile{Total: len(issues), Issues: issues})
	if err != nil {
		return 0, fmt.Errorf("encode export: %w", err)
	}
	if err := afero.WriteFile(fs, path, b, 0o644); err != nil {
		return 0, fmt.Errorf("write export: %w", err)
	}
	c.log.Info().Int("issues", len(issues)).Str("path", path).Msg("jira export written")
	return len(issues), nil
}
