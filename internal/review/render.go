package review

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/beatm8/backbeat/internal/sync"
)

// RenderRefreshSummary renders a refresh run summary as a console table.
func RenderRefreshSummary(s *sync.RefreshSummary) string {
	return renderTable(
		[]string{"Platform", "Scanned", "Fetched", "Updated", "Partial", "Missing", "Failed"},
		[][]string{{
			string(s.Platform),
			strconv.Itoa(s.Scanned),
			strconv.Itoa(s.Fetched),
			strconv.Itoa(s.Updated),
			strconv.Itoa(s.Partial),
			strconv.Itoa(s.Missing),
			strconv.Itoa(s.Failed),
		}},
	)
}

// RenderResolveSummary renders a resolution run summary as a console table.
func RenderResolveSummary(s *sync.ResolveSummary) string {
	return renderTable(
		[]string{"Platform", "Scanned", "Resolved", "Unresolved", "Ambiguous", "Failed"},
		[][]string{{
			string(s.Platform),
			strconv.Itoa(s.Scanned),
			strconv.Itoa(s.Resolved),
			strconv.Itoa(s.Unresolved),
			strconv.Itoa(s.Ambiguous),
			strconv.Itoa(s.Failed),
		}},
	)
}

// RenderReviewSet renders the ambiguous candidates and unresolved reasons
// for console review.
func RenderReviewSet(set *sync.ReviewSet) string {
	if set.Empty() {
		return ""
	}

	var rows [][]string
	for _, entry := range set.Ambiguous {
		for _, c := range entry.Candidates {
			rows = append(rows, []string{
				entry.ArtistName,
				"ambiguous",
				c.ID,
				strconv.FormatInt(c.ActivityCount, 10),
				c.URL,
			})
		}
	}
	for _, entry := range set.Unresolved {
		rows = append(rows, []string{entry.ArtistName, "unresolved", entry.Reason, "", ""})
	}

	return renderTable([]string{"Artist", "Outcome", "Candidate / Reason", "Activity", "URL"}, rows)
}

func renderTable(headers []string, rows [][]string) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, len(row))
		for i, cell := range row {
			r[i] = cell
		}
		tw.AppendRow(r)
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, AlignHeader: text.AlignLeft},
	})

	return tw.Render()
}
