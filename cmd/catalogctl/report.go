package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"ebike_tours/internal/app"
	"ebike_tours/internal/domain"
)

var (
	popularColor = color.New(color.FgYellow, color.Bold)
	okColor      = color.New(color.FgGreen)
	failColor    = color.New(color.FgRed)
	dimColor     = color.New(color.FgHiBlack)
)

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// printTours renders one row per tour, popular tours highlighted.
func printTours(w io.Writer, tours []domain.Tour) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"ID", "Name", "Category", "Duration", "Difficulty", "Price", "Rating", "Popular"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})

	var data [][]string
	for _, t := range tours {
		name, popular := t.Name, dimColor.Sprint("no")
		if t.Featured {
			name = popularColor.Sprint(t.Name)
			popular = popularColor.Sprint("★ yes")
		}
		rating := "-"
		if t.Rating != nil {
			rating = strconv.FormatFloat(*t.Rating, 'f', 1, 64)
			if t.Reviews != nil {
				rating += fmt.Sprintf(" (%d)", *t.Reviews)
			}
		}
		data = append(data, []string{
			orDash(t.ID),
			orDash(name),
			orDash(t.Category),
			orDash(t.Duration),
			orDash(t.Difficulty),
			orDash(t.Price),
			rating,
			popular,
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func printSummary(w io.Writer, st app.StatusView, shown int) {
	fmt.Fprintf(w, "\n%d of %d tours shown, %d popular\n", shown, st.Count, st.Featured)
	if len(st.Duplicates) > 0 {
		failColor.Fprintf(w, "duplicate ids: %v\n", st.Duplicates)
	}
}

// printImageReport lists unreachable images and returns how many there were.
func printImageReport(w io.Writer, results []imageResult) int {
	broken := 0
	for _, r := range results {
		switch {
		case r.Skipped:
			dimColor.Fprintf(w, "skip  %-6s %s\n", r.TourID, orDash(r.URL))
		case r.OK():
			okColor.Fprintf(w, "ok    %-6s %s\n", r.TourID, r.URL)
		default:
			broken++
			reason := strconv.Itoa(r.Status)
			if r.Err != nil {
				reason = r.Err.Error()
			}
			failColor.Fprintf(w, "FAIL  %-6s %s (%s)\n", r.TourID, r.URL, reason)
		}
	}
	return broken
}

func printFetches(w io.Writer, rows []domain.FetchAttempt) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"ID", "Started", "Took", "Trigger", "Result", "Tours", "Popular", "Dups", "Error"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for _, a := range rows {
		result, errText := okColor.Sprint("ok"), ""
		if !a.OK {
			result = failColor.Sprint("failed")
		}
		if a.Error != nil {
			errText = *a.Error
		}
		data = append(data, []string{
			strconv.FormatInt(a.ID, 10),
			a.StartedAt.Local().Format(time.DateTime),
			a.Duration.Round(time.Millisecond).String(),
			a.Trigger,
			result,
			strconv.Itoa(a.Tours),
			strconv.Itoa(a.Featured),
			strconv.Itoa(a.Duplicates),
			errText,
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}
