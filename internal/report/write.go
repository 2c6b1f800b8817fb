package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

const maxCellWidth = 60

// WriteJSON writes r as indented JSON.
func WriteJSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// Save writes r as JSON to path, creating parent directories.
func Save(path string, r Report) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := WriteJSON(f, r); err != nil {
		_ = f.Close()
		return fmt.Errorf("write report: %w", err)
	}
	return f.Close()
}

// Load reads a report previously written with WriteJSON or Save.
func Load(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", path, err)
	}
	return &r, nil
}

// WriteText renders r as a summary line, a step table and the final context.
// Colour is applied only when color is true.
func WriteText(w io.Writer, r Report, color bool) error {
	paint := func(c text.Colors, s string) string {
		if !color {
			return s
		}
		return c.Sprint(s)
	}

	verdict := paint(text.Colors{text.FgGreen, text.Bold}, "PASSED")
	if !r.Success {
		verdict = paint(text.Colors{text.FgRed, text.Bold}, "FAILED")
	}
	if _, err := fmt.Fprintf(w, "%s %s (%s, %d/%d steps, %dms)\n",
		verdict, r.ScenarioName, r.State, r.ExecutedSteps(), r.TotalSteps, r.Duration().Milliseconds()); err != nil {
		return err
	}
	if r.RunID != "" {
		if _, err := fmt.Fprintf(w, "run %s\n", r.RunID); err != nil {
			return err
		}
	}

	if len(r.Results) > 0 {
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{"#", "STEP", "PLATFORM", "ACTION", "STATUS", "DURATION", "DETAIL"})
		for i, res := range r.Results {
			status := paint(text.Colors{text.FgGreen}, "ok")
			detail := ""
			if res.OutputValue != nil {
				detail = summarize(res.OutputValue)
			}
			if !res.Success {
				status = paint(text.Colors{text.FgRed}, "fail")
				detail = fmt.Sprintf("[%s] %s", res.ErrorKind, res.Error)
			}
			t.AppendRow(table.Row{
				i + 1,
				res.StepID,
				string(res.Platform),
				string(res.Action),
				status,
				fmt.Sprintf("%dms", res.Duration.Milliseconds()),
				truncate(detail, maxCellWidth),
			})
		}
		t.Render()
	}

	if r.Abort != nil {
		if _, err := fmt.Fprintf(w, "aborted before step %s: [%s] %s\n", r.Abort.StepID, r.Abort.ErrorKind, r.Abort.Error); err != nil {
			return err
		}
	}
	if skipped := r.TotalSteps - r.ExecutedSteps(); skipped > 0 {
		if _, err := fmt.Fprintf(w, "%d step(s) not executed\n", skipped); err != nil {
			return err
		}
	}

	if len(r.FinalContext) > 0 {
		names := make([]string, 0, len(r.FinalContext))
		for name := range r.FinalContext {
			names = append(names, name)
		}
		sort.Strings(names)

		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{"VARIABLE", "VALUE"})
		for _, name := range names {
			t.AppendRow(table.Row{name, truncate(summarize(r.FinalContext[name]), maxCellWidth)})
		}
		t.Render()
	}
	return nil
}

func summarize(v any) string {
	switch typed := v.(type) {
	case string:
		return typed
	default:
		data, err := json.Marshal(typed)
		if err != nil {
			return fmt.Sprintf("%v", typed)
		}
		return string(data)
	}
}

func truncate(s string, limit int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}
