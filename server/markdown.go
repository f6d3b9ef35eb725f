package server

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/spektr-org/pulse/engine"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// renderMarkdown converts an answer to HTML. A fenced block wrapping the
// whole answer is unwrapped first; models like to send ```markdown ... ```.
func renderMarkdown(src string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(unfence(src)), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func unfence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	body := strings.TrimSuffix(s, "```")
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	} else {
		body = strings.TrimPrefix(body, "```")
	}
	return strings.TrimSpace(body)
}

// fallbackAnswer is the answer when no model is configured: the friendly
// summary (if any) followed by the pivot as a markdown table.
func fallbackAnswer(summary string, filteredRows int, table *engine.TableData) string {
	if filteredRows == 0 || table == nil || len(table.Rows) == 0 {
		return "No rows match this question. Try a different year, month or business."
	}
	var b strings.Builder
	if summary != "" {
		b.WriteString(summary)
		b.WriteString("\n\n")
	}
	b.WriteString(markdownTable(table))
	return b.String()
}

func markdownTable(t *engine.TableData) string {
	var b strings.Builder
	b.WriteString("|")
	for _, c := range t.Columns {
		b.WriteString(" " + escapeCell(c.Label) + " |")
	}
	b.WriteString("\n|")
	for _, c := range t.Columns {
		if c.Align == "right" {
			b.WriteString(" ---: |")
		} else {
			b.WriteString(" --- |")
		}
	}
	for _, row := range t.Rows {
		b.WriteString("\n|")
		for _, cell := range row {
			b.WriteString(" " + escapeCell(cell) + " |")
		}
	}
	return b.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
