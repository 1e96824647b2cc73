package registry

import (
	"fmt"
	"strings"
	"time"

	"github.com/roach88/tracks/internal/model"
)

const documentTitle = "# Tracks Registry"

var columns = []string{"ID", "Title", "Category", "Status", "Created", "Updated", "Attributes"}

const timeLayout = time.RFC3339Nano

// Render produces the markdown table document for r.
//
// Cell text escapes '\' and '|'. Within the attributes cell, pairs are written
// as "key=value" joined by "; ", with '=' and ';' escaped as well.
func Render(r Registry) string {
	var b strings.Builder
	b.WriteString(documentTitle)
	b.WriteString("\n\n")
	writeRow(&b, columns)
	sep := make([]string, len(columns))
	for i := range sep {
		sep[i] = "---"
	}
	writeRow(&b, sep)
	for _, row := range r.rows {
		writeRow(&b, []string{
			escapeCell(row.ID),
			escapeCell(row.Title),
			escapeCell(string(row.Category)),
			escapeCell(string(row.Status)),
			row.CreatedAt.UTC().Format(timeLayout),
			row.UpdatedAt.UTC().Format(timeLayout),
			renderAttributes(row.Attributes),
		})
	}
	return b.String()
}

func writeRow(b *strings.Builder, cells []string) {
	b.WriteString("|")
	for _, c := range cells {
		b.WriteString(" ")
		b.WriteString(c)
		b.WriteString(" |")
	}
	b.WriteString("\n")
}

func renderAttributes(attrs map[string]string) string {
	pairs := make([]string, 0, len(attrs))
	for _, k := range model.AttributeKeys(attrs) {
		pairs = append(pairs, escapeAttr(k)+"="+escapeAttr(attrs[k]))
	}
	return strings.Join(pairs, "; ")
}

var (
	cellEscaper = strings.NewReplacer(`\`, `\\`, `|`, `\|`)
	attrEscaper = strings.NewReplacer(`\`, `\\`, `|`, `\|`, `;`, `\;`, `=`, `\=`)
)

func escapeCell(s string) string { return cellEscaper.Replace(s) }
func escapeAttr(s string) string { return attrEscaper.Replace(s) }

// Parse decodes a registry document. Text outside the table is ignored.
// A malformed table, an unknown status, a bad timestamp or a duplicate id is
// reported as Corrupt.
func Parse(text string) (Registry, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var (
		rows    []model.Summary
		seen    = make(map[string]int)
		state   int // 0: before header, 1: expect separator, 2: rows
		headerN int
	)
	for i, raw := range strings.Split(text, "\n") {
		lineNo := i + 1
		line := strings.TrimSpace(raw)
		if !strings.HasPrefix(line, "|") {
			if state == 2 && line != "" {
				// The table ends at the first non-table line.
				state = 3
			}
			continue
		}
		if state == 3 {
			return Registry{}, corruptLine(lineNo, "unexpected table row after end of table")
		}
		cells, err := splitRow(line)
		if err != nil {
			return Registry{}, corruptLine(lineNo, err.Error())
		}
		switch state {
		case 0:
			if err := checkHeader(cells); err != nil {
				return Registry{}, corruptLine(lineNo, err.Error())
			}
			headerN = len(cells)
			state = 1
		case 1:
			if len(cells) != headerN || !isSeparator(cells) {
				return Registry{}, corruptLine(lineNo, "missing table separator row")
			}
			state = 2
		case 2:
			row, err := parseRow(cells)
			if err != nil {
				return Registry{}, corruptLine(lineNo, err.Error())
			}
			if prev, dup := seen[row.ID]; dup {
				return Registry{}, corruptLine(lineNo, fmt.Sprintf("duplicate id %q (first seen on line %d)", row.ID, prev))
			}
			seen[row.ID] = lineNo
			rows = append(rows, row)
		}
	}
	if state == 1 {
		return Registry{}, model.Corrupt("parse-registry", "", "table header without separator row", nil)
	}
	if state == 0 && strings.TrimSpace(stripTitle(text)) != "" {
		return Registry{}, model.Corrupt("parse-registry", "", "no registry table found", nil)
	}
	return Registry{rows: rows}, nil
}

func stripTitle(text string) string {
	var rest []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == documentTitle {
			continue
		}
		rest = append(rest, line)
	}
	return strings.Join(rest, "\n")
}

func corruptLine(line int, msg string) error {
	return &model.Error{Code: model.CodeCorrupt, Op: "parse-registry", Line: line, Message: msg}
}

func checkHeader(cells []string) error {
	if len(cells) != len(columns) {
		return fmt.Errorf("expected %d columns, found %d", len(columns), len(cells))
	}
	for i, c := range cells {
		if !strings.EqualFold(unescape(c), columns[i]) {
			return fmt.Errorf("column %d: expected %q, found %q", i+1, columns[i], c)
		}
	}
	return nil
}

func isSeparator(cells []string) bool {
	for _, c := range cells {
		c = strings.Trim(c, ":")
		if len(c) < 3 || strings.Trim(c, "-") != "" {
			return false
		}
	}
	return true
}

func parseRow(cells []string) (model.Summary, error) {
	if len(cells) != len(columns) {
		return model.Summary{}, fmt.Errorf("expected %d cells, found %d", len(columns), len(cells))
	}
	row := model.Summary{
		ID:       unescape(cells[0]),
		Title:    unescape(cells[1]),
		Category: model.Category(unescape(cells[2])),
		Status:   model.Status(unescape(cells[3])),
	}
	if row.ID == "" {
		return model.Summary{}, fmt.Errorf("empty id")
	}
	if !row.Status.Valid() {
		return model.Summary{}, fmt.Errorf("unknown status %q for %s", row.Status, row.ID)
	}
	var err error
	if row.CreatedAt, err = time.Parse(timeLayout, cells[4]); err != nil {
		return model.Summary{}, fmt.Errorf("created timestamp for %s: %w", row.ID, err)
	}
	if row.UpdatedAt, err = time.Parse(timeLayout, cells[5]); err != nil {
		return model.Summary{}, fmt.Errorf("updated timestamp for %s: %w", row.ID, err)
	}
	if row.Attributes, err = parseAttributes(cells[6]); err != nil {
		return model.Summary{}, fmt.Errorf("attributes for %s: %w", row.ID, err)
	}
	return row, nil
}

func parseAttributes(cell string) (map[string]string, error) {
	if cell == "" {
		return nil, nil
	}
	attrs := make(map[string]string)
	for _, pair := range splitEscaped(cell, ';') {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		kv := splitEscaped(pair, '=')
		if len(kv) != 2 {
			return nil, fmt.Errorf("malformed pair %q", pair)
		}
		k := unescape(strings.TrimSpace(kv[0]))
		if k == "" {
			return nil, fmt.Errorf("empty key in %q", pair)
		}
		if _, dup := attrs[k]; dup {
			return nil, fmt.Errorf("duplicate key %q", k)
		}
		attrs[k] = unescape(strings.TrimSpace(kv[1]))
	}
	return model.CloneAttributes(attrs), nil
}

// splitRow splits a "| a | b |" line into trimmed raw cells. Escapes are kept.
func splitRow(line string) ([]string, error) {
	parts := splitEscaped(line, '|')
	if len(parts) < 3 || strings.TrimSpace(parts[0]) != "" || strings.TrimSpace(parts[len(parts)-1]) != "" {
		return nil, fmt.Errorf("row must start and end with '|'")
	}
	cells := parts[1 : len(parts)-1]
	for i := range cells {
		cells[i] = strings.TrimSpace(cells[i])
	}
	return cells, nil
}

// splitEscaped splits s on sep, ignoring separators preceded by a backslash.
func splitEscaped(s string, sep byte) []string {
	var (
		parts []string
		start int
	)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case sep:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
