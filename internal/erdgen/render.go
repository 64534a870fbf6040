package erdgen

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"oss.terrastruct.com/d2/d2graph"
	"oss.terrastruct.com/d2/d2layouts/d2dagrelayout"
	"oss.terrastruct.com/d2/d2lib"
	"oss.terrastruct.com/d2/d2renderers/d2svg"
	"oss.terrastruct.com/d2/lib/textmeasure"
)

// diagramSource returns the diagram text for a format. SVG has no text
// representation of its own; its source is the D2 script it is rendered from.
func diagramSource(format string, schema Schema, direction string) (string, error) {
	switch format {
	case "svg", "d2":
		return d2Script(schema, direction), nil
	case "dot":
		return dotScript(schema, direction), nil
	case "mermaid":
		return mermaidScript(schema), nil
	default:
		return "", fmt.Errorf("unsupported format %q", format)
	}
}

func renderDiagram(ctx context.Context, cfg Config, schema Schema) ([]byte, error) {
	source, err := diagramSource(cfg.Format, schema, cfg.Direction)
	if err != nil {
		return nil, err
	}

	if cfg.Format != "svg" {
		return []byte(source), nil
	}

	return renderSVG(ctx, source, cfg.Theme)
}

func renderSVG(ctx context.Context, script string, themeID int64) ([]byte, error) {
	ruler, err := textmeasure.NewRuler()
	if err != nil {
		return nil, fmt.Errorf("initialize text ruler: %w", err)
	}

	layout := func(ctx context.Context, g *d2graph.Graph) error {
		return d2dagrelayout.Layout(ctx, g, nil)
	}

	diagram, _, err := d2lib.Compile(ctx, script, &d2lib.CompileOptions{
		Layout:  layout,
		Ruler:   ruler,
		ThemeID: themeID,
	})
	if err != nil {
		return nil, fmt.Errorf("compile diagram: %w", err)
	}

	out, err := d2svg.Render(diagram, &d2svg.RenderOpts{Pad: d2svg.DEFAULT_PADDING})
	if err != nil {
		return nil, fmt.Errorf("render svg: %w", err)
	}
	return out, nil
}

// renderOutput formats tabular data for the history command.
func renderOutput(format string, columns []string, rows []map[string]any) (string, error) {
	switch format {
	case "json":
		payload, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal json output: %w", err)
		}
		return string(payload), nil
	case "table":
		return renderTextTable(columns, rows), nil
	default:
		return "", fmt.Errorf("unsupported output format %q", format)
	}
}

func renderTextTable(columns []string, rows []map[string]any) string {
	if len(columns) == 0 {
		return "No rows returned."
	}

	widths := make([]int, len(columns))
	for i, col := range columns {
		widths[i] = len(col)
	}

	stringRows := make([][]string, 0, len(rows))
	for _, row := range rows {
		line := make([]string, len(columns))
		for i, col := range columns {
			v := formatCellValue(row[col])
			line[i] = v
			if len(v) > widths[i] {
				widths[i] = len(v)
			}
		}
		stringRows = append(stringRows, line)
	}

	hline := buildHorizontalLine(widths)
	var b strings.Builder
	b.WriteString(hline)
	b.WriteByte('\n')
	b.WriteString(buildTableRow(columns, widths))
	b.WriteByte('\n')
	b.WriteString(hline)
	b.WriteByte('\n')

	for _, line := range stringRows {
		b.WriteString(buildTableRow(line, widths))
		b.WriteByte('\n')
	}

	b.WriteString(hline)
	if len(rows) == 0 {
		b.WriteString("\n(0 rows)")
	}

	return b.String()
}

func buildHorizontalLine(widths []int) string {
	var b strings.Builder
	b.WriteByte('+')
	for _, w := range widths {
		b.WriteString(strings.Repeat("-", w+2))
		b.WriteByte('+')
	}
	return b.String()
}

func buildTableRow(values []string, widths []int) string {
	var b strings.Builder
	b.WriteByte('|')
	for i, v := range values {
		b.WriteByte(' ')
		b.WriteString(v)
		padding := widths[i] - len(v)
		if padding > 0 {
			b.WriteString(strings.Repeat(" ", padding))
		}
		b.WriteByte(' ')
		b.WriteByte('|')
	}
	return b.String()
}

func formatCellValue(v any) string {
	if v == nil {
		return ""
	}

	str := fmt.Sprintf("%v", v)
	str = strings.ReplaceAll(str, "\n", " ")
	str = strings.ReplaceAll(str, "\r", " ")
	return str
}
