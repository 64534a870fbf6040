package erdgen

import (
	"fmt"
	"strings"
)

// d2Script turns an introspected schema into D2 source, one sql_table shape
// per table and one edge per foreign-key column pair.
func d2Script(schema Schema, direction string) string {
	var b strings.Builder

	if direction != "" {
		b.WriteString("direction: ")
		b.WriteString(direction)
		b.WriteString("\n\n")
	}

	for _, t := range schema.Tables {
		fkCols := foreignKeyColumns(t)

		b.WriteString(d2Key(t.Name))
		b.WriteString(": {\n  shape: sql_table\n")
		for _, c := range t.Columns {
			b.WriteString("  ")
			b.WriteString(d2Key(c.Name))
			b.WriteString(": ")
			b.WriteString(columnTypeLabel(c))
			if c.PrimaryKey {
				b.WriteString(" {constraint: primary_key}")
			} else if _, ok := fkCols[c.Name]; ok {
				b.WriteString(" {constraint: foreign_key}")
			}
			b.WriteByte('\n')
		}
		b.WriteString("}\n")
	}

	edges := make([]string, 0)
	for _, t := range schema.Tables {
		for _, fk := range t.ForeignKeys {
			if !schema.hasTable(fk.RefTable) {
				continue
			}
			edge := fmt.Sprintf("%s.%s -> %s.%s",
				d2Key(t.Name), d2Key(fk.Column),
				d2Key(fk.RefTable), d2Key(schema.resolveRefColumn(fk)))
			edges = append(edges, edge)
		}
	}

	if len(edges) > 0 {
		b.WriteByte('\n')
		for _, e := range edges {
			b.WriteString(e)
			b.WriteByte('\n')
		}
	}

	return b.String()
}

// dotScript emits a Graphviz digraph with one record node per table.
func dotScript(schema Schema, direction string) string {
	rankdir := "LR"
	switch direction {
	case "down":
		rankdir = "TB"
	case "up":
		rankdir = "BT"
	case "left":
		rankdir = "RL"
	}

	var b strings.Builder
	b.WriteString("digraph erd {\n")
	fmt.Fprintf(&b, "  graph [rankdir=%s];\n", rankdir)
	b.WriteString("  node [shape=record, fontsize=10];\n\n")

	for _, t := range schema.Tables {
		fields := make([]string, 0, len(t.Columns)+1)
		fields = append(fields, recordEscape(t.Name))
		for _, c := range t.Columns {
			label := recordEscape(c.Name)
			if c.Type != "" {
				label += ": " + recordEscape(c.Type)
			}
			if c.PrimaryKey {
				label += " (pk)"
			}
			fields = append(fields, label)
		}
		fmt.Fprintf(&b, "  %q [label=\"{%s}\"];\n", t.Name, strings.Join(fields, `|`))
	}

	b.WriteByte('\n')
	for _, t := range schema.Tables {
		for _, fk := range t.ForeignKeys {
			if !schema.hasTable(fk.RefTable) {
				continue
			}
			fmt.Fprintf(&b, "  %q -> %q [label=%q];\n",
				t.Name, fk.RefTable,
				fk.Column+" -> "+schema.resolveRefColumn(fk))
		}
	}

	b.WriteString("}\n")
	return b.String()
}

// mermaidScript emits Mermaid erDiagram syntax. Mermaid identifiers and type
// tokens cannot carry spaces or dots, so both are sanitized.
func mermaidScript(schema Schema) string {
	var b strings.Builder
	b.WriteString("erDiagram\n")

	for _, t := range schema.Tables {
		fkCols := foreignKeyColumns(t)

		fmt.Fprintf(&b, "    %s {\n", mermaidIdent(t.Name))
		for _, c := range t.Columns {
			colType := mermaidIdent(c.Type)
			if colType == "" {
				colType = "unknown"
			}
			fmt.Fprintf(&b, "        %s %s", colType, mermaidIdent(c.Name))

			keys := make([]string, 0, 2)
			if c.PrimaryKey {
				keys = append(keys, "PK")
			}
			if _, ok := fkCols[c.Name]; ok {
				keys = append(keys, "FK")
			}
			if len(keys) > 0 {
				b.WriteByte(' ')
				b.WriteString(strings.Join(keys, ", "))
			}
			b.WriteByte('\n')
		}
		b.WriteString("    }\n")
	}

	for _, t := range schema.Tables {
		for _, fk := range t.ForeignKeys {
			if !schema.hasTable(fk.RefTable) {
				continue
			}
			fmt.Fprintf(&b, "    %s }o--|| %s : %q\n",
				mermaidIdent(t.Name), mermaidIdent(fk.RefTable), fk.Column)
		}
	}

	return b.String()
}

func (s Schema) hasTable(name string) bool {
	for _, t := range s.Tables {
		if t.Name == name {
			return true
		}
	}
	return false
}

// resolveRefColumn fills in the referenced column for constraints that point
// at the parent's implicit primary key (sqlite reports these as NULL).
func (s Schema) resolveRefColumn(fk ForeignKey) string {
	if fk.RefColumn != "" {
		return fk.RefColumn
	}
	for _, t := range s.Tables {
		if t.Name == fk.RefTable {
			if pk := t.primaryKeyColumn(); pk != "" {
				return pk
			}
		}
	}
	return "id"
}

func foreignKeyColumns(t Table) map[string]struct{} {
	if len(t.ForeignKeys) == 0 {
		return nil
	}
	cols := make(map[string]struct{}, len(t.ForeignKeys))
	for _, fk := range t.ForeignKeys {
		cols[fk.Column] = struct{}{}
	}
	return cols
}

func columnTypeLabel(c Column) string {
	if strings.TrimSpace(c.Type) == "" {
		return "unknown"
	}
	return c.Type
}

// d2Key quotes an identifier so dots in table names do not split into nested
// d2 paths.
func d2Key(name string) string {
	escaped := strings.ReplaceAll(name, `"`, `\"`)
	return `"` + escaped + `"`
}

var recordEscaper = strings.NewReplacer(
	`\`, `\\`,
	`|`, `\|`,
	`{`, `\{`,
	`}`, `\}`,
	`<`, `\<`,
	`>`, `\>`,
	`"`, `\"`,
)

func recordEscape(v string) string {
	return recordEscaper.Replace(v)
}

var mermaidIdentReplacer = strings.NewReplacer(
	" ", "_",
	".", "_",
	"-", "_",
	`"`, "_",
)

func mermaidIdent(v string) string {
	return mermaidIdentReplacer.Replace(strings.TrimSpace(v))
}
