// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	formatText outputFormat = "text"
	formatJSON outputFormat = "json"
	formatYAML outputFormat = "yaml"
)

// outputFormat is the --format flag value. It implements pflag.Value so bad
// values are rejected while flags are parsed.
type outputFormat string

func (f *outputFormat) String() string { return string(*f) }

func (f *outputFormat) Set(s string) error {
	switch v := outputFormat(strings.ToLower(s)); v {
	case formatText, formatJSON, formatYAML:
		*f = v
		return nil
	default:
		return fmt.Errorf("invalid format %q (want text, json or yaml)", s)
	}
}

func (f *outputFormat) Type() string { return "format" }

// structured reports whether the format is machine-readable.
func (f outputFormat) structured() bool { return f == formatJSON || f == formatYAML }

func addFormatFlag(cmd *cobra.Command, f *outputFormat) {
	*f = formatText
	cmd.Flags().VarP(f, "format", "f", "output format: text, json or yaml")
}

// writeStructured encodes v as JSON or YAML.
func writeStructured(w io.Writer, format outputFormat, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("format %q is not structured", format)
	}
}

// renderTable lays rows out under headers with the CLI palette.
func renderTable(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(tableBorderStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		})
	return t.String()
}

func formatBytes(n uint64) string {
	if n == 0 {
		return "-"
	}
	return humanize.IBytes(n)
}

// formatAge renders a Unix-seconds timestamp relative to now.
func formatAge(unix int64, now time.Time) string {
	if unix <= 0 {
		return "-"
	}
	return humanize.RelTime(time.Unix(unix, 0), now, "ago", "from now")
}

func checkMark(ok bool) string {
	if ok {
		return SuccessStyle.Render("✓")
	}
	return ErrorStyle.Render("✗")
}
