package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"librarydesk/internal/circulation"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

var kindColors = map[circulation.Kind]text.Color{
	circulation.KindSuccess: text.FgGreen,
	circulation.KindError:   text.FgRed,
	circulation.KindWarning: text.FgYellow,
	circulation.KindInfo:    text.FgCyan,
}

// printResult writes a Result as a headline followed by indented body lines.
func printResult(w io.Writer, res circulation.Result) {
	headline := fmt.Sprintf("[%s] %s", res.Kind, res.Title)
	if isTerminal(w) {
		headline = kindColors[res.Kind].Sprint(headline)
	}
	fmt.Fprintln(w, headline)
	if res.Body == "" {
		return
	}
	for _, line := range strings.Split(res.Body, "\n") {
		fmt.Fprintln(w, "  "+line)
	}
}
