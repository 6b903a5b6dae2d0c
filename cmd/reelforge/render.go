package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"reelforge/internal/session"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 28
	statusIndent     = "  "
)

var titleCaser = cases.Title(language.English)

// label turns identifiers such as "generating_content" into "Generating Content".
func label(value string) string {
	return titleCaser.String(strings.ReplaceAll(value, "_", " "))
}

func renderStatusLine(name string, kind statusKind, message string, colorize bool) string {
	statusText := fmt.Sprintf("[%s]", statusKindLabel(kind))
	if message != "" {
		statusText += " " + message
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, name+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

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
	for i := range columns {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func stageStatusKind(status session.Status) statusKind {
	switch status {
	case session.StatusSucceeded:
		return statusOK
	case session.StatusRunning:
		return statusInfo
	case session.StatusFailed:
		return statusError
	default:
		return statusWarn
	}
}

func phaseStatusKind(phase session.Phase) statusKind {
	switch phase {
	case session.PhaseComplete:
		return statusOK
	case session.PhaseFailed:
		return statusError
	case session.PhaseReviewingContent:
		return statusWarn
	default:
		return statusInfo
	}
}

// printSnapshot renders a session summary followed by its stage table.
func printSnapshot(out io.Writer, snap session.Snapshot) {
	colorize := shouldColorize(out)
	title := snap.Title
	if title == "" {
		title = "(untitled)"
	}
	fmt.Fprintf(out, "Session %s  %s\n", snap.ID, title)

	phaseMsg := ""
	if snap.Phase == session.PhaseFailed && snap.FailedFrom != "" {
		phaseMsg = "during " + label(string(snap.FailedFrom))
	}
	fmt.Fprintln(out, renderStatusLine("Phase", phaseStatusKind(snap.Phase), strings.TrimSpace(label(string(snap.Phase))+" "+phaseMsg), colorize))

	duration := "unset"
	if snap.Duration != 0 {
		duration = snap.Duration.Label()
	}
	voice := string(snap.Voice)
	if voice == "" {
		voice = "unset"
	}
	fmt.Fprintln(out, renderStatusLine("Duration", statusInfo, duration, colorize))
	fmt.Fprintln(out, renderStatusLine("Voice", statusInfo, voice, colorize))
	if pub := snap.Publication; pub != nil {
		fmt.Fprintln(out, renderStatusLine("Published", statusOK, fmt.Sprintf("%s (final video v%d)", pub.URL, pub.VideoVersion), colorize))
	}

	rows := make([][]string, 0, len(session.AllStages()))
	for _, kind := range session.AllStages() {
		rec := snap.Stage(kind)
		status := label(string(rec.Status))
		if colorize {
			status = statusKindColor(stageStatusKind(rec.Status)) + status + ansiReset
		}
		detail := ""
		if rec.Error != nil {
			detail = rec.Error.Message
		} else if len(rec.Inputs) > 0 {
			detail = formatInputs(rec.Inputs)
		}
		rows = append(rows, []string{
			label(string(kind)),
			status,
			strconv.Itoa(rec.Version),
			strconv.Itoa(rec.Attempts),
			detail,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Stage", "Status", "Version", "Attempts", "Detail"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	))

	if len(snap.References) > 0 {
		fmt.Fprintf(out, "References from %s:\n", snap.ChannelURL)
		for _, ref := range snap.References {
			fmt.Fprintf(out, "%s%s (%s views)\n", statusIndent, ref.Title, humanize.Comma(ref.Views))
		}
	}
}

func formatInputs(inputs map[session.StageKind]int) string {
	parts := make([]string, 0, len(inputs))
	for _, kind := range session.AllStages() {
		if v, ok := inputs[kind]; ok {
			parts = append(parts, fmt.Sprintf("%s v%d", kind, v))
		}
	}
	return "from " + strings.Join(parts, ", ")
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04")
}
