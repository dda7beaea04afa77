// Package tui draws capture client frames in a terminal.
package tui

import (
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/yoockh/voicerelay/internal/client"
)

type Theme struct {
	Accent lipgloss.Color
	Dim    lipgloss.Color
	Text   lipgloss.Color
}

var DefaultTheme = Theme{
	Accent: lipgloss.Color("#667eea"),
	Dim:    lipgloss.Color("#6e7681"),
	Text:   lipgloss.Color("#dddddd"),
}

type Styles struct {
	Title      lipgloss.Style
	Help       lipgloss.Style
	Transcript lipgloss.Style
}

func NewStyles(t Theme) Styles {
	return Styles{
		Title: lipgloss.NewStyle().Bold(true).Foreground(t.Accent),
		Help:  lipgloss.NewStyle().Foreground(t.Dim),
		Transcript: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Accent).
			Foreground(t.Text).
			Padding(0, 1),
	}
}

// View renders a frame as a string: title and status, the ring, and the tail
// of the transcript.
type View struct {
	Styles          Styles
	Theme           Theme
	Cols, Rows      int
	TranscriptLines int
}

func NewView(cols, rows int) View {
	if cols <= 0 {
		cols = 48
	}
	if rows <= 0 {
		rows = cols / 2
	}
	return View{
		Styles:          NewStyles(DefaultTheme),
		Theme:           DefaultTheme,
		Cols:            cols,
		Rows:            rows,
		TranscriptLines: 4,
	}
}

func (v View) Render(f client.Frame) string {
	status := lipgloss.NewStyle().Foreground(lipgloss.Color(f.Status.Color())).Render(f.Status.Text())
	header := v.Styles.Title.Render("Audio Visualizer") + "  " + status +
		v.Styles.Help.Render("  ["+f.Mode.String()+"]")

	lines := []string{header, ""}
	for _, row := range Rasterize(f.Ring, f.Bars, v.Cols, v.Rows, string(v.Theme.Accent)) {
		lines = append(lines, renderRow(row))
	}

	box := v.Styles.Transcript.Width(v.Cols).Render(v.transcriptTail(f.Transcript))
	lines = append(lines, "", box, v.Styles.Help.Render("Ctrl+C to stop"))
	return strings.Join(lines, "\n")
}

// transcriptTail wraps the transcript to the box width and keeps the last
// TranscriptLines lines.
func (v View) transcriptTail(text string) string {
	if text == "" {
		return ""
	}
	width := max(v.Cols-4, 1)
	wrapped := strings.Split(lipgloss.NewStyle().Width(width).Render(text), "\n")
	if n := v.TranscriptLines; n > 0 && len(wrapped) > n {
		wrapped = wrapped[len(wrapped)-n:]
	}
	for i := range wrapped {
		wrapped[i] = strings.TrimRight(wrapped[i], " ")
	}
	return strings.Join(wrapped, "\n")
}

func renderRow(row []Cell) string {
	var sb strings.Builder
	for _, c := range row {
		if c.Color == "" {
			sb.WriteRune(c.Rune)
			continue
		}
		sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(c.Color)).Render(string(c.Rune)))
	}
	return sb.String()
}

// Terminal redraws the whole screen for every frame.
type Terminal struct {
	mu   sync.Mutex
	w    io.Writer
	view View
}

var _ client.Display = (*Terminal)(nil)

func NewTerminal(w io.Writer, view View) *Terminal {
	return &Terminal{w: w, view: view}
}

func (t *Terminal) Render(f client.Frame) error {
	out := "\x1b[H\x1b[2J" + t.view.Render(f) + "\n"

	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := io.WriteString(t.w, out)
	return err
}
