// Package tui is the interactive terminal reviewer. It renders the current
// record of a session buffer and turns key presses into buffer edits.
package tui

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kilupskalvis/zcurate/internal/lines"
	"github.com/kilupskalvis/zcurate/internal/models"
	"github.com/kilupskalvis/zcurate/internal/session"
	"github.com/kilupskalvis/zcurate/internal/spectrum"
)

// Options configures the reviewer
type Options struct {
	Lines   []lines.Line
	Medium  lines.Medium
	Display lines.Display
	ZStep   float64
	// SaveProgress merges the buffer into the session output catalog and
	// returns where it was written
	SaveProgress func() (string, error)
}

// Model is the bubbletea model of the reviewer
type Model struct {
	buf  *session.Buffer
	opts Options
	keys KeyMap
	help help.Model

	input    textinput.Model
	entering bool

	spec          spectrum.Result
	status        string
	statusIsError bool
	quitArmed     bool

	width  int
	height int
}

// New returns a reviewer over an open buffer
func New(buf *session.Buffer, opts Options) Model {
	if opts.ZStep <= 0 {
		opts.ZStep = 5e-4
	}
	ti := textinput.New()
	ti.Placeholder = "redshift"
	ti.CharLimit = 16
	ti.Width = 16

	m := Model{
		buf:   buf,
		opts:  opts,
		keys:  DefaultKeyMap(),
		help:  help.New(),
		input: ti,
		width: 80,
	}
	m.spec = buf.LoadSpectrum()
	return m
}

// Run starts the reviewer in the alternate screen and blocks until it quits
func Run(m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if m.entering {
			return m.updateEntry(msg)
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m Model) updateEntry(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.entering = false
		m.input.Blur()
		return m, nil
	case msg.Type == tea.KeyEnter:
		m.entering = false
		m.input.Blur()
		z, err := strconv.ParseFloat(strings.TrimSpace(m.input.Value()), 64)
		if err != nil {
			m.setError(fmt.Errorf("not a redshift: %q", m.input.Value()))
			return m, nil
		}
		m.apply(m.buf.SetRedshiftTemp(z))
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !key.Matches(msg, m.keys.Quit) {
		m.quitArmed = false
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.buf.Dirty() && !m.quitArmed {
			m.quitArmed = true
			m.setStatus("unsaved changes; press q again to quit without saving")
			return m, nil
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keys.Next):
		m.move(m.buf.Advance, "end of catalog")

	case key.Matches(msg, m.keys.Prev):
		m.move(m.buf.Retreat, "no earlier records")

	case key.Matches(msg, m.keys.Flag):
		f, _ := strconv.Atoi(msg.String())
		m.apply(m.buf.SetFlagTemp(f))

	case key.Matches(msg, m.keys.Verify):
		m.apply(m.buf.SetVerifiedTemp(1 - m.buf.Current().VerifiedTemp))

	case key.Matches(msg, m.keys.ZUp):
		m.apply(m.buf.SetRedshiftTemp(m.buf.Current().ZTemp + m.opts.ZStep))

	case key.Matches(msg, m.keys.ZDown):
		m.apply(m.buf.SetRedshiftTemp(math.Max(0, m.buf.Current().ZTemp-m.opts.ZStep)))

	case key.Matches(msg, m.keys.ZEntry):
		m.entering = true
		m.input.SetValue(strconv.FormatFloat(m.buf.Current().ZTemp, 'f', 5, 64))
		m.input.Focus()
		return m, textinput.Blink

	case key.Matches(msg, m.keys.Reset):
		m.buf.ResetRedshift()
		m.status = ""

	case key.Matches(msg, m.keys.Save):
		if err := m.buf.Commit(); err != nil {
			m.setError(err)
		} else {
			m.setStatus(fmt.Sprintf("saved %s", m.buf.Path()))
		}

	case key.Matches(msg, m.keys.Accept):
		if err := m.buf.Commit(); err != nil {
			m.setError(err)
			return m, nil
		}
		m.move(m.buf.Advance, "saved; end of catalog")

	case key.Matches(msg, m.keys.Progress):
		m.saveProgress()
	}
	return m, nil
}

func (m *Model) move(step func() (bool, error), atEdge string) {
	moved, err := step()
	switch {
	case err != nil:
		m.setError(err)
	case !moved:
		m.setStatus(atEdge)
	default:
		m.status = ""
		m.spec = m.buf.LoadSpectrum()
	}
}

func (m *Model) saveProgress() {
	if m.opts.SaveProgress == nil {
		return
	}
	if err := m.buf.Commit(); err != nil {
		m.setError(err)
		return
	}
	where, err := m.opts.SaveProgress()
	if err != nil {
		m.setError(err)
		return
	}
	m.setStatus("progress saved to " + where)
}

func (m *Model) apply(err error) {
	if err != nil {
		m.setError(err)
		return
	}
	m.status = ""
}

func (m *Model) setStatus(s string) {
	m.status, m.statusIsError = s, false
}

func (m *Model) setError(err error) {
	m.status, m.statusIsError = err.Error(), true
}

func (m Model) View() string {
	cur := m.buf.Current()
	rec := m.buf.Record()

	header := HeaderStyle.Render(fmt.Sprintf("zcurate  %d/%d  %s", m.buf.Idx()+1, m.buf.Len(), rec.ID))
	parts := []string{header, m.infoView(cur, rec), m.plotView(cur)}

	if m.entering {
		parts = append(parts, StatusStyle.Render("z = "+m.input.View()))
	}
	if m.status != "" {
		style := StatusStyle
		if m.statusIsError {
			style = ErrorStyle.PaddingLeft(1)
		}
		parts = append(parts, style.Render(m.status))
	}
	parts = append(parts, m.help.View(m.keys))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) infoView(cur models.SessionState, rec *models.CatalogRecord) string {
	row := func(label, value string, changed bool) string {
		v := ValueStyle.Render(value)
		if changed {
			v = ChangedStyle.Render(value)
		}
		return LabelStyle.Render(label) + v
	}
	zphot := "-"
	if cur.ZPhot != models.UnsetRedshift {
		zphot = formatZ(cur.ZPhot)
	}
	verified := "no"
	if cur.VerifiedTemp == 1 {
		verified = VerifiedStyle.Render("yes")
	}

	rows := []string{
		row("z", formatZ(cur.Z), false),
		row("z new", formatZ(cur.ZTemp), cur.ZTemp != cur.Z),
		row("z phot", zphot, false),
		row("flag", fmt.Sprintf("%d (raw %s)", cur.Flag, rec.RawFlag), false),
		row("flag new", strconv.Itoa(cur.FlagTemp), cur.FlagTemp != cur.Flag),
		LabelStyle.Render("verified") + verified,
	}
	if rec.Broadline == 1 {
		rows = append(rows, LabelStyle.Render("broadline")+ValueStyle.Render("yes"))
	}
	if m.buf.Dirty() {
		rows = append(rows, ChangedStyle.Render("unsaved"))
	}
	return InfoStyle.Render(strings.Join(rows, "\n"))
}

func (m Model) plotView(cur models.SessionState) string {
	width := m.width - 6
	if width < 20 {
		width = 20
	}
	if m.spec.Spectrum == nil {
		return PlotStyle.Render(ErrorStyle.Render(fmt.Sprintf("spectrum unavailable: %v", m.spec.Err)))
	}

	sp := m.spec.Spectrum
	lo, hi := sp.Range()
	markers := lines.Visible(m.opts.Lines, cur.ZTemp, lo, hi, m.opts.Medium, m.opts.Display)
	st := sp.Stats()

	body := []string{
		Sparkline(sp, width),
		LineStyle.Render(MarkerRow(markers, lo, hi, width)),
		fmt.Sprintf("%.0f-%.0f Å  flux %.3g..%.3g  median %.3g", lo, hi, st.MinFlux, st.MaxFlux, st.MedianFlux),
	}
	if m.spec.Placeholder {
		body = append(body, ErrorStyle.Render(fmt.Sprintf("placeholder shown: %v", m.spec.Err)))
	}
	return PlotStyle.Render(strings.Join(body, "\n"))
}

func formatZ(z float64) string {
	return strconv.FormatFloat(z, 'f', 5, 64)
}

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

// Sparkline bins the unmasked flux into width columns and renders one block
// character per column. Empty bins are blank.
func Sparkline(sp *spectrum.Spectrum, width int) string {
	if sp.Len() == 0 || width <= 0 {
		return ""
	}
	sums := make([]float64, width)
	counts := make([]int, width)
	lo, hi := sp.Range()
	span := hi - lo
	for i, w := range sp.Wavelength {
		f := sp.Flux[i]
		if sp.Masked(i) || math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		col := 0
		if span > 0 {
			col = int((w - lo) / span * float64(width-1))
		}
		sums[col] += f
		counts[col]++
	}

	minV, maxV := math.Inf(1), math.Inf(-1)
	for i := range sums {
		if counts[i] == 0 {
			continue
		}
		sums[i] /= float64(counts[i])
		minV = math.Min(minV, sums[i])
		maxV = math.Max(maxV, sums[i])
	}

	var b strings.Builder
	for i := range sums {
		if counts[i] == 0 {
			b.WriteRune(' ')
			continue
		}
		level := 0
		if maxV > minV {
			level = int((sums[i] - minV) / (maxV - minV) * float64(len(sparkRunes)-1))
		}
		b.WriteRune(sparkRunes[level])
	}
	return b.String()
}

// MarkerRow places a '|' under each visible line's column
func MarkerRow(markers []lines.Marker, lo, hi float64, width int) string {
	row := []rune(strings.Repeat(" ", width))
	if hi <= lo || width <= 0 {
		return string(row)
	}
	for _, mk := range markers {
		col := int((mk.Observed - lo) / (hi - lo) * float64(width-1))
		if col >= 0 && col < width {
			row[col] = '|'
		}
	}
	return string(row)
}
