package watch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/karmanspace/tracker/internal/request"
	"github.com/karmanspace/tracker/internal/styles"
	"github.com/karmanspace/tracker/internal/util"
)

// DefaultPollInterval is used when there is no file watcher.
const DefaultPollInterval = 5 * time.Second

// Source is the state a Model displays.
type Source interface {
	Reload(ctx context.Context) error
	View(fn func(g *request.Graph))
	Backend() string
}

type (
	changedMsg  struct{}
	tickMsg     time.Time
	reloadedMsg struct {
		err error
		at  time.Time
	}
)

// Model is the bubbletea model of the watch view.
type Model struct {
	ctx     context.Context
	src     Source
	changes <-chan struct{}
	poll    time.Duration
	now     func() time.Time

	viewport  viewport.Model
	input     textinput.Model
	ready     bool
	filtering bool
	query     string
	width     int
	height    int

	live        int
	archived    int
	lastErr     error
	refreshedAt time.Time
}

// ModelOption configures a Model.
type ModelOption func(*Model)

// WithChanges reloads whenever ch delivers. Without it the model polls.
func WithChanges(ch <-chan struct{}) ModelOption {
	return func(m *Model) { m.changes = ch }
}

// WithPollInterval sets how often the model reloads without a watcher.
func WithPollInterval(d time.Duration) ModelOption {
	return func(m *Model) {
		if d > 0 {
			m.poll = d
		}
	}
}

// WithModelClock sets the time source for the status bar.
func WithModelClock(now func() time.Time) ModelOption {
	return func(m *Model) {
		if now != nil {
			m.now = now
		}
	}
}

// NewModel creates a watch view over src.
func NewModel(ctx context.Context, src Source, opts ...ModelOption) Model {
	ti := textinput.New()
	ti.Prompt = "/"
	ti.Placeholder = "keywords"
	ti.CharLimit = 200

	m := Model{
		ctx:   ctx,
		src:   src,
		poll:  DefaultPollInterval,
		now:   time.Now,
		input: ti,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Init starts the first reload and the change listener.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.reload(), m.next())
}

func (m Model) reload() tea.Cmd {
	return func() tea.Msg {
		err := m.src.Reload(m.ctx)
		return reloadedMsg{err: err, at: m.now()}
	}
}

// next waits for the next change, or the next poll tick.
func (m Model) next() tea.Cmd {
	if m.changes == nil {
		return tea.Tick(m.poll, func(t time.Time) tea.Msg { return tickMsg(t) })
	}
	ch := m.changes
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return changedMsg{}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		h := max(msg.Height-m.chromeHeight(), 1)
		if !m.ready {
			m.viewport = viewport.New(msg.Width, h)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = h
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case changedMsg, tickMsg:
		return m, tea.Batch(m.reload(), m.next())

	case reloadedMsg:
		m.lastErr = msg.err
		m.refreshedAt = msg.at
		m.refresh()
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.filtering {
		switch msg.String() {
		case "enter":
			m.query = strings.TrimSpace(m.input.Value())
			m.filtering = false
			m.input.Blur()
			m.refresh()
			return m, nil
		case "esc":
			m.filtering = false
			m.input.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "r":
		return m, m.reload()
	case "/":
		m.filtering = true
		m.input.SetValue(m.query)
		return m, m.input.Focus()
	case "esc":
		if m.query != "" {
			m.query = ""
			m.refresh()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// chromeHeight is the number of lines taken by the header and footer.
func (m Model) chromeHeight() int {
	return lipgloss.Height(m.header()) + 1
}

// refresh redraws the viewport content from the source.
func (m *Model) refresh() {
	var body string
	m.src.View(func(g *request.Graph) {
		m.live = g.Len()
		m.archived = len(g.Archive())
		body = Content(g, m.query)
	})
	if m.ready {
		m.viewport.SetContent(util.TruncateLines(body, m.viewport.Width))
	}
}

// Content renders the forest, or the ranked matches for query.
func Content(g *request.Graph, query string) string {
	if query == "" {
		if g.IsEmpty() {
			return "No requests."
		}
		return g.String()
	}
	results := g.SearchRequests(query)
	if len(results) == 0 {
		return "No matches found."
	}
	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "%3d%%  %s\n", r.Score, r.Item.Headline())
	}
	return b.String()
}

func (m Model) header() string {
	title := styles.Render(styles.Title, "Request forest")
	meta := fmt.Sprintf("  %s · %s live · %s archived",
		m.src.Backend(), util.Plural(m.live, "request"), util.Plural(m.archived, "record"))
	if m.query != "" {
		meta += fmt.Sprintf(" · search %q", m.query)
	}
	return styles.Render(styles.Header, title+styles.Render(styles.Muted, meta))
}

func (m Model) footer() string {
	if m.filtering {
		return m.input.View()
	}
	var status string
	switch {
	case m.lastErr != nil:
		status = styles.Render(styles.ErrorMsg, "reload failed: "+m.lastErr.Error())
	case !m.refreshedAt.IsZero():
		status = styles.Render(styles.Muted, "refreshed "+m.refreshedAt.Format("15:04:05"))
	}
	keys := []string{"q quit", "r reload", "/ search", "esc clear", "↑/↓ scroll"}
	for i, k := range keys {
		key, label, _ := strings.Cut(k, " ")
		keys[i] = styles.Render(styles.HelpKey, key) + " " + label
	}
	line := strings.Join(keys, "  ")
	if status != "" {
		line += "  " + status
	}
	return util.Truncate(line, m.width)
}

// View renders the model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	return m.header() + "\n" + m.viewport.View() + "\n" + m.footer()
}

// Run shows the watch view until the user quits or ctx is done.
func Run(ctx context.Context, src Source, opts ...ModelOption) error {
	p := tea.NewProgram(
		NewModel(ctx, src, opts...),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	return err
}
