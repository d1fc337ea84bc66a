package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ar3ac/jobhunter/internal/store"
)

// Reader is the read side of a store used by the review UI.
type Reader interface {
	Recent(ctx context.Context, limit int) ([]store.Record, error)
	CandidateGroups(ctx context.Context, limit int) ([]store.CandidateGroup, error)
}

// Snapshot is what the review UI browses: the latest records and the
// soft-key groups that may be the same job listed more than once.
type Snapshot struct {
	Records []store.Record
	Groups  []store.CandidateGroup
}

// Load reads a snapshot of at most limit records and limit groups.
func Load(ctx context.Context, r Reader, limit int) (Snapshot, error) {
	records, err := r.Recent(ctx, limit)
	if err != nil {
		return Snapshot{}, err
	}
	groups, err := r.CandidateGroups(ctx, limit)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Records: records, Groups: groups}, nil
}

var errCancelled = errors.New("cancelled")

type loadDoneMsg struct {
	snap Snapshot
	err  error
}

type loaderModel struct {
	label   string
	loadFn  func(ctx context.Context) (Snapshot, error)
	spinner spinner.Model
	result  Snapshot
	err     error
	done    bool
}

func (m loaderModel) Init() tea.Cmd {
	return tea.Batch(m.doLoad(), m.spinner.Tick)
}

func (m loaderModel) doLoad() tea.Cmd {
	loadFn := m.loadFn
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		snap, err := loadFn(ctx)
		return loadDoneMsg{snap: snap, err: err}
	}
}

func (m loaderModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadDoneMsg:
		m.result, m.err, m.done = msg.snap, msg.err, true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.err, m.done = errCancelled, true
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m loaderModel) View() string {
	if m.done {
		return ""
	}
	return fmt.Sprintf("%s Loading %s...\n", m.spinner.View(), m.label)
}

// RunLoader shows a spinner while loadFn runs. It renders inline (no alt screen).
func RunLoader(label string, loadFn func(ctx context.Context) (Snapshot, error)) (Snapshot, error) {
	sp := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("33"))),
	)
	p := tea.NewProgram(loaderModel{label: label, loadFn: loadFn, spinner: sp})
	result, err := p.Run()
	if err != nil {
		return Snapshot{}, err
	}
	final := result.(loaderModel)
	return final.result, final.err
}
