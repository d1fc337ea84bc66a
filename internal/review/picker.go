package review

import (
	"fmt"
	"sort"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// AllSources is the picker entry that disables source filtering.
const AllSources = "all sources"

var (
	pickerTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Padding(1, 0, 1, 2)

	pickerItemStyle = lipgloss.NewStyle().
			Padding(0, 0, 0, 4)

	pickerSelectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true).
				Padding(0, 0, 0, 2)

	pickerHintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Padding(1, 0, 0, 2)
)

type pickerOption struct {
	source string
	count  int
}

type pickerModel struct {
	options []pickerOption
	cursor  int
	chosen  int // -1 = no choice yet, -2 = quit
}

// sourceOptions lists "all sources" followed by every source present in
// snap, with record counts, most records first.
func sourceOptions(snap Snapshot) []pickerOption {
	counts := make(map[string]int)
	for _, r := range snap.Records {
		counts[r.Source]++
	}
	opts := make([]pickerOption, 0, len(counts)+1)
	for src, n := range counts {
		opts = append(opts, pickerOption{source: src, count: n})
	}
	sort.Slice(opts, func(i, j int) bool {
		if opts[i].count != opts[j].count {
			return opts[i].count > opts[j].count
		}
		return opts[i].source < opts[j].source
	})
	return append([]pickerOption{{source: AllSources, count: len(snap.Records)}}, opts...)
}

func (m pickerModel) Init() tea.Cmd {
	return nil
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "q", "ctrl+c":
			m.chosen = -2
			return m, tea.Quit
		case "up", "k":
			m.cursor = clamp(m.cursor-1, 0, len(m.options)-1)
		case "down", "j":
			m.cursor = clamp(m.cursor+1, 0, len(m.options)-1)
		case "enter":
			m.chosen = m.cursor
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m pickerModel) View() string {
	s := pickerTitleStyle.Render("Review postings: select a source") + "\n"
	for i, o := range m.options {
		label := fmt.Sprintf("%s (%d)", o.source, o.count)
		if i == m.cursor {
			s += pickerSelectedStyle.Render("> "+label) + "\n"
		} else {
			s += pickerItemStyle.Render(label) + "\n"
		}
	}
	s += pickerHintStyle.Render("↑/↓/j/k navigate  enter select  q quit")
	return s
}

// RunSourcePicker shows an interactive source selector. It returns the
// chosen source (AllSources for no filter) and false if the user quit.
func RunSourcePicker(snap Snapshot) (string, bool, error) {
	m := pickerModel{options: sourceOptions(snap), chosen: -1}
	result, err := tea.NewProgram(m).Run()
	if err != nil {
		return "", false, err
	}
	final := result.(pickerModel)
	if final.chosen < 0 {
		return "", false, nil
	}
	return final.options[final.chosen].source, true, nil
}
