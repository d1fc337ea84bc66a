package review

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ar3ac/jobhunter/internal/store"
)

// Lines per item in the list view (title + subtitle + blank separator).
const itemHeight = 3

type viewState int

const (
	viewList viewState = iota
	viewDetail
)

const (
	paneRecords = iota
	paneGroups
)

var (
	activeBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("39"))

	inactiveBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	activeHeaderStyle = headerStyle.
				Foreground(lipgloss.Color("39"))

	inactiveHeaderStyle = headerStyle.
				Foreground(lipgloss.Color("240"))

	statusBarStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236"))

	itemTitleStyle = lipgloss.NewStyle().
			Bold(true)

	itemSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245"))

	selectedTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("24"))

	selectedSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252")).
				Background(lipgloss.Color("24"))

	detailLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Width(14)

	detailValueStyle = lipgloss.NewStyle()

	detailTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				MarginBottom(1)

	dividerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)

	descBodyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))
)

type reviewModel struct {
	records       []store.Record
	groups        []store.CandidateGroup
	leftViewport  viewport.Model
	rightViewport viewport.Model
	activePane    int
	leftCursor    int
	rightCursor   int
	width         int
	height        int
	ready         bool

	view            viewState
	detailRecord    *store.Record
	detailGroup     *store.CandidateGroup
	detailViewport  viewport.Model
	showDescription bool

	openURL  func(string)
	wantQuit bool
}

func newReviewModel(snap Snapshot) reviewModel {
	return reviewModel{
		records: snap.Records,
		groups:  snap.Groups,
		openURL: openBrowser,
	}
}

func (m reviewModel) Init() tea.Cmd {
	return nil
}

func (m reviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalcLayout()
		if m.view == viewDetail {
			m.detailViewport.Width = m.width - 4
			m.detailViewport.Height = m.height - 4
			m.detailViewport.SetContent(m.renderDetail())
		}
		return m, nil

	case tea.KeyMsg:
		if m.view == viewDetail {
			return m.updateDetailView(msg)
		}
		return m.updateListView(msg)
	}
	return m, nil
}

func (m reviewModel) updateListView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.wantQuit = true
		return m, tea.Quit
	case "esc", "b":
		m.wantQuit = false
		return m, tea.Quit
	case "tab", "left", "right":
		m.activePane = 1 - m.activePane
		m.recalcContent()
		return m, nil
	case "up", "k":
		m.moveCursor(-1)
		m.recalcContent()
		m.ensureCursorVisible()
		return m, nil
	case "down", "j":
		m.moveCursor(1)
		m.recalcContent()
		m.ensureCursorVisible()
		return m, nil
	case "enter":
		return m.openDetailView()
	}

	var cmd tea.Cmd
	if m.activePane == paneRecords {
		m.leftViewport, cmd = m.leftViewport.Update(msg)
	} else {
		m.rightViewport, cmd = m.rightViewport.Update(msg)
	}
	return m, cmd
}

func (m reviewModel) updateDetailView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.wantQuit = true
		return m, tea.Quit
	case "esc", "backspace":
		m.view = viewList
		m.detailRecord, m.detailGroup = nil, nil
		return m, nil
	case "o":
		if url := m.detailURL(); url != "" {
			m.openURL(url)
		}
		return m, nil
	case "r":
		if m.detailRecord != nil && m.detailRecord.Description != "" {
			m.showDescription = !m.showDescription
			m.detailViewport.SetContent(m.renderDetail())
			m.detailViewport.SetYOffset(0)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.detailViewport, cmd = m.detailViewport.Update(msg)
	return m, cmd
}

// detailURL is the link opened by "o": the record's own URL, or for a
// group the first member that has one.
func (m reviewModel) detailURL() string {
	if m.detailRecord != nil {
		return m.detailRecord.URL
	}
	if m.detailGroup != nil {
		for _, r := range m.detailGroup.Records {
			if r.URL != "" {
				return r.URL
			}
		}
	}
	return ""
}

func (m *reviewModel) moveCursor(delta int) {
	if m.activePane == paneRecords {
		m.leftCursor = clamp(m.leftCursor+delta, 0, max(len(m.records)-1, 0))
	} else {
		m.rightCursor = clamp(m.rightCursor+delta, 0, max(len(m.groups)-1, 0))
	}
}

func (m *reviewModel) ensureCursorVisible() {
	vp, cursor := &m.leftViewport, m.leftCursor
	if m.activePane == paneGroups {
		vp, cursor = &m.rightViewport, m.rightCursor
	}

	top := cursor * itemHeight
	bottom := top + itemHeight - 1
	if top < vp.YOffset {
		vp.SetYOffset(top)
	} else if bottom >= vp.YOffset+vp.Height {
		vp.SetYOffset(bottom - vp.Height + 1)
	}
}

func (m reviewModel) openDetailView() (tea.Model, tea.Cmd) {
	if m.activePane == paneRecords {
		if len(m.records) == 0 {
			return m, nil
		}
		r := m.records[m.leftCursor]
		m.detailRecord, m.detailGroup = &r, nil
	} else {
		if len(m.groups) == 0 {
			return m, nil
		}
		g := m.groups[m.rightCursor]
		m.detailRecord, m.detailGroup = nil, &g
	}

	m.view = viewDetail
	m.showDescription = false
	m.detailViewport = viewport.New(m.width-4, m.height-4)
	m.detailViewport.SetContent(m.renderDetail())
	return m, nil
}

func (m *reviewModel) recalcLayout() {
	// 2 border chars per pane + 1 gap between panes.
	paneWidth := max((m.width-5)/2, 20)
	// Header + border top/bottom + status bar.
	paneHeight := max(m.height-4, 5)

	if !m.ready {
		m.leftViewport = viewport.New(paneWidth, paneHeight)
		m.rightViewport = viewport.New(paneWidth, paneHeight)
		m.ready = true
	} else {
		m.leftViewport.Width = paneWidth
		m.leftViewport.Height = paneHeight
		m.rightViewport.Width = paneWidth
		m.rightViewport.Height = paneHeight
	}
	m.recalcContent()
}

func (m *reviewModel) recalcContent() {
	m.leftViewport.SetContent(renderRecords(m.records, m.leftCursor, m.activePane == paneRecords))
	m.rightViewport.SetContent(renderGroups(m.groups, m.rightCursor, m.activePane == paneGroups))
}

func (m reviewModel) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.view == viewDetail {
		return m.viewDetail()
	}
	return m.viewList()
}

func (m reviewModel) viewList() string {
	paneWidth := m.leftViewport.Width

	leftHeader := fmt.Sprintf(" Recent postings (%d)", len(m.records))
	rightHeader := fmt.Sprintf(" Possible duplicates (%d)", len(m.groups))

	leftHeaderRendered := inactiveHeaderStyle.Render(leftHeader)
	rightHeaderRendered := inactiveHeaderStyle.Render(rightHeader)
	leftBorder := inactiveBorderStyle.Width(paneWidth)
	rightBorder := inactiveBorderStyle.Width(paneWidth)
	if m.activePane == paneRecords {
		leftHeaderRendered = activeHeaderStyle.Render(leftHeader)
		leftBorder = activeBorderStyle.Width(paneWidth)
	} else {
		rightHeaderRendered = activeHeaderStyle.Render(rightHeader)
		rightBorder = activeBorderStyle.Width(paneWidth)
	}

	headerRow := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(paneWidth+2).Render(leftHeaderRendered),
		" ",
		lipgloss.NewStyle().Width(paneWidth+2).Render(rightHeaderRendered),
	)
	panes := lipgloss.JoinHorizontal(lipgloss.Top,
		leftBorder.Render(m.leftViewport.View()), " ", rightBorder.Render(m.rightViewport.View()))

	statusText := fmt.Sprintf(" %d postings | %d soft-key groups    ←/→/Tab switch  ↑/↓ cursor  Enter detail  Esc back  q quit",
		len(m.records), len(m.groups))
	statusBar := statusBarStyle.Width(m.width).Render(statusText)

	return headerRow + "\n" + panes + "\n" + statusBar
}

func (m reviewModel) viewDetail() string {
	title := detailTitleStyle.Render("Posting")
	if m.detailGroup != nil {
		title = detailTitleStyle.Render("Possible duplicate group")
	}

	content := activeBorderStyle.Width(m.width - 2).Render(m.detailViewport.View())

	statusText := " o open URL  esc/backspace back  ↑/↓ scroll  q quit"
	if m.detailRecord != nil && m.detailRecord.Description != "" {
		statusText = " o open URL  r desc  esc/backspace back  ↑/↓ scroll  q quit"
	}
	statusBar := statusBarStyle.Width(m.width).Render(statusText)

	return title + "\n" + content + "\n" + statusBar
}

func (m reviewModel) renderDetail() string {
	var b strings.Builder
	addField := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(detailLabelStyle.Render(label))
		b.WriteString(detailValueStyle.Render(value))
		b.WriteByte('\n')
	}

	wrapWidth := max(m.width-8, 20)
	divider := func(label string) string {
		fill := strings.Repeat("─", max(wrapWidth-len(label), 3))
		return dividerStyle.Render(label + fill)
	}

	if g := m.detailGroup; g != nil {
		addField("Soft key", g.SoftKey)
		addField("Listings", fmt.Sprintf("%d", len(g.Records)))
		for i, r := range g.Records {
			b.WriteByte('\n')
			b.WriteString(divider(fmt.Sprintf("── %d. %s ", i+1, r.Source)) + "\n")
			addField("Title", r.Title)
			addField("Company", r.Company)
			addField("Location", r.Location)
			addField("Posted", r.PostedAt)
			addField("Fetched", r.FetchedAt.Format("2006-01-02 15:04 MST"))
			addField("URL", r.URL)
		}
		return b.String()
	}

	r := m.detailRecord
	if r == nil {
		return ""
	}
	addField("Title", r.Title)
	addField("Company", r.Company)
	addField("Location", r.Location)
	addField("Source", r.Source)
	b.WriteByte('\n')
	addField("Posted", r.PostedAt)
	addField("Fetched", r.FetchedAt.Format("2006-01-02 15:04 MST"))
	addField("Strong key", r.StrongKey)
	addField("Soft key", r.SoftKey)
	b.WriteByte('\n')
	addField("URL", r.URL)

	if r.Description != "" {
		b.WriteByte('\n')
		if m.showDescription {
			b.WriteString(divider("── Description ") + "\n\n")
			b.WriteString(descBodyStyle.Render(wordWrap(r.Description, wrapWidth)) + "\n")
		} else {
			b.WriteString(hintStyle.Render("  press r to read the description") + "\n")
		}
	}
	return b.String()
}

func renderItem(b *strings.Builder, title, subtitle string, selected bool) {
	titleSt, subtitleSt, prefix := itemTitleStyle, itemSubtitleStyle, "  "
	if selected {
		titleSt, subtitleSt, prefix = selectedTitleStyle, selectedSubtitleStyle, "> "
	}
	b.WriteString(prefix)
	b.WriteString(titleSt.Render(title))
	b.WriteByte('\n')
	b.WriteString(prefix)
	b.WriteString(subtitleSt.Render(subtitle))
	b.WriteByte('\n')
}

func renderRecords(records []store.Record, cursor int, isActive bool) string {
	if len(records) == 0 {
		return "  (no postings)"
	}
	var b strings.Builder
	for i, r := range records {
		posted := r.PostedAt
		if posted == "" {
			posted = "n/a"
		}
		renderItem(&b, r.Title, fmt.Sprintf("%s · %s · %s", r.Company, r.Source, posted), isActive && i == cursor)
		if i < len(records)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func renderGroups(groups []store.CandidateGroup, cursor int, isActive bool) string {
	if len(groups) == 0 {
		return "  (no soft-key groups)"
	}
	var b strings.Builder
	for i, g := range groups {
		title := g.SoftKey
		if len(g.Records) > 0 {
			title = g.Records[0].Title
		}
		sources := make([]string, 0, len(g.Records))
		for _, r := range g.Records {
			sources = append(sources, r.Source)
		}
		subtitle := fmt.Sprintf("%d listings · %s", len(g.Records), strings.Join(sources, ", "))
		renderItem(&b, title, subtitle, isActive && i == cursor)
		if i < len(groups)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// filterSnapshot keeps the records from source and the groups that include
// at least one of them. AllSources returns snap unchanged.
func filterSnapshot(snap Snapshot, source string) Snapshot {
	if source == AllSources {
		return snap
	}
	var out Snapshot
	for _, r := range snap.Records {
		if r.Source == source {
			out.Records = append(out.Records, r)
		}
	}
	for _, g := range snap.Groups {
		for _, r := range g.Records {
			if r.Source == source {
				out.Groups = append(out.Groups, g)
				break
			}
		}
	}
	return out
}

func wordWrap(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len(line)+1+len(w) <= width {
			line += " " + w
		} else {
			lines = append(lines, line)
			line = w
		}
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// openBrowser opens url in the default system browser, fire-and-forget.
func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return
	}
	_ = cmd.Start()
}

// RunReviewTUI launches the split-pane browser over snap filtered to source.
// It returns wantQuit=true if the user pressed q/ctrl+c, false if they
// pressed esc to return to the source picker.
func RunReviewTUI(snap Snapshot, source string) (bool, error) {
	m := newReviewModel(filterSnapshot(snap, source))
	result, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if err != nil {
		return false, err
	}
	return result.(reviewModel).wantQuit, nil
}
