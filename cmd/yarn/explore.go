package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dhamidi/yarn/parser"
)

const (
	exploreHeaderHeight = 2
	exploreFooterHeight = 3
)

type exploreRow struct {
	node  parser.Node
	depth int
}

type exploreStyles struct {
	title    lipgloss.Style
	cursor   lipgloss.Style
	kind     lipgloss.Style
	anon     lipgloss.Style
	position lipgloss.Style
	err      lipgloss.Style
	help     lipgloss.Style
}

func newExploreStyles(r *lipgloss.Renderer) exploreStyles {
	return exploreStyles{
		title:    r.NewStyle().Bold(true),
		cursor:   r.NewStyle().Reverse(true),
		kind:     r.NewStyle().Foreground(lipgloss.Color("4")),
		anon:     r.NewStyle().Foreground(lipgloss.Color("8")),
		position: r.NewStyle().Faint(true),
		err:      r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		help:     r.NewStyle().Faint(true),
	}
}

// exploreModel browses a syntax tree as an indented list of nodes.
type exploreModel struct {
	name      string
	tree      *parser.Tree
	rows      []exploreRow
	cursor    int
	showAnon  bool
	viewport  viewport.Model
	ready     bool
	width     int
	styles    exploreStyles
	errorRows int
}

func newExploreModel(name string, tree *parser.Tree, r *lipgloss.Renderer) exploreModel {
	m := exploreModel{name: name, tree: tree, styles: newExploreStyles(r)}
	m.buildRows()
	return m
}

func (m *exploreModel) buildRows() {
	var current parser.Node
	if m.cursor < len(m.rows) {
		current = m.rows[m.cursor].node
	}
	m.rows, m.errorRows = nil, 0
	var walk func(n parser.Node, depth int)
	walk = func(n parser.Node, depth int) {
		if !m.showAnon && !n.IsNamed() && !n.IsMissing() && !n.IsError() {
			return
		}
		if n.IsError() || n.IsMissing() {
			m.errorRows++
		}
		m.rows = append(m.rows, exploreRow{node: n, depth: depth})
		for _, c := range n.Children() {
			walk(c, depth+1)
		}
	}
	walk(m.tree.RootNode(), 0)

	m.cursor = 0
	if !current.IsZero() {
		m.cursor = m.rowOf(current)
	}
}

func (m exploreModel) Init() tea.Cmd {
	return nil
}

func (m exploreModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		height := max(1, msg.Height-exploreHeaderHeight-exploreFooterHeight)
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.viewport.YPosition = exploreHeaderHeight
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			m.cursor--
		case "down", "j":
			m.cursor++
		case "pgup", "b":
			m.cursor -= max(1, m.viewport.Height)
		case "pgdown", "f", " ":
			m.cursor += max(1, m.viewport.Height)
		case "home", "g":
			m.cursor = 0
		case "end", "G":
			m.cursor = len(m.rows) - 1
		case "p":
			if p := m.rows[m.cursor].node.Parent(); !p.IsZero() {
				m.cursor = m.rowOf(p)
			}
		case "e":
			m.cursor = m.nextError()
		case "a":
			m.showAnon = !m.showAnon
			m.buildRows()
		}
	}

	m.cursor = max(0, min(m.cursor, len(m.rows)-1))
	if m.ready {
		m.viewport.SetContent(m.renderRows())
		m.follow()
	}
	return m, nil
}

func (m exploreModel) rowOf(n parser.Node) int {
	for i, r := range m.rows {
		if r.node.StartByte() == n.StartByte() && r.node.EndByte() == n.EndByte() && r.node.Kind() == n.Kind() {
			return i
		}
	}
	return m.cursor
}

// nextError returns the next error row after the cursor, wrapping around.
func (m exploreModel) nextError() int {
	for i := 1; i <= len(m.rows); i++ {
		j := (m.cursor + i) % len(m.rows)
		if n := m.rows[j].node; n.IsError() || n.IsMissing() {
			return j
		}
	}
	return m.cursor
}

// follow scrolls the viewport so the cursor row is visible.
func (m *exploreModel) follow() {
	switch {
	case m.cursor < m.viewport.YOffset:
		m.viewport.SetYOffset(m.cursor)
	case m.cursor >= m.viewport.YOffset+m.viewport.Height:
		m.viewport.SetYOffset(m.cursor - m.viewport.Height + 1)
	}
}

func (m exploreModel) renderRows() string {
	lines := make([]string, len(m.rows))
	for i, r := range m.rows {
		line := strings.Repeat("  ", r.depth) + m.renderNode(r.node)
		if i == m.cursor {
			line = m.styles.cursor.Render(line)
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}

func (m exploreModel) renderNode(n parser.Node) string {
	pos := m.styles.position.Render(fmt.Sprintf(" %s-%s", n.StartPoint(), n.EndPoint()))
	switch {
	case n.IsError():
		return m.styles.err.Render("ERROR") + pos
	case n.IsMissing():
		return m.styles.err.Render("MISSING "+n.Kind()) + pos
	case !n.IsNamed():
		return m.styles.anon.Render(strconv.Quote(n.Kind())) + pos
	}
	return m.styles.kind.Render(n.Kind()) + pos
}

func (m exploreModel) View() string {
	if !m.ready {
		return "loading..."
	}
	var sb strings.Builder
	header := fmt.Sprintf("%s  %d nodes, %d errors", m.name, len(m.rows), m.errorRows)
	if m.tree.Incomplete() {
		header += ", incomplete"
	}
	sb.WriteString(m.styles.title.Render(header))
	sb.WriteString("\n\n")
	sb.WriteString(m.viewport.View())
	sb.WriteString("\n")
	sb.WriteString(m.status())
	sb.WriteString("\n")
	sb.WriteString(m.styles.help.Render("j/k move  p parent  e next error  a anonymous  g/G top/bottom  q quit"))
	return sb.String()
}

// status describes the node under the cursor.
func (m exploreModel) status() string {
	if len(m.rows) == 0 {
		return ""
	}
	n := m.rows[m.cursor].node
	if se := n.Error(); se != nil {
		return m.styles.err.Render(se.Error())
	}
	text := n.Text()
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i] + "…"
	}
	if limit := max(10, m.width-30); len(text) > limit {
		text = text[:limit] + "…"
	}
	return fmt.Sprintf("%s [%d, %d) %q", n.Kind(), n.StartByte(), n.EndByte(), text)
}
