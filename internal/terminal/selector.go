package terminal

import (
	"fmt"
	"os"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// selectorState represents the current state of the selector UI.
type selectorState int

const (
	stateNormal selectorState = iota
	stateConfirmQuit
)

// Option is one selectable entry.
type Option struct {
	Label  string
	Detail string
}

// SelectorModel is the bubbletea model for picking project settings
// (language, target operating systems) when they are not given as flags.
// In single mode enter picks the highlighted option; in multi mode space
// toggles options and enter confirms the set.
type SelectorModel struct {
	title     string
	options   []Option
	multi     bool
	selected  map[int]bool
	cursor    int
	state     selectorState
	confirmed bool
	quitted   bool
}

// NewSelector creates a selector. preselected options start selected in
// multi mode; in single mode the first one places the cursor.
func NewSelector(title string, options []Option, multi bool, preselected ...int) SelectorModel {
	m := SelectorModel{
		title:    title,
		options:  options,
		multi:    multi,
		selected: make(map[int]bool, len(options)),
	}
	for _, i := range preselected {
		if i < 0 || i >= len(options) {
			continue
		}
		if multi {
			m.selected[i] = true
		} else if len(m.selected) == 0 {
			m.cursor = i
		}
	}
	return m
}

// Init implements tea.Model.
func (m SelectorModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m SelectorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	if key.String() == "ctrl+c" {
		m.quitted = true
		return m, tea.Quit
	}

	if m.state == stateConfirmQuit {
		if key.String() == "y" {
			m.quitted = true
			return m, tea.Quit
		}
		m.state = stateNormal
		return m, nil
	}

	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.options)-1 {
			m.cursor++
		}
	case " ":
		if m.multi && len(m.options) > 0 {
			m.selected[m.cursor] = !m.selected[m.cursor]
		}
	case "a":
		if m.multi {
			for i := range m.options {
				m.selected[i] = true
			}
		}
	case "n":
		if m.multi {
			clear(m.selected)
		}
	case "enter":
		if len(m.options) == 0 {
			m.quitted = true
			return m, tea.Quit
		}
		if !m.multi {
			clear(m.selected)
			m.selected[m.cursor] = true
		}
		m.confirmed = true
		return m, tea.Quit
	case "q", "esc":
		m.state = stateConfirmQuit
	}
	return m, nil
}

// View implements tea.Model.
func (m SelectorModel) View() string {
	if m.confirmed || m.quitted {
		return ""
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s%s%s\n\n", Color(Bold), m.title, Color(Reset))

	for i, opt := range m.options {
		cursor := "  "
		if i == m.cursor {
			cursor = Color(Cyan) + "> " + Color(Reset)
		}
		box := ""
		if m.multi {
			box = "[ ] "
			if m.selected[i] {
				box = "[" + Color(Green) + "x" + Color(Reset) + "] "
			}
		}
		sb.WriteString(cursor + box + opt.Label)
		if opt.Detail != "" {
			fmt.Fprintf(&sb, " %s%s%s", Color(Dim), opt.Detail, Color(Reset))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	switch {
	case m.state == stateConfirmQuit:
		sb.WriteString(Color(Yellow) + "Quit without choosing? (y/n)" + Color(Reset) + "\n")
	case m.multi:
		sb.WriteString(Color(Dim) + "↑/↓ move · space toggle · a all · n none · enter confirm · q quit" + Color(Reset) + "\n")
	default:
		sb.WriteString(Color(Dim) + "↑/↓ move · enter choose · q quit" + Color(Reset) + "\n")
	}
	return sb.String()
}

// SelectedIndices returns the indices of selected options in sorted order.
func (m SelectorModel) SelectedIndices() []int {
	indices := make([]int, 0, len(m.selected))
	for i, sel := range m.selected {
		if sel {
			indices = append(indices, i)
		}
	}
	sort.Ints(indices)
	return indices
}

// Confirmed returns true if the user confirmed the selection.
func (m SelectorModel) Confirmed() bool {
	return m.confirmed
}

// Quitted returns true if the user quit without confirming.
func (m SelectorModel) Quitted() bool {
	return m.quitted
}

// RunSelector shows the selector on stderr and returns the chosen indices.
// canceled is true when the user quit without confirming.
func RunSelector(title string, options []Option, multi bool, preselected ...int) (indices []int, canceled bool, err error) {
	p := tea.NewProgram(NewSelector(title, options, multi, preselected...), tea.WithOutput(os.Stderr))
	final, err := p.Run()
	if err != nil {
		return nil, false, fmt.Errorf("selector failed: %w", err)
	}
	m, ok := final.(SelectorModel)
	if !ok || !m.Confirmed() {
		return nil, true, nil
	}
	return m.SelectedIndices(), false, nil
}
