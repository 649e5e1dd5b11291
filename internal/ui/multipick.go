package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// MultiPickItem is one entry in the interactive multi-select list.
type MultiPickItem struct {
	Label    string // primary text (e.g. token symbol and amount)
	SubLabel string // secondary text shown dimmed (e.g. spender address)
	Value    string // value returned on selection
	Danger   bool   // render the label in the warning color (e.g. unlimited)
}

// multiPickModel is the Bubble Tea model for the checkbox list.
type multiPickModel struct {
	title    string
	items    []MultiPickItem
	checked  map[int]bool
	cursor   int
	done     bool
	quitting bool
}

func (m multiPickModel) Init() tea.Cmd { return nil }

func (m multiPickModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.items)-1 {
				m.cursor++
			}
		case " ":
			m.checked[m.cursor] = !m.checked[m.cursor]
		case "a":
			all := len(m.checked) < len(m.items)
			for i := range m.items {
				if all {
					m.checked[i] = true
				} else {
					delete(m.checked, i)
				}
			}
		case "enter":
			m.done = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m multiPickModel) View() string {
	if m.quitting || m.done {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(StyleTitle.Render("  "+m.title) + "\n\n")

	for i, item := range m.items {
		box := "[ ]"
		if m.checked[i] {
			box = StyleSuccess.Render("[x]")
		}
		prefix := "    "
		if i == m.cursor {
			prefix = "  ▸ "
		}

		label := StyleValue.Render(item.Label)
		if item.Danger {
			label = StyleWarning.Render(item.Label)
		}
		line := prefix + box + " " + label
		if item.SubLabel != "" {
			line += "  " + StyleMeta.Render(item.SubLabel)
		}

		if i == m.cursor {
			sb.WriteString(StyleSelected.Render(line) + "\n")
		} else {
			sb.WriteString(line + "\n")
		}
	}

	sb.WriteString("\n")
	sb.WriteString(StyleMeta.Render(fmt.Sprintf("  %d selected", countChecked(m.checked))) + "\n")
	sb.WriteString(StyleMeta.Render("  [ ↑↓ / jk ] navigate   [ Space ] toggle   [ a ] all   [ Enter ] confirm   [ q ] cancel") + "\n")
	return sb.String()
}

func countChecked(checked map[int]bool) int {
	n := 0
	for _, v := range checked {
		if v {
			n++
		}
	}
	return n
}

// MultiPick runs an interactive checkbox list and returns the Values of the
// checked items in display order. Returns (nil, nil) if the user cancels.
func MultiPick(title string, items []MultiPickItem) ([]string, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("no items to pick from")
	}

	m := multiPickModel{title: title, items: items, checked: make(map[int]bool)}
	p := tea.NewProgram(m, tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("multi-select: %w", err)
	}

	fm := final.(multiPickModel)
	if fm.quitting || !fm.done {
		return nil, nil
	}
	var out []string
	for i, item := range fm.items {
		if fm.checked[i] {
			out = append(out, item.Value)
		}
	}
	return out, nil
}
