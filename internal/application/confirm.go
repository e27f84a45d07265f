package application

import (
	tea "github.com/charmbracelet/bubbletea"
)

// confirmModel asks a single yes/no question. Anything but "y" declines.
type confirmModel struct {
	prompt    string
	answered  bool
	confirmed bool
}

func (c confirmModel) Init() tea.Cmd { return nil }

func (c confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return c, nil
	}
	switch key.String() {
	case "y", "Y":
		c.confirmed = true
	case "n", "N", "enter", "esc", "q", "ctrl+c":
	default:
		return c, nil
	}
	c.answered = true
	return c, tea.Quit
}

func (c confirmModel) View() string {
	if c.answered {
		return ""
	}
	return c.prompt + " [y/N] "
}

// Confirm shows prompt and reports whether the user answered yes.
func Confirm(prompt string, opts ...tea.ProgramOption) (bool, error) {
	final, err := tea.NewProgram(confirmModel{prompt: prompt}, opts...).Run()
	if err != nil {
		return false, err
	}
	return final.(confirmModel).confirmed, nil
}
