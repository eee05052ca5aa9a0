// Copyright (c) 2025 Broadcom. All Rights Reserved.
// Broadcom Confidential. The term "Broadcom" refers to Broadcom Inc.
// and/or its subsidiaries.

package cliui

import (
	"strconv"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	quitTextStyle = lipgloss.NewStyle().Margin(1, 0, 1, 4)
	choiceStyle   = lipgloss.NewStyle().Bold(true)

	quickPickKey = key.NewBinding(
		key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"),
		key.WithHelp("1-9", "pick"),
	)
	cancelKey = key.NewBinding(
		key.WithKeys("ctrl+c", "esc", "q"),
		key.WithHelp("q/esc", "cancel"),
	)
)

// menuState is how far the operator got with a menu.
type menuState int

const (
	browsing menuState = iota
	picked
	cancelled
)

// menu is the bubbletea model behind Select. Entries are numbered and the
// first nine can be picked with their digit.
type menu struct {
	list   list.Model
	state  menuState
	index  int
	choice string
}

func (m *menu) Init() tea.Cmd {
	return nil
}

func (m *menu) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetWidth(msg.Width)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, cancelKey):
			m.state = cancelled
			return m, tea.Quit
		case msg.Type == tea.KeyEnter:
			return m, m.pick(m.list.Index())
		case key.Matches(msg, quickPickKey):
			n, _ := strconv.Atoi(msg.String())
			return m, m.pick(n - 1)
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// pick ends the menu on entry idx. Out of range digits are ignored.
func (m *menu) pick(idx int) tea.Cmd {
	items := m.list.Items()
	if idx < 0 || idx >= len(items) {
		return nil
	}
	i, ok := items[idx].(item)
	if !ok {
		return nil
	}
	m.state = picked
	m.index = idx
	m.choice = string(i)
	return tea.Quit
}

func (m *menu) View() string {
	switch m.state {
	case picked:
		return quitTextStyle.Render(m.list.Title + " " + choiceStyle.Render(m.choice))
	case cancelled:
		return quitTextStyle.Render("Selection cancelled.")
	}
	return "\n" + m.list.View()
}
