// Copyright (c) 2025 Broadcom. All Rights Reserved.
// Broadcom Confidential. The term "Broadcom" refers to Broadcom Inc.
// and/or its subsidiaries.

package cliui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type passwordModel struct {
	input     textinput.Model
	label     string
	submitted bool
	quitting  bool
}

func newPasswordModel(label string) *passwordModel {
	ti := textinput.New()
	ti.Prompt = label + ": "
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '•'
	ti.Focus()
	return &passwordModel{input: ti, label: label}
}

func (m *passwordModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *passwordModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEscape:
			m.quitting = true
			return m, tea.Quit
		case tea.KeyEnter:
			m.submitted = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *passwordModel) View() string {
	if m.submitted || m.quitting {
		return ""
	}
	return m.input.View() + "\n"
}

// Password reads a secret without echoing it.
func Password(label string) (string, error) {
	m := newPasswordModel(label)
	if _, err := tea.NewProgram(m).Run(); err != nil {
		return "", fmt.Errorf("error reading %s: %w", label, err)
	}
	if m.quitting {
		return "", ErrCancelled
	}
	return m.input.Value(), nil
}
