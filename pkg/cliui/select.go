// Copyright (c) 2025 Broadcom. All Rights Reserved.
// Broadcom Confidential. The term "Broadcom" refers to Broadcom Inc.
// and/or its subsidiaries.

package cliui

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	defaultWidth = 20
	listHeight   = 14
)

var (
	titleStyle      = lipgloss.NewStyle().MarginLeft(2)
	paginationStyle = list.DefaultStyles().PaginationStyle.PaddingLeft(4)
	helpStyle       = list.DefaultStyles().HelpStyle.PaddingLeft(4).PaddingBottom(1)
)

// ErrCancelled is returned when the user quits a menu or prompt.
var ErrCancelled = errors.New("user cancelled")

func newSelectModel(title string, options []string) *menu {
	items := make([]list.Item, 0, len(options))
	for _, option := range options {
		items = append(items, item(option))
	}

	l := list.New(items, itemDelegate{}, defaultWidth, listHeight)
	l.Title = title
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = titleStyle
	l.Styles.PaginationStyle = paginationStyle
	l.Styles.HelpStyle = helpStyle
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{quickPickKey}
	}

	return &menu{
		list:  l,
		index: -1,
	}
}

// Select displays an interactive command-line menu with a given title
// and a list of options, allowing the user to choose one of them.
//
// Returns the zero-based index and the value of the chosen option, or
// ErrCancelled when the user quits with ctrl+c, esc or q. Digits 1-9 pick
// the matching entry without moving the cursor.
//
// Example usage:
//
//	idx, choice, err := cliui.Select("Select the target server:", []string{"web-1", "web-2"})
//	if err != nil {
//	    fmt.Println("Selection canceled or failed:", err)
//	    return
//	}
//	fmt.Printf("You selected option %d: %s\n", idx, choice)
func Select(title string, options []string) (int, string, error) {
	if len(options) == 0 {
		return -1, "", errors.New("no options provided")
	}

	m := newSelectModel(title, options)
	if _, err := tea.NewProgram(m).Run(); err != nil {
		return -1, "", fmt.Errorf("error selecting from CLI menu: %w", err)
	}

	if m.state != picked {
		return -1, "", ErrCancelled
	}

	return m.index, m.choice, nil
}
