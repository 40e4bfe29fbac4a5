package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"retailbot/internal/app"
	"retailbot/internal/tui"
)

func newChatCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Chat with the assistant in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := app.New(e.cfg, e.log)
			if err != nil {
				return err
			}
			defer a.Close()

			m := tui.New(cmd.Context(), a.Controller, e.cfg.Bot.Name)
			if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run(); err != nil {
				return fmt.Errorf("terminal chat: %w", err)
			}
			return nil
		},
	}
}
