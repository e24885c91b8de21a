package main

import (
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/xhad/seerah/internal/logger"
	"github.com/xhad/seerah/internal/tui"
	"github.com/xhad/seerah/pkg/chat"
)

func newTUICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Chat about the biography in a full-screen terminal UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openAssistant(cmd, false)
			if err != nil {
				return err
			}
			defer app.Close()
			a := app.assistant

			// log lines would corrupt the alternate screen
			out := logger.Writer()
			logger.SetOutput(io.Discard)
			defer logger.SetOutput(out)

			model := tui.New(cmd.Context(), chat.NewSession(a))
			_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}
}
