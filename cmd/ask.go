package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/xhad/seerah/pkg/chat"
)

func newAskCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a single question and print the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openAssistant(cmd, false)
			if err != nil {
				return err
			}
			defer app.Close()
			a := app.assistant

			result := a.Answer(cmd.Context(), strings.Join(args, " "))

			if asJSON {
				data, err := json.MarshalIndent(result, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal answer: %w", err)
				}
				fmt.Println(string(data))
			} else if result.Failed() {
				color.Red("%s", chat.Render(result))
			} else {
				fmt.Println(chat.Render(result))
			}

			if result.Failed() {
				return fmt.Errorf("%w: %w", errReported, result.Err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "output the answer as JSON")
	return cmd
}
