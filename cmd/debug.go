package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/xhad/seerah/internal/models"
)

func newDebugCmd() *cobra.Command {
	var (
		showContent bool
		similar     int
	)

	cmd := &cobra.Command{
		Use:   "debug [question]",
		Short: "Show which passages a question retrieves",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openAssistant(cmd, false)
			if err != nil {
				return err
			}
			defer app.Close()
			a := app.assistant

			question := strings.Join(args, " ")

			var chunks []models.ScoredChunk
			if similar > 0 {
				chunks, err = a.Similar(cmd.Context(), question, similar)
			} else {
				chunks, err = a.Retrieve(cmd.Context(), question)
			}
			if err != nil {
				return err
			}

			color.Cyan("🔍 Debug info for: '%s'", question)
			fmt.Printf("Retrieved %d documents:\n", len(chunks))
			for i, c := range chunks {
				page := "unknown"
				if c.Page > 0 {
					page = fmt.Sprint(c.Page)
				}
				fmt.Printf("%s Page %s (score %.3f)\n", color.YellowString("Doc %d:", i+1), page, c.Score)
				if showContent {
					fmt.Println(color.HiBlackString("  %s", preview(c.Text, 200)))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showContent, "content", false, "show a preview of each passage")
	cmd.Flags().IntVar(&similar, "similar", 0, "plain similarity search for N passages instead of the retriever")
	return cmd
}

func preview(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
