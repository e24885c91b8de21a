package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/xhad/seerah/pkg/loader"
)

func newIndexCmd() *cobra.Command {
	var (
		rebuild bool
		add     []string
	)

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build or inspect the vector index",
		Long: `Loads the persisted index, building it from the source document when it
is missing, unreadable or built with another embedding model. --rebuild
always re-ingests the source. --add appends further documents.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openAssistant(cmd, rebuild)
			if err != nil {
				return err
			}
			defer app.Close()
			a := app.assistant

			for _, source := range add {
				spinner := getSpinner(fmt.Sprintf("📄 Adding %s...", source))
				doc, err := loader.New().Load(cmd.Context(), source)
				if err == nil {
					var n int
					n, err = a.AddDocuments(cmd.Context(), doc)
					if err == nil {
						_ = spinner.Finish()
						color.Green("\n✓ Added %d chunks from %s", n, source)
						continue
					}
				}
				_ = spinner.Finish()
				return fmt.Errorf("failed to add %s: %w", source, err)
			}

			info := a.Info()
			color.Green("✓ Index ready")
			fmt.Printf("  backend:    %s (%s)\n", info.Backend, info.Location)
			fmt.Printf("  source:     %s\n", info.Source)
			fmt.Printf("  model:      %s\n", info.EmbeddingModel)
			fmt.Printf("  vectors:    %d\n", info.Chunks)
			fmt.Printf("  dimension:  %d\n", info.Dimension)
			return nil
		},
	}

	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "re-ingest the source document")
	cmd.Flags().StringArrayVar(&add, "add", nil, "add a document (file or URL) to the index")
	return cmd
}
