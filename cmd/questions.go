package main

import "github.com/spf13/cobra"

func newQuestionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "questions",
		Short: "List the sample questions",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			printSamples()
		},
	}
}
