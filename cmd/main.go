package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/xhad/seerah/internal/logger"
	"github.com/xhad/seerah/pkg/assistant"
	"github.com/xhad/seerah/pkg/config"
)

var (
	cfgFile string
	verbose bool
)

// errReported marks errors already shown to the user.
var errReported = errors.New("reported")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errReported) {
			color.Red("Error: %v", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "seerah",
		Short: "Ask questions about the life of the Prophet Muhammad",
		Long: `seerah answers questions about the life of the Prophet Muhammad
(peace be upon him) from Martin Lings' biography. Answers are grounded in
passages retrieved from the book and cite the pages they came from.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.SetVerbose(verbose)
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(
		newChatCmd(),
		newTUICmd(),
		newServeCmd(),
		newAskCmd(),
		newIndexCmd(),
		newQuestionsCmd(),
		newDebugCmd(),
	)
	return root
}

// loadConfig reads and validates the configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, fmt.Errorf("invalid configuration:\n  %s", strings.Join(msgs, "\n  "))
	}
	return cfg, nil
}

// app is a loaded configuration and the assistant built from it.
type app struct {
	cfg       *config.Config
	provider  *assistant.Provider
	assistant *assistant.Assistant
}

func (a *app) Close() {
	a.provider.Close()
}

// openAssistant loads the configuration and builds the assistant with
// progress shown on the terminal.
func openAssistant(cmd *cobra.Command, rebuild bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	progress := newBuildProgress()
	provider := assistant.NewProvider(cfg, assistant.Options{
		OnStage: progress.stage,
		OnEmbed: progress.embed,
	})

	get := provider.Get
	if rebuild {
		get = provider.Rebuild
	}
	a, err := get(cmd.Context())
	progress.finish()
	if err != nil {
		color.Red("❌ Error initializing chatbot: %v", err)
		return nil, fmt.Errorf("%w: %w", errReported, err)
	}
	return &app{cfg: cfg, provider: provider, assistant: a}, nil
}
