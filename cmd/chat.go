package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/xhad/seerah/internal/models"
	"github.com/xhad/seerah/pkg/chat"
	"github.com/xhad/seerah/pkg/citation"
)

const chatHelp = `Commands:
  /samples          list sample questions
  /ask N            ask sample question N
  /stats            show conversation stats
  /export FILE      save the conversation as markdown
  /reset            start a new conversation
  exit              quit`

func newChatCmd() *cobra.Command {
	var stream bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat about the biography in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openAssistant(cmd, false)
			if err != nil {
				return err
			}
			defer app.Close()
			a := app.assistant

			session := chat.NewSession(a)
			return runChat(cmd, session, stream)
		},
	}

	cmd.Flags().BoolVar(&stream, "stream", true, "stream answers as they are generated")
	return cmd
}

func runChat(cmd *cobra.Command, session *chat.Session, stream bool) error {
	color.Green("✅ Chatbot is ready!")
	color.Cyan("\n%s", chat.Welcome)
	fmt.Println(color.HiBlackString("\nType a question, /help for commands or 'exit' to quit"))

	scanner := bufio.NewScanner(os.Stdin)
	userPrompt := color.New(color.FgGreen).PrintfFunc()

	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case strings.EqualFold(line, "exit"), strings.EqualFold(line, "quit"):
			return nil
		case strings.HasPrefix(line, "/"):
			if err := chatCommand(cmd, session, line, stream); err != nil {
				color.Red("%v", err)
			}
			continue
		}

		askAndPrint(cmd, session, line, stream)
	}

	return scanner.Err()
}

func chatCommand(cmd *cobra.Command, session *chat.Session, line string, stream bool) error {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/help":
		fmt.Println(chatHelp)

	case "/samples":
		printSamples()

	case "/ask":
		if len(fields) != 2 {
			return fmt.Errorf("usage: /ask N")
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			return fmt.Errorf("invalid question number %q", fields[1])
		}
		question, err := session.QueuePreset(n - 1)
		if err != nil {
			return err
		}
		color.Green("You: %s", question)
		askAndPrint(cmd, session, question, stream)

	case "/stats":
		stats := session.Stats()
		color.Cyan("📊 Questions asked: %d  Responses given: %d", stats.Questions, stats.Responses)

	case "/export":
		if len(fields) != 2 {
			return fmt.Errorf("usage: /export FILE")
		}
		if err := os.WriteFile(fields[1], []byte(session.Export()), 0o644); err != nil {
			return fmt.Errorf("failed to export chat history: %w", err)
		}
		color.Green("✓ Saved conversation to %s", fields[1])

	case "/reset":
		session.Reset()
		color.Cyan("%s", chat.Welcome)

	default:
		return fmt.Errorf("unknown command %s (try /help)", fields[0])
	}
	return nil
}

// askAndPrint asks question, or the queued preset when one is pending,
// and prints the answer with its sources.
func askAndPrint(cmd *cobra.Command, session *chat.Session, question string, stream bool) {
	assistantPrompt := color.New(color.FgCyan).PrintfFunc()
	spinner := getSpinner("🔍 Searching through the biography...")

	var onDelta func(string)
	started := false
	if stream {
		onDelta = func(delta string) {
			if !started {
				_ = spinner.Finish()
				fmt.Print("\r")
				assistantPrompt("\nAssistant: ")
				started = true
			}
			assistantPrompt("%s", delta)
		}
	}

	var (
		reply  models.ChatMessage
		result models.AnswerResult
	)
	if session.Pending() != "" {
		reply, result, _ = session.ProcessPending(cmd.Context())
	} else {
		reply, result = session.AskStream(cmd.Context(), question, onDelta)
	}

	if !started {
		_ = spinner.Finish()
		fmt.Print("\r")
	}

	switch {
	case result.Failed():
		fmt.Println()
		color.Red("%s", reply.Content)
		return
	case started:
		fmt.Println()
		if len(result.Pages) > 0 {
			color.Yellow("\n%s", citation.Format(result.Pages))
		}
	default:
		assistantPrompt("\nAssistant: %s\n", reply.Content)
	}

	if suggestions := chat.Suggestions(result.Question); len(suggestions) > 0 {
		fmt.Println(color.HiBlackString("\n💡 You might also ask:"))
		for _, s := range suggestions {
			fmt.Println(color.HiBlackString("   • %s", s))
		}
	}
}

func printSamples() {
	color.Cyan("📝 Sample Questions")
	for i, q := range chat.SampleQuestions() {
		fmt.Printf("%2d. %s\n", i+1, q)
	}
}
