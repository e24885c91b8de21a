package chat

import (
	"strings"

	"github.com/xhad/seerah/internal/models"
)

var sampleQuestions = []string{
	"Major events in Prophet Muhammad's life before Hijra in chronological order?",
	"Tell me about the Prophet's birth and early childhood",
	"What happened during the first revelation in the Cave of Hira?",
	"Who was Khadijah and what role did she play in the Prophet's life?",
	"Describe the persecution of early Muslims in Mecca",
	"What was the Year of Sorrow (Am al-Huzn)?",
	"Tell me about the Prophet's journey to Ta'if",
	"What was the Night Journey (Isra and Mi'raj)?",
	"Who was Abu Bakr and how did he support the Prophet?",
	"Describe the Pledge of Aqaba",
	"What led to the decision to migrate to Medina?",
	"How did the Prophet's character earn him the title 'Al-Amin'?",
	"Tell me about the Prophet's relationship with his uncle Abu Talib",
	"What was the boycott of Banu Hashim?",
	"Describe the reconstruction of the Ka'aba",
}

// SampleQuestions returns the fixed list of suggested questions.
func SampleQuestions() []string {
	return append([]string(nil), sampleQuestions...)
}

// keyword order decides which list wins when a question matches several
var suggestions = []struct {
	keyword   string
	questions []string
}{
	{"birth", []string{
		"Tell me about the Year of the Elephant",
		"Who was Abdul Muttalib?",
		"Describe the Prophet's early childhood",
	}},
	{"khadijah", []string{
		"How did the Prophet become a merchant?",
		"What was Khadijah's role in early Islam?",
		"Tell me about the Prophet's marriage",
	}},
	{"revelation", []string{
		"What was the Prophet's reaction to first revelation?",
		"Who was Waraqah ibn Nawfal?",
		"How did early Muslims respond to the message?",
	}},
	{"persecution", []string{
		"Tell me about the migration to Abyssinia",
		"What was the boycott of Banu Hashim?",
		"How did the Prophet deal with opposition?",
	}},
}

// Suggestions returns up to three follow-up questions related to question.
func Suggestions(question string) []string {
	q := strings.ToLower(question)
	for _, s := range suggestions {
		if strings.Contains(q, s.keyword) {
			return append([]string(nil), s.questions...)
		}
	}
	return nil
}

// Export renders messages as a markdown transcript.
func Export(messages []models.ChatMessage) string {
	if len(messages) == 0 {
		return "No chat history available."
	}

	var b strings.Builder
	b.WriteString("# Islamic History Chatbot - Chat History\n\n")
	for _, m := range messages {
		role := "👤 User"
		if m.Role == models.RoleAssistant {
			role = "🤖 Assistant"
		}
		b.WriteString("## " + role + "\n\n" + m.Content + "\n\n---\n\n")
	}
	return b.String()
}

// CleanText collapses runs of whitespace and doubled full stops.
func CleanText(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	text = strings.ReplaceAll(text, "..", ".")
	return strings.TrimSpace(text)
}
