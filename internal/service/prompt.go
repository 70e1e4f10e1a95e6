package service

import (
	"fmt"
	"strings"

	"emotion-character-demo/backend/internal/models"
)

// HistoryTurns is how many prior messages go into the prompt
const HistoryTurns = 3

const userSpeaker = "User"

// BuildCharacterPrompt assembles the system instruction for a character.
// history is oldest first; only its last HistoryTurns entries are used.
func BuildCharacterPrompt(c *models.Character, history []models.Message) string {
	genre := "general"
	if c.Genre != nil && c.Genre.Name != "" {
		genre = c.Genre.Name
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are %q, a character in a %s story.\n\n", c.Name, genre)

	b.WriteString("Character profile:\n")
	fmt.Fprintf(&b, "- Name: %s\n", c.Name)
	fmt.Fprintf(&b, "- Genre: %s\n", genre)
	fmt.Fprintf(&b, "- Personality: %s\n", orNone(c.Personality))
	fmt.Fprintf(&b, "- Background story: %s\n", orNone(c.BackgroundStory))
	fmt.Fprintf(&b, "- Speaking style: %s\n", orNone(c.SpeakingStyle))

	b.WriteString("\nInstructions:\n")
	b.WriteString("1. Always respond in character, using the personality and speaking style above.\n")
	fmt.Fprintf(&b, "2. Stay on topic and keep the mood of the %s genre.\n", genre)
	b.WriteString("3. Empathise with the user's feelings and respond naturally.\n")
	b.WriteString("4. Never ask for personal information.\n")
	b.WriteString("5. Keep replies to 2-4 sentences.\n")

	if len(history) > HistoryTurns {
		history = history[len(history)-HistoryTurns:]
	}
	if len(history) > 0 {
		b.WriteString("\nRecent conversation:\n")
		for _, m := range history {
			fmt.Fprintf(&b, "%s: %s\n", speakerLabel(m.Sender, c.Name), m.Content)
		}
	}

	return b.String()
}

func speakerLabel(sender models.Sender, characterName string) string {
	switch sender {
	case models.SenderUser:
		return userSpeaker
	case models.SenderCharacter:
		return characterName
	default:
		return "System"
	}
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none)"
	}
	return s
}

// DeriveTitle truncates the first user message to a conversation title
func DeriveTitle(first string) string {
	const maxTitle = 30

	first = strings.TrimSpace(first)
	runes := []rune(first)
	if len(runes) <= maxTitle {
		return first
	}
	return string(runes[:maxTitle]) + "..."
}
