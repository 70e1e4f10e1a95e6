package service

import (
	"strings"
	"testing"

	"emotion-character-demo/backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestBuildCharacterPromptProfile(t *testing.T) {
	c := luna()
	c.Genre = &models.Genre{Name: "healing"}
	c.BackgroundStory = "Grew up by the sea"
	c.SpeakingStyle = "gentle"

	prompt := BuildCharacterPrompt(c, nil)

	assert.Contains(t, prompt, `You are "Luna"`)
	assert.Contains(t, prompt, "- Genre: healing")
	assert.Contains(t, prompt, "- Personality: warm, always ready to comfort a friend")
	assert.Contains(t, prompt, "- Background story: Grew up by the sea")
	assert.Contains(t, prompt, "- Speaking style: gentle")
	assert.Contains(t, prompt, "2-4 sentences")
	assert.Contains(t, prompt, "Never ask for personal information")
	assert.NotContains(t, prompt, "Recent conversation")
}

func TestBuildCharacterPromptHistoryWindow(t *testing.T) {
	c := luna()
	history := []models.Message{
		{Sender: models.SenderUser, Content: "first"},
		{Sender: models.SenderCharacter, Content: "second"},
		{Sender: models.SenderUser, Content: "third"},
		{Sender: models.SenderCharacter, Content: "fourth"},
	}

	prompt := BuildCharacterPrompt(c, history)

	assert.NotContains(t, prompt, "first")
	idx := strings.Index(prompt, "Recent conversation:\n")
	assert.GreaterOrEqual(t, idx, 0)
	assert.Equal(t, "Recent conversation:\nLuna: second\nUser: third\nLuna: fourth\n", prompt[idx:])

	// missing genre and fields fall back instead of failing
	assert.Contains(t, prompt, "- Genre: general")
	assert.Contains(t, prompt, "- Background story: (none)")
}

func TestBuildCharacterPromptDeterministic(t *testing.T) {
	c := luna()
	history := []models.Message{{Sender: models.SenderUser, Content: "hi"}}
	assert.Equal(t, BuildCharacterPrompt(c, history), BuildCharacterPrompt(c, history))
}

func TestDeriveTitle(t *testing.T) {
	assert.Equal(t, "short", DeriveTitle("  short "))
	assert.Equal(t, strings.Repeat("a", 30), DeriveTitle(strings.Repeat("a", 30)))
	assert.Equal(t, strings.Repeat("a", 30)+"...", DeriveTitle(strings.Repeat("a", 31)))
	assert.Equal(t, strings.Repeat("가", 30)+"...", DeriveTitle(strings.Repeat("가", 40)))
}
