package repository_test

import (
	"context"
	"sync"
	"testing"

	"emotion-character-demo/backend/internal/models"
	"emotion-character-demo/backend/internal/repository"
	"emotion-character-demo/backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageAppendUpdatesCounters(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	repos := repository.New(db, 30)

	genre := testutil.Genre(t, db, "healing")
	character := testutil.Character(t, db, "Luna", genre.ID)
	conv := testutil.Conversation(t, db, 7, character.ID, models.ConversationActive)

	count, err := repos.Messages.Append(ctx, &models.Message{ConversationID: conv.ID, Sender: models.SenderUser, Content: "hi"})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = repos.Messages.Append(ctx, &models.Message{ConversationID: conv.ID, Sender: models.SenderCharacter, Content: "hello"})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	reloaded, err := repos.Characters.GetByID(ctx, character.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.TotalConversations, "only user messages count toward the character")

	convReloaded, err := repos.Conversations.GetByID(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, convReloaded.MessageCount)
}

func TestMessageAppendUnknownConversation(t *testing.T) {
	db := testutil.NewDB(t)
	repos := repository.New(db, 30)

	_, err := repos.Messages.Append(context.Background(), &models.Message{ConversationID: 404, Sender: models.SenderUser, Content: "hi"})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRecentReturnsOldestFirst(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	repos := repository.New(db, 30)

	genre := testutil.Genre(t, db, "healing")
	character := testutil.Character(t, db, "Luna", genre.ID)
	conv := testutil.Conversation(t, db, 7, character.ID, models.ConversationActive)

	for _, content := range []string{"one", "two", "three", "four", "five"} {
		_, err := repos.Messages.Append(ctx, &models.Message{ConversationID: conv.ID, Sender: models.SenderUser, Content: content})
		require.NoError(t, err)
	}

	recent, err := repos.Messages.Recent(ctx, conv.ID, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "three", recent[0].Content)
	assert.Equal(t, "five", recent[2].Content)

	first, err := repos.Messages.FirstUserMessage(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "one", first.Content)
}

func TestGetOrCreateActiveReturnsExisting(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	repos := repository.New(db, 30)

	genre := testutil.Genre(t, db, "healing")
	character := testutil.Character(t, db, "Luna", genre.ID)

	first, created, err := repos.Conversations.GetOrCreateActive(ctx, 7, character.ID)
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := repos.Conversations.GetOrCreateActive(ctx, 7, character.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	require.NoError(t, repos.Conversations.End(ctx, first.ID))

	third, created, err := repos.Conversations.GetOrCreateActive(ctx, 7, character.ID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, third.ID)
}

func TestGetOrCreateActiveConcurrent(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	repos := repository.New(db, 30)

	genre := testutil.Genre(t, db, "healing")
	character := testutil.Character(t, db, "Luna", genre.ID)

	var wg sync.WaitGroup
	ids := make([]uint, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conv, _, err := repos.Conversations.GetOrCreateActive(ctx, 7, character.ID)
			if assert.NoError(t, err) {
				ids[i] = conv.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}

	var active int64
	require.NoError(t, db.Model(&models.Conversation{}).
		Where("user_id = ? AND character_id = ? AND status = ?", 7, character.ID, models.ConversationActive).
		Count(&active).Error)
	assert.Equal(t, int64(1), active)
}

func TestCreditDebitNeverNegative(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	repos := repository.New(db, 2)

	credit, err := repos.Credits.GetOrCreate(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, 2, credit.FreeCredits)

	remaining, err := repos.Credits.Debit(ctx, 9, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)

	remaining, err = repos.Credits.Debit(ctx, 9, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)

	_, err = repos.Credits.Debit(ctx, 9, 1)
	assert.ErrorIs(t, err, repository.ErrInsufficientCredits)

	credit, err = repos.Credits.GetOrCreate(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, 0, credit.FreeCredits)

	balance, err := repos.Credits.Grant(ctx, 9, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, balance)
}

func TestRatingUpsertRecomputesAggregates(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	repos := repository.New(db, 30)

	genre := testutil.Genre(t, db, "healing")
	character := testutil.Character(t, db, "Luna", genre.ID)

	_, err := repos.Ratings.Upsert(ctx, &models.CharacterRating{UserID: 1, CharacterID: character.ID, Rating: 5})
	require.NoError(t, err)
	updated, err := repos.Ratings.Upsert(ctx, &models.CharacterRating{UserID: 2, CharacterID: character.ID, Rating: 2})
	require.NoError(t, err)
	assert.Equal(t, 7, updated.RatingSum)
	assert.Equal(t, 2, updated.RatingCount)

	// same user again replaces, never appends
	updated, err = repos.Ratings.Upsert(ctx, &models.CharacterRating{UserID: 2, CharacterID: character.ID, Rating: 4, Review: "better"})
	require.NoError(t, err)
	assert.Equal(t, 9, updated.RatingSum)
	assert.Equal(t, 2, updated.RatingCount)
	assert.Equal(t, 4.5, updated.AverageRating())

	_, err = repos.Ratings.Upsert(ctx, &models.CharacterRating{UserID: 3, CharacterID: character.ID, Rating: 6})
	assert.ErrorIs(t, err, repository.ErrInvalidRating)

	_, err = repos.Ratings.Upsert(ctx, &models.CharacterRating{UserID: 3, CharacterID: 999, Rating: 3})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestListListedFiltersAndSearches(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	repos := repository.New(db, 30)

	healing := testutil.Genre(t, db, "healing")
	action := testutil.Genre(t, db, "action")
	testutil.Character(t, db, "Luna", healing.ID, func(c *models.Character) { c.Tags = "moon, comfort" })
	testutil.Character(t, db, "Rex", action.ID)
	testutil.Character(t, db, "Hidden", healing.ID, func(c *models.Character) { c.Visibility = models.VisibilityPrivate })
	testutil.Character(t, db, "Pending", healing.ID, func(c *models.Character) { c.Status = models.CharacterPending })

	all, err := repos.Characters.ListListed(ctx, repository.CharacterFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byGenre, err := repos.Characters.ListListed(ctx, repository.CharacterFilter{GenreID: healing.ID})
	require.NoError(t, err)
	require.Len(t, byGenre, 1)
	assert.Equal(t, "Luna", byGenre[0].Name)

	byTag, err := repos.Characters.ListListed(ctx, repository.CharacterFilter{Query: "COMFORT"})
	require.NoError(t, err)
	require.Len(t, byTag, 1)
	assert.Equal(t, "Luna", byTag[0].Name)
}

func TestListListedSearchTreatsWildcardsLiterally(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	repos := repository.New(db, 30)

	healing := testutil.Genre(t, db, "healing")
	testutil.Character(t, db, "Luna", healing.ID)
	testutil.Character(t, db, "Snake_Eyes", healing.ID)
	testutil.Character(t, db, "Rex", healing.ID, func(c *models.Character) { c.Tags = "100% loyal" })

	underscore, err := repos.Characters.ListListed(ctx, repository.CharacterFilter{Query: "_"})
	require.NoError(t, err)
	require.Len(t, underscore, 1)
	assert.Equal(t, "Snake_Eyes", underscore[0].Name)

	percent, err := repos.Characters.ListListed(ctx, repository.CharacterFilter{Query: "%"})
	require.NoError(t, err)
	require.Len(t, percent, 1)
	assert.Equal(t, "Rex", percent[0].Name)

	backslash, err := repos.Characters.ListListed(ctx, repository.CharacterFilter{Query: `\`})
	require.NoError(t, err)
	assert.Empty(t, backslash)
}

func TestActiveGenreCounts(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	repos := repository.New(db, 30)

	healing := testutil.Genre(t, db, "healing")
	action := testutil.Genre(t, db, "action")
	luna := testutil.Character(t, db, "Luna", healing.ID)
	rex := testutil.Character(t, db, "Rex", action.ID)
	mira := testutil.Character(t, db, "Mira", healing.ID)

	testutil.Conversation(t, db, 7, luna.ID, models.ConversationActive)
	testutil.Conversation(t, db, 7, mira.ID, models.ConversationActive)
	testutil.Conversation(t, db, 7, rex.ID, models.ConversationEnded)
	testutil.Conversation(t, db, 8, rex.ID, models.ConversationActive)

	counts, err := repos.Conversations.ActiveGenreCounts(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, map[uint]int{healing.ID: 2}, counts)
}

func TestSaveEmotionEntryUpsertsPerDay(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	repos := repository.New(db, 30)

	sad := testutil.Emotion(t, db, "sad", nil)
	angry := testutil.Emotion(t, db, "angry", nil)
	healing := testutil.Genre(t, db, "healing")
	action := testutil.Genre(t, db, "action")

	entry := &models.UserEmotionEntry{UserID: 3, EmotionID: sad.ID, Date: "2026-10-01", Intensity: 4}
	created, err := repos.Emotions.SaveEntry(ctx, entry, []uint{healing.ID, action.ID})
	require.NoError(t, err)
	assert.True(t, created)

	again := &models.UserEmotionEntry{UserID: 3, EmotionID: angry.ID, Date: "2026-10-01", Intensity: 9}
	created, err = repos.Emotions.SaveEntry(ctx, again, []uint{action.ID})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, entry.ID, again.ID)

	_, err = repos.Emotions.SaveEntry(ctx, &models.UserEmotionEntry{UserID: 3, EmotionID: angry.ID, Date: "2026-09-30", Intensity: 5}, nil)
	require.NoError(t, err)

	entries, err := repos.Emotions.ListEntries(ctx, 3, 20, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "2026-10-01", entries[0].Date)
	assert.Equal(t, angry.ID, entries[0].EmotionID)
	require.Len(t, entries[0].SelectedGenres, 1)
	assert.Equal(t, action.ID, entries[0].SelectedGenres[0].ID)

	stats, err := repos.Emotions.EntryStats(ctx, 3, "2026-10")
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.ThisMonthCount)
	require.NotNil(t, stats.MostCommon)
	assert.Equal(t, "angry", stats.MostCommon.Name)
	assert.Equal(t, int64(2), stats.MostCommon.Count)
}
