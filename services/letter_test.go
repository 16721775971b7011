package services

import (
	"encoding/json"
	"testing"
	"time"

	"clawstep-server/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeHistoryPreservesExistingItems(t *testing.T) {
	now := time.Now()
	old := now.Add(-48 * time.Hour)

	existing := []models.LetterHistoryItem{
		{ID: "user-item-1", TemplateItemID: "t1", Title: "旧标题", Content: "旧内容", CreatedAt: old},
	}
	templateItems := []models.LetterHistoryItem{
		{TemplateItemID: "t1", Title: "新标题", Content: "新内容"},
		{TemplateItemID: "t2", Title: "第二篇", Content: "新的一篇"},
	}

	merged := mergeHistory(existing, templateItems, now)
	require.Len(t, merged, 2)

	// The already-delivered item keeps its id and createdAt but picks
	// up the template's current text.
	assert.Equal(t, "user-item-1", merged[0].ID)
	assert.Equal(t, old.Unix(), merged[0].CreatedAt.Unix())
	assert.Equal(t, "新标题", merged[0].Title)

	assert.NotEmpty(t, merged[1].ID)
	assert.Equal(t, "t2", merged[1].TemplateItemID)
	assert.Equal(t, now.Unix(), merged[1].CreatedAt.Unix())
}

func TestMergeHistoryFollowsTemplateOrder(t *testing.T) {
	now := time.Now()
	existing := []models.LetterHistoryItem{
		{ID: "b", TemplateItemID: "t2", CreatedAt: now},
		{ID: "a", TemplateItemID: "t1", CreatedAt: now},
	}
	templateItems := []models.LetterHistoryItem{
		{TemplateItemID: "t1"}, {TemplateItemID: "t2"},
	}

	merged := mergeHistory(existing, templateItems, now)
	require.Len(t, merged, 2)
	assert.Equal(t, "a", merged[0].ID)
	assert.Equal(t, "b", merged[1].ID)
}

func adoptActivePet(t *testing.T, svc *LetterService, userID uint) *models.Pet {
	t.Helper()
	pet := &models.Pet{Name: "团子", EnglishName: "Tuanzi"}
	require.NoError(t, svc.DB.Create(pet).Error)
	userPet := &models.UserPet{
		UserID:     userID,
		PetID:      pet.ID,
		IsActive:   true,
		SelectedAt: time.Now(),
	}
	require.NoError(t, svc.DB.Create(userPet).Error)
	return pet
}

func scheduledTemplate(t *testing.T, svc *LetterService, petID uint) *models.LetterTemplate {
	t.Helper()
	items, _ := json.Marshal([]models.LetterHistoryItem{
		{TemplateItemID: "t1", Title: "第一天", Content: "我们出发啦"},
	})
	past := time.Now().Add(-time.Hour)
	template := &models.LetterTemplate{
		PetID:        petID,
		Title:        "来自成都的信",
		Content:      "今天的太阳很好。",
		Sender:       "团子",
		HistoryItems: items,
		ScheduledAt:  &past,
		IsActive:     true,
	}
	require.NoError(t, svc.DB.Create(template).Error)
	return template
}

func TestScheduledLettersDeliverToActiveUsers(t *testing.T) {
	db := newTestDB(t)
	svc := NewLetterService(db, nil)

	active := createTestUser(t, db, "阿白")
	now := time.Now()
	require.NoError(t, db.Model(active).Update("last_active_at", now).Error)
	pet := adoptActivePet(t, svc, active.ID)

	dormant := createTestUser(t, db, "阿黑")
	stale := now.Add(-30 * 24 * time.Hour)
	require.NoError(t, db.Model(dormant).Update("last_active_at", stale).Error)
	adoptActivePet(t, svc, dormant.ID)

	// Recently active but never chose a pet; no letter for them.
	petless := createTestUser(t, db, "阿花")
	require.NoError(t, db.Model(petless).Update("last_active_at", now).Error)

	scheduledTemplate(t, svc, pet.ID)
	require.NoError(t, svc.HandleScheduledLetters())

	letters, err := svc.List(active.ID)
	require.NoError(t, err)
	require.Len(t, letters, 1)
	assert.Equal(t, "来自成都的信", letters[0].Title)
	assert.Equal(t, "我们出发啦", letters[0].PreviewText)
	assert.False(t, letters[0].IsRead)

	dormantLetters, err := svc.List(dormant.ID)
	require.NoError(t, err)
	assert.Empty(t, dormantLetters)

	petlessLetters, err := svc.List(petless.ID)
	require.NoError(t, err)
	assert.Empty(t, petlessLetters)

	// A second run refreshes instead of duplicating.
	require.NoError(t, svc.HandleScheduledLetters())
	letters, err = svc.List(active.ID)
	require.NoError(t, err)
	assert.Len(t, letters, 1)
}

func TestScheduledLettersScopedToActivePet(t *testing.T) {
	db := newTestDB(t)
	svc := NewLetterService(db, nil)

	user := createTestUser(t, db, "阿白")
	require.NoError(t, db.Model(user).Update("last_active_at", time.Now()).Error)
	pet := adoptActivePet(t, svc, user.ID)

	// A due template for some other pet must not reach this user.
	otherPet := &models.Pet{Name: "麻薯", EnglishName: "Mochi"}
	require.NoError(t, db.Create(otherPet).Error)
	scheduledTemplate(t, svc, otherPet.ID)

	require.NoError(t, svc.HandleScheduledLetters())
	letters, err := svc.List(user.ID)
	require.NoError(t, err)
	assert.Empty(t, letters)

	scheduledTemplate(t, svc, pet.ID)
	require.NoError(t, svc.HandleScheduledLetters())
	letters, err = svc.List(user.ID)
	require.NoError(t, err)
	assert.Len(t, letters, 1)
}

func TestLetterReadFlow(t *testing.T) {
	db := newTestDB(t)
	svc := NewLetterService(db, nil)
	user := createTestUser(t, db, "阿白")
	require.NoError(t, db.Model(user).Update("last_active_at", time.Now()).Error)
	pet := adoptActivePet(t, svc, user.ID)

	scheduledTemplate(t, svc, pet.ID)
	require.NoError(t, svc.HandleScheduledLetters())

	count, err := svc.UnreadCount(user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	letters, _ := svc.List(user.ID)
	require.NoError(t, svc.MarkRead(letters[0].ID, user.ID))

	count, err = svc.UnreadCount(user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)

	// Another user cannot read it.
	other := createTestUser(t, db, "阿黑")
	assert.ErrorIs(t, svc.MarkRead(letters[0].ID, other.ID), ErrLetterNotFound)
}

func TestAddHistoryItemUpdatesInPlace(t *testing.T) {
	db := newTestDB(t)
	svc := NewLetterService(db, nil)
	user := createTestUser(t, db, "阿白")
	require.NoError(t, db.Model(user).Update("last_active_at", time.Now()).Error)
	pet := adoptActivePet(t, svc, user.ID)

	scheduledTemplate(t, svc, pet.ID)
	require.NoError(t, svc.HandleScheduledLetters())
	letters, _ := svc.List(user.ID)

	original := decodeHistory(letters[0].History)
	require.Len(t, original, 1)

	letter, err := svc.AddHistoryItem(letters[0].ID, user.ID, "t1", "回信", "收到啦")
	require.NoError(t, err)

	// Replying twice to the same item rewrites it rather than stacking
	// up copies.
	letter, err = svc.AddHistoryItem(letters[0].ID, user.ID, "t1", "回信", "这次真的收到啦")
	require.NoError(t, err)

	items := decodeHistory(letter.History)
	require.Len(t, items, 1)
	assert.Equal(t, original[0].ID, items[0].ID)
	assert.Equal(t, original[0].CreatedAt.Unix(), items[0].CreatedAt.Unix())
	assert.Equal(t, "这次真的收到啦", items[0].Content)

	// Replying counts as reading.
	assert.True(t, letter.IsRead)
	var reloaded models.Letter
	require.NoError(t, db.First(&reloaded, letter.ID).Error)
	assert.True(t, reloaded.IsRead)
	assert.NotNil(t, reloaded.ReadAt)
}

func TestAddHistoryItemAppendsUnknownItem(t *testing.T) {
	db := newTestDB(t)
	svc := NewLetterService(db, nil)
	user := createTestUser(t, db, "阿白")
	require.NoError(t, db.Model(user).Update("last_active_at", time.Now()).Error)
	pet := adoptActivePet(t, svc, user.ID)

	scheduledTemplate(t, svc, pet.ID)
	require.NoError(t, svc.HandleScheduledLetters())
	letters, _ := svc.List(user.ID)

	letter, err := svc.AddHistoryItem(letters[0].ID, user.ID, "", "补记", "今天走了很多路")
	require.NoError(t, err)

	items := decodeHistory(letter.History)
	require.Len(t, items, 2)
	assert.Equal(t, "补记", items[1].Title)
	assert.NotEmpty(t, items[1].ID)
	assert.NotEmpty(t, items[1].TemplateItemID)
}
