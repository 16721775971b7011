package services

import (
	"context"
	"testing"

	"clawstep-server/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAI struct {
	reply string
	err   error
	seen  []AIMessage
}

func (s *stubAI) Complete(ctx context.Context, system string, messages []AIMessage) (string, error) {
	s.seen = messages
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func textMessage(content string) ChatMessageInput {
	return ChatMessageInput{Content: content}
}

func TestSendMessageRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ai := &stubAI{reply: "喵~今天也要加油鸭"}
	svc := NewChatService(db, ai)
	user := createTestUser(t, db, "阿白")

	session, err := svc.CreateSession(user.ID, 0)
	require.NoError(t, err)

	result, err := svc.SendMessage(context.Background(), session.ID, user.ID, textMessage("今天走了五千步！"))
	require.NoError(t, err)
	assert.Equal(t, models.ChatRoleUser, result.UserMessage.Role)
	assert.Equal(t, "喵~今天也要加油鸭", result.Reply.Content)

	messages, err := svc.GetMessages(session.ID, user.ID, 50)
	require.NoError(t, err)
	assert.Len(t, messages, 2)

	// The user's turn was in the model context.
	require.NotEmpty(t, ai.seen)
	assert.Equal(t, "今天走了五千步！", ai.seen[len(ai.seen)-1].Content)

	// Session title picks up the first message, and both turns count.
	var reloaded models.ChatSession
	require.NoError(t, db.First(&reloaded, session.ID).Error)
	assert.Equal(t, "今天走了五千步！", reloaded.Title)
	assert.NotNil(t, reloaded.LastMessageAt)
	assert.Equal(t, 2, reloaded.MessageCount)
}

func TestCreateSessionReusesPerPet(t *testing.T) {
	db := newTestDB(t)
	svc := NewChatService(db, &stubAI{reply: "ok"})
	user := createTestUser(t, db, "阿白")

	first, err := svc.CreateSession(user.ID, 7)
	require.NoError(t, err)

	again, err := svc.CreateSession(user.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	var count int64
	require.NoError(t, db.Model(&models.ChatSession{}).
		Where("user_id = ?", user.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestEndSessionStampsDurationAndReactivates(t *testing.T) {
	db := newTestDB(t)
	svc := NewChatService(db, &stubAI{reply: "ok"})
	user := createTestUser(t, db, "阿白")

	session, err := svc.CreateSession(user.ID, 7)
	require.NoError(t, err)
	assert.True(t, session.IsActive)

	ended, err := svc.EndSession(session.ID, user.ID)
	require.NoError(t, err)
	assert.False(t, ended.IsActive)
	require.NotNil(t, ended.EndedAt)
	assert.GreaterOrEqual(t, ended.DurationSeconds, 0)

	// Another user cannot end it.
	other := createTestUser(t, db, "阿黑")
	_, err = svc.EndSession(session.ID, other.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// Opening the same pet's chat again brings the session back.
	reopened, err := svc.CreateSession(user.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, session.ID, reopened.ID)
	assert.True(t, reopened.IsActive)
	assert.Nil(t, reopened.EndedAt)
}

func TestSendImageMessage(t *testing.T) {
	db := newTestDB(t)
	ai := &stubAI{reply: "哇，好漂亮的风景！"}
	svc := NewChatService(db, ai)
	user := createTestUser(t, db, "阿白")

	session, err := svc.CreateSession(user.ID, 0)
	require.NoError(t, err)

	result, err := svc.SendMessage(context.Background(), session.ID, user.ID, ChatMessageInput{
		MediaURL:  "https://cdn.example.com/uploads/pic.jpg",
		MediaType: models.ChatMediaImage,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ChatMediaImage, result.UserMessage.MediaType)
	assert.Equal(t, "https://cdn.example.com/uploads/pic.jpg", result.UserMessage.MediaURL)

	// The model sees a textual placeholder for the attachment.
	require.NotEmpty(t, ai.seen)
	assert.Equal(t, "[主人发来了一张照片]", ai.seen[len(ai.seen)-1].Content)
}

func TestSendMessageKeepsUserTurnOnModelFailure(t *testing.T) {
	db := newTestDB(t)
	ai := &stubAI{err: assert.AnError}
	svc := NewChatService(db, ai)
	user := createTestUser(t, db, "阿白")

	session, err := svc.CreateSession(user.ID, 0)
	require.NoError(t, err)

	_, err = svc.SendMessage(context.Background(), session.ID, user.ID, textMessage("在吗"))
	assert.ErrorIs(t, err, ErrAIUnavailable)

	messages, err := svc.GetMessages(session.ID, user.ID, 50)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, models.ChatRoleUser, messages[0].Role)
}

func TestSessionOwnership(t *testing.T) {
	db := newTestDB(t)
	svc := NewChatService(db, &stubAI{reply: "ok"})
	owner := createTestUser(t, db, "阿白")
	intruder := createTestUser(t, db, "阿黑")

	session, err := svc.CreateSession(owner.ID, 0)
	require.NoError(t, err)

	_, err = svc.SendMessage(context.Background(), session.ID, intruder.ID, textMessage("hello"))
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.ErrorIs(t, svc.DeleteSession(session.ID, intruder.ID), ErrSessionNotFound)
	require.NoError(t, svc.DeleteSession(session.ID, owner.ID))

	sessions, err := svc.ListSessions(owner.ID)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestSendMessageRejectsEmpty(t *testing.T) {
	db := newTestDB(t)
	svc := NewChatService(db, &stubAI{reply: "ok"})
	user := createTestUser(t, db, "阿白")

	session, err := svc.CreateSession(user.ID, 0)
	require.NoError(t, err)

	_, err = svc.SendMessage(context.Background(), session.ID, user.ID, textMessage("   "))
	assert.ErrorIs(t, err, ErrEmptyMessage)
}
