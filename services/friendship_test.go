package services

import (
	"testing"
	"time"

	"clawstep-server/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func createProUser(t *testing.T, db *gorm.DB, nickname string) *models.User {
	t.Helper()
	user := &models.User{Nickname: nickname, IsPro: true}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestFriendCodeRequiresPro(t *testing.T) {
	db := newTestDB(t)
	svc := NewFriendshipService(db, nil)
	free := createTestUser(t, db, "阿白")

	_, err := svc.GenerateFriendCode(free.ID)
	assert.ErrorIs(t, err, ErrProRequired)
}

func TestFriendCodeReuseAndExpiry(t *testing.T) {
	db := newTestDB(t)
	svc := NewFriendshipService(db, nil)
	user := createProUser(t, db, "阿白")

	first, err := svc.GenerateFriendCode(user.ID)
	require.NoError(t, err)
	assert.Len(t, first.Code, 8)

	second, err := svc.GenerateFriendCode(user.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Code, second.Code)

	// An expired code gets replaced.
	stale := time.Now().Add(-8 * 24 * time.Hour)
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", user.ID).
		Update("friend_code_created_at", stale).Error)

	third, err := svc.GenerateFriendCode(user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.Code, third.Code)
}

func TestBindFriend(t *testing.T) {
	db := newTestDB(t)
	svc := NewFriendshipService(db, nil)
	owner := createProUser(t, db, "阿白")
	binder := createProUser(t, db, "阿黑")

	code, err := svc.GenerateFriendCode(owner.ID)
	require.NoError(t, err)

	_, err = svc.BindFriend(binder.ID, "WRONG000")
	assert.ErrorIs(t, err, ErrInvalidCode)

	_, err = svc.BindFriend(owner.ID, code.Code)
	assert.ErrorIs(t, err, ErrSelfInvitation)

	friendship, err := svc.BindFriend(binder.ID, code.Code)
	require.NoError(t, err)
	assert.Equal(t, owner.ID, friendship.OtherParty(binder.ID))

	_, err = svc.BindFriend(binder.ID, code.Code)
	assert.ErrorIs(t, err, ErrAlreadyFriends)

	friends, err := svc.ListFriends(owner.ID)
	require.NoError(t, err)
	require.Len(t, friends, 1)
	assert.Equal(t, binder.ID, friends[0].Friend.ID)
}

func TestFriendshipUnbindSweep(t *testing.T) {
	db := newTestDB(t)
	svc := NewFriendshipService(db, nil)
	owner := createProUser(t, db, "阿白")
	binder := createProUser(t, db, "阿黑")

	code, err := svc.GenerateFriendCode(owner.ID)
	require.NoError(t, err)
	friendship, err := svc.BindFriend(binder.ID, code.Code)
	require.NoError(t, err)

	_, err = svc.RequestUnbind(friendship.ID, owner.ID)
	require.NoError(t, err)

	// Cancel within the window restores the bond.
	require.NoError(t, svc.CancelUnbind(friendship.ID, binder.ID))

	_, err = svc.RequestUnbind(friendship.ID, owner.ID)
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.Friendship{}).Where("id = ?", friendship.ID).
		Update("unbind_expires_at", time.Now().Add(-time.Minute)).Error)

	require.NoError(t, svc.HandleExpiredUnbindRequests())

	var count int64
	db.Model(&models.Friendship{}).Where("id = ?", friendship.ID).Count(&count)
	assert.EqualValues(t, 0, count)
}
