package services

import (
	"testing"

	"clawstep-server/models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestSocialSignupsWithoutPhoneDoNotCollide(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, db.Create(&models.User{Openid: "apple:a", Nickname: "阿苹"}).Error)
	require.NoError(t, db.Create(&models.User{Openid: "apple:b", Nickname: "阿果"}).Error)
	require.NoError(t, db.Create(&models.User{Openid: "douyin:c", Nickname: "阿抖"}).Error)
}

func TestPhoneStaysUniqueWhenSet(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, db.Create(&models.User{Phone: "13800138000"}).Error)
	err := db.Create(&models.User{Phone: "13800138000"}).Error
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}
