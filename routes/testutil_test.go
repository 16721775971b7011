package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"clawstep-server/models"
	"clawstep-server/storage"

	"github.com/glebarez/sqlite"
	"github.com/kataras/iris/v12"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestStorage points the package-level DB at an in-memory database
// so handlers can be exercised through the router.
func newTestStorage(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Pet{},
		&models.UserPet{},
		&models.Continent{},
		&models.City{},
		&models.UserCity{},
		&models.Travel{},
		&models.TravelPartnership{},
		&models.StepRecord{},
		&models.Dream{},
		&models.Notification{},
	))

	prev := storage.DB
	storage.DB = db
	t.Cleanup(func() { storage.DB = prev })
	return db
}

// asUser stands in for the token middleware and stamps a fixed user ID
// onto the request.
func asUser(id uint) iris.Handler {
	return func(ctx iris.Context) {
		ctx.Values().Set("userID", id)
		ctx.Next()
	}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func postJSON(t *testing.T, app *iris.Application, path, body string) *envelope {
	t.Helper()

	require.NoError(t, app.Build())

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	return &env
}
