package routes

import (
	"clawstep-server/services"
	"clawstep-server/storage"
	"clawstep-server/utils"

	"github.com/kataras/iris/v12"
)

func letterService() *services.LetterService {
	notifications := services.NewNotificationService(storage.DB, pushSender())
	return services.NewLetterService(storage.DB, notifications)
}

// GET /api/letters
func ListLetters(ctx iris.Context) {
	letters, err := letterService().List(utils.CurrentUserID(ctx))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.Success(ctx, letters)
}

// GET /api/letters/unread-count
func LetterUnreadCount(ctx iris.Context) {
	count, err := letterService().UnreadCount(utils.CurrentUserID(ctx))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.Success(ctx, iris.Map{"count": count})
}

// GET /api/letters/{id:uint}
func GetLetter(ctx iris.Context) {
	id, _ := ctx.Params().GetUint("id")

	letter, err := letterService().Get(id, utils.CurrentUserID(ctx))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.Success(ctx, letter)
}

// POST /api/letters/{id:uint}/read
func MarkLetterRead(ctx iris.Context) {
	id, _ := ctx.Params().GetUint("id")

	if err := letterService().MarkRead(id, utils.CurrentUserID(ctx)); err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.Success(ctx, nil)
}

type AddHistoryItemInput struct {
	TemplateItemID string `json:"templateItemId"`
	Title          string `json:"title"`
	Content        string `json:"content" validate:"required"`
}

// POST /api/letters/{id:uint}/history — reply to one history item;
// replies to an item the letter already carries update it in place.
func AddLetterHistoryItem(ctx iris.Context) {
	id, _ := ctx.Params().GetUint("id")

	var input AddHistoryItemInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	letter, err := letterService().AddHistoryItem(id, utils.CurrentUserID(ctx),
		input.TemplateItemID, input.Title, input.Content)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.Success(ctx, letter)
}
