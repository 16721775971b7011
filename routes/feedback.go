package routes

import (
	"encoding/json"

	"clawstep-server/models"
	"clawstep-server/storage"
	"clawstep-server/utils"

	"github.com/kataras/iris/v12"
)

type CreateFeedbackInput struct {
	Category string   `json:"category"`
	Content  string   `json:"content" validate:"required"`
	Images   []string `json:"images"`
	Contact  string   `json:"contact"`
}

// POST /api/feedback
func CreateFeedback(ctx iris.Context) {
	userID := utils.CurrentUserID(ctx)

	var input CreateFeedbackInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var images []byte
	if len(input.Images) > 0 {
		images, _ = json.Marshal(input.Images)
	}

	feedback := models.Feedback{
		UserID:   userID,
		Category: input.Category,
		Content:  input.Content,
		Images:   images,
		Contact:  input.Contact,
	}
	if err := storage.DB.Create(&feedback).Error; err != nil {
		utils.FailInternal(ctx)
		return
	}

	utils.SuccessMsg(ctx, "感谢你的反馈", feedback)
}

// GET /api/feedback/mine
func MyFeedback(ctx iris.Context) {
	userID := utils.CurrentUserID(ctx)

	var feedbacks []models.Feedback
	err := storage.DB.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&feedbacks).Error
	if err != nil {
		utils.FailInternal(ctx)
		return
	}
	utils.Success(ctx, feedbacks)
}
