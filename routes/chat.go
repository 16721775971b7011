package routes

import (
	"clawstep-server/services"
	"clawstep-server/storage"
	"clawstep-server/utils"

	"github.com/kataras/iris/v12"
)

// AI is the shared model client; main swaps it in at startup.
var AI services.AIClient

func chatService() *services.ChatService {
	return services.NewChatService(storage.DB, AI)
}

type CreateSessionInput struct {
	PetID uint `json:"petID"`
}

// POST /api/chat/sessions
func CreateChatSession(ctx iris.Context) {
	var input CreateSessionInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	session, err := chatService().CreateSession(utils.CurrentUserID(ctx), input.PetID)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.Success(ctx, session)
}

// GET /api/chat/sessions
func ListChatSessions(ctx iris.Context) {
	sessions, err := chatService().ListSessions(utils.CurrentUserID(ctx))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.Success(ctx, sessions)
}

// GET /api/chat/sessions/{id:uint}/messages
func GetChatMessages(ctx iris.Context) {
	id, _ := ctx.Params().GetUint("id")
	limit := ctx.URLParamIntDefault("limit", 50)

	messages, err := chatService().GetMessages(id, utils.CurrentUserID(ctx), limit)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.Success(ctx, messages)
}

// POST /api/chat/sessions/{id:uint}/messages — text, or an image/voice
// attachment with optional caption.
func SendChatMessage(ctx iris.Context) {
	id, _ := ctx.Params().GetUint("id")

	var input services.ChatMessageInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	result, err := chatService().SendMessage(ctx.Request().Context(), id, utils.CurrentUserID(ctx), input)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.Success(ctx, result)
}

// POST /api/chat/sessions/{id:uint}/end
func EndChatSession(ctx iris.Context) {
	id, _ := ctx.Params().GetUint("id")

	session, err := chatService().EndSession(id, utils.CurrentUserID(ctx))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.Success(ctx, session)
}

// DELETE /api/chat/sessions/{id:uint}
func DeleteChatSession(ctx iris.Context) {
	id, _ := ctx.Params().GetUint("id")

	if err := chatService().DeleteSession(id, utils.CurrentUserID(ctx)); err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.Success(ctx, nil)
}
