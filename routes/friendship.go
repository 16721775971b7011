package routes

import (
	"clawstep-server/services"
	"clawstep-server/storage"
	"clawstep-server/utils"

	"github.com/kataras/iris/v12"
)

func friendshipService() *services.FriendshipService {
	notifications := services.NewNotificationService(storage.DB, pushSender())
	return services.NewFriendshipService(storage.DB, notifications)
}

// POST /api/friends/code — generate or reuse the caller's friend code.
func GenerateFriendCode(ctx iris.Context) {
	result, err := friendshipService().GenerateFriendCode(utils.CurrentUserID(ctx))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.Success(ctx, result)
}

type BindFriendInput struct {
	Code string `json:"code" validate:"required"`
}

// POST /api/friends/bind
func BindFriend(ctx iris.Context) {
	var input BindFriendInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	friendship, err := friendshipService().BindFriend(utils.CurrentUserID(ctx), input.Code)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.Success(ctx, friendship)
}

// GET /api/friends
func ListFriends(ctx iris.Context) {
	friends, err := friendshipService().ListFriends(utils.CurrentUserID(ctx))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.Success(ctx, friends)
}

// DELETE /api/friends/{id:uint} — opens the 24h unbind window.
func UnbindFriend(ctx iris.Context) {
	id, _ := ctx.Params().GetUint("id")

	result, err := friendshipService().RequestUnbind(id, utils.CurrentUserID(ctx))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.Success(ctx, result)
}

type CancelFriendUnbindInput struct {
	FriendshipID uint `json:"friendshipID" validate:"required"`
}

// POST /api/friends/cancel-unbind
func CancelFriendUnbind(ctx iris.Context) {
	var input CancelFriendUnbindInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	if err := friendshipService().CancelUnbind(input.FriendshipID, utils.CurrentUserID(ctx)); err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.SuccessMsg(ctx, "解绑已撤销", nil)
}
