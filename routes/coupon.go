package routes

import (
	"clawstep-server/services"
	"clawstep-server/storage"
	"clawstep-server/utils"

	"github.com/kataras/iris/v12"
)

type RedeemCouponInput struct {
	Code string `json:"code" validate:"required"`
}

// POST /api/coupons/redeem
func RedeemCoupon(ctx iris.Context) {
	var input RedeemCouponInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	result, err := services.NewCouponService(storage.DB).Redeem(utils.CurrentUserID(ctx), input.Code)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.SuccessMsg(ctx, "兑换成功", result)
}

// GET /api/coupons/history
func CouponHistory(ctx iris.Context) {
	history, err := services.NewCouponService(storage.DB).History(utils.CurrentUserID(ctx))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.Success(ctx, history)
}
