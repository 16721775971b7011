package routes

import (
	"clawstep-server/services"
	"clawstep-server/storage"
	"clawstep-server/utils"

	"github.com/kataras/iris/v12"
)

func subscriptionService() *services.SubscriptionService {
	return services.NewSubscriptionService(storage.DB)
}

// GET /api/subscription/plans
func ListSubscriptionPlans(ctx iris.Context) {
	plans, err := subscriptionService().ListPlans()
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.Success(ctx, plans)
}

// GET /api/subscription/current
func GetCurrentSubscription(ctx iris.Context) {
	sub, err := subscriptionService().GetCurrent(utils.CurrentUserID(ctx))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.Success(ctx, sub)
}

// POST /api/subscription/subscribe
func Subscribe(ctx iris.Context) {
	var input services.SubscribeInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	sub, err := subscriptionService().Subscribe(utils.CurrentUserID(ctx), input)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.Success(ctx, sub)
}

type VerifyReceiptInput struct {
	PlanID        uint   `json:"planID" validate:"required"`
	TransactionID string `json:"transactionID" validate:"required"`
}

// POST /api/subscription/verify
func VerifySubscription(ctx iris.Context) {
	var input VerifyReceiptInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	sub, err := subscriptionService().VerifyReceipt(utils.CurrentUserID(ctx), input.PlanID, input.TransactionID)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.Success(ctx, sub)
}

// POST /api/subscription/cancel
func CancelSubscription(ctx iris.Context) {
	if err := subscriptionService().Cancel(utils.CurrentUserID(ctx)); err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.SuccessMsg(ctx, "订阅已取消，会员权益保留至到期", nil)
}

// POST /api/subscription/restore
func RestoreSubscription(ctx iris.Context) {
	sub, err := subscriptionService().Restore(utils.CurrentUserID(ctx))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.Success(ctx, sub)
}

// GET /api/subscription/history
func SubscriptionHistory(ctx iris.Context) {
	history, err := subscriptionService().History(utils.CurrentUserID(ctx))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.Success(ctx, history)
}

// GET /api/subscription/stats
func SubscriptionStats(ctx iris.Context) {
	stats, err := subscriptionService().Stats(utils.CurrentUserID(ctx))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.Success(ctx, stats)
}
