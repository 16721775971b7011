package routes

import (
	"errors"

	"clawstep-server/services"
	"clawstep-server/storage"
	"clawstep-server/utils"

	"github.com/kataras/iris/v12"
)

func travelService() *services.TravelService {
	notifications := services.NewNotificationService(storage.DB, pushSender())
	return services.NewTravelService(storage.DB, notifications)
}

func invitationService() *services.InvitationService {
	notifications := services.NewNotificationService(storage.DB, pushSender())
	return services.NewInvitationService(storage.DB, notifications)
}

// GET /api/travel/current
func GetCurrentTravel(ctx iris.Context) {
	travel, err := travelService().GetCurrentTravel(utils.CurrentUserID(ctx))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.Success(ctx, travel)
}

// POST /api/travel/start
func StartTravel(ctx iris.Context) {
	var input services.StartTravelInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	travel, err := travelService().StartTravel(utils.CurrentUserID(ctx), input)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.Success(ctx, travel)
}

type SwitchToDualInput struct {
	PartnerID     uint `json:"partnerID" validate:"required"`
	PartnershipID uint `json:"partnershipID" validate:"required"`
}

// POST /api/travel/switch-to-dual
func SwitchToDual(ctx iris.Context) {
	var input SwitchToDualInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	travel, err := travelService().SwitchToDual(utils.CurrentUserID(ctx), input.PartnerID, input.PartnershipID)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.Success(ctx, travel)
}

// GET /api/travel/companions
func GetCurrentCompanions(ctx iris.Context) {
	companions, err := travelService().GetCurrentCompanions(utils.CurrentUserID(ctx))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.Success(ctx, iris.Map{"companions": companions})
}

// POST /api/travel/sync
func SyncSteps(ctx iris.Context) {
	var input services.SyncStepsInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	result, err := travelService().SyncSteps(utils.CurrentUserID(ctx), input)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.Success(ctx, result)
}

// GET /api/travel/steps/today
func GetTodaySteps(ctx iris.Context) {
	record, err := travelService().GetTodaySteps(utils.CurrentUserID(ctx))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.Success(ctx, record)
}

// GET /api/travel/statistics
func GetTravelStatistics(ctx iris.Context) {
	stats, err := travelService().GetStatistics(utils.CurrentUserID(ctx))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.Success(ctx, stats)
}

// GET /api/travel/statistics/cities
func GetCityTravelStatistics(ctx iris.Context) {
	stats, err := travelService().GetCityStatistics(utils.CurrentUserID(ctx))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.Success(ctx, stats)
}

// POST /api/travel/invitation/generate
func GenerateInvitation(ctx iris.Context) {
	result, err := invitationService().GenerateInvitation(utils.CurrentUserID(ctx))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.Success(ctx, result)
}

type InvitationCodeInput struct {
	InvitationCode string `json:"invitationCode" validate:"required"`
}

// POST /api/travel/invitation/validate — a pre-accept check the client
// renders inline, so failures come back as a success-shaped payload
// rather than the error envelope.
func ValidateInvitation(ctx iris.Context) {
	var input InvitationCodeInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	inviter, err := invitationService().ValidateInvitation(input.InvitationCode, utils.CurrentUserID(ctx))
	if err != nil {
		var svcErr *services.ServiceError
		if errors.As(err, &svcErr) {
			utils.Success(ctx, iris.Map{
				"success": false,
				"error":   iris.Map{"code": svcErr.Code, "message": svcErr.Message},
			})
			return
		}
		utils.FailInternal(ctx)
		return
	}
	utils.Success(ctx, iris.Map{"success": true, "inviter": inviter})
}

// POST /api/travel/invitation/accept
func AcceptInvitation(ctx iris.Context) {
	var input InvitationCodeInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	result, err := invitationService().AcceptInvitation(input.InvitationCode, utils.CurrentUserID(ctx))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.Success(ctx, result)
}

// GET /api/travel/partnerships
func GetPartnerships(ctx iris.Context) {
	partnerships, err := invitationService().GetPartnerships(utils.CurrentUserID(ctx))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.Success(ctx, partnerships)
}

// DELETE /api/travel/partnerships/{id:uint} — opens the 24h unbind window.
func UnbindPartnership(ctx iris.Context) {
	id, _ := ctx.Params().GetUint("id")

	result, err := invitationService().UnbindPartnership(id, utils.CurrentUserID(ctx))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.Success(ctx, result)
}

type CancelUnbindInput struct {
	PartnershipID uint `json:"partnershipID" validate:"required"`
}

// POST /api/travel/partnerships/cancel-unbind
func CancelUnbind(ctx iris.Context) {
	var input CancelUnbindInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	if err := invitationService().CancelUnbind(input.PartnershipID, utils.CurrentUserID(ctx)); err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.SuccessMsg(ctx, "解绑已撤销", nil)
}
