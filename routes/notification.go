package routes

import (
	"clawstep-server/services"
	"clawstep-server/storage"
	"clawstep-server/utils"

	"github.com/kataras/iris/v12"
)

func notificationService() *services.NotificationService {
	return services.NewNotificationService(storage.DB, pushSender())
}

// GET /api/notifications
func ListNotifications(ctx iris.Context) {
	page := ctx.URLParamIntDefault("page", 1)
	pageSize := ctx.URLParamIntDefault("pageSize", 20)

	notifications, total, err := notificationService().List(utils.CurrentUserID(ctx), page, pageSize)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.Success(ctx, iris.Map{
		"items": notifications,
		"total": total,
		"page":  page,
	})
}

// GET /api/notifications/unread-count
func NotificationUnreadCount(ctx iris.Context) {
	count, err := notificationService().UnreadCount(utils.CurrentUserID(ctx))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.Success(ctx, iris.Map{"count": count})
}

// POST /api/notifications/{id:uint}/read
func MarkNotificationRead(ctx iris.Context) {
	id, _ := ctx.Params().GetUint("id")

	if err := notificationService().MarkRead(utils.CurrentUserID(ctx), id); err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.Success(ctx, nil)
}

// POST /api/notifications/read-all
func MarkAllNotificationsRead(ctx iris.Context) {
	if err := notificationService().MarkAllRead(utils.CurrentUserID(ctx)); err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.Success(ctx, nil)
}
