package routes

import (
	"errors"

	"clawstep-server/services"
	"clawstep-server/utils"

	"github.com/kataras/iris/v12"
)

var pushClient *utils.PushClient

// SetPushClient installs the shared APNs client; main calls this once.
func SetPushClient(c *utils.PushClient) {
	pushClient = c
}

// pushSender returns nil (not a typed nil) when push is not configured
// so services can skip it safely.
func pushSender() services.PushSender {
	if pushClient == nil {
		return nil
	}
	return pushClient
}

// handleServiceError maps a ServiceError onto the response envelope and
// anything else onto the generic internal failure.
func handleServiceError(ctx iris.Context, err error) {
	var svcErr *services.ServiceError
	if errors.As(err, &svcErr) {
		ctx.JSON(iris.Map{"code": utils.CodeError, "message": svcErr.Message, "data": iris.Map{"errorCode": svcErr.Code}})
		return
	}
	utils.FailInternal(ctx)
}
