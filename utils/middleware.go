package utils

import (
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

// UserIDFromTokenMiddleware extracts user ID from JWT token and stores it in context
func UserIDFromTokenMiddleware(ctx iris.Context) {
	claims := jwt.Get(ctx).(*AccessToken)
	ctx.Values().Set("userID", claims.ID)
	ctx.Next()
}

// CurrentUserID reads the user ID stored by UserIDFromTokenMiddleware.
func CurrentUserID(ctx iris.Context) uint {
	id, _ := ctx.Values().Get("userID").(uint)
	return id
}
