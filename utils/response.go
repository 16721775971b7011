package utils

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/kataras/iris/v12"
)

// All responses use one envelope and HTTP 200; clients branch on the body
// code, not the transport status.

const (
	CodeOK        = 200
	CodeError     = 400
	CodeForbidden = 403
	CodeNotFound  = 404
	CodeInternal  = 500
)

func Success(ctx iris.Context, data interface{}) {
	ctx.JSON(iris.Map{"code": CodeOK, "message": "success", "data": data})
}

func SuccessMsg(ctx iris.Context, message string, data interface{}) {
	ctx.JSON(iris.Map{"code": CodeOK, "message": message, "data": data})
}

func Fail(ctx iris.Context, code int, message string) {
	ctx.JSON(iris.Map{"code": code, "message": message, "data": nil})
}

func FailNotFound(ctx iris.Context) {
	Fail(ctx, CodeNotFound, "资源不存在")
}

func FailInternal(ctx iris.Context) {
	Fail(ctx, CodeInternal, "服务器内部错误")
}

func FailUnauthorized(ctx iris.Context) {
	Fail(ctx, 401, "未登录或登录已过期")
}

type validationError struct {
	ActualTag string `json:"tag"`
	Namespace string `json:"namespace"`
	Kind      string `json:"kind"`
	Type      string `json:"type"`
	Value     string `json:"value"`
	Param     string `json:"param"`
}

func wrapValidationErrors(errs validator.ValidationErrors) []validationError {
	validationErrors := make([]validationError, 0, len(errs))
	for _, validationErr := range errs {
		validationErrors = append(validationErrors, validationError{
			ActualTag: validationErr.ActualTag(),
			Namespace: validationErr.Namespace(),
			Kind:      validationErr.Kind().String(),
			Type:      validationErr.Type().String(),
			Value:     fmt.Sprintf("%v", validationErr.Value()),
			Param:     validationErr.Param(),
		})
	}
	return validationErrors
}

func HandleValidationErrors(err error, ctx iris.Context) {
	if errs, ok := err.(validator.ValidationErrors); ok {
		ctx.JSON(iris.Map{
			"code":    CodeError,
			"message": "参数校验失败",
			"data":    wrapValidationErrors(errs),
		})
		return
	}
	Fail(ctx, CodeError, "请求参数错误")
}
