package routes

import (
	"clawstep-server/storage"
	"clawstep-server/utils"

	"github.com/kataras/iris/v12"
)

const maxUploadSize = 10 << 20 // 10 MiB

// POST /api/upload — multipart image upload to object storage.
func UploadFile(ctx iris.Context) {
	ctx.SetMaxRequestBodySize(maxUploadSize)

	file, header, err := ctx.FormFile("file")
	if err != nil {
		utils.Fail(ctx, utils.CodeError, "请选择要上传的文件")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	switch contentType {
	case "image/jpeg", "image/png", "image/webp", "image/gif":
	default:
		utils.Fail(ctx, utils.CodeError, "仅支持上传图片")
		return
	}

	url, err := storage.UploadFile(ctx.Request().Context(), header.Filename, contentType, file)
	if err != nil {
		utils.Fail(ctx, utils.CodeError, "上传失败，请稍后再试")
		return
	}

	utils.Success(ctx, iris.Map{"url": url})
}
