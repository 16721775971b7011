package routes

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"clawstep-server/models"
	"clawstep-server/services"
	"clawstep-server/storage"
	"clawstep-server/utils"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
	"github.com/kataras/iris/v12"
	"gorm.io/gorm"
)

type CheckPhoneInput struct {
	Phone string `json:"phone" validate:"required"`
}

// POST /api/auth/check-phone — whether the phone already has an account.
func CheckPhone(ctx iris.Context) {
	var input CheckPhoneInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	if !utils.ValidatePhoneNumber(input.Phone) {
		utils.Fail(ctx, utils.CodeError, "手机号格式不正确")
		return
	}

	phone := utils.NormalizePhoneNumber(input.Phone)
	var count int64
	if err := storage.DB.Model(&models.User{}).Where("phone = ?", phone).Count(&count).Error; err != nil {
		utils.FailInternal(ctx)
		return
	}

	utils.Success(ctx, iris.Map{"registered": count > 0})
}

type SendCodeInput struct {
	Phone string `json:"phone" validate:"required"`
}

// POST /api/auth/send-code
func SendCode(ctx iris.Context) {
	var input SendCodeInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	if !utils.ValidatePhoneNumber(input.Phone) {
		utils.Fail(ctx, utils.CodeError, "手机号格式不正确")
		return
	}

	sms := services.NewSMSService(storage.Redis)
	if err := sms.SendCode(ctx.Request().Context(), utils.NormalizePhoneNumber(input.Phone)); err != nil {
		handleServiceError(ctx, err)
		return
	}

	utils.SuccessMsg(ctx, "验证码已发送", nil)
}

// loginOrSignUpByPhone finds or creates the account and returns the
// user with a fresh token pair.
func loginOrSignUpByPhone(ctx iris.Context, phone string) {
	var user models.User
	err := storage.DB.Where("phone = ?", phone).First(&user).Error
	isNew := false
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.User{Phone: phone, Nickname: "旅行家" + phone[len(phone)-4:]}
		if err := storage.DB.Create(&user).Error; err != nil {
			utils.FailInternal(ctx)
			return
		}
		isNew = true
	} else if err != nil {
		utils.FailInternal(ctx)
		return
	}

	now := time.Now()
	storage.DB.Model(&user).Update("last_active_at", now)

	tokenPair, err := utils.CreateTokenPair(user.ID)
	if err != nil {
		utils.FailInternal(ctx)
		return
	}

	utils.Success(ctx, iris.Map{
		"user":         user,
		"isNewUser":    isNew,
		"accessToken":  string(tokenPair.AccessToken),
		"refreshToken": string(tokenPair.RefreshToken),
	})
}

type CodeLoginInput struct {
	Phone string `json:"phone" validate:"required"`
	Code  string `json:"code" validate:"required,len=6"`
}

// POST /api/auth/code-login — phone + SMS code, signs up on first login.
func CodeLogin(ctx iris.Context) {
	var input CodeLoginInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	if !utils.ValidatePhoneNumber(input.Phone) {
		utils.Fail(ctx, utils.CodeError, "手机号格式不正确")
		return
	}

	phone := utils.NormalizePhoneNumber(input.Phone)
	sms := services.NewSMSService(storage.Redis)
	if err := sms.VerifyCode(ctx.Request().Context(), phone, input.Code); err != nil {
		handleServiceError(ctx, err)
		return
	}

	loginOrSignUpByPhone(ctx, phone)
}

type OneClickLoginInput struct {
	Token string `json:"token" validate:"required"`
}

// POST /api/auth/one-click — carrier number-verification login. The
// carrier exchange is stubbed: the token is treated as the verified
// phone number unless a real gateway is configured.
func OneClickLogin(ctx iris.Context) {
	var input OneClickLoginInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	phone := utils.NormalizePhoneNumber(input.Token)
	if !utils.ValidatePhoneNumber(phone) {
		utils.Fail(ctx, utils.CodeError, "一键登录校验失败")
		return
	}

	loginOrSignUpByPhone(ctx, phone)
}

type DouyinLoginInput struct {
	Code string `json:"code" validate:"required"`
}

// POST /api/auth/douyin — exchange a Douyin auth code for an openid and
// log in with it.
func DouyinLogin(ctx iris.Context) {
	var input DouyinLoginInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	openid, err := exchangeDouyinCode(input.Code)
	if err != nil {
		utils.Fail(ctx, utils.CodeError, "抖音登录失败")
		return
	}

	var user models.User
	dbErr := storage.DB.Where("openid = ?", openid).First(&user).Error
	isNew := false
	if errors.Is(dbErr, gorm.ErrRecordNotFound) {
		user = models.User{Openid: openid, Nickname: "抖音用户"}
		if err := storage.DB.Create(&user).Error; err != nil {
			utils.FailInternal(ctx)
			return
		}
		isNew = true
	} else if dbErr != nil {
		utils.FailInternal(ctx)
		return
	}

	storage.DB.Model(&user).Update("last_active_at", time.Now())

	tokenPair, err := utils.CreateTokenPair(user.ID)
	if err != nil {
		utils.FailInternal(ctx)
		return
	}

	utils.Success(ctx, iris.Map{
		"user":         user,
		"isNewUser":    isNew,
		"accessToken":  string(tokenPair.AccessToken),
		"refreshToken": string(tokenPair.RefreshToken),
	})
}

type AppleLoginInput struct {
	IdentityToken string `json:"identityToken" validate:"required"`
	Nickname      string `json:"nickname"`
}

// POST /api/auth/apple — verify the identity token against Apple's JWKS.
func AppleLogin(ctx iris.Context) {
	var input AppleLoginInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	res, httpErr := http.Get("https://appleid.apple.com/auth/keys")
	if httpErr != nil {
		utils.FailInternal(ctx)
		return
	}
	defer res.Body.Close()

	body, bodyErr := io.ReadAll(res.Body)
	if bodyErr != nil {
		utils.FailInternal(ctx)
		return
	}

	jwks, jwksErr := keyfunc.NewJSON(body)
	if jwksErr != nil {
		utils.FailInternal(ctx)
		return
	}

	// Keyfunc selects the key matching the token's kid automatically.
	token, tokenErr := jwt.Parse(input.IdentityToken, jwks.Keyfunc)
	if tokenErr != nil || !token.Valid {
		utils.Fail(ctx, 401, "Apple 登录凭证无效")
		return
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		utils.FailInternal(ctx)
		return
	}
	sub := fmt.Sprint(claims["sub"])
	email := ""
	if v, found := claims["email"]; found {
		email = fmt.Sprint(v)
	}

	var user models.User
	dbErr := storage.DB.Where("openid = ?", "apple:"+sub).First(&user).Error
	isNew := false
	if errors.Is(dbErr, gorm.ErrRecordNotFound) {
		nickname := input.Nickname
		if nickname == "" {
			nickname = "Apple用户"
		}
		user = models.User{Openid: "apple:" + sub, Email: email, Nickname: nickname}
		if err := storage.DB.Create(&user).Error; err != nil {
			utils.FailInternal(ctx)
			return
		}
		isNew = true
	} else if dbErr != nil {
		utils.FailInternal(ctx)
		return
	}

	storage.DB.Model(&user).Update("last_active_at", time.Now())

	tokenPair, err := utils.CreateTokenPair(user.ID)
	if err != nil {
		utils.FailInternal(ctx)
		return
	}

	utils.Success(ctx, iris.Map{
		"user":         user,
		"isNewUser":    isNew,
		"accessToken":  string(tokenPair.AccessToken),
		"refreshToken": string(tokenPair.RefreshToken),
	})
}

type douyinTokenResponse struct {
	Data struct {
		Openid      string `json:"openid"`
		ErrorCode   int    `json:"error_code"`
		Description string `json:"description"`
	} `json:"data"`
}

func exchangeDouyinCode(code string) (string, error) {
	u := fmt.Sprintf(
		"https://open.douyin.com/oauth/access_token/?client_key=%s&client_secret=%s&code=%s&grant_type=authorization_code",
		os.Getenv("DOUYIN_CLIENT_KEY"), os.Getenv("DOUYIN_CLIENT_SECRET"), code)

	res, err := http.Get(u)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	var parsed douyinTokenResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if parsed.Data.ErrorCode != 0 || parsed.Data.Openid == "" {
		return "", fmt.Errorf("douyin oauth error: %s", parsed.Data.Description)
	}
	return parsed.Data.Openid, nil
}
