package routes

import (
	"clawstep-server/utils"

	"github.com/kataras/iris/v12"
)

// Static legal copy served to the app's settings screens.

const userAgreementContent = `欢迎使用爪步 ClawStep！

在使用本应用前，请仔细阅读本用户协议。使用本应用即表示你同意以下条款：

一、服务内容
本应用为你提供虚拟宠物陪伴、步数记录、城市旅行等服务。步数数据来源于你的设备健康数据，仅用于应用内的旅行进度计算。

二、账号
你通过手机号或第三方账号注册登录。请妥善保管你的账号，不要将验证码透露给他人。

三、会员服务
部分功能需要开通会员。会员费用、期限以购买页面展示为准，已支付的费用在服务期内不支持退款，法律另有规定的除外。

四、用户行为
不得利用本应用从事任何违法违规活动，不得伪造步数数据干扰正常服务。

五、协议变更
我们可能不时更新本协议，更新后会在应用内公示。`

const privacyPolicyContent = `爪步 ClawStep 隐私政策

我们非常重视你的个人信息保护。

一、我们收集的信息
- 手机号：用于注册登录；
- 设备步数：用于旅行进度与统计，仅在你授权后读取；
- 设备推送标识：用于向你发送旅行与信件通知，你可以随时在设置中关闭。

二、信息的使用
收集的信息仅用于提供和改进服务，我们不会向第三方出售你的个人信息。

三、信息的存储
你的数据存储在中国境内的服务器上，我们采取加密传输等措施保护数据安全。

四、你的权利
你可以在应用内查看、修改个人资料，也可以申请注销账号。注销后你的个人数据将被删除。

五、联系我们
如对本政策有任何疑问，请通过应用内的意见反馈联系我们。`

// GET /api/agreement/user
func GetUserAgreement(ctx iris.Context) {
	utils.Success(ctx, iris.Map{
		"title":   "用户协议",
		"content": userAgreementContent,
	})
}

// GET /api/agreement/privacy
func GetPrivacyPolicy(ctx iris.Context) {
	utils.Success(ctx, iris.Map{
		"title":   "隐私政策",
		"content": privacyPolicyContent,
	})
}

const mobileAuthContent = `一键登录服务协议

使用一键登录即表示你授权我们通过运营商取号服务获取你的本机号码，用于注册或登录账号。运营商仅向我们返回号码本身，不会返回你的其他个人信息。若取号失败，你仍可使用短信验证码登录。`

// GET /api/agreement/mobile-auth
func GetMobileAuthAgreement(ctx iris.Context) {
	utils.Success(ctx, iris.Map{
		"title":   "一键登录服务协议",
		"content": mobileAuthContent,
	})
}
