package main

import (
	"log"
	"os"

	"clawstep-server/routes"
	"clawstep-server/services"
	"clawstep-server/storage"
	"clawstep-server/utils"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

func main() {
	godotenv.Load()
	storage.InitializeDB()
	storage.InitializeRedis()
	storage.InitializeOSS()

	pushClient := utils.NewPushClient()
	routes.SetPushClient(pushClient)
	routes.AI = services.NewDoubaoClient()

	var pushSender services.PushSender
	if pushClient != nil {
		pushSender = pushClient
	}

	if err := services.NewSubscriptionService(storage.DB).SeedPlans(); err != nil {
		log.Println("plan seeding failed:", err)
	}
	if err := services.SeedCatalog(storage.DB); err != nil {
		log.Println("catalog seeding failed:", err)
	}

	notifications := services.NewNotificationService(storage.DB, pushSender)
	scheduler := services.StartScheduler(
		services.NewInvitationService(storage.DB, notifications),
		services.NewFriendshipService(storage.DB, notifications),
		services.NewLetterService(storage.DB, notifications),
	)
	defer scheduler.Stop()

	app := iris.New()
	app.Validator = validator.New()
	app.Use(iris.Compression)

	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	accessTokenVerifier.WithDefaultBlocklist()
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} {
		return new(utils.AccessToken)
	})

	refreshTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("REFRESH_TOKEN_SECRET")))
	refreshTokenVerifier.WithDefaultBlocklist()
	refreshTokenVerifierMiddleware := refreshTokenVerifier.Verify(func() interface{} {
		return new(jwt.Claims)
	})
	refreshTokenVerifier.Extractors = append(refreshTokenVerifier.Extractors, func(ctx iris.Context) string {
		var tokenInput utils.RefreshTokenInput
		err := ctx.ReadJSON(&tokenInput)
		if err != nil {
			return ""
		}
		return tokenInput.RefreshToken
	})

	authed := []iris.Handler{accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware}

	auth := app.Party("/api/auth")
	{
		auth.Post("/check-phone", routes.CheckPhone)
		auth.Post("/send-code", routes.SendCode)
		auth.Post("/code-login", routes.CodeLogin)
		auth.Post("/one-click", routes.OneClickLogin)
		auth.Post("/douyin", routes.DouyinLogin)
		auth.Post("/apple", routes.AppleLogin)
		auth.Post("/refresh", refreshTokenVerifierMiddleware, utils.RefreshToken)
	}

	user := app.Party("/api/user", authed...)
	{
		user.Get("/profile", routes.GetProfile)
		user.Patch("/profile", routes.UpdateProfile)
		user.Post("/onboarding/complete", routes.CompleteOnboarding)
		user.Patch("/pushtoken", routes.AlterPushToken)
		user.Patch("/settings/notifications", routes.AllowsNotifications)
		user.Delete("/account", routes.DeleteAccount)
	}

	pets := app.Party("/api/pets", authed...)
	{
		pets.Get("/", routes.ListPets)
		pets.Get("/mine", routes.MyPets)
		pets.Get("/stats", routes.GetPetStats)
		pets.Get("/achievements", routes.GetAchievements)
		pets.Get("/dreams", routes.GetDreams)
		pets.Post("/switch", routes.SwitchPet)
		pets.Get("/{id:uint}", routes.GetPet)
	}

	cities := app.Party("/api/cities", authed...)
	{
		cities.Get("/", routes.ListCities)
		cities.Get("/continents", routes.ListContinents)
		cities.Get("/mine", routes.MyCities)
		cities.Post("/switch", routes.SwitchCity)
		cities.Get("/{id:uint}", routes.GetCity)
		cities.Post("/{id:uint}/unlock", routes.UnlockCity)
	}

	travel := app.Party("/api/travel", authed...)
	{
		travel.Get("/current", routes.GetCurrentTravel)
		travel.Post("/start", routes.StartTravel)
		travel.Post("/switch-to-dual", routes.SwitchToDual)
		travel.Get("/companions", routes.GetCurrentCompanions)
		travel.Post("/sync", routes.SyncSteps)
		travel.Get("/steps/today", routes.GetTodaySteps)
		travel.Get("/statistics", routes.GetTravelStatistics)
		travel.Get("/statistics/cities", routes.GetCityTravelStatistics)
		travel.Post("/invitation/generate", routes.GenerateInvitation)
		travel.Post("/invitation/validate", routes.ValidateInvitation)
		travel.Post("/invitation/accept", routes.AcceptInvitation)
		travel.Get("/partnerships", routes.GetPartnerships)
		travel.Delete("/partnerships/{id:uint}", routes.UnbindPartnership)
		travel.Post("/partnerships/cancel-unbind", routes.CancelUnbind)
	}

	friends := app.Party("/api/friends", authed...)
	{
		friends.Get("/", routes.ListFriends)
		friends.Post("/code", routes.GenerateFriendCode)
		friends.Post("/bind", routes.BindFriend)
		friends.Delete("/{id:uint}", routes.UnbindFriend)
		friends.Post("/cancel-unbind", routes.CancelFriendUnbind)
	}

	chat := app.Party("/api/chat", authed...)
	{
		chat.Post("/sessions", routes.CreateChatSession)
		chat.Get("/sessions", routes.ListChatSessions)
		chat.Get("/sessions/{id:uint}/messages", routes.GetChatMessages)
		chat.Post("/sessions/{id:uint}/messages", routes.SendChatMessage)
		chat.Post("/sessions/{id:uint}/end", routes.EndChatSession)
		chat.Delete("/sessions/{id:uint}", routes.DeleteChatSession)
	}

	letters := app.Party("/api/letters", authed...)
	{
		letters.Get("/", routes.ListLetters)
		letters.Get("/unread-count", routes.LetterUnreadCount)
		letters.Get("/{id:uint}", routes.GetLetter)
		letters.Post("/{id:uint}/read", routes.MarkLetterRead)
		letters.Post("/{id:uint}/history", routes.AddLetterHistoryItem)
	}

	notifs := app.Party("/api/notifications", authed...)
	{
		notifs.Get("/", routes.ListNotifications)
		notifs.Get("/unread-count", routes.NotificationUnreadCount)
		notifs.Post("/read-all", routes.MarkAllNotificationsRead)
		notifs.Post("/{id:uint}/read", routes.MarkNotificationRead)
	}

	subscription := app.Party("/api/subscription", authed...)
	{
		subscription.Get("/plans", routes.ListSubscriptionPlans)
		subscription.Get("/current", routes.GetCurrentSubscription)
		subscription.Post("/subscribe", routes.Subscribe)
		subscription.Post("/verify", routes.VerifySubscription)
		subscription.Post("/cancel", routes.CancelSubscription)
		subscription.Post("/restore", routes.RestoreSubscription)
		subscription.Get("/history", routes.SubscriptionHistory)
		subscription.Get("/stats", routes.SubscriptionStats)
	}

	coupons := app.Party("/api/coupons", authed...)
	{
		coupons.Post("/redeem", routes.RedeemCoupon)
		coupons.Get("/history", routes.CouponHistory)
	}

	app.Post("/api/feedback", append(authed, routes.CreateFeedback)...)
	app.Get("/api/feedback/mine", append(authed, routes.MyFeedback)...)
	app.Post("/api/upload", append(authed, routes.UploadFile)...)
	app.Get("/api/home", append(authed, routes.GetHomeSummary)...)
	app.Get("/api/agreement/user", routes.GetUserAgreement)
	app.Get("/api/agreement/privacy", routes.GetPrivacyPolicy)
	app.Get("/api/agreement/mobile-auth", routes.GetMobileAuthAgreement)

	port := os.Getenv("PORT")
	if port == "" {
		port = "4000"
	}
	log.Println("🚀 Server listening on :" + port)
	app.Listen(":" + port)
}
