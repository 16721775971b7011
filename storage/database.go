package storage

import (
	"log"
	"os"

	"clawstep-server/models"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func connectToDB() *gorm.DB {
	// Only load .env in development (when RENDER env var is not set)
	if os.Getenv("RENDER") == "" {
		err := godotenv.Load()
		if err != nil {
			log.Println("Warning: Could not load .env file (this is normal in production)")
		}
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Panic("DB_CONNECTION_STRING environment variable is required")
	}

	db, dbError := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if dbError != nil {
		log.Panic("error connection to db: " + dbError.Error())
	}

	DB = db
	return db
}

func performMigrations(db *gorm.DB) {
	db.AutoMigrate(
		&models.User{},
		&models.Pet{},
		&models.UserPet{},
		&models.Continent{},
		&models.City{},
		&models.UserCity{},
		&models.Travel{},
		&models.TravelPartnership{},
		&models.StepRecord{},
		&models.Friendship{},
		&models.ChatSession{},
		&models.ChatMessage{},
		&models.LetterTemplate{},
		&models.Letter{},
		&models.Notification{},
		&models.SubscriptionPlan{},
		&models.ProSubscription{},
		&models.Coupon{},
		&models.UserCoupon{},
		&models.Feedback{},
		&models.Achievement{},
		&models.UserAchievement{},
		&models.Dream{},
	)
}

func InitializeDB() *gorm.DB {
	db := connectToDB()
	performMigrations(db)
	return db
}
