package services

import (
	"encoding/json"
	"log"

	"clawstep-server/models"

	"gorm.io/gorm"
)

func jsonList(items ...string) []byte {
	raw, _ := json.Marshal(items)
	return raw
}

// SeedCatalog fills the pet and city catalogs on an empty database.
// Existing rows are left alone so ops can edit them freely.
func SeedCatalog(db *gorm.DB) error {
	var petCount int64
	if err := db.Model(&models.Pet{}).Count(&petCount).Error; err != nil {
		return err
	}
	if petCount == 0 {
		pets := []models.Pet{
			{
				Name:             "团子",
				EnglishName:      "Tuanzi",
				ShortDescription: "软乎乎的白猫，最爱晒太阳",
				PersonalityTags:  jsonList("温柔", "粘人", "贪睡"),
				ClassicLines:     jsonList("今天也想和你一起走很远的路~", "晒着太阳走路，最舒服啦"),
			},
			{
				Name:             "煤球",
				EnglishName:      "Meiqiu",
				ShortDescription: "精力旺盛的小黑狗",
				PersonalityTags:  jsonList("活泼", "勇敢", "话多"),
				ClassicLines:     jsonList("冲鸭！下一个城市等着我们！", "跑起来风都是甜的"),
			},
			{
				Name:             "阿灰",
				EnglishName:      "Ahui",
				ShortDescription: "高冷但嘴硬心软的灰兔",
				PersonalityTags:  jsonList("傲娇", "细心", "吃货"),
				ClassicLines:     jsonList("才、才不是特意陪你走的呢", "这座城市的胡萝卜好吃吗"),
			},
		}
		if err := db.Create(&pets).Error; err != nil {
			return err
		}
		log.Printf("seeded %d pets", len(pets))
	}

	var continentCount int64
	if err := db.Model(&models.Continent{}).Count(&continentCount).Error; err != nil {
		return err
	}
	if continentCount == 0 {
		continents := []models.Continent{
			{
				Name: "亚洲", EnglishName: "Asia", Order: 1, IsActive: true,
				Cities: []models.City{
					{Name: "成都", EnglishName: "Chengdu", Country: "中国", IsUnlocked: true},
					{Name: "东京", EnglishName: "Tokyo", Country: "日本", IsUnlocked: true},
					{Name: "新加坡", EnglishName: "Singapore", Country: "新加坡", IsUnlocked: true},
					{Name: "京都", EnglishName: "Kyoto", Country: "日本", UnlockCondition: "travel_ticket"},
				},
			},
			{
				Name: "欧洲", EnglishName: "Europe", Order: 2, IsActive: true,
				Cities: []models.City{
					{Name: "巴黎", EnglishName: "Paris", Country: "法国", IsUnlocked: true},
					{Name: "罗马", EnglishName: "Rome", Country: "意大利", IsUnlocked: true},
					{Name: "伦敦", EnglishName: "London", Country: "英国", UnlockCondition: "travel_ticket"},
				},
			},
			{
				Name: "北美洲", EnglishName: "North America", Order: 3, IsActive: true,
				Cities: []models.City{
					{Name: "温哥华", EnglishName: "Vancouver", Country: "加拿大", IsUnlocked: true},
				},
			},
		}
		if err := db.Create(&continents).Error; err != nil {
			return err
		}
		log.Printf("seeded %d continents", len(continents))
	}

	var achievementCount int64
	if err := db.Model(&models.Achievement{}).Count(&achievementCount).Error; err != nil {
		return err
	}
	if achievementCount == 0 {
		achievements := []models.Achievement{
			{Name: "第一步", Description: "累计步数达到 1 万步", Condition: AchievementConditionTotalSteps, Threshold: 10000},
			{Name: "暴走达人", Description: "累计步数达到 10 万步", Condition: AchievementConditionTotalSteps, Threshold: 100000},
			{Name: "环球旅者", Description: "累计步数达到 100 万步", Condition: AchievementConditionTotalSteps, Threshold: 1000000},
			{Name: "初来乍到", Description: "到访 1 座城市", Condition: AchievementConditionCitiesVisited, Threshold: 1},
			{Name: "城市收藏家", Description: "到访 5 座城市", Condition: AchievementConditionCitiesVisited, Threshold: 5},
			{Name: "完美旅程", Description: "完成 1 次完整旅行", Condition: AchievementConditionTravelsCompleted, Threshold: 1},
			{Name: "老练旅人", Description: "完成 10 次完整旅行", Condition: AchievementConditionTravelsCompleted, Threshold: 10},
			{Name: "结伴同行", Description: "和旅伴绑定成功", Condition: AchievementConditionPartnerBound, Threshold: 1},
		}
		if err := db.Create(&achievements).Error; err != nil {
			return err
		}
		log.Printf("seeded %d achievements", len(achievements))
	}

	return nil
}
