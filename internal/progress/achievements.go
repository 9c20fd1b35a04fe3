package progress

import "github.com/lingua-prep/backend/internal/models"

// AchievementDef defines a single achievement.
type AchievementDef struct {
	Name        string
	Description string
	Coins       int64
}

// Achievements maps achievement keys to their definitions. Coin
// rewards are paid once, when the achievement is first earned.
var Achievements = map[string]AchievementDef{
	"first_lesson": {Name: "Prima Lectio", Description: "Complete your first lesson", Coins: 50},
	"lessons_50":   {Name: "Discipulus", Description: "Complete 50 lessons", Coins: 75},
	"lessons_250":  {Name: "Magister", Description: "Complete 250 lessons", Coins: 200},
	"streak_3":     {Name: "Getting Started", Description: "3-day streak", Coins: 10},
	"streak_7":     {Name: "Week Warrior", Description: "7-day streak", Coins: 25},
	"streak_14":    {Name: "Dedicated", Description: "14-day streak", Coins: 50},
	"streak_30":    {Name: "Monthly Master", Description: "30-day streak", Coins: 100},
	"streak_100":   {Name: "Centurion", Description: "100-day streak", Coins: 500},
	"words_100":    {Name: "Vocabulary Builder", Description: "Learn 100 words", Coins: 25},
	"words_1000":   {Name: "Lexicographer", Description: "Learn 1,000 words", Coins: 100},
	"words_5000":   {Name: "Walking Dictionary", Description: "Learn 5,000 words", Coins: 300},
	"xp_1000":      {Name: "Rising Star", Description: "Earn 1,000 total XP", Coins: 10},
	"xp_10000":     {Name: "Powerhouse", Description: "Earn 10,000 total XP", Coins: 50},
	"xp_50000":     {Name: "Legend", Description: "Earn 50,000 total XP", Coins: 200},
	"level_10":     {Name: "Scholar", Description: "Reach level 10", Coins: 50},
	"level_25":     {Name: "Philosopher", Description: "Reach level 25", Coins: 100},
	"level_50":     {Name: "Laureate", Description: "Reach level 50", Coins: 250},
}

// CheckAchievements returns the achievement keys the user currently
// qualifies for. The caller is responsible for filtering out ones
// already earned and paying coins only for new ones.
func CheckAchievements(p *models.UserProgress, level int) []string {
	var earned []string

	if p.LessonsCompleted >= 1 {
		earned = append(earned, "first_lesson")
	}
	if p.LessonsCompleted >= 50 {
		earned = append(earned, "lessons_50")
	}
	if p.LessonsCompleted >= 250 {
		earned = append(earned, "lessons_250")
	}

	if p.CurrentStreak >= 3 {
		earned = append(earned, "streak_3")
	}
	if p.CurrentStreak >= 7 {
		earned = append(earned, "streak_7")
	}
	if p.CurrentStreak >= 14 {
		earned = append(earned, "streak_14")
	}
	if p.CurrentStreak >= 30 {
		earned = append(earned, "streak_30")
	}
	if p.CurrentStreak >= 100 {
		earned = append(earned, "streak_100")
	}

	if p.WordsLearned >= 100 {
		earned = append(earned, "words_100")
	}
	if p.WordsLearned >= 1000 {
		earned = append(earned, "words_1000")
	}
	if p.WordsLearned >= 5000 {
		earned = append(earned, "words_5000")
	}

	if p.TotalXP >= 1000 {
		earned = append(earned, "xp_1000")
	}
	if p.TotalXP >= 10000 {
		earned = append(earned, "xp_10000")
	}
	if p.TotalXP >= 50000 {
		earned = append(earned, "xp_50000")
	}

	if level >= 10 {
		earned = append(earned, "level_10")
	}
	if level >= 25 {
		earned = append(earned, "level_25")
	}
	if level >= 50 {
		earned = append(earned, "level_50")
	}

	return earned
}
