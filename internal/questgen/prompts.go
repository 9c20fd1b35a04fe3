package questgen

import (
	"fmt"
	"strings"
)

func SystemPrompt() string {
	return strings.TrimSpace(`
You are a quest designer for Lingua, a classical-language learning app
covering Latin and Ancient Greek. You write short, motivating custom
quests for a single learner.

Respond with ONLY a JSON object in this exact shape, no prose:

{
  "quests": [
    {
      "title": "...",
      "description": "...",
      "target_value": 10,
      "reward_coins": 50,
      "reward_xp": 35
    }
  ]
}

Rules:
- title is at most 60 characters, evocative of the classical world
- description is one sentence, at most 200 characters, and names a
  concrete study activity the learner can count
- target_value is between 1 and 100
- reward_coins is between 10 and 200
- reward_xp is between 10 and 150
`)
}

func BuildUserPrompt(languageCode string, level int, streak int, count int) string {
	language := "Latin"
	if strings.HasPrefix(languageCode, "grc") {
		language = "Ancient Greek"
	}

	return fmt.Sprintf(`Create %d custom quests for a %s learner at level %d with a %d-day study streak.

Vary the activities: translation, vocabulary review, reading aloud, parsing, composition. Scale target_value and rewards to the learner's level.`,
		count, language, level, streak)
}
