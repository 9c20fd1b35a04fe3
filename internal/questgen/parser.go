package questgen

import (
	"encoding/json"
	"fmt"
	"strings"
)

type GeneratedBatch struct {
	Quests []GeneratedQuest `json:"quests"`
}

type GeneratedQuest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	TargetValue int    `json:"target_value"`
	RewardCoins int64  `json:"reward_coins"`
	RewardXP    int64  `json:"reward_xp"`
}

type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Errors, "; "))
}

func ParseResponse(responseBody string) (*GeneratedBatch, error) {
	cleaned := stripCodeFences(responseBody)

	var batch GeneratedBatch
	if err := json.Unmarshal([]byte(cleaned), &batch); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	if err := validateBatch(&batch); err != nil {
		return nil, err
	}

	return &batch, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimSpace(s)
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSpace(s)
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSuffix(s, "```")
		s = strings.TrimSpace(s)
	}
	return s
}

func validateBatch(batch *GeneratedBatch) error {
	var errs []string

	if len(batch.Quests) == 0 {
		errs = append(errs, "no quests in response")
	}

	for i, q := range batch.Quests {
		if q.Title == "" {
			errs = append(errs, fmt.Sprintf("quest %d: missing title", i))
		}
		if len(q.Title) > 60 {
			errs = append(errs, fmt.Sprintf("quest %d: title exceeds 60 characters", i))
		}
		if q.Description == "" {
			errs = append(errs, fmt.Sprintf("quest %d: missing description", i))
		}
		if len(q.Description) > 200 {
			errs = append(errs, fmt.Sprintf("quest %d: description exceeds 200 characters", i))
		}
		if q.TargetValue < 1 || q.TargetValue > 100 {
			errs = append(errs, fmt.Sprintf("quest %d: target_value %d out of range [1,100]", i, q.TargetValue))
		}
		if q.RewardCoins < 10 || q.RewardCoins > 200 {
			errs = append(errs, fmt.Sprintf("quest %d: reward_coins %d out of range [10,200]", i, q.RewardCoins))
		}
		if q.RewardXP < 10 || q.RewardXP > 150 {
			errs = append(errs, fmt.Sprintf("quest %d: reward_xp %d out of range [10,150]", i, q.RewardXP))
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}
