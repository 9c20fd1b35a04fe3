package questgen

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func validBatchJSON(count int) string {
	batch := GeneratedBatch{Quests: make([]GeneratedQuest, count)}
	for i := 0; i < count; i++ {
		batch.Quests[i] = GeneratedQuest{
			Title:       "Scribe of the Forum",
			Description: "Translate 12 sentences featuring the ablative absolute.",
			TargetValue: 12,
			RewardCoins: 60,
			RewardXP:    40,
		}
	}
	data, _ := json.Marshal(batch)
	return string(data)
}

func TestParseResponse_ValidJSON(t *testing.T) {
	batch, err := ParseResponse(validBatchJSON(2))
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(batch.Quests) != 2 {
		t.Errorf("expected 2 quests, got %d", len(batch.Quests))
	}
	for i, q := range batch.Quests {
		if q.TargetValue < 1 {
			t.Errorf("quest %d: bad target %d", i, q.TargetValue)
		}
	}
}

func TestParseResponse_CodeFences(t *testing.T) {
	input := "```json\n" + validBatchJSON(1) + "\n```"
	batch, err := ParseResponse(input)
	if err != nil {
		t.Fatalf("expected fenced JSON to parse, got: %v", err)
	}
	if len(batch.Quests) != 1 {
		t.Errorf("expected 1 quest, got %d", len(batch.Quests))
	}
}

func TestParseResponse_InvalidJSON(t *testing.T) {
	_, err := ParseResponse("not json at all")
	if err == nil {
		t.Fatal("expected an error for malformed JSON")
	}
}

func TestParseResponse_EmptyBatch(t *testing.T) {
	_, err := ParseResponse(`{"quests":[]}`)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got: %v", err)
	}
}

func TestParseResponse_OutOfRangeValues(t *testing.T) {
	cases := []GeneratedQuest{
		{Title: "Q", Description: "d", TargetValue: 0, RewardCoins: 50, RewardXP: 50},
		{Title: "Q", Description: "d", TargetValue: 101, RewardCoins: 50, RewardXP: 50},
		{Title: "Q", Description: "d", TargetValue: 10, RewardCoins: 5, RewardXP: 50},
		{Title: "Q", Description: "d", TargetValue: 10, RewardCoins: 50, RewardXP: 500},
		{Title: strings.Repeat("x", 61), Description: "d", TargetValue: 10, RewardCoins: 50, RewardXP: 50},
		{Title: "Q", Description: "", TargetValue: 10, RewardCoins: 50, RewardXP: 50},
	}
	for i, q := range cases {
		data, _ := json.Marshal(GeneratedBatch{Quests: []GeneratedQuest{q}})
		if _, err := ParseResponse(string(data)); err == nil {
			t.Errorf("case %d: expected validation failure", i)
		}
	}
}

func TestMockClient_ProducesParseableQuests(t *testing.T) {
	resp, err := NewMockClient().Generate(nil, SystemPrompt(), BuildUserPrompt("la", 3, 5, 2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	batch, err := ParseResponse(resp.Content)
	if err != nil {
		t.Fatalf("mock output must validate: %v", err)
	}
	if len(batch.Quests) == 0 {
		t.Error("expected mock quests")
	}
}
