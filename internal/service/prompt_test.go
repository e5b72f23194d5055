package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectSystemPrompt(t *testing.T) {
	tests := []struct {
		level    int
		wantName string
	}{
		{1, "Concise"},
		{2, "Detailed"},
		{3, "Elaborate"},
		{4, "Comprehensive"},
		// 缺失或越界等级回退到 Detailed
		{0, "Detailed"},
		{5, "Detailed"},
		{-1, "Detailed"},
		{100, "Detailed"},
	}

	for _, tt := range tests {
		prompt, name := SelectSystemPrompt(tt.level)
		assert.Equal(t, tt.wantName, name, "level %d", tt.level)
		assert.NotEmpty(t, prompt, "level %d", tt.level)
	}
}

func TestSelectSystemPromptMentionsMarker(t *testing.T) {
	// 每个等级的 system prompt 都要求模型使用最终答案标记
	for level := 1; level <= 4; level++ {
		prompt, _ := SelectSystemPrompt(level)
		assert.True(t, strings.Contains(prompt, "Final Answer:"), "level %d", level)
	}
}

func TestSplitFinalAnswer(t *testing.T) {
	tests := []struct {
		name          string
		raw           string
		wantReasoning string
		wantFinal     string
	}{
		{
			name:          "marker present",
			raw:           "First we simplify. Final Answer: x = 3",
			wantReasoning: "First we simplify.",
			wantFinal:     "x = 3",
		},
		{
			name:          "marker absent",
			raw:           "I am not sure about this one.",
			wantReasoning: "I am not sure about this one.",
			wantFinal:     "",
		},
		{
			name:          "marker first occurrence wins",
			raw:           "Final Answer: 7. Final Answer: 8",
			wantReasoning: "",
			wantFinal:     "7. Final Answer: 8",
		},
		{
			name:          "empty input",
			raw:           "",
			wantReasoning: "",
			wantFinal:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reasoning, final := SplitFinalAnswer(tt.raw)
			assert.Equal(t, tt.wantReasoning, reasoning)
			assert.Equal(t, tt.wantFinal, final)
		})
	}
}
