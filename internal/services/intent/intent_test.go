package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify_Greetings(t *testing.T) {
	tests := []struct {
		name    string
		message string
	}{
		{"plain hello", "hello"},
		{"capitalized", "Hello there"},
		{"hey with punctuation", "hey!"},
		{"good morning", "Good morning"},
		{"greeting wins over recommendation keywords", "Hi, suggest a stock"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.message)
			assert.Equal(t, Greeting, got.Kind)
		})
	}
}

func TestClassify_GreetingNeedsWordBoundary(t *testing.T) {
	// "hi" inside another word is not a greeting
	got := Classify("this company looks cheap")
	assert.NotEqual(t, Greeting, got.Kind)
}

func TestClassify_AnalysisCommand(t *testing.T) {
	tests := []struct {
		name       string
		message    string
		wantTicker string
	}{
		{"plain ticker", "!analyze AAPL", "AAPL"},
		{"company name", "!analyze Johnson & Johnson", "Johnson & Johnson"},
		{"surrounding whitespace", "  !analyze  MSFT  ", "MSFT"},
		{"case-insensitive prefix", "!Analyze nvda", "nvda"},
		{"empty argument", "!analyze", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.message)
			assert.Equal(t, AnalysisCommand, got.Kind)
			assert.Equal(t, tt.wantTicker, got.TickerText)
		})
	}
}

func TestClassify_CommandWinsOverKeywords(t *testing.T) {
	got := Classify("!analyze stock corp")
	assert.Equal(t, AnalysisCommand, got.Kind)
	assert.Equal(t, "stock corp", got.TickerText)
}

func TestClassify_RecommendationRequest(t *testing.T) {
	tests := []string{
		"recommend me something",
		"can you suggest a company",
		"what stock should I buy",
		"any stocks worth watching?",
	}

	for _, message := range tests {
		t.Run(message, func(t *testing.T) {
			got := Classify(message)
			assert.Equal(t, RecommendationRequest, got.Kind)
		})
	}
}

func TestClassify_Unrecognized(t *testing.T) {
	tests := []string{
		"",
		"what's the weather",
		"tell me a joke",
	}

	for _, message := range tests {
		t.Run("fallback", func(t *testing.T) {
			got := Classify(message)
			assert.Equal(t, Unrecognized, got.Kind)
		})
	}
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "greeting", Greeting.String())
	assert.Equal(t, "analysis_command", AnalysisCommand.String())
	assert.Equal(t, "recommendation_request", RecommendationRequest.String())
	assert.Equal(t, "unrecognized", Unrecognized.String())
}
