package intent

import "strings"

// Kind is the classified intent of one user message
type Kind int

const (
	// Unrecognized falls through to the conversational fallback path
	Unrecognized Kind = iota
	// Greeting is a salutation answered with the fixed onboarding reply
	Greeting
	// AnalysisCommand is an explicit "!analyze <ticker>" request
	AnalysisCommand
	// RecommendationRequest asks for stock ideas
	RecommendationRequest
)

// String returns a readable intent name
func (k Kind) String() string {
	switch k {
	case Greeting:
		return "greeting"
	case AnalysisCommand:
		return "analysis_command"
	case RecommendationRequest:
		return "recommendation_request"
	default:
		return "unrecognized"
	}
}

// Intent is the classification result. TickerText is populated only for
// AnalysisCommand and holds the trimmed argument after the command prefix.
type Intent struct {
	Kind       Kind
	TickerText string
}

const analyzePrefix = "!analyze"

var greetingPhrases = []string{
	"hello",
	"hi",
	"hey",
	"good morning",
	"good afternoon",
	"good evening",
}

var recommendationKeywords = []string{
	"stock",
	"recommend",
	"suggest",
}

// Classify maps a user message to an intent. Pure and side-effect free.
//
// Check order is load-bearing: greetings are detected before the command
// prefix, and the command prefix before recommendation keywords, so that
// "Hi, suggest a stock" stays a greeting and "!analyze stock corp" stays a
// command.
func Classify(message string) Intent {
	trimmed := strings.TrimSpace(message)
	lower := strings.ToLower(trimmed)

	for _, phrase := range greetingPhrases {
		if containsWord(lower, phrase) {
			return Intent{Kind: Greeting}
		}
	}

	if strings.HasPrefix(lower, analyzePrefix) {
		arg := strings.TrimSpace(trimmed[len(analyzePrefix):])
		return Intent{Kind: AnalysisCommand, TickerText: arg}
	}

	for _, keyword := range recommendationKeywords {
		if strings.Contains(lower, keyword) {
			return Intent{Kind: RecommendationRequest}
		}
	}

	return Intent{Kind: Unrecognized}
}

// containsWord reports whether phrase occurs in s at a word boundary, so
// "hi" matches "hi there" but not "this".
func containsWord(s, phrase string) bool {
	idx := 0
	for {
		i := strings.Index(s[idx:], phrase)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(phrase)

		beforeOK := start == 0 || !isAlnum(s[start-1])
		afterOK := end == len(s) || !isAlnum(s[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isAlnum(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}
