package classifier

import (
	"regexp"
	"strings"
)

// Category is the mood or intent a rule recognizes.
type Category string

const (
	CategoryGreeting  Category = "greeting"
	CategoryFarewell  Category = "farewell"
	CategoryJoke      Category = "joke"
	CategorySadness   Category = "sadness"
	CategoryAnxiety   Category = "anxiety"
	CategoryHappiness Category = "happiness"
	CategoryGratitude Category = "gratitude"
	CategoryDefault   Category = "default"
)

// Matcher reports whether a normalized utterance belongs to a category.
type Matcher func(normalized string) bool

// Rule tags a matcher with the category it selects.
type Rule struct {
	Category Category
	Match    Matcher
}

// DefaultRules returns the built-in rules, most specific first.
// The last rule always matches.
func DefaultRules() []Rule {
	return []Rule{
		{CategoryGreeting, Any(
			Exact("hi", "hello", "hey", "hola", "hiya", "howdy", "yo", "sup",
				"good morning", "good afternoon", "good evening", "hey there", "hi there", "hello there"),
			Pattern(`^(hi|hello|hey|hola|howdy)( there)?,? farum$`),
		)},
		{CategoryFarewell, Any(
			Exact("bye", "goodbye", "bye bye", "good night", "goodnight", "see you", "see ya", "cya", "later"),
			Pattern(`^(bye|goodbye|good night|see you)\b.{0,20}$`),
		)},
		{CategoryJoke, Pattern(`\b(jokes?|make me laugh|something funny|funny story|pun)\b`)},
		{CategorySadness, Pattern(
			`\b(sad|unhappy|depressed|lonely|crying|cry|miserable|heartbroken|upset|hopeless)\b` +
				`|\bfeel(ing)?\s+((so|really|very|a bit|kind of)\s+)?(down|blue|low)\b` +
				`|\bnot\s+(feeling\s+)?(happy|good|great|ok|okay)\b`,
		)},
		{CategoryAnxiety, Pattern(`\b(anxious|anxiety|nervous|stressed|stress|worried|worry|panic|overwhelmed|scared|afraid)\b`)},
		{CategoryHappiness, Pattern(
			`\b(happy|glad|excited|joyful|wonderful|awesome|amazing|fantastic|great day|good day)\b` +
				`|\bfeel(ing)?\s+((so|really|very)\s+)?(good|great)\b`,
		)},
		{CategoryGratitude, Pattern(`\b(thank you|thanks|thx|appreciate it)\b`)},
		{CategoryDefault, Always},
	}
}

// Exact matches whole utterances, ignoring trailing punctuation.
func Exact(phrases ...string) Matcher {
	set := make(map[string]struct{}, len(phrases))
	for _, p := range phrases {
		set[p] = struct{}{}
	}
	return func(s string) bool {
		_, ok := set[strings.TrimRight(s, "!.?,~ ")]
		return ok
	}
}

// Pattern compiles expr once; it panics on an invalid expression.
func Pattern(expr string) Matcher {
	re := regexp.MustCompile(expr)
	return re.MatchString
}

// Any matches when at least one of ms matches.
func Any(ms ...Matcher) Matcher {
	return func(s string) bool {
		for _, m := range ms {
			if m(s) {
				return true
			}
		}
		return false
	}
}

func Always(string) bool { return true }

var spaces = regexp.MustCompile(`\s+`)

// Normalize lowercases, trims and collapses whitespace.
func Normalize(utterance string) string {
	return spaces.ReplaceAllString(strings.ToLower(strings.TrimSpace(utterance)), " ")
}
