package confirm

import (
	"strings"
	"unicode"
)

// Classifier decides whether a user message is an affirmative confirmation.
type Classifier interface {
	IsAffirmative(text string) bool
}

// KeywordClassifier matches English and German confirmation phrases. A message
// with any negation, or one that is a question, is never affirmative.
type KeywordClassifier struct{}

var affirmativeWords = map[string]bool{
	"yes": true, "y": true, "yeah": true, "yep": true, "yup": true, "sure": true,
	"ok": true, "okay": true, "k": true, "confirm": true, "confirmed": true,
	"approve": true, "approved": true, "proceed": true, "correct": true,
	"affirmative": true, "absolutely": true, "definitely": true,
	"ja": true, "jawohl": true, "genau": true, "passt": true, "klar": true,
	"bestätige": true, "bestätigt": true, "einverstanden": true, "gerne": true,
	"freigegeben": true, "richtig": true,
}

var affirmativePhrases = []string{
	"go ahead", "do it", "place the order", "place it", "order it", "sounds good",
	"please order", "mach das", "mach es", "bitte bestellen", "bestell es",
	"los geht", "in ordnung",
}

var negationWords = map[string]bool{
	"no": true, "nope": true, "not": true, "don't": true, "dont": true, "don": true, "never": true,
	"cancel": true, "stop": true, "wait": true, "hold": true, "abort": true,
	"nein": true, "nicht": true, "kein": true, "keine": true, "abbrechen": true,
	"stopp": true, "warte": true, "halt": true, "storniere": true,
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

// IsAffirmative implements Classifier.
func (KeywordClassifier) IsAffirmative(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" || strings.HasSuffix(text, "?") {
		return false
	}
	words := tokenize(text)
	for _, w := range words {
		if negationWords[w] {
			return false
		}
	}
	for _, w := range words {
		if affirmativeWords[w] {
			return true
		}
	}
	normalized := " " + strings.Join(words, " ") + " "
	for _, p := range affirmativePhrases {
		if strings.Contains(normalized, " "+p+" ") {
			return true
		}
	}
	return false
}
