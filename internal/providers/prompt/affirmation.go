package prompt

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// AffirmationSystemPrompt sets the brand voice for the text provider.
const AffirmationSystemPrompt = "You write short, warm, grounded affirmations for a mindful lifestyle brand. Reply with the affirmation only, no quotes, no preamble."

// Affirmation builds the user message for one affirmation. locale is a BCP 47
// tag; anything unparsable falls back to English.
func Affirmation(theme, locale string) string {
	theme = strings.Join(strings.Fields(theme), " ")
	if theme == "" {
		theme = "everyday calm"
	}
	return fmt.Sprintf("Write one affirmation of at most 25 words about %q in %s.", theme, LanguageName(locale))
}

// LanguageName returns the English name of the base language of locale.
func LanguageName(locale string) string {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil || tag == language.Und {
		return "English"
	}
	base, _ := tag.Base()
	name := display.English.Languages().Name(base)
	if name == "" {
		return "English"
	}
	return name
}
