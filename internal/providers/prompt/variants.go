package prompt

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Variant is one member of a fixed prompt set.
type Variant struct {
	Label  string `json:"label"`
	Prompt string `json:"prompt"`
}

type template struct {
	label  string
	format string
}

var variationStyles = []template{
	{"minimal", "%s, minimalist studio shot, clean negative space"},
	{"botanical", "%s, surrounded by dried botanicals and linen textures"},
	{"golden-hour", "%s, golden hour sunlight, long soft shadows"},
	{"monochrome", "%s, tonal monochrome styling, matte finish"},
	{"flat-lay", "%s, overhead flat lay on natural stone"},
	{"film", "%s, 35mm film grain, muted colors"},
}

var moodBoardTemplates = []template{
	{"hero", "%s, wide hero image for a lifestyle brand"},
	{"texture", "close-up texture study inspired by %s"},
	{"interior", "serene interior scene evoking %s"},
	{"still-life", "still life arrangement themed around %s"},
	{"nature", "natural landscape that captures the feeling of %s"},
	{"detail", "macro detail shot of materials associated with %s"},
	{"portrait", "candid lifestyle portrait embodying %s"},
	{"palette", "abstract color palette study for %s"},
	{"ritual", "morning ritual moment inspired by %s"},
}

// MaxVariations is the size of the fixed variation style table.
var MaxVariations = len(variationStyles)

// MaxMoodBoard is the size of the fixed mood-board template set.
var MaxMoodBoard = len(moodBoardTemplates)

// VariationStyleNames lists the variation styles in table order.
func VariationStyleNames() []string {
	names := make([]string, len(variationStyles))
	for i, s := range variationStyles {
		names[i] = s.label
	}
	return names
}

// Variations renders base through the named styles, keeping the caller's
// order. With no names the whole table is used. Unknown or repeated names are
// an error.
func Variations(base string, styles []string) ([]Variant, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		return nil, fmt.Errorf("variation base prompt is empty")
	}
	if len(styles) == 0 {
		styles = VariationStyleNames()
	}
	out := make([]Variant, 0, len(styles))
	seen := make(map[string]bool, len(styles))
	for _, name := range styles {
		name = strings.ToLower(strings.TrimSpace(name))
		if seen[name] {
			return nil, fmt.Errorf("variation style %q requested twice", name)
		}
		tpl, ok := lookup(variationStyles, name)
		if !ok {
			return nil, fmt.Errorf("unknown variation style %q", name)
		}
		seen[name] = true
		out = append(out, Variant{Label: tpl.label, Prompt: fmt.Sprintf(tpl.format, base)})
	}
	return out, nil
}

// MoodBoard renders the first count templates for theme. Requests above
// MaxMoodBoard are truncated to the template set without error; count <= 0
// selects the whole set.
func MoodBoard(theme string, count int) []Variant {
	theme = TitleTheme(theme)
	if theme == "" {
		return nil
	}
	if count <= 0 || count > len(moodBoardTemplates) {
		count = len(moodBoardTemplates)
	}
	out := make([]Variant, count)
	for i := 0; i < count; i++ {
		tpl := moodBoardTemplates[i]
		out[i] = Variant{Label: tpl.label, Prompt: fmt.Sprintf(tpl.format, theme)}
	}
	return out
}

// TitleTheme normalizes whitespace and title-cases a theme.
func TitleTheme(theme string) string {
	theme = strings.Join(strings.Fields(theme), " ")
	if theme == "" {
		return ""
	}
	return cases.Title(language.Und).String(theme)
}

func lookup(set []template, label string) (template, bool) {
	for _, t := range set {
		if t.label == label {
			return t, true
		}
	}
	return template{}, false
}
