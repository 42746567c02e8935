package prompt

import (
	"strings"

	"studio/internal/domain"
)

// DefaultStyleSuffix is appended to every image and video prompt.
const DefaultStyleSuffix = "soft natural light, warm earthy palette, calm minimal composition, editorial lifestyle photography"

// DefaultNegativeSuffix is appended to every negative prompt.
const DefaultNegativeSuffix = "low quality, blurry, distorted, text, watermark, logo, extra limbs, oversaturated"

// Decorator applies the brand look to prompts by plain concatenation.
type Decorator struct {
	StyleSuffix    string
	NegativeSuffix string
}

// NewDecorator returns the brand decorator.
func NewDecorator() Decorator {
	return Decorator{StyleSuffix: DefaultStyleSuffix, NegativeSuffix: DefaultNegativeSuffix}
}

// Prompt returns p with the style suffix.
func (d Decorator) Prompt(p string) string {
	return join(p, d.StyleSuffix)
}

// Negative returns n with the negative suffix. An empty n yields the suffix alone.
func (d Decorator) Negative(n string) string {
	return join(n, d.NegativeSuffix)
}

// Apply decorates both prompts of req and leaves the other fields untouched.
func (d Decorator) Apply(req domain.GenerationRequest) domain.GenerationRequest {
	req.Prompt = d.Prompt(req.Prompt)
	req.NegativePrompt = d.Negative(req.NegativePrompt)
	return req
}

func join(base, suffix string) string {
	base = strings.TrimRight(strings.TrimSpace(base), ", ")
	suffix = strings.TrimSpace(suffix)
	switch {
	case base == "":
		return suffix
	case suffix == "":
		return base
	}
	return base + ", " + suffix
}
