package guidance

import (
	"encoding/json"
	"strings"

	"github.com/pairents/edge/engine/domain"
)

// wireAnswer is the shape the prompt demands from the model.
type wireAnswer struct {
	domain.FivePartAnswer
	Citations   []domain.Citation  `json:"citations"`
	Uncertainty domain.Uncertainty `json:"uncertainty"`
}

// parseCompletion turns a raw model completion into an envelope. A
// strict JSON parse (after code-fence stripping) yields a structured
// envelope; anything else is recovered by placing the raw text into the
// first answer field. Post-processing later guarantees completeness
// either way.
func parseCompletion(raw string) domain.GuidanceEnvelope {
	stripped := stripCodeFence(raw)

	var wa wireAnswer
	if err := json.Unmarshal([]byte(stripped), &wa); err == nil && hasAnyField(wa.FivePartAnswer) {
		return domain.GuidanceEnvelope{
			Answer:      wa.FivePartAnswer,
			Citations:   wa.Citations,
			Uncertainty: wa.Uncertainty,
			ParseMode:   domain.ParseStructured,
		}
	}

	return domain.GuidanceEnvelope{
		Answer: domain.FivePartAnswer{
			WhatIsHappeningDevelopmentally: strings.TrimSpace(raw),
		},
		ParseMode: domain.ParseRecovered,
	}
}

// stripCodeFence removes a surrounding markdown code fence, with or
// without a language tag, from a completion.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func hasAnyField(a domain.FivePartAnswer) bool {
	return a.WhatIsHappeningDevelopmentally != "" ||
		a.WhatParentsMayNotice != "" ||
		a.WhatIsNormalVariation != "" ||
		a.WhatToDoAtHome != "" ||
		a.WhenToSeekClinicalScreening != ""
}
