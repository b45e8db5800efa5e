package guidance

import (
	"strings"

	"github.com/pairents/edge/engine/domain"
)

// Safety sentences appended during post-processing. Idempotence relies
// on exact substring checks against these constants.
const (
	checkupReminder = "Routine well-child visits are the best place to review progress, so mention this at your next checkup."

	escalationNote = "If this concern persists or your child loses skills they previously had, ask your pediatrician about a developmental screening."

	emergencyNote = "If your child is in immediate danger or having a medical emergency, contact your local emergency services right away."

	genericField = "Every child develops at their own pace; your pediatrician can give guidance specific to your child."

	defaultUncertaintyReason = "General guidance based on typical developmental patterns, not an individual assessment."
)

// baselineCitations back any answer whose model citations do not survive
// validation.
var baselineCitations = []domain.Citation{
	{Title: "CDC Developmental Milestones", URL: "https://www.cdc.gov/ncbddd/actearly/milestones/index.html"},
	{Title: "AAP HealthyChildren — Ages & Stages", URL: "https://www.healthychildren.org/English/ages-stages/Pages/default.aspx"},
}

const maxCitations = 4

// finalize applies the safety and completeness guarantees to an
// envelope. It is idempotent: running it on its own output changes
// nothing.
func finalize(env domain.GuidanceEnvelope) domain.GuidanceEnvelope {
	env.Answer = completeAnswer(env.Answer)
	env.Answer.WhatToDoAtHome = ensureSentence(env.Answer.WhatToDoAtHome, checkupReminder)
	env.Answer.WhenToSeekClinicalScreening = ensureSentence(env.Answer.WhenToSeekClinicalScreening, escalationNote)
	env.Answer.WhenToSeekClinicalScreening = ensureSentence(env.Answer.WhenToSeekClinicalScreening, emergencyNote)
	env.Citations = validCitations(env.Citations)
	env.Uncertainty = coerceUncertainty(env.Uncertainty)
	return env
}

func completeAnswer(a domain.FivePartAnswer) domain.FivePartAnswer {
	fill := func(s string) string {
		if strings.TrimSpace(s) == "" {
			return genericField
		}
		return s
	}
	a.WhatIsHappeningDevelopmentally = fill(a.WhatIsHappeningDevelopmentally)
	a.WhatParentsMayNotice = fill(a.WhatParentsMayNotice)
	a.WhatIsNormalVariation = fill(a.WhatIsNormalVariation)
	a.WhatToDoAtHome = fill(a.WhatToDoAtHome)
	a.WhenToSeekClinicalScreening = fill(a.WhenToSeekClinicalScreening)
	return a
}

func ensureSentence(field, sentence string) string {
	if strings.Contains(field, sentence) {
		return field
	}
	return strings.TrimSpace(field) + " " + sentence
}

// validCitations keeps citations with a title and an http(s) URL, capped
// at four. When none survive, the baseline pair stands in.
func validCitations(in []domain.Citation) []domain.Citation {
	out := make([]domain.Citation, 0, maxCitations)
	for _, c := range in {
		if strings.TrimSpace(c.Title) == "" {
			continue
		}
		if !strings.HasPrefix(c.URL, "http://") && !strings.HasPrefix(c.URL, "https://") {
			continue
		}
		out = append(out, c)
		if len(out) == maxCitations {
			break
		}
	}
	if len(out) == 0 {
		return append([]domain.Citation(nil), baselineCitations...)
	}
	return out
}

func coerceUncertainty(u domain.Uncertainty) domain.Uncertainty {
	switch u.Level {
	case domain.UncertaintyLow, domain.UncertaintyMedium, domain.UncertaintyHigh:
	default:
		u.Level = domain.UncertaintyMedium
	}
	if strings.TrimSpace(u.Reason) == "" {
		u.Reason = defaultUncertaintyReason
	}
	return u
}
