package guidance

import (
	"fmt"
	"strings"

	"github.com/pairents/edge/engine/domain"
)

// buildPrompt renders the model prompt deterministically from the input.
// The same input always produces the same prompt, byte for byte.
func buildPrompt(in domain.GuidanceInput) string {
	var b strings.Builder

	b.WriteString("You are a warm, evidence-informed child development guide for parents. ")
	b.WriteString("You never diagnose, never prescribe, and always point to a pediatric professional for medical decisions.\n\n")

	switch in.Mode {
	case domain.ModeCheckin:
		b.WriteString("The parent is completing a development check-in for their child.\n")
	default:
		b.WriteString("The parent is asking a question about their child's development.\n")
	}

	if in.ChildAgeMonths > 0 {
		fmt.Fprintf(&b, "Child age: %d months.\n", in.ChildAgeMonths)
	}
	if in.FocusDomain != "" {
		fmt.Fprintf(&b, "Developmental focus: %s.\n", in.FocusDomain)
	}
	if in.MilestoneContext != "" {
		fmt.Fprintf(&b, "Milestone context:\n%s\n", in.MilestoneContext)
	}
	if in.ConversationContext != "" {
		fmt.Fprintf(&b, "Earlier conversation:\n%s\n", in.ConversationContext)
	}
	if in.ParentContext != "" {
		fmt.Fprintf(&b, "About this family:\n%s\n", in.ParentContext)
	}

	fmt.Fprintf(&b, "\nParent input:\n%s\n\n", in.Text)

	b.WriteString(`Respond with a single JSON object and nothing else, using exactly these keys:
{
  "whatIsHappeningDevelopmentally": string,
  "whatParentsMayNotice": string,
  "whatIsNormalVariation": string,
  "whatToDoAtHome": string,
  "whenToSeekClinicalScreening": string,
  "citations": [{"title": string, "url": string}],
  "uncertainty": {"level": "low"|"medium"|"high", "reason": string}
}
Citations must reference reputable child-development sources. At most 4 citations.`)

	return b.String()
}
