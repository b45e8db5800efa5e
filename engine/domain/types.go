// Package domain defines the gateway's core data model and the validation
// gates applied at its boundaries: link canonicalization for the content
// endpoints and the input policy for the guidance endpoints.
package domain

// ArticleSummary is one entry of the in-memory catalog assembled from the
// blog feed crawl. Summaries are immutable; a cache refresh replaces the
// whole catalog, never individual entries.
type ArticleSummary struct {
	Title       string   `json:"title"`
	Link        string   `json:"link"`
	PublishedAt string   `json:"publishedAt"`
	Excerpt     string   `json:"excerpt"`
	ImageURL    string   `json:"imageUrl"`
	Keywords    []string `json:"keywords"`
}

// ArticleBody is the full extracted article for one link.
type ArticleBody struct {
	ID          string   `json:"id"`
	Link        string   `json:"link"`
	Title       string   `json:"title"`
	PublishedAt string   `json:"publishedAt"`
	Excerpt     string   `json:"excerpt"`
	ImageURL    string   `json:"imageUrl"`
	Keywords    []string `json:"keywords"`
	Paragraphs  []string `json:"paragraphs"`
	BodyHTML    string   `json:"bodyHtml"`
}

// FivePartAnswer is the fixed-shape guidance payload. The JSON keys are the
// wire contract with both the model prompt and the app client.
type FivePartAnswer struct {
	WhatIsHappeningDevelopmentally string `json:"whatIsHappeningDevelopmentally"`
	WhatParentsMayNotice           string `json:"whatParentsMayNotice"`
	WhatIsNormalVariation          string `json:"whatIsNormalVariation"`
	WhatToDoAtHome                 string `json:"whatToDoAtHome"`
	WhenToSeekClinicalScreening    string `json:"whenToSeekClinicalScreening"`
}

// Citation backs a guidance answer with a named source.
type Citation struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// UncertaintyLevel is the model's self-reported confidence bucket.
type UncertaintyLevel string

const (
	UncertaintyLow    UncertaintyLevel = "low"
	UncertaintyMedium UncertaintyLevel = "medium"
	UncertaintyHigh   UncertaintyLevel = "high"
)

// Uncertainty tags an answer with a confidence level and its reason.
type Uncertainty struct {
	Level  UncertaintyLevel `json:"level"`
	Reason string           `json:"reason"`
}

// ParseMode records whether the five-part answer came from a strict parse
// of the model output or was recovered from free text.
type ParseMode string

const (
	ParseStructured ParseMode = "structured"
	ParseRecovered  ParseMode = "recovered"
)

// GuidanceEnvelope is the complete, post-processed guidance response.
// It is transient: the gateway never persists it.
type GuidanceEnvelope struct {
	Answer      FivePartAnswer `json:"response"`
	Citations   []Citation     `json:"citations"`
	Uncertainty Uncertainty    `json:"uncertainty"`
	ParseMode   ParseMode      `json:"quality"`
	Provider    string         `json:"provider"`
}

// GuidanceMode selects the prompt framing for a guidance request.
type GuidanceMode string

const (
	ModeAsk     GuidanceMode = "ask"
	ModeCheckin GuidanceMode = "checkin"
)

// GuidanceInput carries everything the prompt builder needs.
type GuidanceInput struct {
	Mode                GuidanceMode
	Text                string
	MilestoneContext    string
	ConversationContext string
	ParentContext       string
	ChildAgeMonths      int
	FocusDomain         string
}
