// Package persona adapts content and language for different user roles from
// a table of persona profiles.
package persona

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/astc-project/astc-backend/internal/framework"
	"github.com/astc-project/astc-backend/internal/framework/messaging"
)

// Profile describes one user persona and its presentation preferences.
type Profile struct {
	PersonaID           string            `json:"persona_id"`
	Name                string            `json:"name"`
	Description         string            `json:"description"`
	PrimaryConcerns     []string          `json:"primary_concerns"`
	PreferredMetrics    []string          `json:"preferred_metrics"`
	LanguageStyle       string            `json:"language_style"`
	DetailLevel         string            `json:"detail_level"`
	FocusAreas          []string          `json:"focus_areas"`
	Terminology         map[string]string `json:"terminology_preferences"`
	DashboardPriorities []string          `json:"dashboard_priorities"`
}

// AdaptedContent is the result of reshaping content for one persona.
type AdaptedContent struct {
	Persona            string            `json:"persona"`
	ContentType        string            `json:"content_type"`
	OriginalContent    map[string]any    `json:"original_content"`
	AdaptedTerminology map[string]string `json:"adapted_terminology"`
	PersonaInsights    []string          `json:"persona_insights"`
	RecommendedActions []string          `json:"recommended_actions"`
	PriorityHighlights []string          `json:"priority_highlights"`
	AdaptedAt          time.Time         `json:"adapted_at"`
}

// Transformation is the result of rewriting text between persona vocabularies.
type Transformation struct {
	OriginalText       string `json:"original_text"`
	TransformedText    string `json:"transformed_text"`
	FromPersona        string `json:"from_persona"`
	ToPersona          string `json:"to_persona"`
	TerminologyChanges int    `json:"terminology_changes"`
	StyleChange        string `json:"style_change"`
	ComplexityChange   string `json:"complexity_change"`
}

var profiles = map[string]Profile{
	"qa_manager": {
		PersonaID:   "qa_manager",
		Name:        "QA Manager",
		Description: "Quality Assurance leadership focused on risk management and resource optimization",
		PrimaryConcerns: []string{
			"Risk mitigation", "Resource allocation", "Timeline adherence",
			"Coverage completeness", "Team productivity",
		},
		PreferredMetrics: []string{
			"Risk score", "Coverage percentage", "Defect density", "Resource utilization",
		},
		LanguageStyle: "executive",
		DetailLevel:   "strategic",
		FocusAreas:    []string{"Business impact", "Resource optimization", "Risk assessment"},
		Terminology: map[string]string{
			"test_case":  "quality validation scenario",
			"bug":        "business risk issue",
			"automation": "efficiency optimization",
			"coverage":   "quality assurance completeness",
			"execution":  "validation process",
			"dependency": "business process interdependency",
		},
		DashboardPriorities: []string{
			"Risk heat map", "Resource allocation", "Executive KPIs", "Timeline monitoring",
		},
	},
	"developer": {
		PersonaID:   "developer",
		Name:        "Developer",
		Description: "Technical team member focused on implementation details and code-level information",
		PrimaryConcerns: []string{
			"Technical accuracy", "Code quality", "Integration points",
			"Performance optimization", "Error handling",
		},
		PreferredMetrics: []string{
			"Execution time", "Memory usage", "Error rates", "Code coverage",
		},
		LanguageStyle: "technical",
		DetailLevel:   "implementation",
		FocusAreas:    []string{"Code implementation", "Technical specifications", "Performance details"},
		Terminology: map[string]string{
			"test_case":  "test method",
			"bug":        "defect",
			"automation": "automated testing framework",
			"coverage":   "code coverage",
			"execution":  "test execution",
			"dependency": "module dependency",
		},
		DashboardPriorities: []string{
			"Technical metrics", "Performance data", "Error logs", "Integration status",
		},
	},
	"business_user": {
		PersonaID:   "business_user",
		Name:        "Business User",
		Description: "Business stakeholder focused on process impact and operational outcomes",
		PrimaryConcerns: []string{
			"Process efficiency", "User experience", "Business continuity",
			"Workflow impact", "User adoption",
		},
		PreferredMetrics: []string{
			"Process completion time", "Error reduction", "Efficiency gains", "Adoption rates",
		},
		LanguageStyle: "conversational",
		DetailLevel:   "operational",
		FocusAreas:    []string{"Business processes", "User workflows", "Operational impact"},
		Terminology: map[string]string{
			"test_case":  "quality check",
			"bug":        "issue",
			"automation": "automated process",
			"coverage":   "process validation",
			"execution":  "system check",
			"dependency": "process connection",
		},
		DashboardPriorities: []string{
			"Process status", "User impact", "Business benefits", "Workflow health",
		},
	},
}

// Agent is the persona adaptation agent.
type Agent struct {
	*framework.BaseAgent
}

// New constructs the agent with its dispatch table wired.
func New() *Agent {
	a := &Agent{
		BaseAgent: framework.NewBaseAgent("persona_adaptation", "Persona Adaptation Agent", []string{
			"content_transformation",
			"persona_aware_language",
			"role_specific_insights",
			"terminology_translation",
		}),
	}
	a.On("adapt_content", a.adaptContent)
	a.On("transform_language", a.transformLanguage)
	a.On("get_persona_profile", a.getProfile)
	return a
}

func (a *Agent) adaptContent(_ context.Context, msg *messaging.Message) (messaging.Payload, error) {
	var req struct {
		Persona     string         `json:"persona"`
		ContentType string         `json:"content_type"`
		Content     map[string]any `json:"content"`
	}
	if err := msg.Payload.Decode(&req); err != nil {
		return framework.ErrorPayload(a.ID(), "invalid adapt_content payload"), nil
	}

	profile, ok := profiles[req.Persona]
	if !ok {
		return framework.ErrorPayload(a.ID(), fmt.Sprintf("unknown persona: %s", req.Persona)), nil
	}
	if req.ContentType == "" {
		req.ContentType = "general_message"
	}

	adapted := AdaptedContent{
		Persona:            profile.PersonaID,
		ContentType:        req.ContentType,
		OriginalContent:    req.Content,
		AdaptedTerminology: adaptTerminology(req.Content, profile.Terminology),
		PersonaInsights:    insights(profile, req.ContentType),
		RecommendedActions: recommendedActions(profile),
		PriorityHighlights: profile.DashboardPriorities,
		AdaptedAt:          time.Now(),
	}

	return messaging.NewPayload("content_adapted", map[string]any{
		"status":          "success",
		"agent_id":        a.ID(),
		"adapted_content": adapted,
		"persona_profile": profile,
	})
}

func (a *Agent) transformLanguage(_ context.Context, msg *messaging.Message) (messaging.Payload, error) {
	var req struct {
		Text        string `json:"text"`
		FromPersona string `json:"from_persona"`
		ToPersona   string `json:"to_persona"`
	}
	if err := msg.Payload.Decode(&req); err != nil {
		return framework.ErrorPayload(a.ID(), "invalid transform_language payload"), nil
	}

	source, ok := profiles[req.FromPersona]
	if !ok {
		return framework.ErrorPayload(a.ID(), fmt.Sprintf("unknown persona: %s", req.FromPersona)), nil
	}
	target, ok := profiles[req.ToPersona]
	if !ok {
		return framework.ErrorPayload(a.ID(), fmt.Sprintf("unknown persona: %s", req.ToPersona)), nil
	}

	transformed, changes := applyTerminology(req.Text, target.Terminology)

	return messaging.NewPayload("language_transformed", map[string]any{
		"status":   "success",
		"agent_id": a.ID(),
		"transformation": Transformation{
			OriginalText:       req.Text,
			TransformedText:    transformed,
			FromPersona:        source.PersonaID,
			ToPersona:          target.PersonaID,
			TerminologyChanges: changes,
			StyleChange:        fmt.Sprintf("%s -> %s", source.LanguageStyle, target.LanguageStyle),
			ComplexityChange:   fmt.Sprintf("%s -> %s", source.DetailLevel, target.DetailLevel),
		},
	})
}

func (a *Agent) getProfile(_ context.Context, msg *messaging.Message) (messaging.Payload, error) {
	var req struct {
		Persona string `json:"persona"`
	}
	if err := msg.Payload.Decode(&req); err != nil {
		return framework.ErrorPayload(a.ID(), "invalid get_persona_profile payload"), nil
	}

	profile, ok := profiles[req.Persona]
	if !ok {
		return framework.ErrorPayload(a.ID(), fmt.Sprintf("unknown persona: %s", req.Persona)), nil
	}
	return messaging.NewPayload("persona_profile", map[string]any{
		"status":   "success",
		"agent_id": a.ID(),
		"profile":  profile,
	})
}

// adaptTerminology returns the preferred term for every technical term that
// appears somewhere in the content's string values.
func adaptTerminology(content map[string]any, prefs map[string]string) map[string]string {
	adapted := make(map[string]string)
	for term, preferred := range prefs {
		for _, v := range content {
			if s, ok := v.(string); ok && strings.Contains(strings.ToLower(s), term) {
				adapted[term] = preferred
				break
			}
		}
	}
	return adapted
}

// applyTerminology rewrites the text using the target persona's vocabulary,
// in deterministic term order, and counts the replacements made.
func applyTerminology(text string, prefs map[string]string) (string, int) {
	terms := make([]string, 0, len(prefs))
	for term := range prefs {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	changes := 0
	for _, term := range terms {
		if strings.Contains(strings.ToLower(text), term) {
			text = strings.ReplaceAll(text, term, prefs[term])
			changes++
		}
	}
	return text, changes
}

func insights(profile Profile, contentType string) []string {
	out := []string{
		fmt.Sprintf("Presented for %s with %s detail", profile.Name, profile.DetailLevel),
	}
	for _, concern := range profile.PrimaryConcerns[:2] {
		out = append(out, fmt.Sprintf("Relevant to your focus on %s", strings.ToLower(concern)))
	}
	if contentType == "risk_assessment" {
		out = append(out, "Review the risk factors against your mitigation thresholds")
	}
	return out
}

func recommendedActions(profile Profile) []string {
	switch profile.PersonaID {
	case "qa_manager":
		return []string{
			"Review the risk heat map before approving the release",
			"Reallocate validation effort toward high-risk transactions",
		}
	case "developer":
		return []string{
			"Inspect failing steps and error codes in the execution detail",
			"Profile transactions with poor response time ratings",
		}
	default:
		return []string{
			"Check which business processes are affected by this change",
			"Plan user communication for impacted workflows",
		}
	}
}
