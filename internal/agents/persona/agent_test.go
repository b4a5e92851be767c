package persona

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astc-project/astc-backend/internal/framework/messaging"
)

func dispatch(t *testing.T, kind string, body any) messaging.Payload {
	t.Helper()
	payload, err := messaging.NewPayload(kind, body)
	require.NoError(t, err)

	resp, err := New().Handle(context.Background(), messaging.NewMessage("tester", "persona_adaptation", payload))
	require.NoError(t, err)
	return resp
}

func TestAdaptContent(t *testing.T) {
	t.Run("qa manager gets executive framing", func(t *testing.T) {
		resp := dispatch(t, "adapt_content", map[string]any{
			"persona":      "qa_manager",
			"content_type": "risk_assessment",
			"content": map[string]any{
				"summary": "The test_case found a bug in the automation coverage",
			},
		})
		require.Equal(t, "content_adapted", resp.Kind)

		var body struct {
			Status         string         `json:"status"`
			AdaptedContent AdaptedContent `json:"adapted_content"`
			PersonaProfile Profile        `json:"persona_profile"`
		}
		require.NoError(t, resp.Decode(&body))
		assert.Equal(t, "success", body.Status)
		assert.Equal(t, "qa_manager", body.AdaptedContent.Persona)
		assert.Equal(t, "executive", body.PersonaProfile.LanguageStyle)
		assert.Equal(t, map[string]string{
			"test_case":  "quality validation scenario",
			"bug":        "business risk issue",
			"automation": "efficiency optimization",
			"coverage":   "quality assurance completeness",
		}, body.AdaptedContent.AdaptedTerminology)
		assert.Contains(t, body.AdaptedContent.PersonaInsights,
			"Review the risk factors against your mitigation thresholds")
		assert.Equal(t, []string{
			"Risk heat map", "Resource allocation", "Executive KPIs", "Timeline monitoring",
		}, body.AdaptedContent.PriorityHighlights)
	})

	t.Run("content type defaults to general_message", func(t *testing.T) {
		resp := dispatch(t, "adapt_content", map[string]any{
			"persona": "developer",
			"content": map[string]any{"summary": "all green"},
		})
		var body struct {
			AdaptedContent AdaptedContent `json:"adapted_content"`
		}
		require.NoError(t, resp.Decode(&body))
		assert.Equal(t, "general_message", body.AdaptedContent.ContentType)
		assert.Empty(t, body.AdaptedContent.AdaptedTerminology)
	})

	t.Run("unknown persona yields error payload", func(t *testing.T) {
		resp := dispatch(t, "adapt_content", map[string]any{"persona": "sre"})
		assert.Equal(t, "error", resp.Kind)
	})
}

func TestTransformLanguage(t *testing.T) {
	t.Run("rewrites into business vocabulary", func(t *testing.T) {
		resp := dispatch(t, "transform_language", map[string]any{
			"text":         "The test_case exposed a bug in the execution",
			"from_persona": "developer",
			"to_persona":   "business_user",
		})
		require.Equal(t, "language_transformed", resp.Kind)

		var body struct {
			Transformation Transformation `json:"transformation"`
		}
		require.NoError(t, resp.Decode(&body))
		assert.Equal(t, "The quality check exposed a issue in the system check",
			body.Transformation.TransformedText)
		assert.Equal(t, 3, body.Transformation.TerminologyChanges)
		assert.Equal(t, "technical -> conversational", body.Transformation.StyleChange)
		assert.Equal(t, "implementation -> operational", body.Transformation.ComplexityChange)
	})

	t.Run("text without known terms passes through", func(t *testing.T) {
		resp := dispatch(t, "transform_language", map[string]any{
			"text":         "hello world",
			"from_persona": "qa_manager",
			"to_persona":   "developer",
		})
		var body struct {
			Transformation Transformation `json:"transformation"`
		}
		require.NoError(t, resp.Decode(&body))
		assert.Equal(t, "hello world", body.Transformation.TransformedText)
		assert.Zero(t, body.Transformation.TerminologyChanges)
	})

	t.Run("unknown target persona yields error payload", func(t *testing.T) {
		resp := dispatch(t, "transform_language", map[string]any{
			"text":         "x",
			"from_persona": "developer",
			"to_persona":   "intern",
		})
		assert.Equal(t, "error", resp.Kind)
	})
}

func TestGetPersonaProfile(t *testing.T) {
	resp := dispatch(t, "get_persona_profile", map[string]any{"persona": "business_user"})
	require.Equal(t, "persona_profile", resp.Kind)

	var body struct {
		Profile Profile `json:"profile"`
	}
	require.NoError(t, resp.Decode(&body))
	assert.Equal(t, "Business User", body.Profile.Name)
	assert.Equal(t, "operational", body.Profile.DetailLevel)
	assert.Equal(t, "quality check", body.Profile.Terminology["test_case"])
}

func TestUnknownKind(t *testing.T) {
	resp := dispatch(t, "sing_a_song", map[string]any{})
	assert.Equal(t, "error", resp.Kind)
}
