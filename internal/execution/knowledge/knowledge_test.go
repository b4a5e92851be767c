package knowledge

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	kb := Default()

	t.Run("known profiles", func(t *testing.T) {
		p := kb.Profile("VA01")
		assert.Equal(t, 60.0, p.BaseTime)
		assert.Equal(t, ComplexityHigh, p.Complexity)
		assert.Equal(t, 0.22, p.FailureRate)
	})

	t.Run("unknown codes fall back to the default profile", func(t *testing.T) {
		p := kb.Profile("ZZ99")
		assert.Equal(t, DefaultProfile, p)
	})

	t.Run("pattern frequencies sum to one", func(t *testing.T) {
		total := 0.0
		for _, p := range kb.Patterns {
			total += p.Frequency
			assert.NotEmpty(t, p.ErrorCode)
			assert.Len(t, p.Strategies, 3)
		}
		assert.InDelta(t, 1.0, total, 0.0001)
	})
}

func TestSteps(t *testing.T) {
	kb := Default()

	t.Run("known transaction interleaves specific steps", func(t *testing.T) {
		steps := kb.Steps("ME21N")
		require.Len(t, steps, 11)
		assert.Equal(t, "Login to SAP system", steps[0])
		assert.Equal(t, "Navigate to ME21N transaction", steps[1])
		assert.Equal(t, "Enter vendor information", steps[2])
		assert.Equal(t, "Verify transaction completion", steps[10])
	})

	t.Run("unknown transaction uses the generic skeleton", func(t *testing.T) {
		steps := kb.Steps("ZZ99")
		require.Len(t, steps, 6)
		assert.Equal(t, "Navigate to ZZ99 transaction", steps[1])
		assert.Equal(t, "Enter transaction data", steps[2])
	})
}

func TestErrorMessage(t *testing.T) {
	kb := Default()
	assert.Contains(t, kb.ErrorMessage("approval_timeout", "ME21N", "Check approval workflow"), "manager approval")
	assert.Contains(t, kb.ErrorMessage("authorization_missing", "VA01", "Save transaction"), "VA01")
	assert.Contains(t, kb.ErrorMessage("unheard_of", "VA01", "Save transaction"), "Unexpected error")
}

func TestCriticalStep(t *testing.T) {
	assert.True(t, CriticalStep("Save transaction"))
	assert.True(t, CriticalStep("Check approval workflow"))
	assert.False(t, CriticalStep("Login to SAP system"))
}

func TestValidations(t *testing.T) {
	kb := Default()

	t.Run("passed execution", func(t *testing.T) {
		vals := kb.Validations("MIGO", true)
		require.Len(t, vals, 3)
		assert.Equal(t, "Transaction completion", vals[0].Validation)
		assert.Equal(t, "passed", vals[0].Status)
	})

	t.Run("failed execution flips the completion entry", func(t *testing.T) {
		vals := kb.Validations("MIGO", false)
		assert.Equal(t, "failed", vals[0].Status)
	})

	t.Run("transaction without specifics keeps only completion", func(t *testing.T) {
		vals := kb.Validations("VF01", true)
		assert.Len(t, vals, 1)
	})
}

func TestLoad(t *testing.T) {
	t.Run("empty path returns defaults", func(t *testing.T) {
		kb, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, 45.0, kb.Profile("ME21N").BaseTime)
	})

	t.Run("overrides overlay the defaults", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "knowledge.yaml")
		content := `
transactions:
  ME21N:
    base_time: 90
    complexity: high
    failure_rate: 0.5
  XK01:
    base_time: 20
    complexity: low
    failure_rate: 0.02
step_templates:
  XK01:
    - Enter vendor address
    - Maintain payment terms
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		kb, err := Load(path)
		require.NoError(t, err)

		overridden := kb.Profile("ME21N")
		assert.Equal(t, 90.0, overridden.BaseTime)
		assert.Equal(t, 0.5, overridden.FailureRate)

		added := kb.Profile("XK01")
		assert.Equal(t, 20.0, added.BaseTime)

		steps := kb.Steps("XK01")
		assert.Contains(t, steps, "Enter vendor address")

		// Untouched sections keep defaults.
		assert.Equal(t, 30.0, kb.Profile("MIGO").BaseTime)
		assert.Len(t, kb.Patterns, 5)
	})

	t.Run("missing file errors", func(t *testing.T) {
		_, err := Load("/nonexistent/knowledge.yaml")
		assert.Error(t, err)
	})
}
