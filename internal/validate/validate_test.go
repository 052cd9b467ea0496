package validate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"apicheck/internal/schema"
)

const singleUserSchema = `{
  "type": "object",
  "required": ["data", "support"],
  "properties": {
    "data": {
      "type": "object",
      "required": ["id", "email", "first_name", "last_name", "avatar"],
      "properties": {
        "id": {"type": "integer"},
        "email": {"type": "string"},
        "first_name": {"type": "string"},
        "last_name": {"type": "string"},
        "avatar": {"type": "string"}
      }
    },
    "support": {
      "type": "object",
      "required": ["url", "text"],
      "properties": {
        "url": {"type": "string"},
        "text": {"type": "string"}
      }
    }
  }
}`

const conformingUser = `{
  "data": {
    "id": 2,
    "email": "janet.weaver@reqres.in",
    "first_name": "Janet",
    "last_name": "Weaver",
    "avatar": "https://reqres.in/img/faces/2-image.jpg"
  },
  "support": {
    "url": "https://reqres.in/#support-heading",
    "text": "To keep ReqRes free, contributions are appreciated!"
  }
}`

func newValidator(t *testing.T) *Validator {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "single_user_schema.json"), []byte(singleUserSchema), 0o644))
	return New(schema.NewRegistry(dir))
}

func TestValidate_ConformingBody(t *testing.T) {
	v := newValidator(t)

	outcome, err := v.Validate([]byte(conformingUser), "single_user_schema.json")
	require.NoError(t, err)
	require.True(t, outcome.Valid)
	require.Empty(t, outcome.Violations)
}

func TestValidate_MissingRequiredField(t *testing.T) {
	v := newValidator(t)

	body := []byte(`{
	  "data": {
	    "id": 2,
	    "first_name": "Janet",
	    "last_name": "Weaver",
	    "avatar": "https://reqres.in/img/faces/2-image.jpg"
	  },
	  "support": {"url": "https://reqres.in", "text": "support"}
	}`)

	outcome, err := v.Validate(body, "single_user_schema.json")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrValidationFailed)
	require.False(t, outcome.Valid)
	require.Len(t, outcome.Violations, 1)
	require.Equal(t, "data", outcome.Violations[0].Path)
	require.Equal(t, "required", outcome.Violations[0].Constraint)
	require.Contains(t, outcome.Violations[0].Detail, "email")

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, outcome, verr.Outcome)
}

func TestValidate_EnumeratesAllViolations(t *testing.T) {
	v := newValidator(t)

	// Wrong type for id, missing email, missing support entirely.
	body := []byte(`{
	  "data": {
	    "id": "two",
	    "first_name": "Janet",
	    "last_name": "Weaver",
	    "avatar": "x"
	  }
	}`)

	outcome, err := v.Validate(body, "single_user_schema.json")
	require.ErrorIs(t, err, ErrValidationFailed)
	require.False(t, outcome.Valid)
	require.GreaterOrEqual(t, len(outcome.Violations), 3)

	constraints := make(map[string]bool)
	for _, violation := range outcome.Violations {
		constraints[violation.Constraint] = true
	}
	require.True(t, constraints["invalid_type"])
	require.True(t, constraints["required"])
}

func TestValidate_SchemaNotFound(t *testing.T) {
	v := newValidator(t)

	_, err := v.Validate([]byte(`{}`), "nonexistent_schema.json")
	require.ErrorIs(t, err, schema.ErrSchemaNotFound)
}

func TestValidate_Idempotent(t *testing.T) {
	v := newValidator(t)
	body := []byte(`{"data": {"id": 1}}`)

	first, err1 := v.Validate(body, "single_user_schema.json")
	second, err2 := v.Validate(body, "single_user_schema.json")

	require.ErrorIs(t, err1, ErrValidationFailed)
	require.ErrorIs(t, err2, ErrValidationFailed)
	require.Equal(t, first, second)
	// Input body untouched.
	require.JSONEq(t, `{"data": {"id": 1}}`, string(body))
}
