package report

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"apicheck/internal/executor"
	"apicheck/internal/validate"
)

func TestFileSink_Attach(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewFileSink(dir)
	require.NoError(t, err)

	require.NoError(t, sink.Attach("Request Details", "GET /users", ContentTypeText))
	require.NoError(t, sink.Attach("Violations", `{"valid":false}`, ContentTypeJSON))

	data, err := os.ReadFile(filepath.Join(dir, "request_details.txt"))
	require.NoError(t, err)
	require.Equal(t, "GET /users", string(data))

	data, err = os.ReadFile(filepath.Join(dir, "violations.json"))
	require.NoError(t, err)
	require.JSONEq(t, `{"valid":false}`, string(data))
}

func TestFileSink_DuplicateNamesNumbered(t *testing.T) {
	sink, err := NewFileSink(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, sink.Attach("Response Details", "first", ContentTypeText))
	require.NoError(t, sink.Attach("Response Details", "second", ContentTypeText))

	first, err := os.ReadFile(filepath.Join(sink.Dir(), "response_details.txt"))
	require.NoError(t, err)
	require.Equal(t, "first", string(first))

	second, err := os.ReadFile(filepath.Join(sink.Dir(), "response_details-2.txt"))
	require.NoError(t, err)
	require.Equal(t, "second", string(second))
}

// failingSink always errors; attaching through the helpers must not
// panic or propagate.
type failingSink struct{}

func (failingSink) Attach(string, string, ContentType) error {
	return os.ErrPermission
}

func TestAttachExchange_BestEffort(t *testing.T) {
	rec := &executor.ExchangeRecord{
		Request: executor.Request{
			Method:  http.MethodGet,
			URL:     "https://example.com/users",
			Headers: map[string]string{"Accept": "application/json"},
		},
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       `{"page":1}`,
		Attempts:   1,
	}

	// Must not panic or surface the sink failure.
	AttachExchange(failingSink{}, rec)
	AttachExchange(nil, rec)
	AttachExchange(NopSink{}, nil)
}

func TestAttachExchange_WritesBothSides(t *testing.T) {
	sink, err := NewFileSink(t.TempDir())
	require.NoError(t, err)

	AttachExchange(sink, &executor.ExchangeRecord{
		Request: executor.Request{
			Method:  http.MethodPost,
			URL:     "https://example.com/users",
			Headers: map[string]string{"Content-Type": "application/json"},
			Body:    []byte(`{"name":"morpheus"}`),
		},
		StatusCode: http.StatusCreated,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       `{"id":"7"}`,
		Attempts:   1,
	})

	reqDetail, err := os.ReadFile(filepath.Join(sink.Dir(), "request_details.txt"))
	require.NoError(t, err)
	require.Contains(t, string(reqDetail), "POST https://example.com/users")
	require.Contains(t, string(reqDetail), "morpheus")

	respDetail, err := os.ReadFile(filepath.Join(sink.Dir(), "response_details.txt"))
	require.NoError(t, err)
	require.Contains(t, string(respDetail), "Status Code: 201")
	require.Contains(t, string(respDetail), `{"id":"7"}`)
}

func TestAttachExchange_TransportFailure(t *testing.T) {
	sink, err := NewFileSink(t.TempDir())
	require.NoError(t, err)

	AttachExchange(sink, &executor.ExchangeRecord{
		Request:  executor.Request{Method: http.MethodGet, URL: "https://down.example.com"},
		Attempts: 3,
		Err:      "transport exhausted after 3 attempt(s): dial tcp: connection refused",
	})

	respDetail, err := os.ReadFile(filepath.Join(sink.Dir(), "response_details.txt"))
	require.NoError(t, err)
	require.Contains(t, string(respDetail), "Transport Error")
	require.Contains(t, string(respDetail), "Attempts: 3")
}

func TestAttachValidation(t *testing.T) {
	sink, err := NewFileSink(t.TempDir())
	require.NoError(t, err)

	AttachValidation(sink, validate.Outcome{
		SchemaName: "user_list_schema.json",
		Valid:      false,
		Violations: []validate.Violation{
			{Path: "data.0", Constraint: "required", Value: "map[]", Detail: "email is required"},
		},
	})

	data, err := os.ReadFile(filepath.Join(sink.Dir(), "schema_validation.json"))
	require.NoError(t, err)
	require.Contains(t, string(data), "user_list_schema.json")
	require.Contains(t, string(data), "email is required")
}

func TestWriteEnvironmentProperties(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteEnvironmentProperties(dir, "https://reqres.in/api"))

	data, err := os.ReadFile(filepath.Join(dir, "environment.properties"))
	require.NoError(t, err)
	require.Contains(t, string(data), "BaseURL=https://reqres.in/api")
	require.Contains(t, string(data), "Language=Go")
}
