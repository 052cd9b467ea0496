package suite

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
)

// Schema document names the default checks rely on.
const (
	UserListSchema   = "user_list_schema.json"
	SingleUserSchema = "single_user_schema.json"
	CreateUserSchema = "create_user_schema.json"
)

// DefaultChecks returns the standard conformance checks for the
// reqres-style users API.
func DefaultChecks() []Check {
	checks := []Check{
		{
			Name:         "user list",
			Method:       http.MethodGet,
			Path:         "/users?page=2",
			WantStatus:   []int{http.StatusOK},
			Schema:       UserListSchema,
			CheckHeaders: true,
		},
	}

	for _, id := range []int{1, 2, 5} {
		checks = append(checks, Check{
			Name:       fmt.Sprintf("single user %d", id),
			Method:     http.MethodGet,
			Path:       fmt.Sprintf("/users/%d", id),
			WantStatus: []int{http.StatusOK},
			Schema:     SingleUserSchema,
		})
	}

	checks = append(checks,
		Check{
			Name:          "user not found",
			Method:        http.MethodGet,
			Path:          "/users/9999",
			WantStatus:    []int{http.StatusNotFound},
			WantEmptyBody: true,
		},
		Check{
			Name:       "create user",
			Method:     http.MethodPost,
			Path:       "/users",
			Body:       []byte(`{"name":"morpheus","job":"leader"}`),
			WantStatus: []int{http.StatusCreated},
			Schema:     CreateUserSchema,
		},
		Check{
			Name:          "create user large payload",
			Method:        http.MethodPost,
			Path:          "/users",
			Body:          largePayload(),
			WantStatus:    []int{http.StatusCreated},
			RequireFields: []string{"id", "createdAt"},
		},
		Check{
			// Some APIs answer invalid IDs with 400 instead of 404;
			// both document a rejected request.
			Name:       "invalid user id",
			Method:     http.MethodGet,
			Path:       "/users/abc",
			WantStatus: []int{http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity},
		},
		Check{
			Name:          "nonexistent user id",
			Method:        http.MethodGet,
			Path:          "/users/999999",
			WantStatus:    []int{http.StatusNotFound},
			WantEmptyBody: true,
		},
		Check{
			// Some APIs accept an empty user payload, others reject
			// it; either outcome documents the contract.
			Name:       "create user empty payload",
			Method:     http.MethodPost,
			Path:       "/users",
			Body:       []byte(`{}`),
			WantStatus: []int{http.StatusCreated, http.StatusBadRequest, http.StatusUnprocessableEntity},
		},
		Check{
			Name:       "create user invalid json",
			Method:     http.MethodPost,
			Path:       "/users",
			Body:       []byte(`{"name": "test", "job":}`),
			WantStatus: []int{http.StatusBadRequest},
		},
		Check{
			// Exploratory probe: catch-all routes make the behavior
			// here API-specific, so the outcome is only recorded.
			Name:    "invalid endpoint",
			Method:  http.MethodGet,
			Path:    "/invalid-endpoint",
			Observe: true,
		},
		Check{
			Name:         "response time",
			Method:       http.MethodGet,
			Path:         "/users?page=1",
			WantStatus:   []int{http.StatusOK},
			CheckLatency: true,
		},
	)

	return checks
}

// LoadPayloadChecks reads a JSON array of user payloads and produces
// one create-user check per payload, for data-driven runs.
func LoadPayloadChecks(path string) ([]Check, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading payloads %s: %w", path, err)
	}

	var payloads []json.RawMessage
	if err := json.Unmarshal(data, &payloads); err != nil {
		return nil, fmt.Errorf("parsing payloads %s: %w", path, err)
	}

	checks := make([]Check, 0, len(payloads))
	for i, payload := range payloads {
		checks = append(checks, Check{
			Name:       fmt.Sprintf("create user payload %d", i+1),
			Method:     http.MethodPost,
			Path:       "/users",
			Body:       []byte(payload),
			WantStatus: []int{http.StatusCreated},
			Schema:     CreateUserSchema,
		})
	}
	return checks, nil
}

// largePayload builds a boundary-test payload with an oversized field.
func largePayload() []byte {
	payload := map[string]string{
		"name": "boundary",
		"job":  strings.Repeat("architect ", 500),
	}
	data, _ := json.Marshal(payload)
	return data
}
