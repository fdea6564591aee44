package mockservice

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/form3tech-oss/pact-consumer/pkg/mockserver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const getOrder = `{
	"description": "a request for order 1",
	"request": {"method": "GET", "path": "/order/1"},
	"response": {
	  "status": 200,
	  "headers": {"Content-Type": "application/json"},
	  "body": {"id": {"json_class": "Pact::SomethingLike", "contents": 1}}
	}
  }`

const createUser = `{
	"description": "a request to create a user",
	"request": {
	  "method": "POST",
	  "path": "/users",
	  "headers": {"Content-Type": "application/json"},
	  "body": {"name": "sam"}
	},
	"response": {"status": 201}
  }`

func newTestService(t *testing.T, definitions ...string) *Service {
	raw := make([]json.RawMessage, 0, len(definitions))
	for _, d := range definitions {
		raw = append(raw, json.RawMessage(d))
	}
	config := mockserver.HTTPConfig("", 0, 0, mockserver.ImplementationDefault)
	config.WaitDelay = 5 * time.Millisecond
	config.WaitDuration = 50 * time.Millisecond

	s, err := New(raw, config)
	require.NoError(t, err)
	return s
}

func TestServiceServesMatchingInteraction(t *testing.T) {
	for _, implementation := range []mockserver.Implementation{mockserver.ImplementationEcho, mockserver.ImplementationNetHTTP} {
		t.Run(string(implementation), func(t *testing.T) {
			s := newTestService(t, getOrder)
			handler := s.Handler(implementation)

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/order/1", nil))

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.JSONEq(t, `{"id":1}`, rec.Body.String())
			assert.Empty(t, s.Mismatches())
		})
	}
}

func TestServiceRecordsUnexpectedRequest(t *testing.T) {
	s := newTestService(t, getOrder)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/order/2", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "error_message")
	assert.Equal(t, []mockserver.Mismatch{
		mockserver.UnexpectedRequest{Method: http.MethodGet, Path: "/order/2"},
		mockserver.MissingRequest{Description: "a request for order 1", Method: http.MethodGet, Path: "/order/1"},
	}, s.Mismatches())
}

func TestServiceRecordsRequestMismatch(t *testing.T) {
	s := newTestService(t, createUser)

	req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(`{"name":"bob"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	mismatches := s.Mismatches()
	require.Len(t, mismatches, 2)
	mismatch, ok := mismatches[0].(mockserver.RequestMismatch)
	require.True(t, ok)
	assert.Equal(t, []string{`value 'bob' at path '$["body"]["name"]' does not match constraint 'sam'`},
		mismatch.Violations["a request to create a user"])
	assert.IsType(t, mockserver.MissingRequest{}, mismatches[1])
}

func TestServiceExpectsRepeatedInteractionsSeparately(t *testing.T) {
	s := newTestService(t, getOrder, getOrder)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/order/1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, s.Mismatches(), 1)

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/order/1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, s.Mismatches())
}

func TestServiceWaitForInteractions(t *testing.T) {
	s := newTestService(t, getOrder)

	go func() {
		time.Sleep(10 * time.Millisecond)
		s.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/order/1", nil))
	}()

	assert.NoError(t, s.WaitForInteractions(context.Background()))
}

func TestServiceWaitForInteractionsTimesOut(t *testing.T) {
	s := newTestService(t, getOrder)
	assert.Error(t, s.WaitForInteractions(context.Background()))
}

func TestNewServiceRejectsInvalidDefinitions(t *testing.T) {
	_, err := New([]json.RawMessage{json.RawMessage(`{"description": "broken"}`)}, mockserver.Config{})
	assert.Error(t, err)
}

const listOrders = `{
	"description": "a request for a page of orders",
	"request": {
	  "method": "POST",
	  "path": "/orders/search",
	  "query": {"page": {"json_class": "Pact::SomethingLike", "contents": "1"}},
	  "headers": {
		"Content-Type": "application/json",
		"Authorization": {"json_class": "Pact::SomethingLike", "contents": "Bearer example"}
	  },
	  "body": {"status": "open", "items": [1, 2]}
	},
	"response": {"status": 200}
  }`

func TestServiceMatchesRequestShapes(t *testing.T) {
	tests := []struct {
		name          string
		target        string
		authorization string
		body          string
		wantStatus    int
		wantViolation string
	}{
		{
			name:          "type matched header and query accept other values",
			target:        "/orders/search?page=7",
			authorization: "Bearer real-token",
			body:          `{"status":"open","items":[1,2]}`,
			wantStatus:    http.StatusOK,
		},
		{
			name:          "undeclared query parameter",
			target:        "/orders/search?page=7&debug=true",
			authorization: "Bearer real-token",
			body:          `{"status":"open","items":[1,2]}`,
			wantStatus:    http.StatusInternalServerError,
			wantViolation: `unexpected keys [debug] at path '$["query"]'`,
		},
		{
			name:          "missing header",
			target:        "/orders/search?page=7",
			body:          `{"status":"open","items":[1,2]}`,
			wantStatus:    http.StatusInternalServerError,
			wantViolation: `no value found at path '$["headers"]["Authorization"]'`,
		},
		{
			name:          "undeclared body key",
			target:        "/orders/search?page=7",
			authorization: "Bearer real-token",
			body:          `{"status":"open","items":[1,2],"b":2}`,
			wantStatus:    http.StatusInternalServerError,
			wantViolation: `unexpected keys [b] at path '$["body"]'`,
		},
		{
			name:          "longer array",
			target:        "/orders/search?page=7",
			authorization: "Bearer real-token",
			body:          `{"status":"open","items":[1,2,3]}`,
			wantStatus:    http.StatusInternalServerError,
			wantViolation: `array at path '$["body"]["items"]' has 3 elements, expected 2`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestService(t, listOrders)

			req := httptest.NewRequest(http.MethodPost, tt.target, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			if tt.authorization != "" {
				req.Header.Set("Authorization", tt.authorization)
			}
			rec := httptest.NewRecorder()
			s.Handler(mockserver.ImplementationEcho).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantViolation == "" {
				assert.Empty(t, s.Mismatches())
				return
			}

			mismatches := s.Mismatches()
			require.Len(t, mismatches, 2)
			mismatch, ok := mismatches[0].(mockserver.RequestMismatch)
			require.True(t, ok)
			assert.Contains(t, mismatch.Violations["a request for a page of orders"], tt.wantViolation)
		})
	}
}
