package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func newMock(t *testing.T, apiKey string) (http.Handler, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.InfoLevel)
	return newMessagesHandler(apiKey, logger), hook
}

func TestMessages_EchoesModel(t *testing.T) {
	h, hook := newMock(t, "secret")

	req := httptest.NewRequest(http.MethodPost, "/v1/messages", strings.NewReader(`{"model":"m-1","messages":[{"role":"user","content":"hi"}]}`))
	req.Header.Set("x-api-key", "secret")
	req.Header.Set("anthropic-version", "2023-06-01")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.HasPrefix(rr.Header().Get("request-id"), "req_"))
	assert.Equal(t, "m-1", gjson.Get(rr.Body.String(), "model").String())
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, 1, hook.LastEntry().Data["messages"])
}

func TestMessages_RejectsWrongKey(t *testing.T) {
	h, _ := newMock(t, "secret")

	req := httptest.NewRequest(http.MethodPost, "/v1/messages", strings.NewReader(`{}`))
	req.Header.Set("x-api-key", "other")
	req.Header.Set("anthropic-version", "2023-06-01")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "authentication_error", gjson.Get(rr.Body.String(), "error.type").String())
	assert.NotEmpty(t, rr.Header().Get("request-id"))
}

func TestMessages_RequiresVersion(t *testing.T) {
	h, _ := newMock(t, "")

	req := httptest.NewRequest(http.MethodPost, "/v1/messages", strings.NewReader(`{}`))
	req.Header.Set("x-api-key", "any")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
