package main

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// newMessagesHandler imita a API de mensagens o bastante para exercitar o
// gateway localmente: confere os headers, ecoa o modelo e devolve request-id.
// apiKey vazio aceita qualquer credencial.
func newMessagesHandler(apiKey string, logger logrus.FieldLogger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := "req_" + uuid.NewString()
		w.Header().Set("request-id", requestID)
		w.Header().Set("Content-Type", "application/json")

		if r.Method != http.MethodPost {
			writeMockError(w, http.StatusMethodNotAllowed, "invalid_request_error", "method not allowed")
			return
		}
		key := r.Header.Get("x-api-key")
		if key == "" || (apiKey != "" && key != apiKey) {
			writeMockError(w, http.StatusUnauthorized, "authentication_error", "invalid x-api-key")
			return
		}
		if r.Header.Get("anthropic-version") == "" {
			writeMockError(w, http.StatusBadRequest, "invalid_request_error", "anthropic-version header is required")
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil || !gjson.ValidBytes(body) {
			writeMockError(w, http.StatusBadRequest, "invalid_request_error", "body must be JSON")
			return
		}
		model := gjson.GetBytes(body, "model").String()
		turns := len(gjson.GetBytes(body, "messages").Array())

		logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"model":      model,
			"messages":   turns,
		}).Info("mock message served")

		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":    "msg_" + uuid.NewString(),
			"type":  "message",
			"role":  "assistant",
			"model": model,
			"content": []map[string]string{
				{"type": "text", "text": "ok"},
			},
			"stop_reason": "end_turn",
		})
	})
}

func writeMockError(w http.ResponseWriter, status int, kind, msg string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"type":  "error",
		"error": map[string]string{"type": kind, "message": msg},
	})
}
