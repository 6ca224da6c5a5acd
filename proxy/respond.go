package proxy

import (
	"encoding/json"
	"net/http"

	"edge-proxy/middleware/origin"
)

type errorBody struct {
	Error     string   `json:"error"`
	Message   string   `json:"message,omitempty"`
	ResetTime string   `json:"resetTime,omitempty"`
	Required  []string `json:"required,omitempty"`
}

// writeJSON escreve v com Content-Type JSON. Cada conjunto em overlays é
// aplicado por cima, na ordem; os CORS vão por último.
func writeJSON(w http.ResponseWriter, status int, v any, overlays ...http.Header) {
	w.Header().Set("Content-Type", "application/json")
	for _, h := range overlays {
		origin.Apply(w.Header(), h)
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(msg))
}
