package httpx

import (
	"encoding/json"
	"net/http"
)

// WriteJSON writes a success envelope. Payload fields are merged next to the
// success flag so every response keeps the {success, message?, ...} shape.
func WriteJSON(w http.ResponseWriter, status int, payload map[string]any) {
	body := make(map[string]any, len(payload)+1)
	body["success"] = true
	for k, v := range payload {
		if k == "success" {
			continue
		}
		body[k] = v
	}

	w.Header().Set("Content-Type", "application/json")
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteMessage writes a success envelope carrying only a human-readable
// message.
func WriteMessage(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]any{"message": sanitize(message, 512)})
}
