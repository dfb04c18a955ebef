package ws

import "encoding/json"

// Wire format for the live connection: every frame is a JSON object with an
// "event" name. Inbound parameters and outbound results ride in "data";
// error events carry {status, message} instead.

type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// params is the union of fields inbound events may carry.
type params struct {
	ChatID  int64  `json:"chatId"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

type outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type outboundError struct {
	Event   string `json:"event"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

func envelope(event string, data any) ([]byte, error) {
	return json.Marshal(outbound{Event: event, Data: data})
}

func errorEnvelope(status, message string) ([]byte, error) {
	return json.Marshal(outboundError{Event: "error", Status: status, Message: message})
}
