package catalog

import "errors"

// serverMessager is implemented by errors that carry a human-readable message
// supplied by the server.
type serverMessager interface {
	ServerMessage() string
}

// ServerMessage returns the server-supplied message carried by err, if any.
func ServerMessage(err error) (string, bool) {
	var sm serverMessager
	if !errors.As(err, &sm) {
		return "", false
	}
	msg := sm.ServerMessage()
	return msg, msg != ""
}

// UserMessage returns the server-supplied message when present, else fallback.
func UserMessage(err error, fallback string) string {
	if msg, ok := ServerMessage(err); ok {
		return msg
	}
	return fallback
}
