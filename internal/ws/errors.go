package ws

import "fmt"

// Error type strings sent in the "type" field of an error frame.
const (
	TypeUnauthorized  = "unauthorized_user"
	TypeInvalidToken  = "invalid_token"
	TypeInvalidMember = "invalid_member"
	TypeInvalidInput  = "invalid_input"
	TypeInvalidEntry  = "invalid_entry"
	TypeInvalidOwner  = "invalid_owner"
	TypeNonExistent   = "non_existent"
	TypeNotAllowed    = "not_allowed"
	TypeServerError   = "server_error"
)

// Close codes used as a mini-protocol on top of the websocket close frame.
// Clients key off these exact integers, so they are part of the wire contract.
const (
	CloseUnauthorized = 4001 // missing/invalid credential, membership, ownership
	CloseNotFound     = 4004 // chat/user/message id doesn't resolve
	CloseBadMessage   = 4220 // malformed chat event payload
	CloseBadPayload   = 4000 // malformed notification payload
)

// SocketError is a terminal connection error: one structured frame is sent
// to the peer, then the connection is closed with Code as the close code.
type SocketError struct {
	Type    string
	Code    int
	Message string
	Data    any
}

func (e *SocketError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Type, e.Code, e.Message)
}

// errorFrame is the JSON shape of an outbound error frame.
type errorFrame struct {
	Status  string `json:"status"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *SocketError) frame() errorFrame {
	return errorFrame{
		Status:  "error",
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Data:    e.Data,
	}
}

func ErrUnauthorized(msg string) *SocketError {
	return &SocketError{Type: TypeUnauthorized, Code: CloseUnauthorized, Message: msg}
}

func ErrInvalidToken() *SocketError {
	return &SocketError{Type: TypeInvalidToken, Code: CloseUnauthorized, Message: "Auth Token is Invalid or Expired"}
}

func ErrInvalidMember() *SocketError {
	return &SocketError{Type: TypeInvalidMember, Code: CloseUnauthorized, Message: "You're not a member of this chat"}
}

func ErrInvalidInput(msg string) *SocketError {
	return &SocketError{Type: TypeInvalidInput, Code: CloseNotFound, Message: msg}
}

func ErrInvalidEntry(msg string, code int) *SocketError {
	return &SocketError{Type: TypeInvalidEntry, Code: code, Message: msg}
}

func ErrInvalidOwner(msg string) *SocketError {
	return &SocketError{Type: TypeInvalidOwner, Code: CloseUnauthorized, Message: msg}
}

func ErrNonExistent(msg string) *SocketError {
	return &SocketError{Type: TypeNonExistent, Code: CloseNotFound, Message: msg}
}

func ErrNotAllowed(msg string) *SocketError {
	return &SocketError{Type: TypeNotAllowed, Code: CloseUnauthorized, Message: msg}
}
