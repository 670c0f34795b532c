package onebot

import (
	"encoding/json"
	"fmt"
)

// Segment is one element of an outgoing OneBot v11 message array
type Segment struct {
	Type string            `json:"type"`
	Data map[string]string `json:"data"`
}

// Text returns a text segment
func Text(s string) Segment {
	return Segment{Type: "text", Data: map[string]string{"text": s}}
}

// Image returns an image segment for a local file
func Image(file string) Segment {
	return Segment{Type: "image", Data: map[string]string{"file": file}}
}

// actionRequest is sent to the runtime
type actionRequest struct {
	Action string `json:"action"`
	Params any    `json:"params,omitempty"`
	Echo   string `json:"echo"`
}

// ActionResponse is the runtime's answer to an action
type ActionResponse struct {
	Status  string          `json:"status"`
	RetCode int             `json:"retcode"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
	Wording string          `json:"wording,omitempty"`
	Echo    string          `json:"echo"`
}

// Err converts a failed response into an error
func (r *ActionResponse) Err() error {
	if r.Status == "ok" && r.RetCode == 0 {
		return nil
	}
	msg := r.Wording
	if msg == "" {
		msg = r.Message
	}
	return &ActionError{Status: r.Status, RetCode: r.RetCode, Message: msg}
}

// ActionError is returned when the runtime rejects an action
type ActionError struct {
	Status  string
	RetCode int
	Message string
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("onebot action failed: status=%s retcode=%d %s", e.Status, e.RetCode, e.Message)
}

// SendPrivateMsgParams are the parameters of send_private_msg
type SendPrivateMsgParams struct {
	UserID  int64     `json:"user_id"`
	Message []Segment `json:"message"`
}

// SendGroupMsgParams are the parameters of send_group_msg
type SendGroupMsgParams struct {
	GroupID int64     `json:"group_id"`
	Message []Segment `json:"message"`
}

// SendMsgResult is the data of a successful send
type SendMsgResult struct {
	MessageID int64 `json:"message_id"`
}
