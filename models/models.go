// Package models holds the wire-level JSON shapes shared between the bridge,
// the HTTP server, and the runtime loop.
package models

import "encoding/json"

// Session is the remote browser resource handed to a handler for the
// duration of one invocation. Extra carries any fields outside id/connectUrl
// (the provider's extra session fields) so they survive the JSON round trip
// to the handler (spec §3).
type Session struct {
	ID         string                 `json:"id"`
	ConnectURL string                 `json:"connectUrl"`
	Extra      map[string]interface{} `json:"-"`
}

// MarshalJSON flattens Extra alongside the known fields.
func (s Session) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(s.Extra)+2)
	for k, v := range s.Extra {
		out[k] = v
	}
	out["id"] = s.ID
	out["connectUrl"] = s.ConnectURL
	return json.Marshal(out)
}

// UnmarshalJSON captures every field outside {id, connectUrl} into Extra.
func (s *Session) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := raw["id"]; ok {
		if err := json.Unmarshal(v, &s.ID); err != nil {
			return err
		}
		delete(raw, "id")
	}
	if v, ok := raw["connectUrl"]; ok {
		if err := json.Unmarshal(v, &s.ConnectURL); err != nil {
			return err
		}
		delete(raw, "connectUrl")
	}
	if len(raw) == 0 {
		return nil
	}
	extra := make(map[string]interface{}, len(raw))
	for k, v := range raw {
		var val interface{}
		if err := json.Unmarshal(v, &val); err != nil {
			return err
		}
		extra[k] = val
	}
	s.Extra = extra
	return nil
}

// InvocationMeta describes the originating invocation, independent of the
// session attached to it.
type InvocationMeta struct {
	ID     string `json:"id"`
	Region string `json:"region"`
}

// InvocationContext is passed to the handler alongside params. Context.Session
// is always overwritten by the server with the session it just acquired,
// regardless of what the caller supplied; Extra preserves any unrecognized
// top-level context fields (spec §3).
type InvocationContext struct {
	Invocation InvocationMeta         `json:"invocation"`
	Session    Session                `json:"session"`
	Extra      map[string]interface{} `json:"-"`
}

// MarshalJSON flattens Extra alongside the known fields.
func (c InvocationContext) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(c.Extra)+2)
	for k, v := range c.Extra {
		out[k] = v
	}
	out["invocation"] = c.Invocation
	out["session"] = c.Session
	return json.Marshal(out)
}

// UnmarshalJSON captures every field outside {invocation, session} into Extra.
func (c *InvocationContext) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := raw["invocation"]; ok {
		if err := json.Unmarshal(v, &c.Invocation); err != nil {
			return err
		}
		delete(raw, "invocation")
	}
	if v, ok := raw["session"]; ok {
		if err := json.Unmarshal(v, &c.Session); err != nil {
			return err
		}
		delete(raw, "session")
	}
	if len(raw) == 0 {
		return nil
	}
	extra := make(map[string]interface{}, len(raw))
	for k, v := range raw {
		var val interface{}
		if err := json.Unmarshal(v, &val); err != nil {
			return err
		}
		extra[k] = val
	}
	c.Extra = extra
	return nil
}

// RuntimeEventPayload is the body of a completed runtime-next response: the
// work the runtime loop must execute.
type RuntimeEventPayload struct {
	FunctionName string                 `json:"functionName"`
	Params       map[string]interface{} `json:"params"`
	Context      InvocationContext      `json:"context"`
}

// RuntimeError is the normalized shape of a handler failure, posted by the
// runtime loop to the bridge and reshaped for the external caller.
type RuntimeError struct {
	ErrorMessage string   `json:"errorMessage"`
	ErrorType    string   `json:"errorType"`
	StackTrace   []string `json:"stackTrace"`
}

// InvokeRequest is the body accepted by POST /v1/functions/{name}/invoke.
type InvokeRequest struct {
	Params  map[string]interface{} `json:"params,omitempty"`
	Context *InvocationContext      `json:"context,omitempty"`
}

// AcceptedResponse is returned by the runtime response/error endpoints on a
// successful match.
type AcceptedResponse struct {
	Status string `json:"status"`
}
