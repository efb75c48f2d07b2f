package kernel

import (
	"encoding/json"
	"fmt"
)

// This file implements the JSON wire shapes of spec §6, matching the
// externally-tagged enum representation original_source/.../control.rs
// gets for free from serde: a unit variant serialises as a bare string
// ("Health"), a struct variant as a single-key object
// ({"SubsystemEnable":{"id":"…"}}). Go has no enum/ADT support, so the
// closed ControlCommand/ControlResponse/ControlError variants defined
// in command.go carry their own (Un)MarshalJSON here to reproduce that
// shape exactly — this is load-bearing for araliyactl <-> araliyad wire
// compatibility, not cosmetic.

// MarshalJSON implements the request-line shape: unit variants as bare
// strings, SubsystemEnable/SubsystemDisable as {"Kind":{"id":"…"}}.
func (c ControlCommand) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case CmdHealth, CmdStatus, CmdSubsystemsList, CmdComponentTree, CmdShutdown:
		return json.Marshal(string(c.Kind))
	case CmdSubsystemEnable, CmdSubsystemDisable:
		return json.Marshal(map[string]struct {
			ID string `json:"id"`
		}{string(c.Kind): {ID: c.ID}})
	default:
		return nil, fmt.Errorf("kernel: unknown control command kind %q", c.Kind)
	}
}

// UnmarshalJSON accepts either the bare-string or single-key-object form.
func (c *ControlCommand) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		switch CommandKind(asString) {
		case CmdHealth, CmdStatus, CmdSubsystemsList, CmdComponentTree, CmdShutdown:
			c.Kind = CommandKind(asString)
			c.ID = ""
			return nil
		default:
			return fmt.Errorf("kernel: unknown control command %q", asString)
		}
	}

	var asObject map[string]struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &asObject); err != nil {
		return fmt.Errorf("kernel: malformed control command: %w", err)
	}
	if len(asObject) != 1 {
		return fmt.Errorf("kernel: malformed control command: expected exactly one key")
	}
	for k, v := range asObject {
		switch CommandKind(k) {
		case CmdSubsystemEnable, CmdSubsystemDisable:
			c.Kind = CommandKind(k)
			c.ID = v.ID
			return nil
		default:
			return fmt.Errorf("kernel: unknown control command %q", k)
		}
	}
	return nil
}

// MarshalJSON implements the response-line shape: every ControlResponse
// variant carries fields, so it is always {"Kind":{fields...}}.
func (r ControlResponse) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case RespHealth:
		return json.Marshal(map[string]any{
			string(r.Kind): struct {
				UptimeMS uint64 `json:"uptime_ms"`
			}{r.UptimeMS},
		})
	case RespStatus:
		return json.Marshal(map[string]any{
			string(r.Kind): struct {
				UptimeMS uint64   `json:"uptime_ms"`
				Handlers []string `json:"handlers"`
			}{r.UptimeMS, nonNilStrings(r.Handlers)},
		})
	case RespSubsystems:
		return json.Marshal(map[string]any{
			string(r.Kind): struct {
				Handlers []string `json:"handlers"`
			}{nonNilStrings(r.Handlers)},
		})
	case RespComponentTree:
		return json.Marshal(map[string]any{
			string(r.Kind): struct {
				TreeJSON string `json:"tree_json"`
			}{r.TreeJSON},
		})
	case RespAck:
		return json.Marshal(map[string]any{
			string(r.Kind): struct {
				Message string `json:"message"`
			}{r.Message},
		})
	default:
		return nil, fmt.Errorf("kernel: unknown control response kind %q", r.Kind)
	}
}

// nonNilStrings replaces a nil slice with an empty one so it marshals
// as [] rather than null — the wire contract promises an array.
func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// UnmarshalJSON accepts the single-key-object form for every variant.
func (r *ControlResponse) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("kernel: malformed control response: %w", err)
	}
	if len(raw) != 1 {
		return fmt.Errorf("kernel: malformed control response: expected exactly one key")
	}
	for k, v := range raw {
		switch ResponseKind(k) {
		case RespHealth:
			var body struct {
				UptimeMS uint64 `json:"uptime_ms"`
			}
			if err := json.Unmarshal(v, &body); err != nil {
				return err
			}
			*r = HealthResponse(body.UptimeMS)
		case RespStatus:
			var body struct {
				UptimeMS uint64   `json:"uptime_ms"`
				Handlers []string `json:"handlers"`
			}
			if err := json.Unmarshal(v, &body); err != nil {
				return err
			}
			*r = StatusResponse(body.UptimeMS, body.Handlers)
		case RespSubsystems:
			var body struct {
				Handlers []string `json:"handlers"`
			}
			if err := json.Unmarshal(v, &body); err != nil {
				return err
			}
			*r = SubsystemsResponse(body.Handlers)
		case RespComponentTree:
			var body struct {
				TreeJSON string `json:"tree_json"`
			}
			if err := json.Unmarshal(v, &body); err != nil {
				return err
			}
			*r = ComponentTreeResponse(body.TreeJSON)
		case RespAck:
			var body struct {
				Message string `json:"message"`
			}
			if err := json.Unmarshal(v, &body); err != nil {
				return err
			}
			*r = AckResponse(body.Message)
		default:
			return fmt.Errorf("kernel: unknown control response kind %q", k)
		}
	}
	return nil
}

// MarshalJSON implements the error-line shape, always {"Kind":{"message":"…"}}.
func (e ControlError) MarshalJSON() ([]byte, error) {
	switch e.Kind {
	case ErrNotImplemented, ErrInvalid:
		return json.Marshal(map[string]any{
			string(e.Kind): struct {
				Message string `json:"message"`
			}{e.Message},
		})
	default:
		return nil, fmt.Errorf("kernel: unknown control error kind %q", e.Kind)
	}
}

// UnmarshalJSON accepts the single-key-object form.
func (e *ControlError) UnmarshalJSON(data []byte) error {
	var raw map[string]struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("kernel: malformed control error: %w", err)
	}
	if len(raw) != 1 {
		return fmt.Errorf("kernel: malformed control error: expected exactly one key")
	}
	for k, v := range raw {
		switch ErrorKind(k) {
		case ErrNotImplemented, ErrInvalid:
			e.Kind = ErrorKind(k)
			e.Message = v.Message
			return nil
		default:
			return fmt.Errorf("kernel: unknown control error %q", k)
		}
	}
	return nil
}

// WireResponse is the response-line envelope: {"ok": <ControlResponse>}
// on success, {"err": <ControlError>} on failure.
type WireResponse struct {
	Result ControlResult
}

// NewWireResponse wraps a ControlResult for serialisation.
func NewWireResponse(r ControlResult) WireResponse {
	return WireResponse{Result: r}
}

func (w WireResponse) MarshalJSON() ([]byte, error) {
	if w.Result.Err != nil {
		return json.Marshal(struct {
			Err *ControlError `json:"err"`
		}{w.Result.Err})
	}
	return json.Marshal(struct {
		Ok ControlResponse `json:"ok"`
	}{w.Result.Response})
}

func (w *WireResponse) UnmarshalJSON(data []byte) error {
	var asOk struct {
		Ok *ControlResponse `json:"ok"`
	}
	if err := json.Unmarshal(data, &asOk); err == nil && asOk.Ok != nil {
		w.Result = ControlResult{Response: *asOk.Ok}
		return nil
	}
	var asErr struct {
		Err *ControlError `json:"err"`
	}
	if err := json.Unmarshal(data, &asErr); err != nil {
		return fmt.Errorf("kernel: malformed wire response: %w", err)
	}
	if asErr.Err == nil {
		return fmt.Errorf("kernel: malformed wire response: neither ok nor err present")
	}
	w.Result = ControlResult{Err: asErr.Err}
	return nil
}
