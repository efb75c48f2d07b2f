package kernel

import "fmt"

// CommandKind closes the set of control commands (spec §3 "Control
// command set").
type CommandKind string

const (
	CmdHealth           CommandKind = "Health"
	CmdStatus           CommandKind = "Status"
	CmdSubsystemsList   CommandKind = "SubsystemsList"
	CmdComponentTree    CommandKind = "ComponentTree"
	CmdShutdown         CommandKind = "Shutdown"
	CmdSubsystemEnable  CommandKind = "SubsystemEnable"
	CmdSubsystemDisable CommandKind = "SubsystemDisable"
)

// ControlCommand is a closed variant: the operator surface that
// bypasses handler routing entirely (spec §4.2).
type ControlCommand struct {
	Kind CommandKind
	// ID is only meaningful for SubsystemEnable / SubsystemDisable.
	ID string
}

func Health() ControlCommand         { return ControlCommand{Kind: CmdHealth} }
func Status() ControlCommand         { return ControlCommand{Kind: CmdStatus} }
func SubsystemsList() ControlCommand { return ControlCommand{Kind: CmdSubsystemsList} }
func ComponentTreeCommand() ControlCommand {
	return ControlCommand{Kind: CmdComponentTree}
}
func Shutdown() ControlCommand { return ControlCommand{Kind: CmdShutdown} }
func SubsystemEnable(id string) ControlCommand {
	return ControlCommand{Kind: CmdSubsystemEnable, ID: id}
}
func SubsystemDisable(id string) ControlCommand {
	return ControlCommand{Kind: CmdSubsystemDisable, ID: id}
}

// ResponseKind closes the set of successful control responses.
type ResponseKind string

const (
	RespHealth        ResponseKind = "Health"
	RespStatus        ResponseKind = "Status"
	RespSubsystems    ResponseKind = "Subsystems"
	RespComponentTree ResponseKind = "ComponentTree"
	RespAck           ResponseKind = "Ack"
)

// ControlResponse is the parallel closed variant of successful replies.
type ControlResponse struct {
	Kind     ResponseKind
	UptimeMS uint64
	Handlers []string
	TreeJSON string
	Message  string
}

func HealthResponse(uptimeMS uint64) ControlResponse {
	return ControlResponse{Kind: RespHealth, UptimeMS: uptimeMS}
}

func StatusResponse(uptimeMS uint64, handlers []string) ControlResponse {
	return ControlResponse{Kind: RespStatus, UptimeMS: uptimeMS, Handlers: handlers}
}

func SubsystemsResponse(handlers []string) ControlResponse {
	return ControlResponse{Kind: RespSubsystems, Handlers: handlers}
}

func ComponentTreeResponse(treeJSON string) ControlResponse {
	return ControlResponse{Kind: RespComponentTree, TreeJSON: treeJSON}
}

func AckResponse(message string) ControlResponse {
	return ControlResponse{Kind: RespAck, Message: message}
}

// ErrorKind closes the set of control-plane errors.
type ErrorKind string

const (
	ErrNotImplemented ErrorKind = "NotImplemented"
	ErrInvalid        ErrorKind = "Invalid"
)

// ControlError is the parallel closed variant of failed replies.
type ControlError struct {
	Kind    ErrorKind
	Message string
}

// Error implements the error interface so ControlError can be returned
// directly from client-facing code.
func (e *ControlError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func NotImplementedError(message string) *ControlError {
	return &ControlError{Kind: ErrNotImplemented, Message: message}
}

func InvalidError(message string) *ControlError {
	return &ControlError{Kind: ErrInvalid, Message: message}
}

// ControlResult is the outcome of a control Request: either a response
// or an error, never both.
type ControlResult struct {
	Response ControlResponse
	Err      *ControlError
}
