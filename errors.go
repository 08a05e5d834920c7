// Copyright 2025 Edgeo SCADA
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package opcua

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// StatusCode severity levels.
const (
	StatusSeverityGood      uint32 = 0x00000000
	StatusSeverityUncertain uint32 = 0x40000000
	StatusSeverityBad       uint32 = 0x80000000
	StatusSeverityMask      uint32 = 0xC0000000
)

// Status codes used on the method call path.
const (
	StatusGood                   StatusCode = 0x00000000
	StatusUncertain              StatusCode = 0x40000000
	StatusBad                    StatusCode = 0x80000000
	StatusBadUnexpectedError     StatusCode = 0x80010000
	StatusBadInternalError       StatusCode = 0x80020000
	StatusBadResourceUnavailable StatusCode = 0x80040000
	StatusBadEncodingError       StatusCode = 0x80060000
	StatusBadDecodingError       StatusCode = 0x80070000
	StatusBadTimeout             StatusCode = 0x800A0000
	StatusBadNothingToDo         StatusCode = 0x800F0000
	StatusBadDataTypeIdUnknown   StatusCode = 0x80110000
	StatusBadUserAccessDenied    StatusCode = 0x801F0000
	StatusBadNodeIdInvalid       StatusCode = 0x80330000
	StatusBadNodeIdUnknown       StatusCode = 0x80340000
	StatusBadNotWritable         StatusCode = 0x803B0000
	StatusBadOutOfRange          StatusCode = 0x803C0000
	StatusBadNotSupported        StatusCode = 0x803D0000
	StatusBadNotFound            StatusCode = 0x803E0000
	StatusBadNotImplemented      StatusCode = 0x80400000
	StatusBadStructureMissing    StatusCode = 0x80460000
	StatusBadTypeMismatch        StatusCode = 0x80740000
	StatusBadMethodInvalid       StatusCode = 0x80750000
	StatusBadArgumentsMissing    StatusCode = 0x80760000
	StatusBadConfigurationError  StatusCode = 0x80890000
	StatusBadDeviceFailure       StatusCode = 0x808B0000
	StatusBadInvalidArgument     StatusCode = 0x80AB0000
	StatusBadInvalidState        StatusCode = 0x80AF0000
	StatusBadSyntaxError         StatusCode = 0x80B60000
	StatusBadTooManyArguments    StatusCode = 0x80E50000
)

type statusCodeInfo struct {
	name        string
	description string
}

// statusCodeMap maps status codes to their info.
var statusCodeMap = map[StatusCode]statusCodeInfo{
	StatusGood:                   {"Good", "The operation completed successfully"},
	StatusUncertain:              {"Uncertain", "The operation completed however its outputs may not be usable"},
	StatusBad:                    {"Bad", "The operation failed"},
	StatusBadUnexpectedError:     {"BadUnexpectedError", "An unexpected error occurred"},
	StatusBadInternalError:       {"BadInternalError", "An internal error occurred"},
	StatusBadResourceUnavailable: {"BadResourceUnavailable", "An operating system resource is not available"},
	StatusBadEncodingError:       {"BadEncodingError", "Encoding halted because of invalid data"},
	StatusBadDecodingError:       {"BadDecodingError", "Decoding halted because of invalid data"},
	StatusBadTimeout:             {"BadTimeout", "The operation timed out"},
	StatusBadNothingToDo:         {"BadNothingToDo", "No processing could be done because there was nothing to do"},
	StatusBadDataTypeIdUnknown:   {"BadDataTypeIdUnknown", "The extension object cannot be decoded because the data type is not known"},
	StatusBadUserAccessDenied:    {"BadUserAccessDenied", "User access denied"},
	StatusBadNodeIdInvalid:       {"BadNodeIdInvalid", "The node ID format is not valid"},
	StatusBadNodeIdUnknown:       {"BadNodeIdUnknown", "The node ID refers to a node that does not exist"},
	StatusBadNotWritable:         {"BadNotWritable", "The access level does not allow writing to the node"},
	StatusBadOutOfRange:          {"BadOutOfRange", "The value was out of range"},
	StatusBadNotSupported:        {"BadNotSupported", "The requested operation is not supported"},
	StatusBadNotFound:            {"BadNotFound", "A requested item was not found"},
	StatusBadNotImplemented:      {"BadNotImplemented", "Requested operation is not implemented"},
	StatusBadStructureMissing:    {"BadStructureMissing", "A mandatory structured parameter was missing or null"},
	StatusBadTypeMismatch:        {"BadTypeMismatch", "The value provided does not match the expected data type"},
	StatusBadMethodInvalid:       {"BadMethodInvalid", "The method ID does not refer to a valid method"},
	StatusBadArgumentsMissing:    {"BadArgumentsMissing", "Required argument(s) are missing"},
	StatusBadConfigurationError:  {"BadConfigurationError", "There is a configuration error"},
	StatusBadDeviceFailure:       {"BadDeviceFailure", "There has been a failure in the device/data source"},
	StatusBadInvalidArgument:     {"BadInvalidArgument", "One or more arguments are invalid"},
	StatusBadInvalidState:        {"BadInvalidState", "The operation cannot be completed because the object is closed or in an invalid state"},
	StatusBadSyntaxError:         {"BadSyntaxError", "A value had an invalid syntax"},
	StatusBadTooManyArguments:    {"BadTooManyArguments", "Too many arguments were provided"},
}

// String returns the string representation of the status code.
func (s StatusCode) String() string {
	if info, ok := statusCodeMap[s]; ok {
		return info.name
	}
	return fmt.Sprintf("StatusCode(0x%08X)", uint32(s))
}

// Description returns a human-readable description of the status code.
func (s StatusCode) Description() string {
	if info, ok := statusCodeMap[s]; ok {
		return info.description
	}
	switch {
	case s.IsGood():
		return "The operation completed successfully"
	case s.IsUncertain():
		return "The operation completed with uncertain result"
	case s.IsBad():
		return "The operation failed"
	default:
		return "Unknown status"
	}
}

// Error returns a formatted error string with code, name, and description.
func (s StatusCode) Error() string {
	if info, ok := statusCodeMap[s]; ok {
		return fmt.Sprintf("%s (0x%08X): %s", info.name, uint32(s), info.description)
	}
	return fmt.Sprintf("StatusCode 0x%08X", uint32(s))
}

// ParseStatusCode resolves a symbolic name such as "BadTypeMismatch" or a
// hexadecimal code such as "0x80740000".
func ParseStatusCode(s string) (StatusCode, error) {
	for code, info := range statusCodeMap {
		if strings.EqualFold(info.name, s) {
			return code, nil
		}
	}
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "0x"), 16, 32)
	if err != nil {
		return StatusBad, errors.Errorf("opcua: unknown status code %q", s)
	}
	return StatusCode(v), nil
}

// IsGood returns true if the status code indicates success.
func (s StatusCode) IsGood() bool {
	return (uint32(s) & StatusSeverityMask) == StatusSeverityGood
}

// IsUncertain returns true if the status code indicates uncertain.
func (s StatusCode) IsUncertain() bool {
	return (uint32(s) & StatusSeverityMask) == StatusSeverityUncertain
}

// IsBad returns true if the status code indicates failure.
func (s StatusCode) IsBad() bool {
	return (uint32(s) & StatusSeverityMask) == StatusSeverityBad
}

// OPCUAError represents an OPC UA protocol error.
type OPCUAError struct {
	ServiceID  ServiceID
	StatusCode StatusCode
	Message    string
}

// Error implements the error interface.
func (e *OPCUAError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("opcua: %s (%s): %s", e.StatusCode, e.ServiceID, e.Message)
	}
	return fmt.Sprintf("opcua: %s (%s)", e.StatusCode, e.ServiceID)
}

// Is checks if the error matches the target.
func (e *OPCUAError) Is(target error) bool {
	switch t := target.(type) {
	case *OPCUAError:
		return e.StatusCode == t.StatusCode
	case StatusCode:
		return e.StatusCode == t
	}
	return false
}

// Common errors.
var (
	// ErrInvalidMessage indicates malformed binary data.
	ErrInvalidMessage = errors.New("opcua: invalid message")

	// ErrInvalidNodeID indicates an invalid NodeID was specified.
	ErrInvalidNodeID = errors.New("opcua: invalid node ID")

	// ErrUnsupportedType indicates a Go value has no OPC UA built-in type.
	ErrUnsupportedType = errors.New("opcua: unsupported type")

	// ErrStructureUnknown indicates an extension object body could not be decoded
	// because no structure was supplied for its encoding id.
	ErrStructureUnknown = errors.New("opcua: unknown structure")
)

// NewOPCUAError creates a new OPC UA error.
func NewOPCUAError(svc ServiceID, sc StatusCode, msg string) *OPCUAError {
	return &OPCUAError{
		ServiceID:  svc,
		StatusCode: sc,
		Message:    msg,
	}
}

// StatusOf extracts the status code carried by err. A nil error is Good,
// errors without a status map to BadUnexpectedError.
func StatusOf(err error) StatusCode {
	if err == nil {
		return StatusGood
	}
	var opcuaErr *OPCUAError
	if errors.As(err, &opcuaErr) {
		return opcuaErr.StatusCode
	}
	var sc StatusCode
	if errors.As(err, &sc) {
		return sc
	}
	return StatusBadUnexpectedError
}

// IsStatusCode checks if an error has a specific status code.
func IsStatusCode(err error, code StatusCode) bool {
	return err != nil && StatusOf(err) == code
}

// IsBadStatusCode checks if an error has a bad status code.
func IsBadStatusCode(err error) bool {
	return err != nil && StatusOf(err).IsBad()
}

// IsTypeMismatch checks if the error indicates an argument of the wrong type.
func IsTypeMismatch(err error) bool {
	return IsStatusCode(err, StatusBadTypeMismatch)
}

// IsArgumentsMissing checks if the error indicates too few arguments.
func IsArgumentsMissing(err error) bool {
	return IsStatusCode(err, StatusBadArgumentsMissing)
}

// IsNotImplemented checks if the error indicates an unimplemented method.
func IsNotImplemented(err error) bool {
	return IsStatusCode(err, StatusBadNotImplemented)
}

// IsNodeIDUnknown checks if the error indicates an unknown node ID.
func IsNodeIDUnknown(err error) bool {
	return IsStatusCode(err, StatusBadNodeIdUnknown)
}
