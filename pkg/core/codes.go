package core

import "errors"

// Code maps an error kind to its stable protocol code.
// Codes are grouped by family: 400xx malformed input, 404xx not found,
// 409xx conflict, 422xx semantic validation, 500xx internal/storage.
func Code(k Kind) int {
	switch k {
	case KindMalformedRequestJSON:
		return 40000
	case KindUnknownPatchMode:
		return 40001
	case KindInvalidPatch:
		return 40002
	case KindAttemptToSetReservedKey:
		return 40003
	case KindMissingRequiredField:
		return 40004
	case KindInvalidIDFormat:
		return 40005
	case KindInvalidSemVerFormat:
		return 40006
	case KindInvalidTimestampFormat:
		return 40007
	case KindMalformedYAML:
		return 40008
	case KindMissingOpeningDelimiter:
		return 40009
	case KindMissingClosingDelimiter:
		return 40010
	case KindInvalidPackManifest:
		return 40011
	case KindInvalidArgument:
		return 40012
	case KindDocNotFound:
		return 40401
	case KindPackNotFound:
		return 40402
	case KindPackTypeNotFound:
		return 40403
	case KindSchemaFileNotFound:
		return 40404
	case KindPackAlreadyInstalled:
		return 40901
	case KindTypeMismatchOnUpdate:
		return 40902
	case KindConcurrentWriteConflict:
		return 40903
	case KindSchemaValidation:
		return 42200
	case KindProtocolVersionMismatch:
		return 42201
	case KindIO:
		return 50000
	case KindPersistFailed:
		return 50001
	case KindSchemaCompilation:
		return 50002
	case KindJSONProcessing:
		return 50003
	case KindLockFile:
		return 50004
	default:
		return 50099
	}
}

// CodeOf returns the protocol code of err. Errors that are not *Error map to 50099.
func CodeOf(err error) int {
	return Code(KindOf(err))
}

// Response is the wire shape of an error.
type Response struct {
	Code    int          `json:"code"`
	Message string       `json:"message"`
	Data    ResponseData `json:"data"`
}

// ResponseData carries the structured payload of a Response.
type ResponseData struct {
	Pointer  string `json:"pointer,omitempty"`
	Expected string `json:"expected,omitempty"`
	Got      string `json:"got,omitempty"`
	Field    string `json:"field,omitempty"`
	Key      string `json:"key,omitempty"`
	ID       string `json:"id,omitempty"`
	Path     string `json:"path,omitempty"`
}

// Render converts err into its wire representation.
func Render(err error) Response {
	resp := Response{Code: CodeOf(err), Message: err.Error()}

	var e *Error
	if errors.As(err, &e) {
		resp.Data = ResponseData{
			Pointer:  e.Pointer,
			Expected: e.Expected,
			Got:      e.Got,
			Field:    e.Field,
			Key:      e.Key,
			ID:       e.ID,
			Path:     e.Path,
		}
	}
	return resp
}
