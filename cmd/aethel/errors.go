package main

import (
	"encoding/json"
	"io"

	"github.com/aethel-dev/aethel/pkg/core"
)

// exitCode maps an error to the process exit status of its code family.
func exitCode(err error) int {
	switch code := core.CodeOf(err); {
	case code >= 40000 && code < 40400:
		return 2
	case code >= 40400 && code < 40900:
		return 3
	case code >= 40900 && code < 42200:
		return 4
	case code >= 42200 && code < 50000:
		return 5
	default:
		return 1
	}
}

// writeError prints err as a protocol JSON object.
func writeError(w io.Writer, err error) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(core.Render(err))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return &core.Error{Kind: core.KindJSONProcessing, Err: err}
	}
	return nil
}
