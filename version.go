package aethel

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var rawVersion string

// Version is the release of the library and the aethel binary.
var Version = strings.TrimSpace(rawVersion)
