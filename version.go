package noteq

import _ "embed"

// Version is the version of the library and the CLI.
//
//go:embed VERSION
var Version string
