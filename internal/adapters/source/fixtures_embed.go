package source

import "embed"

// fixtureFS holds the bundled Directions payloads used by StaticSource.
//
//go:embed fixtures/*.json
var fixtureFS embed.FS
