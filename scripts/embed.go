// Package scripts embeds the bundled Risor report scripts.
package scripts

import "embed"

// FS holds report/*.risor. Paths inside it are relative to this directory.
//
//go:embed report/*.risor
var FS embed.FS
