// Package configs provides the embedded configuration template for
// lantern. The template is embedded at build time so `lantern config
// init` can write it regardless of how the binary was installed.
//
// Configuration precedence (see internal/config.Load):
//  1. Hardcoded defaults (internal/config.NewConfig)
//  2. Config file (--config, yaml)
//  3. Environment variables (LANTERN_*)
package configs

import _ "embed"

// ConfigTemplate is the annotated starting configuration written by
// `lantern config init`.
//
//go:embed lantern.example.yaml
var ConfigTemplate string
