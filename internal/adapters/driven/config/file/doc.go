// Package file provides file-based configuration adapters.
//
// Adapters:
//   - Load: reads config.toml into the typed domain.Config
//   - ConfigStore: key/value access to the same file for `config get/set`
//   - PromptStore: user-editable prompt overrides
package file
