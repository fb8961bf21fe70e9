// Package config loads, normalizes, and validates rigshift configuration.
//
// Configuration lives in TOML, by default at ~/.config/rigshift/config.toml
// with ./rigshift.toml as a project-local fallback. Load starts from Default,
// overlays the file when present, applies environment overrides
// (RIGSHIFT_SERVICE_URL, ONNXRUNTIME_SHARED_LIBRARY_PATH), expands paths, and
// validates the result. The [contract] section converts to a
// contract.Contract through ModelContract.
package config
