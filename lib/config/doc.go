// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for comnsense
// binaries.
//
// Configuration is loaded from a single file named by either the
// COMNSENSE_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There is no discovery and no search path.
//
// The file may carry development, staging and production sections that
// override base values when [Config].Environment matches. Production
// without its own section logs JSON.
//
// After loading, ${HOME}, ${COMNSENSE_ROOT} and ${VAR:-default}
// patterns are expanded in path fields. No other environment variable
// overrides a config value.
//
// This package depends on no other comnsense packages.
package config
