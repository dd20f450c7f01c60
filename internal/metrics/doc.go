// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics provides the Prometheus collectors of hdmerge.
// Labels never carry source ids, session ids or request ids.
package metrics
