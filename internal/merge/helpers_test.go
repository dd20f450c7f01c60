// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package merge

import (
	"io"
	"strings"
)

func source(data string) io.ReadCloser {
	return io.NopCloser(strings.NewReader(data))
}
