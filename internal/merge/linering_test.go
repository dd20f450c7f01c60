// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package merge

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLineRing(t *testing.T) {
	r := NewLineRing(3)

	_, _ = fmt.Fprintf(r, "line1\n")
	_, _ = fmt.Fprintf(r, "line2\n")
	assert.Equal(t, []string{"line1", "line2"}, r.LastN(10))

	_, _ = fmt.Fprintf(r, "line3\n")
	assert.Equal(t, []string{"line1", "line2", "line3"}, r.LastN(10))

	// Wrap
	_, _ = fmt.Fprintf(r, "line4\n")
	assert.Equal(t, []string{"line2", "line3", "line4"}, r.LastN(10))
	assert.Equal(t, []string{"line3", "line4"}, r.LastN(2))
	assert.Empty(t, r.LastN(0))
}

func TestLineRing_SplitWrites(t *testing.T) {
	r := NewLineRing(5)
	_, _ = r.Write([]byte("pipe:3: Invalid da"))
	_, _ = r.Write([]byte("ta found\r\nnext"))

	assert.Equal(t, []string{"pipe:3: Invalid data found", "next"}, r.LastN(10))

	_, _ = r.Write([]byte(" line\n\n"))
	assert.Equal(t, []string{"pipe:3: Invalid data found", "next line"}, r.LastN(10))
}

func TestLineRing_PartialIsCapped(t *testing.T) {
	r := NewLineRing(2)
	n, err := r.Write([]byte(strings.Repeat("x", 3*maxPartial)))
	assert.NoError(t, err)
	assert.Equal(t, 3*maxPartial, n, "writers always see a full write")

	last := r.LastN(1)
	assert.Len(t, last, 1)
	assert.Len(t, last[0], maxPartial)
}

func TestLineRing_Concurrent(t *testing.T) {
	r := NewLineRing(16)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, _ = fmt.Fprintf(r, "w%d-%d\n", i, j)
				_ = r.LastN(4)
			}
		}(i)
	}
	wg.Wait()
	assert.Len(t, r.LastN(100), 16)
}
