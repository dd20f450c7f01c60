// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package merge

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ManuGH/hdmerge/internal/media"
)

func TestBuildArgs_MP4(t *testing.T) {
	got := strings.Join(BuildArgs(media.ContainerMP4), " ")
	assert.Equal(t,
		"-loglevel error -hide_banner -nostdin -i pipe:3 -i pipe:4 -map 0:a -map 1:v -c:v copy -c:a copy "+
			"-movflags isml+frag_keyframe -f mp4 pipe:5",
		got)
}

func TestBuildArgs_NonFragmented(t *testing.T) {
	for _, c := range []media.Container{media.ContainerWebM, media.ContainerMatroska} {
		args := BuildArgs(c)
		assert.NotContains(t, args, "-movflags", "container %s", c)
		assert.Equal(t, []string{"-f", c.MuxerName(), "pipe:5"}, args[len(args)-3:])
	}
}

func TestBuildArgs_NeverReencodes(t *testing.T) {
	args := strings.Join(BuildArgs(media.ContainerMP4), " ")
	assert.Contains(t, args, "-c:v copy")
	assert.Contains(t, args, "-c:a copy")
	assert.NotContains(t, args, "libx264")
}
