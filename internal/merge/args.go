// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package merge

import (
	"strconv"

	"github.com/ManuGH/hdmerge/internal/media"
)

// Child file descriptors. os/exec maps ExtraFiles[i] to fd 3+i.
const (
	audioFD = 3
	videoFD = 4
	outFD   = 5
)

func pipeURL(fd int) string { return "pipe:" + strconv.Itoa(fd) }

// BuildArgs returns the ffmpeg arguments that remux the audio on fd 3 and the
// video on fd 4 into container on fd 5. Streams are copied, never re-encoded.
func BuildArgs(container media.Container) []string {
	args := []string{
		"-loglevel", "error",
		"-hide_banner",
		"-nostdin",
		"-i", pipeURL(audioFD),
		"-i", pipeURL(videoFD),
		"-map", "0:a",
		"-map", "1:v",
		"-c:v", "copy",
		"-c:a", "copy",
	}
	if container.Fragmented() {
		args = append(args, "-movflags", "isml+frag_keyframe")
	}
	return append(args, "-f", container.MuxerName(), pipeURL(outFD))
}
