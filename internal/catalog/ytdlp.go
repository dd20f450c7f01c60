// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ManuGH/hdmerge/internal/log"
	"github.com/ManuGH/hdmerge/internal/media"
	"github.com/ManuGH/hdmerge/internal/metrics"
	"github.com/ManuGH/hdmerge/internal/procgroup"
)

// YtDlpProvider resolves catalogs by running `yt-dlp -J` and fetches track
// bytes over HTTP from the direct URLs it reports.
type YtDlpProvider struct {
	bin     string
	timeout time.Duration
	client  *http.Client

	// run executes the extractor and returns its stdout. Replaced in tests.
	run func(ctx context.Context, bin string, args ...string) ([]byte, error)
}

// NewYtDlpProvider builds a provider. A non-positive timeout means 30s.
func NewYtDlpProvider(bin string, timeout time.Duration) *YtDlpProvider {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &YtDlpProvider{
		bin:     bin,
		timeout: timeout,
		client: &http.Client{
			// No overall timeout: track bodies stream for the length of the video.
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		run: runExtractor,
	}
}

// Resolve implements Provider.
func (p *YtDlpProvider) Resolve(ctx context.Context, raw string) ([]media.Track, error) {
	id, err := ParseSourceID(raw)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	out, err := p.run(ctx, p.bin, "-J", "--no-warnings", "--no-playlist", id.Target())
	if err != nil {
		return nil, fmt.Errorf("%w: yt-dlp: %w", media.ErrSourceUnavailable, err)
	}

	tracks, err := parseYtDlpInfo(out)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", media.ErrSourceUnavailable, err)
	}
	return tracks, nil
}

// OpenTrack implements Provider.
func (p *YtDlpProvider) OpenTrack(ctx context.Context, track media.Track) (io.ReadCloser, error) {
	if track.URL == "" {
		metrics.IncTrackOpen(string(track.Kind), false)
		return nil, fmt.Errorf("%w: track %s has no url", media.ErrSourceUnavailable, track.ID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, track.URL, nil)
	if err != nil {
		metrics.IncTrackOpen(string(track.Kind), false)
		return nil, fmt.Errorf("%w: %w", media.ErrSourceUnavailable, err)
	}
	for k, v := range track.Headers {
		req.Header.Set(k, v)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		metrics.IncTrackOpen(string(track.Kind), false)
		return nil, fmt.Errorf("%w: open track %s: %w", media.ErrSourceUnavailable, track.ID, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		metrics.IncTrackOpen(string(track.Kind), false)
		return nil, fmt.Errorf("%w: open track %s: upstream status %d", media.ErrSourceUnavailable, track.ID, resp.StatusCode)
	}

	metrics.IncTrackOpen(string(track.Kind), true)
	return resp.Body, nil
}

func runExtractor(ctx context.Context, bin string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	procgroup.Set(cmd)
	cmd.Cancel = func() error { return procgroup.Kill(cmd, syscall.SIGKILL) }
	cmd.WaitDelay = 2 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 512 {
			msg = msg[len(msg)-512:]
		}
		logger := log.WithComponentFromContext(ctx, "catalog")
		logger.Debug().
			Err(err).
			Str(log.FieldStderr, msg).
			Msg("extractor failed")
		if msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}

type ytDlpInfo struct {
	ID      string        `json:"id"`
	Formats []ytDlpFormat `json:"formats"`
}

type ytDlpFormat struct {
	FormatID       string            `json:"format_id"`
	Ext            string            `json:"ext"`
	URL            string            `json:"url"`
	Protocol       string            `json:"protocol"`
	VCodec         string            `json:"vcodec"`
	ACodec         string            `json:"acodec"`
	Height         *int              `json:"height"`
	FormatNote     string            `json:"format_note"`
	TBR            *float64          `json:"tbr"`
	Filesize       *int64            `json:"filesize"`
	FilesizeApprox *int64            `json:"filesize_approx"`
	HTTPHeaders    map[string]string `json:"http_headers"`
}

var errNoFormats = errors.New("extractor returned no formats")

// parseYtDlpInfo maps the extractor's format list onto tracks. Formats that
// cannot be fetched with a plain GET, carry no stream, or use an unknown
// container are dropped.
func parseYtDlpInfo(data []byte) ([]media.Track, error) {
	var info ytDlpInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("decode extractor output: %w", err)
	}
	if info.Formats == nil {
		return nil, errNoFormats
	}

	tracks := make([]media.Track, 0, len(info.Formats))
	for _, f := range info.Formats {
		t, ok := f.track()
		if ok {
			tracks = append(tracks, t)
		}
	}
	return tracks, nil
}

func (f ytDlpFormat) track() (media.Track, bool) {
	if f.URL == "" || (f.Protocol != "" && f.Protocol != "https" && f.Protocol != "http") {
		return media.Track{}, false
	}
	hasVideo := f.VCodec != "" && f.VCodec != "none"
	hasAudio := f.ACodec != "" && f.ACodec != "none"
	var kind media.Kind
	switch {
	case hasVideo && hasAudio:
		kind = media.KindMuxed
	case hasVideo:
		kind = media.KindVideo
	case hasAudio:
		kind = media.KindAudio
	default:
		return media.Track{}, false
	}

	container, err := media.ParseContainer(f.Ext)
	if err != nil {
		return media.Track{}, false
	}

	t := media.Track{
		ID:        f.FormatID,
		Container: container,
		Kind:      kind,
		MIMEType:  mimeFor(kind, f.Ext),
		URL:       f.URL,
		Headers:   f.HTTPHeaders,
	}
	if f.Height != nil && kind.HasVideo() {
		t.Height = *f.Height
		t.QualityTier = tierForHeight(t.Height)
	}
	if kind.HasVideo() {
		t.QualityLabel = qualityLabel(f.FormatNote, t.Height)
	}
	if f.TBR != nil {
		t.Bitrate = int64(math.Round(*f.TBR * 1000))
	}
	switch {
	case f.Filesize != nil:
		t.ApproxBytes = *f.Filesize
		t.SizeExact = true
	case f.FilesizeApprox != nil:
		t.ApproxBytes = *f.FilesizeApprox
	}
	return t, true
}

// qualityLabel prefers the extractor's note when it looks like "1080p" or "720p60".
func qualityLabel(note string, height int) string {
	if i := strings.IndexByte(note, 'p'); i > 0 {
		if _, err := strconv.Atoi(note[:i]); err == nil {
			return note
		}
	}
	if height > 0 {
		return strconv.Itoa(height) + "p"
	}
	return ""
}

func tierForHeight(h int) string {
	switch {
	case h <= 0:
		return ""
	case h <= 144:
		return "tiny"
	case h <= 240:
		return "small"
	case h <= 360:
		return "medium"
	case h <= 480:
		return "large"
	case h <= 720:
		return "hd720"
	case h <= 1080:
		return "hd1080"
	case h <= 1440:
		return "hd1440"
	case h <= 2160:
		return "hd2160"
	default:
		return "highres"
	}
}

func mimeFor(kind media.Kind, ext string) string {
	ext = strings.ToLower(ext)
	if ext == "m4a" {
		ext = "mp4"
	}
	if ext == "mkv" {
		ext = "x-matroska"
	}
	if kind == media.KindAudio {
		return "audio/" + ext
	}
	return "video/" + ext
}
