// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package testutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/ManuGH/hdmerge/internal/media"
)

// FakeProvider is an in-memory catalog provider for tests.
type FakeProvider struct {
	mu       sync.Mutex
	catalogs map[string][]media.Track
	streams  map[string]func() io.ReadCloser

	// ResolveErr, when set, is returned by every Resolve call.
	ResolveErr error
	// Gate, when non-nil, blocks Resolve until it is closed or ctx ends.
	Gate chan struct{}

	resolveCalls atomic.Int64
	opened       []string
}

// NewFakeProvider returns an empty provider.
func NewFakeProvider() *FakeProvider {
	return &FakeProvider{
		catalogs: make(map[string][]media.Track),
		streams:  make(map[string]func() io.ReadCloser),
	}
}

// AddCatalog registers the tracks returned for sourceID.
func (f *FakeProvider) AddCatalog(sourceID string, tracks ...media.Track) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.catalogs[sourceID] = tracks
}

// AddBytes registers static content for a track id.
func (f *FakeProvider) AddBytes(trackID string, data []byte) {
	f.AddStream(trackID, func() io.ReadCloser {
		return io.NopCloser(bytes.NewReader(data))
	})
}

// AddStream registers a stream factory for a track id.
func (f *FakeProvider) AddStream(trackID string, open func() io.ReadCloser) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.streams[trackID] = open
}

// Resolve implements catalog.Provider.
func (f *FakeProvider) Resolve(ctx context.Context, sourceID string) ([]media.Track, error) {
	f.resolveCalls.Add(1)
	if f.Gate != nil {
		select {
		case <-f.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.ResolveErr != nil {
		return nil, f.ResolveErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	tracks, ok := f.catalogs[sourceID]
	if !ok {
		return nil, fmt.Errorf("%w: unknown source %q", media.ErrSourceUnavailable, sourceID)
	}
	return append([]media.Track(nil), tracks...), nil
}

// OpenTrack implements catalog.Provider.
func (f *FakeProvider) OpenTrack(_ context.Context, track media.Track) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	open, ok := f.streams[track.ID]
	if !ok {
		return nil, fmt.Errorf("%w: no stream for track %s", media.ErrSourceUnavailable, track.ID)
	}
	f.opened = append(f.opened, track.ID)
	return open(), nil
}

// ResolveCalls returns how often Resolve was called.
func (f *FakeProvider) ResolveCalls() int64 {
	return f.resolveCalls.Load()
}

// Opened returns the ids of opened tracks, in order.
func (f *FakeProvider) Opened() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.opened...)
}

// FailingReader returns data and then err instead of io.EOF.
type FailingReader struct {
	r      io.Reader
	err    error
	closed atomic.Bool
}

// NewFailingReader builds a reader that yields data, then fails with err.
func NewFailingReader(data []byte, err error) *FailingReader {
	return &FailingReader{r: bytes.NewReader(data), err: err}
}

func (f *FailingReader) Read(p []byte) (int, error) {
	n, err := f.r.Read(p)
	if err == io.EOF {
		return n, f.err
	}
	return n, err
}

// Close records the close.
func (f *FailingReader) Close() error {
	f.closed.Store(true)
	return nil
}

// Closed reports whether Close was called.
func (f *FailingReader) Closed() bool { return f.closed.Load() }

// BlockingReader never yields data until closed; Read then fails with io.ErrClosedPipe.
type BlockingReader struct {
	done   chan struct{}
	once   sync.Once
	closed atomic.Bool
}

// NewBlockingReader builds an open BlockingReader.
func NewBlockingReader() *BlockingReader {
	return &BlockingReader{done: make(chan struct{})}
}

func (b *BlockingReader) Read([]byte) (int, error) {
	<-b.done
	return 0, io.ErrClosedPipe
}

// Close unblocks pending reads.
func (b *BlockingReader) Close() error {
	b.once.Do(func() {
		b.closed.Store(true)
		close(b.done)
	})
	return nil
}

// Closed reports whether Close was called.
func (b *BlockingReader) Closed() bool { return b.closed.Load() }
