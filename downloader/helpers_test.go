package downloader

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anisan-cli/anidl/filesystem"
	"github.com/anisan-cli/anidl/muxer"
	"github.com/anisan-cli/anidl/network"
)

type recordingSink struct {
	mu       sync.Mutex
	progress []float64
	infos    []string
	onUpdate func(percent float64)
}

func (s *recordingSink) Progress(percent float64) {
	s.mu.Lock()
	s.progress = append(s.progress, percent)
	hook := s.onUpdate
	s.mu.Unlock()

	if hook != nil {
		hook(percent)
	}
}

func (s *recordingSink) Info(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.infos = append(s.infos, message)
}

func (s *recordingSink) Progresses() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]float64(nil), s.progress...)
}

func (s *recordingSink) Infos() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.infos...)
}

type fakeMuxer struct {
	mu       sync.Mutex
	probes   []string
	jobs     []muxer.Job
	duration time.Duration
	probeErr error
	err      error

	// block makes CopyTranscode write part of the output and wait for cancellation.
	// running is closed once it does.
	block   bool
	running chan struct{}
}

func (f *fakeMuxer) Probe(_ context.Context, input string, _ map[string]string) (*muxer.Info, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.probes = append(f.probes, input)
	if f.probeErr != nil {
		return nil, f.probeErr
	}
	return &muxer.Info{Duration: f.duration}, nil
}

func (f *fakeMuxer) CopyTranscode(ctx context.Context, job muxer.Job, onProgress func(float64)) error {
	f.mu.Lock()
	f.jobs = append(f.jobs, job)
	err, block := f.err, f.block
	f.mu.Unlock()

	if block {
		if err := filesystem.API().WriteFile(job.Output, []byte("half"), 0o644); err != nil {
			return err
		}
		onProgress(30)
		close(f.running)
		<-ctx.Done()
		return &muxer.ExitError{Tool: "ffmpeg", Err: ctx.Err()}
	}

	if err != nil {
		_ = filesystem.API().WriteFile(job.Output, []byte("broken"), 0o644)
		return err
	}

	onProgress(50)
	onProgress(100)
	return filesystem.API().WriteFile(job.Output, []byte("muxed:"+job.Input), 0o644)
}

func (f *fakeMuxer) Jobs() []muxer.Job {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]muxer.Job(nil), f.jobs...)
}

// segment is served by mediaServer at /seg/<index>.ts.
type segment struct {
	size  int
	delay time.Duration
}

// mediaServer serves a media playlist at /index.m3u8 made of segments.
// Segment i consists of size bytes of 'a'+i.
type mediaServer struct {
	*httptest.Server
	requests atomic.Int32

	mu     sync.RWMutex
	routes map[string]http.HandlerFunc
}

func (m *mediaServer) Handle(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes[path] = handler
}

func newMediaServer(segments ...segment) *mediaServer {
	m := &mediaServer{routes: make(map[string]http.HandlerFunc)}

	m.routes["/index.m3u8"] = func(w http.ResponseWriter, r *http.Request) {
		var b strings.Builder
		b.WriteString("#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-TARGETDURATION:10\n")
		for i := range segments {
			fmt.Fprintf(&b, "#EXTINF:10.0,\nseg/%d.ts\n", i)
		}
		b.WriteString("#EXT-X-ENDLIST\n")
		_, _ = w.Write([]byte(b.String()))
	}

	for i, s := range segments {
		m.routes[fmt.Sprintf("/seg/%d.ts", i)] = func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-time.After(s.delay):
			case <-r.Context().Done():
				return
			}
			_, _ = w.Write([]byte(strings.Repeat(string(rune('a'+i)), s.size)))
		}
	}

	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.requests.Add(1)

		m.mu.RLock()
		handler, ok := m.routes[r.URL.Path]
		m.mu.RUnlock()

		if ok {
			handler(w, r)
			return
		}
		http.NotFound(w, r)
	}))

	return m
}

func testClient() *network.Client {
	return network.New(network.Options{
		Attempts: 2,
		Delay:    time.Millisecond,
		MaxDelay: 2 * time.Millisecond,
	})
}

func newTestDownloader(mux Muxer, sink Sink, settings Settings) *Downloader {
	if mux == nil {
		mux = &fakeMuxer{}
	}
	return New(testClient(), mux, sink, settings)
}

// listDir returns the sorted names in dir, hidden ones included.
func listDir(t *testing.T, dir string) []string {
	t.Helper()

	entries, err := filesystem.API().ReadDir(dir)
	if err != nil {
		t.Fatalf("read %s: %v", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}
