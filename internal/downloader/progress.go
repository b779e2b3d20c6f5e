package downloader

import (
	"bytes"
	"regexp"
	"strconv"
	"sync"
)

// Progress is a snapshot parsed from a yt-dlp "[download]" line.
type Progress struct {
	VideoID string
	Percent float64
	Size    string
	Speed   string
	ETA     string
}

type ProgressFunc func(Progress)

var progressRe = regexp.MustCompile(`^\[download\]\s+([\d.]+)%(?:\s+of\s+~?\s*(\S+))?(?:\s+at\s+(\S+))?(?:\s+ETA\s+(\S+))?`)

func parseProgress(line string) (Progress, bool) {
	m := progressRe.FindStringSubmatch(line)
	if m == nil {
		return Progress{}, false
	}
	pct, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Progress{}, false
	}
	return Progress{Percent: pct, Size: m[2], Speed: m[3], ETA: m[4]}, true
}

// progressReporter hands updates to the callback on its own goroutine. When
// the callback falls behind, updates are dropped instead of stalling the
// download, and a panicking callback is contained.
type progressReporter struct {
	videoID string
	updates chan Progress
	done    chan struct{}
}

func newProgressReporter(videoID string, fn ProgressFunc) *progressReporter {
	if fn == nil {
		return nil
	}
	r := &progressReporter{
		videoID: videoID,
		updates: make(chan Progress, 16),
		done:    make(chan struct{}),
	}
	go func() {
		defer close(r.done)
		for p := range r.updates {
			deliver(fn, p)
		}
	}()
	return r
}

func deliver(fn ProgressFunc, p Progress) {
	defer func() { _ = recover() }()
	fn(p)
}

func (r *progressReporter) report(p Progress) {
	if r == nil {
		return
	}
	p.VideoID = r.videoID
	select {
	case r.updates <- p:
	default:
	}
}

func (r *progressReporter) close() {
	if r == nil {
		return
	}
	close(r.updates)
	<-r.done
}

// lineWriter splits a stream into lines and hands each complete line to fn.
// yt-dlp redraws progress with carriage returns unless --newline is set, so
// both terminators are accepted.
type lineWriter struct {
	mu  sync.Mutex
	buf bytes.Buffer
	fn  func(line string)
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	for {
		data := w.buf.Bytes()
		i := bytes.IndexAny(data, "\r\n")
		if i < 0 {
			break
		}
		line := string(data[:i])
		w.buf.Next(i + 1)
		if line != "" {
			w.fn(line)
		}
	}
	return len(p), nil
}

func (w *lineWriter) flush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.buf.Len() > 0 {
		line := w.buf.String()
		w.buf.Reset()
		w.fn(line)
	}
}
