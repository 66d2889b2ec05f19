package logging

import (
	"fmt"
	"sync"
	"time"

	"github.com/repofleet/gitfleet/internal/domain/shared"
)

// Entry is one buffered log line, shaped for the TUI's log pane.
type Entry struct {
	Timestamp time.Time
	Level     string
	Message   string
	Fields    map[string]any
}

func (e Entry) String() string {
	return fmt.Sprintf("[%s] %s %s", e.Level, e.Timestamp.Format("15:04:05"), e.Message)
}

// RingBuffer is a fixed-capacity circular buffer of Entry, with a
// notify channel so a TUI program can redraw on new lines instead of
// polling. Adapted from the teacher's logging.LogBuffer.
type RingBuffer struct {
	mu      sync.RWMutex
	entries []Entry
	next    int
	filled  bool
	notify  chan struct{}
}

// NewRingBuffer creates a buffer holding up to size entries (size<=0
// defaults to 100).
func NewRingBuffer(size int) *RingBuffer {
	if size <= 0 {
		size = 100
	}
	return &RingBuffer{
		entries: make([]Entry, size),
		notify:  make(chan struct{}, 1),
	}
}

// Add appends entry, overwriting the oldest slot once full.
func (b *RingBuffer) Add(entry Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[b.next] = entry
	b.next = (b.next + 1) % len(b.entries)
	if b.next == 0 {
		b.filled = true
	}

	select {
	case b.notify <- struct{}{}:
	default:
	}
}

// Recent returns up to limit of the most recently added entries,
// oldest first. limit<=0 or limit greater than capacity returns every
// stored entry.
func (b *RingBuffer) Recent(limit int) []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	size := len(b.entries)
	count := size
	if !b.filled {
		count = b.next
	}
	if limit > 0 && limit < count {
		count = limit
	}

	out := make([]Entry, 0, count)
	for i := 0; i < count; i++ {
		idx := (b.next - count + i + size) % size
		out = append(out, b.entries[idx])
	}
	return out
}

// NotifyChannel signals (non-blocking, coalesced) whenever a new entry
// is added.
func (b *RingBuffer) NotifyChannel() <-chan struct{} {
	return b.notify
}

// TUILogger implements shared.Logger by writing every line into a
// RingBuffer instead of (or alongside) stdout, so a bubbletea program
// can render logs inline with progress bars without interleaving raw
// terminal writes.
type TUILogger struct {
	buffer *RingBuffer
	fields []shared.Field
	fwd    shared.Logger // optional: also forward to a real backend (e.g. file)
}

// NewTUILogger creates a TUILogger backed by buffer. fwd may be nil.
func NewTUILogger(buffer *RingBuffer, fwd shared.Logger) *TUILogger {
	return &TUILogger{buffer: buffer, fwd: fwd}
}

func (l *TUILogger) log(level, msg string, fields []shared.Field) {
	all := append(append([]shared.Field{}, l.fields...), fields...)
	fmap := make(map[string]any, len(all))
	for _, f := range all {
		fmap[f.Key()] = f.Value()
	}
	l.buffer.Add(Entry{Timestamp: time.Now(), Level: level, Message: msg, Fields: fmap})
	if l.fwd != nil {
		switch level {
		case "debug":
			l.fwd.Debug(msg, all...)
		case "info":
			l.fwd.Info(msg, all...)
		case "warn":
			l.fwd.Warn(msg, all...)
		case "error":
			l.fwd.Error(msg, all...)
		case "fatal":
			l.fwd.Fatal(msg, all...)
		}
	}
}

func (l *TUILogger) Debug(msg string, fields ...shared.Field) { l.log("debug", msg, fields) }
func (l *TUILogger) Info(msg string, fields ...shared.Field)  { l.log("info", msg, fields) }
func (l *TUILogger) Warn(msg string, fields ...shared.Field)  { l.log("warn", msg, fields) }
func (l *TUILogger) Error(msg string, fields ...shared.Field) { l.log("error", msg, fields) }
func (l *TUILogger) Fatal(msg string, fields ...shared.Field) { l.log("fatal", msg, fields) }

func (l *TUILogger) With(fields ...shared.Field) shared.Logger {
	return &TUILogger{
		buffer: l.buffer,
		fwd:    l.fwd,
		fields: append(append([]shared.Field{}, l.fields...), fields...),
	}
}

// Entries returns the most recent limit buffered log lines, for a TUI
// log pane.
func (l *TUILogger) Entries(limit int) []Entry {
	return l.buffer.Recent(limit)
}
