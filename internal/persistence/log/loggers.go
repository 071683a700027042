package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/sirupsen/logrus"

	"swarmsim/internal/logging"
	"swarmsim/internal/sim/tracker"
	"swarmsim/internal/sim/world"
)

// DefaultSegmentTicks is how many ticks go into one file.
const DefaultSegmentTicks = 3000

// JSONLZstdWriter appends JSON lines to zstd files, one file per segment of
// segmentTicks ticks.
type JSONLZstdWriter struct {
	baseDir      string
	prefix       string
	segmentTicks int

	mu      sync.Mutex
	segment int
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string, segmentTicks int) *JSONLZstdWriter {
	if segmentTicks <= 0 {
		segmentTicks = DefaultSegmentTicks
	}
	return &JSONLZstdWriter{
		baseDir:      baseDir,
		prefix:       prefix,
		segmentTicks: segmentTicks,
		segment:      -1,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

// Write appends v to the segment that tick belongs to.
func (w *JSONLZstdWriter) Write(tick int, v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	segment := tick / w.segmentTicks
	if segment != w.segment {
		if err := w.rotateLocked(segment); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *JSONLZstdWriter) rotateLocked(segment int) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.baseDir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.pathForSegment(segment), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	w.segment = segment
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	w.segment = -1
	return err1
}

func (w *JSONLZstdWriter) pathForSegment(segment int) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%08d.jsonl.zst", w.prefix, segment*w.segmentTicks))
}

// TickLogger writes one JSONL entry per tick (compressed).
type TickLogger struct{ w *JSONLZstdWriter }

func NewTickLogger(runDir string) *TickLogger {
	return &TickLogger{w: NewJSONLZstdWriter(filepath.Join(runDir, "ticks"), "ticks", DefaultSegmentTicks)}
}

func (l *TickLogger) WriteTick(e world.TickLogEntry) error { return l.w.Write(e.Tick, e) }
func (l *TickLogger) Close() error                         { return l.w.Close() }

// CommunicationLogger writes communication snapshots (compressed). It is a
// tracker.Recorder, which cannot return errors, so failures are logged.
type CommunicationLogger struct {
	w   *JSONLZstdWriter
	log logrus.FieldLogger
}

func NewCommunicationLogger(runDir string, log logrus.FieldLogger) *CommunicationLogger {
	if log == nil {
		log = logging.Discard()
	}
	return &CommunicationLogger{
		w:   NewJSONLZstdWriter(filepath.Join(runDir, "communication"), "communication", DefaultSegmentTicks),
		log: log.WithField("component", "communication_log"),
	}
}

func (l *CommunicationLogger) RecordCommunication(s tracker.CommunicationSnapshot) {
	if err := l.w.Write(s.Tick, s); err != nil {
		l.log.WithError(err).WithField("tick", s.Tick).Warn("communication log write failed")
	}
}

func (l *CommunicationLogger) Close() error { return l.w.Close() }
