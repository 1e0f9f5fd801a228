package capture

import (
	"bufio"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/muurk/virtkeypad/internal/logging"
	"go.uber.org/zap"
)

// Directions recorded in Record.Direction
const (
	DirectionReceived = "mount->client"
	DirectionSent     = "client->mount"
)

// Record is one captured WebSocket message, written as a JSON line
type Record struct {
	Timestamp    time.Time `json:"timestamp"`
	MessageNum   int       `json:"message_num"`
	RemoteAddr   string    `json:"remote_addr"`
	Direction    string    `json:"direction"`
	PayloadLen   int       `json:"payload_length"`
	PayloadHex   string    `json:"payload_hex"`
	PayloadAscii string    `json:"payload_ascii"`
}

// Payload decodes PayloadHex
func (r Record) Payload() ([]byte, error) {
	return hex.DecodeString(r.PayloadHex)
}

// Recorder appends records to a capture-<timestamp>.jsonl file. It is safe
// for concurrent use.
type Recorder struct {
	mu         sync.Mutex
	f          *os.File
	w          *bufio.Writer
	path       string
	remoteAddr string
	count      int
}

// NewRecorder creates dir if needed and opens a new capture file in it
func NewRecorder(dir string, remoteAddr string) (*Recorder, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create capture directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("capture-%s.jsonl", time.Now().Format("20060102-150405")))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file: %w", err)
	}

	logging.Info("Capturing keypad traffic",
		zap.String("filename", path),
		zap.String("remote_addr", remoteAddr),
	)

	return &Recorder{
		f:          f,
		w:          bufio.NewWriter(f),
		path:       path,
		remoteAddr: remoteAddr,
	}, nil
}

// Path returns the capture file path
func (r *Recorder) Path() string { return r.path }

// Count returns the number of records written
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Record appends one message
func (r *Recorder) Record(direction string, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.f == nil {
		return os.ErrClosed
	}

	r.count++
	rec := Record{
		Timestamp:    time.Now(),
		MessageNum:   r.count,
		RemoteAddr:   r.remoteAddr,
		Direction:    direction,
		PayloadLen:   len(payload),
		PayloadHex:   hex.EncodeToString(payload),
		PayloadAscii: toASCII(payload),
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal capture record: %w", err)
	}
	if _, err := r.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write capture record: %w", err)
	}
	// one message per flush keeps the file readable while capturing
	if err := r.w.Flush(); err != nil {
		return fmt.Errorf("failed to write capture record: %w", err)
	}

	logging.Debug("Saved message to capture file",
		zap.String("filename", r.path),
		zap.Int("message_num", r.count),
	)
	return nil
}

// Close flushes and closes the capture file
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.f == nil {
		return nil
	}
	err := r.w.Flush()
	if cerr := r.f.Close(); err == nil {
		err = cerr
	}
	r.f = nil
	return err
}

// Load reads every record from a capture file. Blank lines are skipped.
func Load(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var records []Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return records, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return records, err
	}
	return records, nil
}

func toASCII(data []byte) string {
	out := make([]byte, len(data))
	for i, b := range data {
		if b >= 32 && b <= 126 {
			out[i] = b
		} else {
			out[i] = '.'
		}
	}
	return string(out)
}
