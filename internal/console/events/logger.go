// Package events captures asynchronous push notifications delivered to this
// process's private event channel and appends them, one JSON object per line,
// to a per-process log file.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fleetlink-io/fleetlink/pkg/log"
	"github.com/fleetlink-io/fleetlink/pkg/mqtt"
	"github.com/fleetlink-io/fleetlink/pkg/mqtt/topic"
	"github.com/fleetlink-io/fleetlink/pkg/protocol"
)

// Log files older than this are deleted by the startup retention sweep.
const retentionAge = 30 * 24 * time.Hour

const qosEvents = 1

// Logger subscribes to the process's event channel and durably records every
// event it receives. The log file is append-only and single-writer.
type Logger struct {
	mc      mqtt.Client
	channel string
	path    string

	mu   sync.Mutex
	file *os.File
}

// DefaultDir returns the per-user directory event logs live in.
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user data directory: %w", err)
	}
	return filepath.Join(base, "fleet-console"), nil
}

// NewLogger creates a Logger for this process instance. The channel id is
// derived from host identity, program name and process id, making it unique
// per process lifetime.
func NewLogger(mc mqtt.Client, dir string) (*Logger, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("resolve hostname: %w", err)
	}
	program := filepath.Base(os.Args[0])
	channel := topic.EventChannel(hostname, program, os.Getpid())

	return &Logger{
		mc:      mc,
		channel: channel,
		path:    filepath.Join(dir, topic.LogFileName(channel)),
	}, nil
}

// Channel returns the event channel identifier for this process.
func (l *Logger) Channel() string { return l.channel }

// Path returns the log file path events are appended to.
func (l *Logger) Path() string { return l.path }

// Start prunes stale log files, creates this process's log file and
// subscribes to the event channel topic.
func (l *Logger) Start(ctx context.Context) error {
	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create event log directory: %w", err)
	}

	sweep(dir, time.Now())

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open event log file: %w", err)
	}
	l.mu.Lock()
	l.file = f
	l.mu.Unlock()

	return l.mc.Subscribe(ctx, l.channel, qosEvents, l.handle)
}

// Close releases the log file. Events arriving afterwards are dropped.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// handle records one inbound event. A decode or write failure affects only
// that event; the subscription keeps draining.
func (l *Logger) handle(ctx context.Context, msg *mqtt.Message) {
	ev, err := protocol.ParseEvent(msg.Payload)
	if err != nil {
		log.Error(err, "Discarding undecodable event", "topic", msg.Topic)
		return
	}
	if err := l.append(ev); err != nil {
		log.Error(err, "Failed to record event", "source", ev.Source)
	}
}

func (l *Logger) append(ev *protocol.Event) error {
	line, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return fmt.Errorf("event log file not open")
	}
	_, err = l.file.Write(append(line, '\n'))
	return err
}

// sweep deletes event log files older than the retention age. Files that do
// not match the event log naming pattern are left alone. Sweep failures are
// reported but never block startup.
func sweep(dir string, now time.Time) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Warn("Event log retention sweep skipped", "dir", dir, "error", err)
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), "="+topic.SuffixEvents) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) <= retentionAge {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			log.Warn("Failed to delete stale event log", "path", path, "error", err)
			continue
		}
		log.Debug("Deleted stale event log", "path", path)
	}
}
