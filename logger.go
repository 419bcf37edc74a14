package pizzaagent

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shopspring/decimal"
)

// TurnLogger is the interface for per-turn audit logging. One entry is
// recorded per phase handler run; implementations decide where it goes.
type TurnLogger interface {
	LogPhase(entry PhaseLog) error
}

// NewTurnLogFilePath returns a file path keyed on team id and start time so
// logs from successive games stay apart.
func NewTurnLogFilePath(teamID int) string {
	return fmt.Sprintf("./logs/%d.team_%d.json", time.Now().Unix(), teamID)
}

// PhaseLog records one phase handler run for audit.
type PhaseLog struct {
	Phase     string          `json:"phase"`
	TurnID    int             `json:"turn_id"`
	Timestamp time.Time       `json:"timestamp"`
	Actions   []ActionLog     `json:"actions,omitempty"`
	Spend     decimal.Decimal `json:"spend"`
	Cancelled bool            `json:"cancelled,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// ActionLog records a single external submission made by a phase handler.
type ActionLog struct {
	Tool  string         `json:"tool"`
	Input map[string]any `json:"input,omitempty"`
	Error string         `json:"error,omitempty"`
}

// FileTurnLogger buffers phase entries and flushes them as one JSON document.
type FileTurnLogger struct {
	entries []PhaseLog
	writer  io.Writer
}

func NewFileTurnLogger(writer io.Writer) *FileTurnLogger {
	return &FileTurnLogger{
		entries: make([]PhaseLog, 0),
		writer:  writer,
	}
}

// LogPhase buffers an entry; nothing is written until Flush.
func (l *FileTurnLogger) LogPhase(entry PhaseLog) error {
	l.entries = append(l.entries, entry)
	return nil
}

// Flush writes all buffered entries to the writer and clears the buffer.
func (l *FileTurnLogger) Flush() error {
	if l.writer == nil {
		return nil
	}

	data, err := json.MarshalIndent(map[string]any{
		"turn_log": map[string]any{
			"timestamp": time.Now(),
			"phases":    l.entries,
		},
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal turn log: %w", err)
	}

	if _, err := l.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write turn log: %w", err)
	}

	l.entries = l.entries[:0]
	return nil
}

// NoOpTurnLogger discards all entries.
type NoOpTurnLogger struct{}

func NewNoOpTurnLogger() *NoOpTurnLogger { return &NoOpTurnLogger{} }

func (NoOpTurnLogger) LogPhase(entry PhaseLog) error { return nil }

// StdoutTurnLogger writes each entry as a JSON line to stdout.
type StdoutTurnLogger struct{}

func NewStdoutTurnLogger() *StdoutTurnLogger { return &StdoutTurnLogger{} }

func (StdoutTurnLogger) LogPhase(entry PhaseLog) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(data))
	return nil
}
