package goShelf

import (
	"context"
	"io"
	"strconv"
	"time"

	"github.com/MrEthical07/goShelf/internal/audit"
	"github.com/rs/zerolog"
)

// Audit event types emitted by the Manager.
const (
	AuditLogin          = "login"
	AuditLoginFailed    = "login_failed"
	AuditLogout         = "logout"
	AuditSessionExpired = "session_expired"
	AuditProfileUpdated = "profile_updated"
	AuditRegister       = "register"
	AuditSessionCorrupt = "session_corrupt"
)

// AuditEvent is one session lifecycle record.
type AuditEvent = audit.Event

// AuditSink receives audit events from the dispatcher goroutine.
type AuditSink = audit.Sink

// NoOpSink discards events.
type NoOpSink = audit.NoOpSink

// ChannelSink delivers events on a buffered channel.
type ChannelSink = audit.ChannelSink

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink = audit.JSONWriterSink

// LoggerSink writes events as structured log entries.
type LoggerSink = audit.LoggerSink

// AuditSinkFunc adapts a function to [AuditSink].
type AuditSinkFunc = audit.SinkFunc

// NewLoggerSink returns a [LoggerSink] logging through logger.
func NewLoggerSink(logger zerolog.Logger) *LoggerSink {
	return audit.NewLoggerSink(logger)
}

// NewChannelSink returns a [ChannelSink] with the given buffer.
func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a [JSONWriterSink] writing to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

func (m *Manager) emitAudit(ctx context.Context, eventType string, user *User, success bool, err error, metadata map[string]string) {
	if m == nil || m.audit == nil {
		return
	}
	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Success:   success,
		Metadata:  metadata,
	}
	if user != nil {
		if user.ID != 0 {
			event.UserID = strconv.FormatInt(user.ID, 10)
		}
		event.Username = user.Username
	}
	if err != nil {
		event.Error = err.Error()
	}
	m.audit.Emit(ctx, event)
}
