package audit

import (
	"io"
	"sync"
	"time"

	domainAudit "github.com/mahalbangetid-beep/scb-sub003/domains/audit"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// FileSink appends audit entries as JSON lines to a rotated file.
type FileSink struct {
	mu     sync.Mutex
	logger *logrus.Logger
	closer io.Closer
}

var _ domainAudit.FileSink = (*FileSink)(nil)

func NewFileSink(cfg FileConfig) *FileSink {
	out := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}
	return newSink(out, out)
}

func newSink(w io.Writer, closer io.Closer) *FileSink {
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(logrus.InfoLevel)
	logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	return &FileSink{logger: logger, closer: closer}
}

func (s *FileSink) Write(e domainAudit.Entry) error {
	fields := logrus.Fields{
		"audit_id":    e.ID,
		"actor_id":    e.ActorID,
		"action":      e.Action,
		"entity_type": e.EntityType,
		"entity_id":   e.EntityID,
		"severity":    string(e.Severity),
	}
	for k, v := range e.Detail {
		fields["detail."+k] = v
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.logger.WithFields(fields)
	if !e.CreatedAt.IsZero() {
		entry = entry.WithTime(e.CreatedAt)
	}
	switch e.Severity {
	case domainAudit.SeverityCritical:
		entry.Error(e.Action)
	case domainAudit.SeverityWarning:
		entry.Warn(e.Action)
	default:
		entry.Info(e.Action)
	}
	return nil
}

func (s *FileSink) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
