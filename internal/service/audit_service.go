package service

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/model"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/pkg/logger"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/pkg/metrics"
)

const auditInsertTimeout = 3 * time.Second

// AuditService queues entries for the file log and the optional repo, and keeps
// a ring buffer of recent entries for List when no repo is configured.
type AuditService struct {
	logChan chan *model.AuditLog
	logFile *os.File
	buffer  *auditBuffer
	repo    AuditRepo
	done    chan struct{}
}

type AuditRepo interface {
	Insert(ctx context.Context, entry *model.AuditLog) error
	List(ctx context.Context, actor string, limit int, from, to *time.Time) ([]*model.AuditLog, error)
}

// AuditCleaner is implemented by repos that support retention cleanup.
type AuditCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}

func NewAuditService(logDir string, bufferSize int, repo AuditRepo) (*AuditService, error) {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, err
	}

	// 简单的按日轮转文件 (MVP)
	filename := filepath.Join(logDir, "audit-"+time.Now().Format("2006-01-02")+".jsonl")
	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	svc := &AuditService{
		logChan: make(chan *model.AuditLog, bufferSize),
		logFile: f,
		buffer:  newAuditBuffer(bufferSize),
		repo:    repo,
		done:    make(chan struct{}),
	}

	// 启动消费者 goroutine
	go svc.processLogs()

	return svc, nil
}

func (s *AuditService) Log(entry *model.AuditLog) {
	if s.buffer != nil {
		s.buffer.Add(entry)
	}
	select {
	case s.logChan <- entry:
	default:
		// 缓冲区满，丢弃日志以保护主流程
		metrics.AuditEntries.WithLabelValues("queue", "dropped").Inc()
		logger.Warn("audit log buffer full, dropping entry", "path", entry.Path, "actor", entry.Actor)
	}
}

func (s *AuditService) List(ctx context.Context, actor string, limit int, from, to *time.Time) ([]*model.AuditLog, error) {
	if s.repo != nil {
		records, err := s.repo.List(ctx, actor, limit, from, to)
		if err == nil {
			return records, nil
		}
		logger.Warn("audit repo list failed, serving from memory", "error", err)
	}
	if s.buffer == nil {
		return nil, nil
	}
	return s.buffer.List(actor, limit, from, to), nil
}

// Cleanup enforces the retention window when the repo supports it.
func (s *AuditService) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	cleaner, ok := s.repo.(AuditCleaner)
	if !ok || olderThan <= 0 {
		return 0, nil
	}
	return cleaner.Cleanup(ctx, olderThan)
}

func (s *AuditService) processLogs() {
	defer close(s.done)
	encoder := json.NewEncoder(s.logFile)
	for entry := range s.logChan {
		if s.repo != nil {
			s.insert(entry)
		}
		if err := encoder.Encode(entry); err != nil {
			metrics.AuditEntries.WithLabelValues("file", "error").Inc()
			logger.Error("failed to write audit log file", "id", entry.ID, "error", err)
			continue
		}
		metrics.AuditEntries.WithLabelValues("file", "ok").Inc()
	}
}

func (s *AuditService) insert(entry *model.AuditLog) {
	ctx, cancel := context.WithTimeout(context.Background(), auditInsertTimeout)
	defer cancel()
	if err := s.repo.Insert(ctx, entry); err != nil {
		metrics.AuditEntries.WithLabelValues("repo", "error").Inc()
		logger.Error("failed to write audit log to repo", "id", entry.ID, "error", err)
		return
	}
	metrics.AuditEntries.WithLabelValues("repo", "ok").Inc()
}

func (s *AuditService) Close() {
	close(s.logChan)
	<-s.done
	s.logFile.Close()
}

type auditBuffer struct {
	mu        sync.Mutex
	maxSize   int
	records   []*model.AuditLog
	nextIndex int
}

func newAuditBuffer(maxSize int) *auditBuffer {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &auditBuffer{
		maxSize: maxSize,
		records: make([]*model.AuditLog, 0, maxSize),
	}
}

func (b *auditBuffer) Add(entry *model.AuditLog) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.records) < b.maxSize {
		b.records = append(b.records, entry)
		return
	}
	b.records[b.nextIndex] = entry
	b.nextIndex = (b.nextIndex + 1) % b.maxSize
}

func (b *auditBuffer) List(actor string, limit int, from, to *time.Time) []*model.AuditLog {
	b.mu.Lock()
	defer b.mu.Unlock()
	if limit <= 0 || limit > b.maxSize {
		limit = b.maxSize
	}
	results := make([]*model.AuditLog, 0, limit)
	total := len(b.records)
	for i := 0; i < total; i++ {
		idx := (b.nextIndex + total - 1 - i) % total
		entry := b.records[idx]
		if entry == nil {
			continue
		}
		if actor != "" && entry.Actor != actor {
			continue
		}
		if from != nil && entry.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && entry.CreatedAt.After(*to) {
			continue
		}
		results = append(results, entry)
		if len(results) >= limit {
			break
		}
	}
	return results
}
