// Package decisionlog persists every evaluated decision and approval
// transition in an append-only WAL. Entries are written before any
// side effect, so a crash between logging and execution is observable
// and recoverable by replay.
package decisionlog

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"
	"github.com/vadiminshakov/tradegate/internal/domain"
)

const (
	DefaultDir   = "./wal/decisions"
	segmentLimit = 100
	maxSegments  = 10

	decisionKeyPrefix = "decision_"
	approvalKeyPrefix = "approval_"
)

// Store persists gateway events in a WAL.
type Store struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewStore initializes a WAL-backed decision log.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		dir = DefaultDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "entry_",
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init decision log WAL")
	}

	return &Store{wal: wal}, nil
}

// AppendDecision writes a decision event to the WAL.
func (s *Store) AppendDecision(event domain.DecisionEvent) error {
	if s == nil || s.wal == nil {
		return errors.New("decision log is not initialized")
	}
	if event.DecisionID == "" {
		return fmt.Errorf("decision event id is required")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal decision event")
	}

	return s.write(fmt.Sprintf("%s%s", decisionKeyPrefix, event.Pair), payload)
}

// AppendApproval writes an approval transition event to the WAL.
func (s *Store) AppendApproval(event domain.ApprovalEvent) error {
	if s == nil || s.wal == nil {
		return errors.New("decision log is not initialized")
	}
	if event.DecisionID == "" {
		return fmt.Errorf("approval event decision id is required")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal approval event")
	}

	return s.write(fmt.Sprintf("%s%s", approvalKeyPrefix, event.Pair), payload)
}

func (s *Store) write(key string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	return s.wal.Write(nextIndex, key, payload)
}

// EventsAfter returns all events written after the provided WAL index,
// in append order.
func (s *Store) EventsAfter(index uint64) ([]domain.LogRecord, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("decision log is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	current := s.wal.CurrentIndex()
	if current <= index {
		return nil, nil
	}

	records := make([]domain.LogRecord, 0, current-index)
	for idx := index + 1; idx <= current; idx++ {
		key, payload, err := s.wal.Get(idx)
		if err != nil {
			continue
		}

		if strings.HasPrefix(key, decisionKeyPrefix) {
			var event domain.DecisionEvent
			if err := json.Unmarshal(payload, &event); err != nil {
				return nil, errors.Wrap(err, "decode decision event")
			}
			records = append(records, domain.LogRecord{
				Index: idx,
				Kind:  domain.EventKindDecision,
				Event: event,
			})
		} else if strings.HasPrefix(key, approvalKeyPrefix) {
			var event domain.ApprovalEvent
			if err := json.Unmarshal(payload, &event); err != nil {
				return nil, errors.Wrap(err, "decode approval event")
			}
			records = append(records, domain.LogRecord{
				Index: idx,
				Kind:  domain.EventKindApproval,
				Event: event,
			})
		}
	}

	return records, nil
}

// CurrentIndex returns the latest WAL index stored.
func (s *Store) CurrentIndex() uint64 {
	if s == nil || s.wal == nil {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.wal.CurrentIndex()
}

// Close closes the underlying WAL.
func (s *Store) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("decision log is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
