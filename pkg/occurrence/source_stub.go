package occurrence

import (
	"context"
	"sync"
	"time"
)

// SourceStub serves a fixed set of occurrences filtered by window.
type SourceStub struct {
	mu          sync.Mutex
	occurrences []Occurrence
	calls       int
	// Err, when set, is returned by FetchOccurrences.
	Err error
	// Block, when set, is waited on before answering.
	Block chan struct{}
}

func NewSourceStub(occurrences ...Occurrence) *SourceStub {
	return &SourceStub{occurrences: occurrences}
}

func (s *SourceStub) FetchOccurrences(ctx context.Context, start, end time.Time) ([]Occurrence, error) {
	s.mu.Lock()
	s.calls++
	block := s.Block
	s.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var result []Occurrence
	for _, occ := range s.occurrences {
		if !occ.StartsAt.Before(start) && !occ.StartsAt.After(end) {
			result = append(result, occ)
		}
	}
	return result, nil
}

func (s *SourceStub) Set(occurrences ...Occurrence) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.occurrences = occurrences
}

func (s *SourceStub) SetErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Err = err
}

func (s *SourceStub) SetBlock(block chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Block = block
}

func (s *SourceStub) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
