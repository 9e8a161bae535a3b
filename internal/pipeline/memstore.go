package pipeline

import (
	"context"
	"fmt"
	"sync"
)

// MemStore is an in-memory Store. The daemon uses it as the default backing
// store when no persistence backend is configured, and tests seed it
// directly.
type MemStore struct {
	mu        sync.RWMutex
	runs      map[string]*BuildRun
	profiles  map[string]*Profile
	artifacts map[string]Artifacts
	records   map[string][]PhaseRecord
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		runs:      make(map[string]*BuildRun),
		profiles:  make(map[string]*Profile),
		artifacts: make(map[string]Artifacts),
		records:   make(map[string][]PhaseRecord),
	}
}

// PutRun seeds or replaces a run.
func (s *MemStore) PutRun(run *BuildRun) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *run
	s.runs[run.ID] = &cp
}

// PutProfile seeds or replaces a profile.
func (s *MemStore) PutProfile(p *Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.profiles[p.ID] = &cp
}

// LoadRun returns a copy of the stored run.
func (s *MemStore) LoadRun(_ context.Context, buildID string) (*BuildRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[buildID]
	if !ok {
		return nil, fmt.Errorf("run not found: %s", buildID)
	}
	cp := *run
	return &cp, nil
}

// SaveRun stores a copy of the run.
func (s *MemStore) SaveRun(_ context.Context, run *BuildRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *run
	s.runs[run.ID] = &cp
	return nil
}

// LoadProfile returns a copy of the stored profile.
func (s *MemStore) LoadProfile(_ context.Context, profileID string) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[profileID]
	if !ok {
		return nil, fmt.Errorf("profile not found: %s", profileID)
	}
	cp := *p
	return &cp, nil
}

// Artifacts returns a shallow copy of the artifact map for a build.
func (s *MemStore) Artifacts(_ context.Context, buildID string) (Artifacts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(Artifacts, len(s.artifacts[buildID]))
	for k, v := range s.artifacts[buildID] {
		out[k] = v
	}
	return out, nil
}

// MergeArtifact shallow-merges {phase: value} into the stored map.
func (s *MemStore) MergeArtifact(_ context.Context, buildID, phase string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.artifacts[buildID] == nil {
		s.artifacts[buildID] = make(Artifacts)
	}
	s.artifacts[buildID][phase] = value
	return nil
}

// AppendPhaseRecord appends one audit record.
func (s *MemStore) AppendPhaseRecord(_ context.Context, rec *PhaseRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.BuildID] = append(s.records[rec.BuildID], *rec)
	return nil
}

// Records returns all audit records appended for a build, in order.
func (s *MemStore) Records(buildID string) []PhaseRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]PhaseRecord, len(s.records[buildID]))
	copy(out, s.records[buildID])
	return out
}
