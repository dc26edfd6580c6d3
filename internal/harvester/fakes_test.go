package harvester

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/JakeFAU/kraken/internal/clock/fake"
	"github.com/JakeFAU/kraken/internal/kraken"
	"github.com/JakeFAU/kraken/internal/progress"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func matchJSON(id string, puuids ...string) []byte {
	participants := make([]map[string]any, 0, len(puuids))
	for i, p := range puuids {
		team := 100
		if i >= 5 {
			team = 200
		}
		participants = append(participants, map[string]any{
			"puuid":        p,
			"teamId":       team,
			"teamPosition": "MIDDLE",
			"championName": "Ahri",
			"win":          team == 100,
		})
	}
	raw, err := json.Marshal(map[string]any{
		"metadata": map[string]any{"matchId": id, "participants": puuids},
		"info": map[string]any{
			"gameCreation": epoch.UnixMilli(),
			"gameDuration": 1800,
			"queueId":      420,
			"participants": participants,
		},
	})
	if err != nil {
		panic(err)
	}
	return raw
}

type fakeSource struct {
	mu         sync.Mutex
	clock      *fake.Clock
	step       time.Duration
	ids        map[string][]string
	matches    map[string][]byte
	failures   map[string][]error
	idCalls    map[string]int
	matchCalls map[string]int
}

func newFakeSource(clock *fake.Clock, step time.Duration) *fakeSource {
	return &fakeSource{
		clock:      clock,
		step:       step,
		ids:        map[string][]string{},
		matches:    map[string][]byte{},
		failures:   map[string][]error{},
		idCalls:    map[string]int{},
		matchCalls: map[string]int{},
	}
}

func (s *fakeSource) add(player string, matchIDs ...string) {
	s.ids[player] = append(s.ids[player], matchIDs...)
}

func (s *fakeSource) MatchIDs(_ context.Context, puuid string, start, count int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock.Advance(s.step)
	s.idCalls[puuid]++
	ids := s.ids[puuid]
	if start >= len(ids) {
		return nil, nil
	}
	ids = ids[start:]
	if len(ids) > count {
		ids = ids[:count]
	}
	return append([]string(nil), ids...), nil
}

func (s *fakeSource) Match(_ context.Context, id string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock.Advance(s.step)
	s.matchCalls[id]++
	if errs := s.failures[id]; len(errs) > 0 {
		s.failures[id] = errs[1:]
		return nil, errs[0]
	}
	raw, ok := s.matches[id]
	if !ok {
		return nil, kraken.ErrNotFound
	}
	return raw, nil
}

type memStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	putErr error
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]byte{}}
}

func (m *memStore) Exists(id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[id]
	return ok, nil
}

func (m *memStore) Put(_ context.Context, id string, raw []byte) (kraken.PutResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return kraken.PutResult{}, m.putErr
	}
	if _, ok := m.data[id]; ok {
		return kraken.PutResult{Path: id}, nil
	}
	m.data[id] = raw
	return kraken.PutResult{Path: id, Digest: "sha256:x", Created: true}, nil
}

type failingCatalog struct {
	mu      sync.Mutex
	records []kraken.MatchRecord
	err     error
}

func (c *failingCatalog) RecordMatch(_ context.Context, rec kraken.MatchRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, rec)
	return c.err
}

type snapshotRecorder struct {
	mu    sync.Mutex
	snaps []progress.Snapshot
}

func (r *snapshotRecorder) Emit(s progress.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, s)
}

var errBoom = errors.New("boom")
