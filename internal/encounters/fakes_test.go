package encounters

import (
	"context"
	"sort"
	"sync"
	"time"

	"laborcurve/internal/types"
)

// fakeClock is a test clock that returns a fixed time.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

// memStore is an in-memory implementation of every repository the service
// uses. InTx snapshots the maps and restores them when fn fails.
type memStore struct {
	mu         sync.Mutex
	encounters map[string]types.Encounter
	events     map[string]types.Event
	settings   *types.Settings

	failList     error
	failSettings error
	touched      []string
}

func newMemStore() *memStore {
	return &memStore{
		encounters: map[string]types.Encounter{},
		events:     map[string]types.Event{},
	}
}

func (m *memStore) repos() Repos {
	return Repos{
		Encounters: memEncounters{m},
		Events:     memEvents{m},
		Settings:   memSettings{m},
	}
}

func (m *memStore) InTx(_ context.Context, fn func(r Repos) error) error {
	m.mu.Lock()
	encs := make(map[string]types.Encounter, len(m.encounters))
	for k, v := range m.encounters {
		encs[k] = v
	}
	evs := make(map[string]types.Event, len(m.events))
	for k, v := range m.events {
		evs[k] = v
	}
	settings := m.settings
	m.mu.Unlock()

	if err := fn(m.repos()); err != nil {
		m.mu.Lock()
		m.encounters, m.events, m.settings = encs, evs, settings
		m.mu.Unlock()
		return err
	}
	return nil
}

func notFoundEncounter() error {
	return types.NewAppError(types.ErrCodeNotFoundEncounter, "encounter not found", nil)
}

func notFoundEvent() error {
	return types.NewAppError(types.ErrCodeNotFoundEvent, "event not found", nil)
}

type memEncounters struct{ m *memStore }

func (r memEncounters) Create(_ context.Context, enc *types.Encounter) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.encounters[enc.ID]; ok {
		return types.NewAppError(types.ErrCodeConflictEncounterExists, "exists", nil)
	}
	r.m.encounters[enc.ID] = *enc
	return nil
}

func (r memEncounters) GetByID(_ context.Context, id string) (*types.Encounter, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	enc, ok := r.m.encounters[id]
	if !ok {
		return nil, notFoundEncounter()
	}
	return &enc, nil
}

func (r memEncounters) List(_ context.Context, filter types.EncounterFilter) ([]*types.Encounter, error) {
	if r.m.failList != nil {
		return nil, r.m.failList
	}
	var cursor *types.EncounterCursor
	if filter.Cursor != "" {
		c, err := types.ParseEncounterCursor(filter.Cursor)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeValidationInvalidRequest, "invalid cursor", err)
		}
		cursor = &c
	}
	all, _ := r.ListAll(context.Background())
	sort.Slice(all, func(i, j int) bool {
		if !all[i].UpdatedAt.Equal(all[j].UpdatedAt) {
			return all[i].UpdatedAt.After(all[j].UpdatedAt)
		}
		return all[i].ID > all[j].ID
	})
	var out []*types.Encounter
	for _, enc := range all {
		if filter.Status != "" && enc.Status != filter.Status {
			continue
		}
		if cursor != nil && !cursor.Before(enc) {
			continue
		}
		out = append(out, enc)
		if len(out) == filter.NormalizedLimit()+1 {
			break
		}
	}
	return out, nil
}

func (r memEncounters) ListAll(context.Context) ([]*types.Encounter, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := make([]*types.Encounter, 0, len(r.m.encounters))
	for _, enc := range r.m.encounters {
		enc := enc
		out = append(out, &enc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memEncounters) Update(_ context.Context, enc *types.Encounter) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.encounters[enc.ID]; !ok {
		return notFoundEncounter()
	}
	r.m.encounters[enc.ID] = *enc
	return nil
}

func (r memEncounters) SetOutcome(_ context.Context, id string, o types.Outcome) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	enc, ok := r.m.encounters[id]
	if !ok {
		return notFoundEncounter()
	}
	o.Apply(&enc)
	r.m.encounters[id] = enc
	return nil
}

func (r memEncounters) Touch(_ context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.encounters[id]; !ok {
		return notFoundEncounter()
	}
	r.m.touched = append(r.m.touched, id)
	return nil
}

func (r memEncounters) Delete(_ context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.encounters[id]; !ok {
		return notFoundEncounter()
	}
	delete(r.m.encounters, id)
	for k, e := range r.m.events {
		if e.EncounterID == id {
			delete(r.m.events, k)
		}
	}
	return nil
}

func (r memEncounters) DeleteAll(context.Context) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.encounters = map[string]types.Encounter{}
	r.m.events = map[string]types.Event{}
	return nil
}

func (r memEncounters) Upsert(_ context.Context, enc *types.Encounter) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.encounters[enc.ID] = *enc
	return nil
}

type memEvents struct{ m *memStore }

func (r memEvents) Create(_ context.Context, evt *types.Event) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.encounters[evt.EncounterID]; !ok {
		return notFoundEncounter()
	}
	r.m.events[evt.ID] = *evt
	return nil
}

func (r memEvents) GetByID(_ context.Context, encounterID, id string) (*types.Event, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	evt, ok := r.m.events[id]
	if !ok || evt.EncounterID != encounterID {
		return nil, notFoundEvent()
	}
	return &evt, nil
}

func (r memEvents) ListByEncounter(_ context.Context, encounterID string) ([]types.Event, error) {
	all, _ := r.ListAll(context.Background())
	out := make([]types.Event, 0)
	for _, e := range all {
		if e.EncounterID == encounterID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r memEvents) ListAll(context.Context) ([]types.Event, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := make([]types.Event, 0, len(r.m.events))
	for _, e := range r.m.events {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (r memEvents) Update(_ context.Context, evt *types.Event) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.events[evt.ID]; !ok {
		return notFoundEvent()
	}
	r.m.events[evt.ID] = *evt
	return nil
}

func (r memEvents) Delete(_ context.Context, encounterID, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	evt, ok := r.m.events[id]
	if !ok || evt.EncounterID != encounterID {
		return notFoundEvent()
	}
	delete(r.m.events, id)
	return nil
}

func (r memEvents) DeleteAll(context.Context) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.events = map[string]types.Event{}
	return nil
}

func (r memEvents) Upsert(_ context.Context, evt *types.Event) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.encounters[evt.EncounterID]; !ok {
		return types.NewAppError(types.ErrCodeValidationBundle, "event references an unknown encounter", nil)
	}
	r.m.events[evt.ID] = *evt
	return nil
}

type memSettings struct{ m *memStore }

func (r memSettings) Get(context.Context) (types.Settings, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.failSettings != nil {
		return types.Settings{}, r.m.failSettings
	}
	if r.m.settings == nil {
		return types.DefaultSettings(), nil
	}
	return *r.m.settings, nil
}

func (r memSettings) Put(_ context.Context, s types.Settings) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.settings = &s
	return nil
}

func (r memSettings) Reset(context.Context) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.settings = nil
	return nil
}

// recordingPublisher captures published messages.
type recordingPublisher struct {
	mu   sync.Mutex
	msgs []types.EncounterClosedMessage
	err  error
}

func (p *recordingPublisher) PublishEncounterClosed(_ context.Context, msg types.EncounterClosedMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return p.err
}
