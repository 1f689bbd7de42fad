// Package memory is an in-process worldmodel.Persistence implementation
// for tests and no-database runs, guarded by a single sync.RWMutex over
// plain Go maps, no channels, no goroutines of its own.
package memory

import (
	"context"
	"sync"

	"github.com/mythosmud/mudserver/internal/worldmodel"
)

// Store is a fixture-loaded, mutation-capable in-memory Persistence.
// Tests construct one with New and seed it via the Seed* helpers before
// handing it to the component under test.
type Store struct {
	mu sync.RWMutex

	players      map[string]*worldmodel.Player
	playersByName map[string]string // name -> id
	rooms        map[string]*worldmodel.Room
	containers   map[string]*worldmodel.Container
	professions  map[string]*worldmodel.Profession
}

var _ worldmodel.Persistence = (*Store)(nil)

func New() *Store {
	return &Store{
		players:       make(map[string]*worldmodel.Player),
		playersByName: make(map[string]string),
		rooms:         make(map[string]*worldmodel.Room),
		containers:    make(map[string]*worldmodel.Container),
		professions:   make(map[string]*worldmodel.Profession),
	}
}

func (s *Store) SeedPlayer(p *worldmodel.Player) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.players[p.ID] = &cp
	s.playersByName[p.Name] = p.ID
}

func (s *Store) SeedRoom(r *worldmodel.Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.rooms[r.ID] = &cp
}

func (s *Store) SeedContainer(c *worldmodel.Container) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.containers[c.ID] = &cp
}

func (s *Store) SeedProfession(p *worldmodel.Profession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.professions[p.ID] = &cp
}

func (s *Store) GetPlayerByID(_ context.Context, id string) (*worldmodel.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.players[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (s *Store) GetPlayerByName(_ context.Context, name string) (*worldmodel.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.playersByName[name]
	if !ok {
		return nil, nil
	}
	cp := *s.players[id]
	return &cp, nil
}

func (s *Store) SavePlayer(_ context.Context, p *worldmodel.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	if existing, ok := s.players[p.ID]; ok && existing.Name != p.Name {
		delete(s.playersByName, existing.Name)
	}
	s.players[p.ID] = &cp
	s.playersByName[p.Name] = p.ID
	return nil
}

func (s *Store) GetRoomByID(_ context.Context, id string) (*worldmodel.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	cp.PlayerIDs = nil
	for _, p := range s.players {
		if p.RoomID == id {
			cp.PlayerIDs = append(cp.PlayerIDs, p.ID)
		}
	}
	return &cp, nil
}

func (s *Store) GetPlayersInRoom(_ context.Context, roomID string) ([]*worldmodel.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*worldmodel.Player
	for _, p := range s.players {
		if p.RoomID == roomID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Store) GetContainersByRoomID(_ context.Context, roomID string) ([]*worldmodel.Container, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*worldmodel.Container
	for _, c := range s.containers {
		if c.RoomID == roomID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Store) GetContainer(_ context.Context, id string) (*worldmodel.Container, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.containers[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (s *Store) GetProfessionByID(_ context.Context, id string) (*worldmodel.Profession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.professions[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}
