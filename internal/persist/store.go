package persist

import (
	"context"

	"github.com/mythosmud/mudserver/internal/worldmodel"
)

// Store satisfies worldmodel.Persistence by delegating to whichever
// aggregate repo owns the call. Kept separate from db.go so the
// delegation surface is easy to diff against the interface.
var _ worldmodel.Persistence = (*Store)(nil)

func (s *Store) GetPlayerByID(ctx context.Context, id string) (*worldmodel.Player, error) {
	return s.Players.GetPlayerByID(ctx, id)
}

func (s *Store) GetPlayerByName(ctx context.Context, name string) (*worldmodel.Player, error) {
	return s.Players.GetPlayerByName(ctx, name)
}

func (s *Store) SavePlayer(ctx context.Context, p *worldmodel.Player) error {
	return s.Players.SavePlayer(ctx, p)
}

func (s *Store) GetRoomByID(ctx context.Context, id string) (*worldmodel.Room, error) {
	return s.Rooms.GetRoomByID(ctx, id)
}

func (s *Store) GetPlayersInRoom(ctx context.Context, roomID string) ([]*worldmodel.Player, error) {
	return s.Players.GetPlayersInRoom(ctx, roomID)
}

func (s *Store) GetContainersByRoomID(ctx context.Context, roomID string) ([]*worldmodel.Container, error) {
	return s.Containers.GetContainersByRoomID(ctx, roomID)
}

func (s *Store) GetContainer(ctx context.Context, id string) (*worldmodel.Container, error) {
	return s.Containers.GetContainer(ctx, id)
}

func (s *Store) GetProfessionByID(ctx context.Context, id string) (*worldmodel.Profession, error) {
	return s.Professions.GetProfessionByID(ctx, id)
}
