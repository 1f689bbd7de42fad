package persist

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/mythosmud/mudserver/internal/worldmodel"
)

// RoomRepo is the rooms aggregate's Postgres binding.
type RoomRepo struct {
	db *DB
}

func (r *RoomRepo) GetRoomByID(ctx context.Context, id string) (*worldmodel.Room, error) {
	var (
		room      worldmodel.Room
		rawExits  []byte
		rawNPCIDs []byte
		rawDrops  []byte
	)
	err := r.db.Pool.QueryRow(ctx, `SELECT id, name, description, exits, npc_ids, drops
		FROM rooms WHERE id = $1`, id).Scan(
		&room.ID, &room.Name, &room.Description, &rawExits, &rawNPCIDs, &rawDrops,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(rawExits, &room.Exits); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(rawNPCIDs, &room.NPCIDs); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(rawDrops, &room.Drops); err != nil {
		return nil, err
	}

	players, err := (&PlayerRepo{db: r.db}).GetPlayersInRoom(ctx, id)
	if err != nil {
		return nil, err
	}
	room.PlayerIDs = make([]string, 0, len(players))
	for _, p := range players {
		room.PlayerIDs = append(room.PlayerIDs, p.ID)
	}

	return &room, nil
}
