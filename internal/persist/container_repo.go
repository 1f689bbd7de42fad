package persist

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/mythosmud/mudserver/internal/worldmodel"
)

// ContainerRepo is the containers aggregate's Postgres binding.
type ContainerRepo struct {
	db *DB
}

func (r *ContainerRepo) GetContainer(ctx context.Context, id string) (*worldmodel.Container, error) {
	return r.scanOne(ctx, `SELECT id, name, room_id, locked, sealed, capacity, items
		FROM containers WHERE id = $1`, id)
}

func (r *ContainerRepo) scanOne(ctx context.Context, query string, arg any) (*worldmodel.Container, error) {
	var (
		c        worldmodel.Container
		rawItems []byte
	)
	err := r.db.Pool.QueryRow(ctx, query, arg).Scan(
		&c.ID, &c.Name, &c.RoomID, &c.Locked, &c.Sealed, &c.Capacity, &rawItems,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(rawItems, &c.Items); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ContainerRepo) GetContainersByRoomID(ctx context.Context, roomID string) ([]*worldmodel.Container, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT id, name, room_id, locked, sealed, capacity, items
		FROM containers WHERE room_id = $1`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*worldmodel.Container
	for rows.Next() {
		var (
			c        worldmodel.Container
			rawItems []byte
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.RoomID, &c.Locked, &c.Sealed, &c.Capacity, &rawItems); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(rawItems, &c.Items); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}
