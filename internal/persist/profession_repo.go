package persist

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/mythosmud/mudserver/internal/worldmodel"
)

// ProfessionRepo is the professions aggregate's Postgres binding.
type ProfessionRepo struct {
	db *DB
}

func (r *ProfessionRepo) GetProfessionByID(ctx context.Context, id string) (*worldmodel.Profession, error) {
	var p worldmodel.Profession
	err := r.db.Pool.QueryRow(ctx, `SELECT id, name FROM professions WHERE id = $1`, id).
		Scan(&p.ID, &p.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
