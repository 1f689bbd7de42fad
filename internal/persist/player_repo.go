package persist

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/mythosmud/mudserver/internal/worldmodel"
)

// PlayerRepo is the players aggregate's Postgres binding, grounded on
// the teacher's CharacterRepo shape.
type PlayerRepo struct {
	db *DB
}

func (r *PlayerRepo) GetPlayerByID(ctx context.Context, id string) (*worldmodel.Player, error) {
	return r.scanOne(ctx, `SELECT id, name, room_id, level, xp, dex, hp, max_hp,
		lucidity, max_lucidity, position, equipment, inventory, known_spells, profession_id
		FROM players WHERE id = $1`, id)
}

func (r *PlayerRepo) GetPlayerByName(ctx context.Context, name string) (*worldmodel.Player, error) {
	return r.scanOne(ctx, `SELECT id, name, room_id, level, xp, dex, hp, max_hp,
		lucidity, max_lucidity, position, equipment, inventory, known_spells, profession_id
		FROM players WHERE name = $1`, name)
}

func (r *PlayerRepo) scanOne(ctx context.Context, query string, arg any) (*worldmodel.Player, error) {
	var (
		p              worldmodel.Player
		professionID   *string
		rawEquipment   []byte
		rawInventory   []byte
		rawKnownSpells []byte
	)
	err := r.db.Pool.QueryRow(ctx, query, arg).Scan(
		&p.ID, &p.Name, &p.RoomID, &p.Level, &p.XP, &p.Dex, &p.HP, &p.MaxHP,
		&p.Lucidity, &p.MaxLucidity, &p.Position, &rawEquipment, &rawInventory, &rawKnownSpells, &professionID,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if professionID != nil {
		p.ProfessionID = *professionID
	}
	if err := unmarshalEquipment(rawEquipment, &p.Equipment); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(rawInventory, &p.Inventory); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(rawKnownSpells, &p.KnownSpells); err != nil {
		return nil, err
	}
	return &p, nil
}

func unmarshalEquipment(raw []byte, out *map[worldmodel.EquipSlot]worldmodel.EquippedItem) error {
	var m map[string]worldmodel.EquippedItem
	if err := json.Unmarshal(raw, &m); err != nil {
		return err
	}
	result := make(map[worldmodel.EquipSlot]worldmodel.EquippedItem, len(m))
	for k, v := range m {
		result[worldmodel.EquipSlot(k)] = v
	}
	*out = result
	return nil
}

func (r *PlayerRepo) SavePlayer(ctx context.Context, p *worldmodel.Player) error {
	equipment := make(map[string]worldmodel.EquippedItem, len(p.Equipment))
	for k, v := range p.Equipment {
		equipment[string(k)] = v
	}
	rawEquipment, err := json.Marshal(equipment)
	if err != nil {
		return err
	}
	inventory := p.Inventory
	if inventory == nil {
		inventory = []worldmodel.ItemStack{}
	}
	rawInventory, err := json.Marshal(inventory)
	if err != nil {
		return err
	}
	knownSpells := p.KnownSpells
	if knownSpells == nil {
		knownSpells = []string{}
	}
	rawKnownSpells, err := json.Marshal(knownSpells)
	if err != nil {
		return err
	}

	var professionID *string
	if p.ProfessionID != "" {
		professionID = &p.ProfessionID
	}

	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO players (id, name, room_id, level, xp, dex, hp, max_hp, lucidity,
			max_lucidity, position, equipment, inventory, known_spells, profession_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, room_id = EXCLUDED.room_id, level = EXCLUDED.level,
			xp = EXCLUDED.xp, dex = EXCLUDED.dex, hp = EXCLUDED.hp, max_hp = EXCLUDED.max_hp,
			lucidity = EXCLUDED.lucidity, max_lucidity = EXCLUDED.max_lucidity,
			position = EXCLUDED.position, equipment = EXCLUDED.equipment,
			inventory = EXCLUDED.inventory, known_spells = EXCLUDED.known_spells,
			profession_id = EXCLUDED.profession_id`,
		p.ID, p.Name, p.RoomID, p.Level, p.XP, p.Dex, p.HP, p.MaxHP, p.Lucidity,
		p.MaxLucidity, p.Position, rawEquipment, rawInventory, rawKnownSpells, professionID,
	)
	return err
}

func (r *PlayerRepo) GetPlayersInRoom(ctx context.Context, roomID string) ([]*worldmodel.Player, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT id, name, room_id, level, xp, dex, hp, max_hp,
		lucidity, max_lucidity, position, equipment, inventory, known_spells, profession_id
		FROM players WHERE room_id = $1`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*worldmodel.Player
	for rows.Next() {
		var (
			p              worldmodel.Player
			professionID   *string
			rawEquipment   []byte
			rawInventory   []byte
			rawKnownSpells []byte
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.RoomID, &p.Level, &p.XP, &p.Dex, &p.HP, &p.MaxHP,
			&p.Lucidity, &p.MaxLucidity, &p.Position, &rawEquipment, &rawInventory, &rawKnownSpells, &professionID); err != nil {
			return nil, err
		}
		if professionID != nil {
			p.ProfessionID = *professionID
		}
		if err := unmarshalEquipment(rawEquipment, &p.Equipment); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(rawInventory, &p.Inventory); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(rawKnownSpells, &p.KnownSpells); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}
