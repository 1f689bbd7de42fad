// Package target resolves a partial, possibly-suffixed name to a single
// player or NPC in a room (C6).
package target

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/mythosmud/mudserver/internal/apperr"
	"github.com/mythosmud/mudserver/internal/worldmodel"
)

// Kind is the entity kind a Match refers to.
type Kind string

const (
	KindPlayer Kind = "player"
	KindNPC    Kind = "npc"
)

// Match is a single resolved (or candidate) target.
type Match struct {
	ID                    string
	DisplayName           string
	Kind                  Kind
	RoomID                string
	DisambiguationSuffix  int // 0 = none assigned
}

var suffixPattern = regexp.MustCompile(`^(.+)-(\d+)$`)

// stripPunctuation removes non-alphanumeric runes, used to compare NPC
// names loosely ("Giant Rat" vs "giant rat!").
func stripPunctuation(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == ' ' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Resolve translates targetText into exactly one entity in roomID, or a
// typed failure: not_in_room, no_match, or disambiguation_required
// (carrying the annotated candidate list).
func Resolve(
	ctx context.Context,
	persistence worldmodel.Persistence,
	npcRuntime worldmodel.NPCRuntime,
	room *worldmodel.Room,
	targetText string,
) (Match, []Match, error) {
	if room == nil || room.ID == "" {
		return Match{}, nil, apperr.New(apperr.NotInRoom, "requester has no current room")
	}

	norm := strings.ToLower(strings.TrimSpace(targetText))
	base := norm
	wantSuffix := 0
	hasSuffix := false
	if m := suffixPattern.FindStringSubmatch(norm); m != nil {
		base = m[1]
		if n, err := strconv.Atoi(m[2]); err == nil {
			wantSuffix = n
			hasSuffix = true
		}
	}

	candidates := enumerateCandidates(ctx, persistence, npcRuntime, room, base)
	assignSuffixes(candidates)

	switch len(candidates) {
	case 0:
		return Match{}, nil, apperr.New(apperr.NoMatch, "no target matching %q in this room", targetText)
	case 1:
		return candidates[0], candidates, nil
	default:
		if !hasSuffix {
			return Match{}, candidates, apperr.New(apperr.DisambiguationRequired, "multiple targets match %q", targetText)
		}
		for _, c := range candidates {
			if c.DisambiguationSuffix == wantSuffix {
				return c, candidates, nil
			}
		}
		return Match{}, nil, apperr.New(apperr.NoMatch, "no target matching %q-%d", base, wantSuffix)
	}
}

func enumerateCandidates(
	ctx context.Context,
	persistence worldmodel.Persistence,
	npcRuntime worldmodel.NPCRuntime,
	room *worldmodel.Room,
	base string,
) []Match {
	var out []Match

	players, _ := persistence.GetPlayersInRoom(ctx, room.ID)
	for _, p := range players {
		if strings.Contains(strings.ToLower(p.Name), base) {
			out = append(out, Match{ID: p.ID, DisplayName: p.Name, Kind: KindPlayer, RoomID: room.ID})
		}
	}

	strippedBase := stripPunctuation(base)
	for _, npcID := range room.NPCIDs {
		npc, ok := npcRuntime.ActiveNPC(npcID)
		if !ok {
			continue
		}
		if strings.Contains(stripPunctuation(strings.ToLower(npc.Name)), strippedBase) {
			out = append(out, Match{ID: npc.ID, DisplayName: npc.Name, Kind: KindNPC, RoomID: room.ID})
		}
	}

	return out
}

// assignSuffixes assigns -N suffixes, starting at 1, to candidates that
// share a display name, in stable enumeration order.
func assignSuffixes(candidates []Match) {
	counts := make(map[string]int)
	for _, c := range candidates {
		counts[strings.ToLower(c.DisplayName)]++
	}
	next := make(map[string]int)
	for i := range candidates {
		key := strings.ToLower(candidates[i].DisplayName)
		if counts[key] < 2 {
			continue
		}
		next[key]++
		candidates[i].DisambiguationSuffix = next[key]
	}
}
