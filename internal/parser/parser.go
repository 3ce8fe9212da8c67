package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/FC2Observ/observ/internal/util"
	"github.com/FC2Observ/observ/pkg/core"
)

var (
	ErrNoPlayers     = errors.New("snapshot has no players")
	ErrNoLocalPlayer = errors.New("snapshot has no localplayer")
)

// ParseError wraps a document that is not valid JSON of the expected shape.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ValidationError marks a well-formed snapshot that fails the validity gate.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return "invalid snapshot: " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

const (
	grenadeSmoke     = "smoke"
	grenadeInferno   = "inferno"
	grenadeFlashbang = "flashbang"
)

// Parser turns raw snapshots into domain events. It holds no per-tick state.
type Parser struct {
	logger             *slog.Logger
	requireLocalPlayer bool
}

// NewParser creates a new parser with only a logger dependency
func NewParser(logger *slog.Logger, requireLocalPlayer bool) *Parser {
	return &Parser{
		logger:             logger,
		requireLocalPlayer: requireLocalPlayer,
	}
}

// Parse decodes and normalizes one snapshot document.
func (p *Parser) Parse(data []byte) (*Result, error) {
	snap, err := p.ParseSnapshot(data)
	if err != nil {
		return nil, err
	}
	return p.Normalize(snap)
}

func (p *Parser) ParseSnapshot(data []byte) (*RawSnapshot, error) {
	var snap RawSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, &ParseError{Source: "snapshot", Err: err}
	}
	return &snap, nil
}

// Normalize applies the validity gate, then the player, bomb and grenade passes.
// Malformed entries are logged and skipped.
func (p *Parser) Normalize(snap *RawSnapshot) (*Result, error) {
	if len(snap.Players) == 0 {
		return nil, &ValidationError{Err: ErrNoPlayers}
	}
	if p.requireLocalPlayer && isAbsent(snap.LocalPlayer) {
		return nil, &ValidationError{Err: ErrNoLocalPlayer}
	}

	res := &Result{}

	var carrier *int
	if !isAbsent(snap.Bomb) {
		bomb, raw, err := p.parseBomb(snap.Bomb)
		if err != nil {
			p.logger.Debug("Skipping malformed bomb", "error", err)
		} else {
			res.Bomb = bomb
			if raw.State == string(core.BombCarried) && raw.Player != nil {
				idx := raw.Player.Int()
				carrier = &idx
			}
		}
	}

	res.Players = make([]core.Player, 0, len(snap.Players))
	for i, entry := range snap.Players {
		player, ok, err := p.parsePlayer(entry, carrier)
		if err != nil {
			p.logger.Debug("Skipping malformed player", "index", i, "error", err)
			continue
		}
		if ok {
			res.Players = append(res.Players, player)
		}
	}

	res.Grenades = p.parseGrenades(snap.Grenades)
	return res, nil
}

func isAbsent(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// parsePlayer reports ok=false for spectators and unassigned players.
func (p *Parser) parsePlayer(entry json.RawMessage, carrier *int) (core.Player, bool, error) {
	var raw RawPlayer
	if err := json.Unmarshal(entry, &raw); err != nil {
		return core.Player{}, false, err
	}
	switch {
	case raw.Name == nil:
		return core.Player{}, false, errors.New("missing name")
	case raw.Index == nil:
		return core.Player{}, false, errors.New("missing index")
	case raw.Team == nil:
		return core.Player{}, false, errors.New("missing team")
	case raw.Position == nil:
		return core.Player{}, false, errors.New("missing position")
	case raw.ViewAngles == nil:
		return core.Player{}, false, errors.New("missing viewangles")
	}

	team := raw.Team.Int()
	if team != core.EngineTeamT && team != core.EngineTeamCT {
		return core.Player{}, false, nil
	}

	index := raw.Index.Int()
	player := core.Player{
		ID:       util.DecodeName(*raw.Name),
		Num:      index - 1,
		Team:     teamName(team),
		Health:   raw.Health.Int(),
		Active:   true,
		Angle:    util.ViewAngle(raw.ViewAngles.Y.Float()),
		Position: raw.Position.Position(),
	}
	if raw.Flashed != nil {
		player.Flashed = raw.Flashed.Float()
	}
	if carrier != nil && *carrier == index {
		player.Bomb = true
	}
	return player, true, nil
}

func teamName(code int) core.Team {
	if code == core.EngineTeamCT {
		return core.TeamCT
	}
	return core.TeamT
}

// grenadeTeam maps an optional engine team code, empty when unknown.
func grenadeTeam(code *Number) core.Team {
	if code == nil {
		return ""
	}
	switch code.Int() {
	case core.EngineTeamCT:
		return core.TeamCT
	case core.EngineTeamT:
		return core.TeamT
	}
	return ""
}

func (p *Parser) parseBomb(entry json.RawMessage) (*core.Bomb, *RawBomb, error) {
	var raw RawBomb
	if err := json.Unmarshal(entry, &raw); err != nil {
		return nil, nil, err
	}
	if raw.State == "" {
		return nil, nil, errors.New("missing state")
	}
	return &core.Bomb{
		State:    core.BombState(raw.State),
		Position: raw.Position.Position(),
	}, &raw, nil
}

// parseGrenades partitions grenades into the four groups; the first matching
// rule wins and input order is kept within each group.
func (p *Parser) parseGrenades(entries []json.RawMessage) core.Grenades {
	g := core.Grenades{
		Smokes:      []core.Smoke{},
		Infernos:    []core.Inferno{},
		Flashbangs:  []core.Flashbang{},
		Projectiles: []core.Projectile{},
	}

	for i, entry := range entries {
		var raw RawGrenade
		if err := json.Unmarshal(entry, &raw); err != nil {
			p.logger.Debug("Skipping malformed grenade", "index", i, "error", err)
			continue
		}
		if raw.ID == nil || raw.Type == "" {
			p.logger.Debug("Skipping grenade without id or type", "index", i)
			continue
		}

		id := string(*raw.ID)
		kind := strings.ToLower(raw.Type)
		team := grenadeTeam(raw.Team)

		switch {
		case kind == grenadeSmoke && raw.EffectTime != 0:
			g.Smokes = append(g.Smokes, core.Smoke{
				ID:       id,
				Team:     team,
				Position: raw.Position.Position(),
				Time:     raw.EffectTime.Float(),
			})
		case kind == grenadeInferno && len(raw.Flames) > 0:
			flames := make([]core.Position3D, len(raw.Flames))
			for j, f := range raw.Flames {
				flames[j] = f.Position()
			}
			g.Infernos = append(g.Infernos, core.Inferno{
				ID:             id,
				FlamesNum:      len(flames),
				FlamesPosition: flames,
			})
		case kind == grenadeFlashbang && raw.EffectTime != 0:
			g.Flashbangs = append(g.Flashbangs, core.Flashbang{
				ID:       id,
				Team:     team,
				Position: raw.Position.Position(),
				Time:     raw.EffectTime.Float(),
			})
		case !raw.Velocity.IsZero() || kind == grenadeSmoke:
			g.Projectiles = append(g.Projectiles, core.Projectile{
				ID:       raw.Type + id,
				Type:     raw.Type,
				Team:     team,
				Position: raw.Position.Position(),
			})
		}
	}
	return g
}
