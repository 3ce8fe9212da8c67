package parser

import (
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/FC2Observ/observ/pkg/core"
	"github.com/FC2Observ/observ/pkg/streaming"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestParser() *Parser {
	return NewParser(slog.Default(), false)
}

func player(name string, index, team int, yaw float64) map[string]any {
	return map[string]any{
		"name":       name,
		"index":      index,
		"team":       team,
		"health":     100,
		"viewangles": map[string]any{"x": 0, "y": yaw, "z": 0},
		"position":   map[string]any{"x": 1, "y": 2, "z": 3},
	}
}

func snapshot(t *testing.T, doc map[string]any) []byte {
	t.Helper()
	b, err := json.Marshal(doc)
	require.NoError(t, err)
	return b
}

func TestNewParser(t *testing.T) {
	p := newTestParser()
	require.NotNil(t, p)
}

func TestNumber_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    float64
		wantErr bool
	}{
		{"integer", `32`, 32, false},
		{"float", `-12.5`, -12.5, false},
		{"numeric string", `"143.03"`, 143.03, false},
		{"null keeps zero", `null`, 0, false},
		{"empty string", `""`, 0, true},
		{"non-numeric", `"abc"`, 0, true},
		{"bool", `true`, 0, true},
		{"NaN string", `"NaN"`, 0, true},
		{"infinity string", `"Infinity"`, 0, true},
		{"negative inf string", `"-Inf"`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var n Number
			err := json.Unmarshal([]byte(tt.input), &n)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, n.Float())
			}
		})
	}
}

func TestID_UnmarshalJSON(t *testing.T) {
	var ids []ID
	require.NoError(t, json.Unmarshal([]byte(`["abc", 417, 76561198000000001]`), &ids))
	assert.Equal(t, []ID{"abc", "417", "76561198000000001"}, ids)

	var bad ID
	assert.Error(t, json.Unmarshal([]byte(`{}`), &bad))
}

func TestParse_Malformed(t *testing.T) {
	_, err := newTestParser().Parse([]byte(`{"players": [`))

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "snapshot", pe.Source)
}

func TestParse_WrongShape(t *testing.T) {
	_, err := newTestParser().Parse([]byte(`{"players": 5}`))

	var pe *ParseError
	assert.ErrorAs(t, err, &pe)
}

func TestNormalize_ValidityGate(t *testing.T) {
	p := newTestParser()

	_, err := p.Parse([]byte(`{}`))
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.ErrorIs(t, err, ErrNoPlayers)

	_, err = p.Parse([]byte(`{"players": []}`))
	assert.ErrorIs(t, err, ErrNoPlayers)
}

func TestNormalize_RequireLocalPlayer(t *testing.T) {
	strict := NewParser(slog.Default(), true)
	doc := map[string]any{"players": []any{player("a", 1, 3, 0)}}

	_, err := strict.Parse(snapshot(t, doc))
	assert.ErrorIs(t, err, ErrNoLocalPlayer)

	doc["localplayer"] = map[string]any{"index": 1}
	res, err := strict.Parse(snapshot(t, doc))
	require.NoError(t, err)
	assert.Len(t, res.Players, 1)

	_, err = newTestParser().Parse(snapshot(t, map[string]any{"players": []any{player("a", 1, 3, 0)}}))
	assert.NoError(t, err)
}

func TestNormalize_Angle(t *testing.T) {
	tests := []struct {
		yaw  float64
		want float64
	}{
		{0, 90},
		{90, 0},
		{180, 270},
		{-45.678, 135.68},
		{45, 45},
		{90.125, 359.88},
		{-0.125, 90.13},
	}

	for _, tt := range tests {
		res, err := newTestParser().Parse(snapshot(t, map[string]any{
			"players": []any{player("a", 1, 2, tt.yaw)},
		}))
		require.NoError(t, err)
		require.Len(t, res.Players, 1)
		assert.Equal(t, tt.want, res.Players[0].Angle, "yaw %v", tt.yaw)
	}
}

func TestNormalize_TeamFilter(t *testing.T) {
	res, err := newTestParser().Parse(snapshot(t, map[string]any{
		"players": []any{
			player("unassigned", 1, 0, 0),
			player("spectator", 2, 1, 0),
			player("terrorist", 3, 2, 0),
			player("counter", 4, 3, 0),
			player("weird", 5, 7, 0),
		},
	}))
	require.NoError(t, err)
	require.Len(t, res.Players, 2)

	assert.Equal(t, "terrorist", res.Players[0].ID)
	assert.Equal(t, core.TeamT, res.Players[0].Team)
	assert.Equal(t, 2, res.Players[0].Num)

	assert.Equal(t, "counter", res.Players[1].ID)
	assert.Equal(t, core.TeamCT, res.Players[1].Team)
	assert.Equal(t, 3, res.Players[1].Num)
}

func TestNormalize_OnlySpectatorsYieldsEmptyRoster(t *testing.T) {
	res, err := newTestParser().Parse(snapshot(t, map[string]any{
		"players": []any{player("caster", 1, 1, 0)},
	}))
	require.NoError(t, err)
	assert.NotNil(t, res.Players)
	assert.Empty(t, res.Players)
}

func TestNormalize_PlayerFields(t *testing.T) {
	p := player("Sir%20Lag", 7, 3, 0)
	p["health"] = "64"
	p["flashed"] = 0.75
	p["position"] = map[string]any{"x": "-512.5", "y": 10, "z": "64.03"}

	res, err := newTestParser().Parse(snapshot(t, map[string]any{"players": []any{p}}))
	require.NoError(t, err)
	require.Len(t, res.Players, 1)

	got := res.Players[0]
	assert.Equal(t, "Sir Lag", got.ID)
	assert.Equal(t, 6, got.Num)
	assert.Equal(t, 64, got.Health)
	assert.Equal(t, 0.75, got.Flashed)
	assert.True(t, got.Active)
	assert.False(t, got.Bomb)
	assert.False(t, got.BombActive)
	assert.Equal(t, core.Position3D{X: -512.5, Y: 10, Z: 64.03}, got.Position)
}

func TestNormalize_MalformedPlayerSkipped(t *testing.T) {
	noPos := player("nopos", 2, 2, 0)
	delete(noPos, "position")
	noAngles := player("noangles", 3, 2, 0)
	delete(noAngles, "viewangles")

	res, err := newTestParser().Parse(snapshot(t, map[string]any{
		"players": []any{
			"not an object",
			map[string]any{"name": "badteam", "index": 1, "team": "x"},
			noPos,
			noAngles,
			player("ok", 4, 3, 0),
		},
	}))
	require.NoError(t, err)
	require.Len(t, res.Players, 1)
	assert.Equal(t, "ok", res.Players[0].ID)
}

func TestNormalize_NonFinitePlayerSkipped(t *testing.T) {
	nanPos := player("nanpos", 2, 2, 0)
	nanPos["position"] = map[string]any{"x": "NaN", "y": 2, "z": 3}
	infAngle := player("infangle", 3, 3, 0)
	infAngle["viewangles"] = map[string]any{"x": 0, "y": "Infinity", "z": 0}

	res, err := newTestParser().Parse(snapshot(t, map[string]any{
		"players": []any{player("good", 1, 3, 0), nanPos, infAngle},
		"bomb":    map[string]any{"state": "dropped", "position": map[string]any{"x": "NaN", "y": 0, "z": 0}},
	}))
	require.NoError(t, err)
	require.Len(t, res.Players, 1)
	assert.Equal(t, "good", res.Players[0].ID)
	assert.Nil(t, res.Bomb)

	_, err = streaming.Event{Type: streaming.TypePlayers, Data: streaming.PlayersPayload{Players: res.Players}}.Marshal()
	assert.NoError(t, err)
}

func TestNormalize_Bomb(t *testing.T) {
	res, err := newTestParser().Parse(snapshot(t, map[string]any{
		"players": []any{player("carrier", 4, 2, 0), player("other", 5, 2, 0)},
		"bomb": map[string]any{
			"state":    "carried",
			"player":   4,
			"position": map[string]any{"x": "10.5", "y": "-3", "z": 0},
		},
	}))
	require.NoError(t, err)

	require.NotNil(t, res.Bomb)
	assert.Equal(t, core.BombCarried, res.Bomb.State)
	assert.Equal(t, core.Position3D{X: 10.5, Y: -3, Z: 0}, res.Bomb.Position)

	assert.True(t, res.Players[0].Bomb)
	assert.False(t, res.Players[1].Bomb)
}

func TestNormalize_BombPlantedHasNoCarrier(t *testing.T) {
	res, err := newTestParser().Parse(snapshot(t, map[string]any{
		"players": []any{player("planter", 4, 2, 0)},
		"bomb":    map[string]any{"state": "planted", "player": 4, "position": map[string]any{"x": 1, "y": 2, "z": 3}},
	}))
	require.NoError(t, err)

	assert.Equal(t, core.BombPlanted, res.Bomb.State)
	assert.False(t, res.Players[0].Bomb)
}

func TestNormalize_NoBomb(t *testing.T) {
	res, err := newTestParser().Parse(snapshot(t, map[string]any{
		"players": []any{player("a", 1, 2, 0)},
		"bomb":    nil,
	}))
	require.NoError(t, err)
	assert.Nil(t, res.Bomb)
}

func TestNormalize_GrenadePartition(t *testing.T) {
	moving := map[string]any{"x": 100, "y": 0, "z": -20}
	still := map[string]any{"x": 0, "y": 0, "z": 0}
	pos := map[string]any{"x": 1, "y": 2, "z": 3}

	res, err := newTestParser().Parse(snapshot(t, map[string]any{
		"players": []any{player("a", 1, 2, 0)},
		"grenades": []any{
			map[string]any{"id": 1, "type": "smoke", "team": 3, "position": pos, "velocity": still, "effecttime": 12.5},
			map[string]any{"id": 2, "type": "inferno", "position": pos, "velocity": still, "flames": []any{pos, pos}},
			map[string]any{"id": 3, "type": "inferno", "position": pos, "velocity": still, "flames": []any{}},
			map[string]any{"id": 4, "type": "flashbang", "team": 2, "position": pos, "velocity": still, "effecttime": "3.25"},
			map[string]any{"id": 5, "type": "he", "team": 2, "position": pos, "velocity": moving},
			map[string]any{"id": 6, "type": "smoke", "team": 3, "position": pos, "velocity": still, "effecttime": 0},
			map[string]any{"id": 7, "type": "decoy", "position": pos, "velocity": still},
			map[string]any{"id": 8, "type": "flashbang", "team": 3, "position": pos, "velocity": moving, "effecttime": 0},
		},
	}))
	require.NoError(t, err)
	g := res.Grenades

	require.Len(t, g.Smokes, 1)
	assert.Equal(t, core.Smoke{ID: "1", Team: core.TeamCT, Position: core.Position3D{X: 1, Y: 2, Z: 3}, Time: 12.5}, g.Smokes[0])

	require.Len(t, g.Infernos, 1)
	assert.Equal(t, "2", g.Infernos[0].ID)
	assert.Equal(t, 2, g.Infernos[0].FlamesNum)
	assert.Len(t, g.Infernos[0].FlamesPosition, 2)

	require.Len(t, g.Flashbangs, 1)
	assert.Equal(t, core.Flashbang{ID: "4", Team: core.TeamT, Position: core.Position3D{X: 1, Y: 2, Z: 3}, Time: 3.25}, g.Flashbangs[0])

	require.Len(t, g.Projectiles, 3)
	assert.Equal(t, "he5", g.Projectiles[0].ID)
	assert.Equal(t, "smoke6", g.Projectiles[1].ID)
	assert.Equal(t, "flashbang8", g.Projectiles[2].ID)
	assert.Equal(t, "he", g.Projectiles[0].Type)
}

func TestNormalize_SmokeReclassifiedOnLanding(t *testing.T) {
	p := newTestParser()
	tick := func(effect float64, velocity float64) core.Grenades {
		res, err := p.Parse(snapshot(t, map[string]any{
			"players": []any{player("a", 1, 2, 0)},
			"grenades": []any{map[string]any{
				"id": 42, "type": "smoke",
				"position":   map[string]any{"x": 1, "y": 1, "z": 1},
				"velocity":   map[string]any{"x": velocity, "y": 0, "z": 0},
				"effecttime": effect,
			}},
		}))
		require.NoError(t, err)
		return res.Grenades
	}

	inFlight := tick(0, 250)
	assert.Empty(t, inFlight.Smokes)
	require.Len(t, inFlight.Projectiles, 1)
	assert.Equal(t, "smoke42", inFlight.Projectiles[0].ID)

	landed := tick(81.3, 0)
	assert.Empty(t, landed.Projectiles)
	require.Len(t, landed.Smokes, 1)
	assert.Equal(t, "42", landed.Smokes[0].ID)
}

func TestNormalize_GroupsAlwaysPresent(t *testing.T) {
	res, err := newTestParser().Parse(snapshot(t, map[string]any{
		"players": []any{player("a", 1, 2, 0)},
	}))
	require.NoError(t, err)

	for _, raw := range []any{res.Grenades.Smokes, res.Grenades.Infernos, res.Grenades.Flashbangs, res.Grenades.Projectiles} {
		b, err := json.Marshal(raw)
		require.NoError(t, err)
		assert.Equal(t, "[]", string(b))
	}
}

func TestNormalize_MalformedGrenadeSkipped(t *testing.T) {
	pos := map[string]any{"x": 1, "y": 2, "z": 3}
	res, err := newTestParser().Parse(snapshot(t, map[string]any{
		"players": []any{player("a", 1, 2, 0)},
		"grenades": []any{
			42,
			map[string]any{"type": "smoke", "effecttime": 3},
			map[string]any{"id": 1, "effecttime": 3},
			map[string]any{"id": 2, "type": "smoke", "position": map[string]any{"x": "nope"}, "effecttime": 3},
			map[string]any{"id": 3, "type": "smoke", "position": pos, "effecttime": 3},
		},
	}))
	require.NoError(t, err)
	require.Len(t, res.Grenades.Smokes, 1)
	assert.Equal(t, "3", res.Grenades.Smokes[0].ID)
}

func TestNormalize_EndToEndCTPlayer(t *testing.T) {
	res, err := newTestParser().Parse([]byte(`{
		"players": [{
			"name": "ct1", "index": 1, "team": 3, "health": 80,
			"viewangles": {"x": 0, "y": 45, "z": 0},
			"position": {"x": 100, "y": 200, "z": 50}
		}]
	}`))
	require.NoError(t, err)
	require.Len(t, res.Players, 1)

	got := res.Players[0]
	assert.Equal(t, 45.0, got.Angle)
	assert.Equal(t, core.TeamCT, got.Team)
	assert.Equal(t, 80, got.Health)
	assert.Equal(t, core.Position3D{X: 100, Y: 200, Z: 50}, got.Position)
}

func TestNormalize_Idempotent(t *testing.T) {
	doc := []byte(`{
		"players": [
			{"name": "a", "index": 1, "team": 2, "health": 100, "viewangles": {"y": 12.345}, "position": {"x": 1.5, "y": "2", "z": 3}},
			{"name": "b", "index": 2, "team": 3, "health": 55, "viewangles": {"y": -170}, "position": {"x": -1, "y": 0, "z": 0}}
		],
		"bomb": {"state": "dropped", "position": {"x": "5", "y": "6", "z": "7"}},
		"grenades": [
			{"id": 9, "type": "smoke", "team": 2, "position": {"x": 1, "y": 1, "z": 1}, "effecttime": 4},
			{"id": 10, "type": "molotov", "team": 3, "position": {"x": 1, "y": 1, "z": 1}, "velocity": {"x": 3, "y": 0, "z": 0}}
		]
	}`)

	encode := func() [][]byte {
		res, err := newTestParser().Parse(doc)
		require.NoError(t, err)

		events := []streaming.Event{
			{Type: streaming.TypePlayers, Data: streaming.PlayersPayload{Players: res.Players}},
			{Type: streaming.TypeBomb, Data: res.Bomb},
			{Type: streaming.TypeSmokes, Data: res.Grenades.Smokes},
			{Type: streaming.TypeInfernos, Data: res.Grenades.Infernos},
			{Type: streaming.TypeFlashbangs, Data: res.Grenades.Flashbangs},
			{Type: streaming.TypeProjectiles, Data: res.Grenades.Projectiles},
		}
		out := make([][]byte, len(events))
		for i, e := range events {
			b, err := e.Marshal()
			require.NoError(t, err)
			out[i] = b
		}
		return out
	}

	assert.Equal(t, encode(), encode())
}
