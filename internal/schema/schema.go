// Package schema generates JSON Schemas for every outbound event so overlay
// and broadcast consumers can validate what they receive.
package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	"github.com/invopop/jsonschema"

	"github.com/FC2Observ/observ/pkg/core"
	"github.com/FC2Observ/observ/pkg/streaming"
)

// payloads maps each event type to the Go type carried in its data field.
var payloads = map[string]reflect.Type{
	streaming.TypePlayers:     reflect.TypeOf(streaming.PlayersPayload{}),
	streaming.TypeBomb:        reflect.TypeOf(core.Bomb{}),
	streaming.TypeSmokes:      reflect.TypeOf([]core.Smoke{}),
	streaming.TypeInfernos:    reflect.TypeOf([]core.Inferno{}),
	streaming.TypeFlashbangs:  reflect.TypeOf([]core.Flashbang{}),
	streaming.TypeProjectiles: reflect.TypeOf([]core.Projectile{}),
	streaming.TypeConnection:  reflect.TypeOf(core.Connection{}),
	streaming.TypeMap:         reflect.TypeOf(""),
	streaming.TypeRadar:       reflect.TypeOf(streaming.RadarPayload{}),
}

// Build returns the schema of the {type, data} message of eventType.
func Build(eventType string) (*jsonschema.Schema, error) {
	t, ok := payloads[eventType]
	if !ok {
		return nil, fmt.Errorf("unknown event type %q", eventType)
	}

	reflector := jsonschema.Reflector{
		DoNotReference: true,
	}
	data := reflector.ReflectFromType(t)
	data.Version = ""

	props := jsonschema.NewProperties()
	props.Set("type", &jsonschema.Schema{Type: "string", Const: eventType})
	props.Set("data", data)

	return &jsonschema.Schema{
		Version:              jsonschema.Version,
		Title:                "FC2Observ " + eventType + " event",
		Type:                 "object",
		Properties:           props,
		Required:             []string{"type", "data"},
		AdditionalProperties: jsonschema.FalseSchema,
	}, nil
}

// WriteAll writes <dir>/<type>.schema.json for every event type and returns the written paths.
func WriteAll(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create schema directory: %w", err)
	}

	paths := make([]string, 0, len(streaming.Types))
	for _, typ := range streaming.Types {
		s, err := Build(typ)
		if err != nil {
			return paths, err
		}
		path := filepath.Join(dir, typ+".schema.json")
		if err := writeSchema(path, s); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeSchema(outPath string, s *jsonschema.Schema) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}
	return nil
}
