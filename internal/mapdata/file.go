package mapdata

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// MetaFileName is the base name of a map description, without extension.
const MetaFileName = "meta"

// FileSource reads <Dir>/<name>/meta.{json,yaml,toml}.
type FileSource struct {
	Dir string
}

func NewFileSource(dir string) *FileSource {
	return &FileSource{Dir: dir}
}

func (s *FileSource) Load(name string) (*MapData, error) {
	if !validName(name) {
		return nil, &NotFoundError{Name: name}
	}

	v := viper.New()
	v.SetConfigName(MetaFileName)
	v.AddConfigPath(filepath.Join(s.Dir, name))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, &NotFoundError{Name: name}
		}
		return nil, &MapLoadError{Name: name, Err: err}
	}

	var md MapData
	if err := v.Unmarshal(&md); err != nil {
		return nil, &MapLoadError{Name: name, Err: err}
	}
	return finish(name, &md)
}

// Names lists the map directories under Dir that carry a meta file.
func (s *FileSource) Names() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.Dir, "*", MetaFileName+".*"))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		name := filepath.Base(filepath.Dir(m))
		if seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names, nil
}

// map names come from the game, never let them walk out of Dir
func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}
