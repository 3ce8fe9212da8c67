package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/FC2Observ/observ/internal/config"
	"github.com/FC2Observ/observ/internal/mapdata"
	"github.com/FC2Observ/observ/internal/schema"
)

// nameLister is implemented by both map sources.
type nameLister interface {
	Names() ([]string, error)
}

func runMaps(args []string) error {
	if len(args) == 0 {
		return errors.New("maps: expected import or list")
	}

	mapsCfg := config.GetMapsConfig()
	switch strings.ToLower(args[0]) {
	case "import":
		if len(args) < 2 {
			return errors.New("maps import: no directory provided")
		}
		return importMaps(args[1], mapsCfg)
	case "list":
		return listMaps(mapsCfg)
	default:
		return fmt.Errorf("maps: unknown subcommand %q", args[0])
	}
}

// importMaps copies every map description under dir into the configured database.
func importMaps(dir string, mapsCfg config.MapsConfig) error {
	if mapsCfg.Source == mapdata.SourceFile || mapsCfg.Source == "" {
		return errors.New("maps import: maps.source must be sqlite or postgres")
	}

	src, closeFn, err := mapdata.OpenSource(mapsCfg, config.GetDBConfig())
	if err != nil {
		return err
	}
	defer closeFn()

	db, ok := src.(*mapdata.DBSource)
	if !ok {
		return fmt.Errorf("maps import: source %T is not a database", src)
	}

	files := mapdata.NewFileSource(dir)
	names, err := files.Names()
	if err != nil {
		return fmt.Errorf("maps import: %w", err)
	}
	if len(names) == 0 {
		fmt.Println("No map descriptions found in", dir)
		return nil
	}

	var failed []error
	for _, name := range names {
		md, err := files.Load(name)
		if err == nil {
			err = db.Save(md)
		}
		if err != nil {
			Logger.Error("Failed to import map", "map", name, "error", err)
			failed = append(failed, err)
			continue
		}
		Logger.Info("Imported map", "map", name, "splits", len(md.Splits))
	}

	fmt.Printf("Imported %d of %d maps\n", len(names)-len(failed), len(names))
	return errors.Join(failed...)
}

func listMaps(mapsCfg config.MapsConfig) error {
	src, closeFn, err := mapdata.OpenSource(mapsCfg, config.GetDBConfig())
	if err != nil {
		return err
	}
	defer closeFn()

	lister, ok := src.(nameLister)
	if !ok {
		return fmt.Errorf("maps list: source %T cannot list maps", src)
	}
	names, err := lister.Names()
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

func runSchema(args []string) error {
	fs := flag.NewFlagSet("schema", flag.ContinueOnError)
	var outDir string
	fs.StringVar(&outDir, "out", "", "directory to write the JSON schemas to")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if outDir == "" {
		return errors.New("-out is required")
	}

	paths, err := schema.WriteAll(outDir)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Fprintln(os.Stdout, p)
	}
	return nil
}
