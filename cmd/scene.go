package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/BRL-CAD/brlcad-sub112/asset/mesh"
	"github.com/BRL-CAD/brlcad-sub112/asset/scene"
	"github.com/BRL-CAD/brlcad-sub112/store"
	"github.com/BRL-CAD/brlcad-sub112/tie"
	"github.com/BRL-CAD/brlcad-sub112/types"
	"github.com/urfave/cli"
)

// Load a scene from a mesh file or a compiled scene zip.
func loadScene(sceneFile string) (*scene.Scene, error) {
	switch {
	case strings.HasSuffix(sceneFile, ".zip"):
		return scene.Read(sceneFile)
	case strings.HasSuffix(sceneFile, ".obj"):
		model, err := mesh.ReadFile(sceneFile)
		if err != nil {
			return nil, err
		}
		return scene.New(model), nil
	}
	return nil, fmt.Errorf("unsupported scene file %s; expected a .obj or .zip file", sceneFile)
}

// Open the kd-tree cache if a cache dir was specified. Returns a nil store
// otherwise.
func openCache(ctx *cli.Context) (*store.Store, error) {
	dir := ctx.String("cache-dir")
	if dir == "" {
		return nil, nil
	}
	return store.Open(dir)
}

func engineOptions(ctx *cli.Context) tie.Options {
	opts := tie.DefaultOptions()
	if leafTris := ctx.Int("leaf-triangles"); leafTris > 0 {
		opts.LeafTriangles = leafTris
	}
	return opts
}

// Load the scene named by the single command argument and create an engine for it.
func loadEngine(ctx *cli.Context) (*scene.Scene, *tie.Engine, error) {
	if ctx.NArg() != 1 {
		return nil, nil, errors.New("missing scene file argument")
	}

	sc, err := loadScene(ctx.Args().First())
	if err != nil {
		return nil, nil, err
	}

	cache, err := openCache(ctx)
	if err != nil {
		return nil, nil, err
	}
	if cache != nil {
		defer cache.Close()
	}

	e, err := sc.Engine(engineOptions(ctx), cache)
	if err != nil {
		return nil, nil, err
	}
	return sc, e, nil
}

// Parse a vector in "x,y,z" format.
func parseVec3(value string) (types.Vec3, error) {
	var v types.Vec3
	tokens := strings.Split(value, ",")
	if len(tokens) != 3 {
		return v, fmt.Errorf("invalid vector %q; expected x,y,z", value)
	}
	for index, token := range tokens {
		f, err := strconv.ParseFloat(strings.TrimSpace(token), 64)
		if err != nil {
			return v, fmt.Errorf("invalid vector %q: %w", value, err)
		}
		v[index] = f
	}
	return v, nil
}
