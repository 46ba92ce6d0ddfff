package cmd

import (
	"strings"

	"github.com/BRL-CAD/brlcad-sub112/asset/mesh"
	"github.com/BRL-CAD/brlcad-sub112/asset/scene"
	"github.com/urfave/cli"
)

// Compile mesh files into scene zips with a prebuilt kd-tree.
func CompileScene(ctx *cli.Context) error {
	setupLogging(ctx)

	cache, err := openCache(ctx)
	if err != nil {
		return err
	}
	if cache != nil {
		defer cache.Close()
	}

	for idx := 0; idx < ctx.NArg(); idx++ {
		sceneFile := ctx.Args().Get(idx)
		if !strings.HasSuffix(sceneFile, ".obj") {
			logger.Warningf("skipping unsupported file %s", sceneFile)
			continue
		}

		logger.Noticef("parsing and compiling scene: %s", sceneFile)
		model, err := mesh.ReadFile(sceneFile)
		if err != nil {
			return err
		}

		sc := scene.New(model)
		if err = sc.Compile(engineOptions(ctx), cache); err != nil {
			return err
		}

		// Display compiled scene info
		logger.Noticef("scene information:\n%s", sc.Stats())

		zipFile := strings.TrimSuffix(sceneFile, ".obj") + ".zip"
		if err = scene.Write(sc, zipFile); err != nil {
			return err
		}
	}

	return nil
}

// Display scene and kd-tree info.
func ShowSceneInfo(ctx *cli.Context) error {
	setupLogging(ctx)

	sc, e, err := loadEngine(ctx)
	if err != nil {
		return err
	}
	defer e.Free()

	logger.Noticef("scene information:\n%s", sc.Stats())
	logger.Noticef("kd-tree information:\n%s", e.Stats())
	return nil
}
