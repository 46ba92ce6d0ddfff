package cmd

import (
	"bytes"
	"fmt"

	"github.com/BRL-CAD/brlcad-sub112/asset/mesh"
	"github.com/BRL-CAD/brlcad-sub112/asset/scene"
	"github.com/BRL-CAD/brlcad-sub112/tie"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// Trace a single ray and list every hit along it.
func ShootRay(ctx *cli.Context) error {
	setupLogging(ctx)

	origin, err := parseVec3(ctx.String("origin"))
	if err != nil {
		return err
	}
	dir, err := parseVec3(ctx.String("dir"))
	if err != nil {
		return err
	}
	if dir.Len() == 0 {
		return fmt.Errorf("ray direction must not be zero")
	}

	sc, e, err := loadEngine(ctx)
	if err != nil {
		return err
	}
	defer e.Free()

	ray := &tie.Ray{Origin: origin, Dir: dir.Normalize()}
	var hits []tie.Hit
	e.Work(ray, func(_ *tie.Ray, hit *tie.Hit, _ *tie.Triangle) any {
		hits = append(hits, *hit)
		return nil
	})

	logger.Noticef("ray %v -> %v: %d hits, %d split nodes visited\n%s", origin, ray.Dir, len(hits), ray.Depth, hitTable(sc, e, hits))
	return nil
}

func hitTable(sc *scene.Scene, e *tie.Engine, hits []tie.Hit) string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"#", "Distance", "Triangle", "Mesh", "Face", "Alpha", "Beta", "Position", "Normal"})
	for index, hit := range hits {
		meshName, face := "-", "-"
		if payload, ok := e.Triangle(hit.ID).Payload.(mesh.Payload); ok && payload.Mesh < len(sc.Meshes) {
			meshName = sc.Meshes[payload.Mesh].Name
			face = fmt.Sprintf("%d", payload.Face)
		}
		table.Append([]string{
			fmt.Sprintf("%d", index),
			fmt.Sprintf("%.6f", hit.Dist),
			fmt.Sprintf("%d", hit.ID),
			meshName,
			face,
			fmt.Sprintf("%.4f", hit.Alpha),
			fmt.Sprintf("%.4f", hit.Beta),
			hit.Pos.String(),
			hit.Normal.String(),
		})
	}
	table.Render()
	return buf.String()
}
