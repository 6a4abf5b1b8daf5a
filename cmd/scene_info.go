package cmd

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/LuniumLuk/Tira/scene"
	"github.com/LuniumLuk/Tira/tracer/opencl/device"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// SceneInfo loads a scene file and prints a tabular summary of its
// materials, primitives, lights, accelerator shape and the opencl devices
// available to render it, without rendering a frame. It exists so an
// operator can sanity-check a scene (material count, light setup, BVH
// depth, device memory headroom) before committing to a potentially
// long-running render.
func SceneInfo(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() != 1 {
		return errors.New("missing scene file argument")
	}

	sc, err := loadScene(ctx.Args().First())
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	writeMaterialTable(&buf, sc)
	writePrimitiveTable(&buf, sc)
	writeLightTable(&buf, sc)
	writeAccelTable(&buf, sc)
	if err := writeDeviceTable(&buf); err != nil {
		logger.Warningf("scene-info: could not enumerate opencl devices: %v", err)
	}

	logger.Notice(buf.String())
	return nil
}

func writeMaterialTable(buf *bytes.Buffer, sc *scene.Scene) {
	buf.WriteString(fmt.Sprintf("\nMaterials (%d):\n", len(sc.Materials)))
	table := tablewriter.NewWriter(buf)
	table.SetHeader([]string{"#", "Type", "Emissive", "IsDelta"})
	for i, m := range sc.Materials {
		table.Append([]string{
			fmt.Sprintf("%d", i),
			m.Type.String(),
			fmt.Sprintf("%t", m.Emissive),
			fmt.Sprintf("%t", m.IsDelta),
		})
	}
	table.Render()
}

func writePrimitiveTable(buf *bytes.Buffer, sc *scene.Scene) {
	bvh, ok := sc.Accel.(*scene.BVH)
	if !ok {
		return
	}

	var triCount, sphereCount int
	for _, o := range bvh.Objects {
		switch o.(type) {
		case *scene.Triangle:
			triCount++
		case *scene.Sphere:
			sphereCount++
		}
	}

	buf.WriteString(fmt.Sprintf("\nPrimitives (%d):\n", len(bvh.Objects)))
	table := tablewriter.NewWriter(buf)
	table.SetHeader([]string{"Triangles", "Spheres"})
	table.Append([]string{fmt.Sprintf("%d", triCount), fmt.Sprintf("%d", sphereCount)})
	table.Render()
}

func writeLightTable(buf *bytes.Buffer, sc *scene.Scene) {
	buf.WriteString(fmt.Sprintf("\nLights (%d area, sun=%t, envmap=%t):\n", len(sc.Lights), sc.SunEnabled, sc.Env != nil))
	table := tablewriter.NewWriter(buf)
	table.SetHeader([]string{"Total area", "Directional area light"})
	table.Append([]string{
		fmt.Sprintf("%.4f", sc.LightsArea),
		fmt.Sprintf("%t", sc.DirectionalAreaLight),
	})
	table.Render()
}

func writeAccelTable(buf *bytes.Buffer, sc *scene.Scene) {
	bvh, ok := sc.Accel.(*scene.BVH)
	if !ok {
		return
	}

	leaves, maxHeight := 0, 0
	for _, n := range bvh.Nodes {
		if n.PrimCount > 0 {
			leaves++
		}
		if n.Height > maxHeight {
			maxHeight = n.Height
		}
	}

	buf.WriteString("\nAccelerator:\n")
	table := tablewriter.NewWriter(buf)
	table.SetHeader([]string{"Nodes", "Leaves", "Max height", "Max leaf size", "Split", "Traverse"})
	table.Append([]string{
		fmt.Sprintf("%d", len(bvh.Nodes)),
		fmt.Sprintf("%d", leaves),
		fmt.Sprintf("%d", maxHeight),
		fmt.Sprintf("%d", bvh.MaxObjs),
		splitMethodName(bvh.SplitMethod),
		traverseModeName(bvh.Mode),
	})
	table.Render()
}

func writeDeviceTable(buf *bytes.Buffer) error {
	platforms, err := device.GetPlatformInfo()
	if err != nil {
		return err
	}

	buf.WriteString(fmt.Sprintf("\nOpenCL platforms (%d):\n", len(platforms)))
	table := tablewriter.NewWriter(buf)
	table.SetHeader([]string{"Platform", "Device", "Type", "GFlops", "Global mem (MB)", "Allocated (MB)"})
	for _, pl := range platforms {
		for _, d := range pl.Devices {
			table.Append([]string{
				pl.Name,
				d.Name,
				d.Type.String(),
				fmt.Sprintf("%d", d.Speed),
				fmt.Sprintf("%d", d.MemoryBudget()/(1<<20)),
				fmt.Sprintf("%d", d.AllocatedBytes()/(1<<20)),
			})
		}
	}
	table.Render()
	return nil
}

func splitMethodName(m scene.SplitMethod) string {
	if m == scene.SplitSAH {
		return "sah"
	}
	return "midpoint"
}

func traverseModeName(m scene.TraverseMode) string {
	switch m {
	case scene.TraverseStack:
		return "stack"
	case scene.TraverseThreaded:
		return "threaded"
	default:
		return "recursive"
	}
}
