package main

import (
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/Faultbox/dawn-toolbox/internal/config"
	"github.com/Faultbox/dawn-toolbox/pkg/dwn"
	"github.com/Faultbox/dawn-toolbox/pkg/formats"
	"github.com/Faultbox/dawn-toolbox/pkg/grf"
)

func loadScene(path string) (*dwn.File, *dwn.Scene, error) {
	f, err := dwn.ParseFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	s, err := f.Scene()
	if err != nil {
		return nil, nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return f, s, nil
}

func cmdInfo(args []string, stdout io.Writer) error {
	if len(args) != 1 {
		return usageError("dwntool info <file.dwn|.rsm|.rsw|.gnd>")
	}

	switch strings.ToLower(filepath.Ext(args[0])) {
	case ".rsm":
		return rsmInfo(args[0], stdout)
	case ".rsw":
		return rswInfo(args[0], stdout)
	case ".gnd":
		return gndInfo(args[0], stdout)
	}

	f, s, err := loadScene(args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "File:   %s\n", args[0])
	fmt.Fprintf(stdout, "Header: %s\n", f.Header)
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "Chunks:")
	for _, c := range f.Chunks {
		fmt.Fprintf(stdout, "  %s  offset %-8d %d bytes\n", c.Tag, c.Offset, len(c.Payload))
	}
	fmt.Fprintln(stdout)
	fmt.Fprintf(stdout, "Accessors:      %d\n", len(s.Accessors))
	fmt.Fprintf(stdout, "Buffers:        %d\n", len(s.Buffers))
	fmt.Fprintf(stdout, "Meshes:         %d\n", len(s.Meshes))
	fmt.Fprintf(stdout, "Objects:        %d\n", len(s.Objects))
	fmt.Fprintf(stdout, "Nodes:          %d\n", len(s.TransformNodes))
	fmt.Fprintf(stdout, "Vertex layouts: %d\n", len(s.VertexLayouts))

	roots := s.Roots()
	if len(roots) == 0 {
		return nil
	}
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "Hierarchy:")
	for _, r := range roots {
		printNode(stdout, s, r, 1)
	}
	return nil
}

func printNode(w io.Writer, s *dwn.Scene, index, depth int) {
	node := s.TransformNodes[index]
	mesh := s.Meshes[s.Objects[node.Object].Mesh]
	triangles := s.Accessors[mesh.IndexAccessor].Count() / 3
	fmt.Fprintf(w, "%snode %d: object %d, %d triangles\n", strings.Repeat("  ", depth), index, node.Object, triangles)
	for _, c := range node.Children {
		printNode(w, s, c, depth+1)
	}
}

func rsmInfo(path string, w io.Writer) error {
	rsm, err := formats.ParseRSMFile(path)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "File:      %s\n", path)
	fmt.Fprintf(w, "Version:   %s\n", rsm.Version)
	fmt.Fprintf(w, "Shading:   %s\n", rsm.Shading)
	fmt.Fprintf(w, "Alpha:     %.2f\n", rsm.Alpha)
	fmt.Fprintf(w, "Textures:  %d\n", len(rsm.Textures))
	fmt.Fprintf(w, "Nodes:     %d\n", len(rsm.Nodes))
	fmt.Fprintf(w, "Vertices:  %d\n", rsm.TotalVertexCount())
	fmt.Fprintf(w, "Faces:     %d\n", rsm.TotalFaceCount())
	fmt.Fprintf(w, "Animated:  %v\n", rsm.HasAnimation())
	if root := rsm.NodeByName(rsm.RootNode); root != nil {
		fmt.Fprintf(w, "Root node: %s (%d vertices)\n", root.Name, len(root.Vertices))
	}
	return nil
}

func rswInfo(path string, w io.Writer) error {
	rsw, err := formats.ParseRSWFile(path)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "File:    %s\n", path)
	fmt.Fprintf(w, "Version: %s\n", rsw.Version)
	fmt.Fprintf(w, "Ground:  %s\n", rsw.GndFile)
	counts := rsw.CountByType()
	for _, t := range []formats.RSWObjectType{formats.RSWObjectModel, formats.RSWObjectLight, formats.RSWObjectSound, formats.RSWObjectEffect} {
		fmt.Fprintf(w, "%-8s %d\n", t.String()+":", counts[t])
	}
	return nil
}

func gndInfo(path string, w io.Writer) error {
	gnd, err := formats.ParseGNDFile(path)
	if err != nil {
		return err
	}

	lo, hi := gnd.AltitudeRange()
	fmt.Fprintf(w, "File:      %s\n", path)
	fmt.Fprintf(w, "Version:   %s\n", gnd.Version)
	fmt.Fprintf(w, "Size:      %dx%d tiles of %g\n", gnd.Width, gnd.Height, gnd.Zoom)
	fmt.Fprintf(w, "Textures:  %d\n", len(gnd.Textures))
	fmt.Fprintf(w, "Surfaces:  %d\n", len(gnd.Surfaces))
	fmt.Fprintf(w, "Lightmaps: %d\n", gnd.LightmapCount)
	fmt.Fprintf(w, "Altitude:  %g to %g\n", lo, hi)
	return nil
}

func cmdDump(args []string, stdout io.Writer) error {
	if len(args) != 1 {
		return usageError("dwntool dump <file.dwn>")
	}

	f, s, err := loadScene(args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "# %s\n", f.Header)

	fmt.Fprintf(stdout, "\n[%s] %d\n", dwn.TagAccessors, len(s.Accessors))
	for i, a := range s.Accessors {
		fmt.Fprintf(stdout, "%4d  buffer=%d bytes=%d offset=%d stride=%d %dx%s\n",
			i, a.Buffer, a.ByteCount, a.ByteIndex, a.ByteStride, a.ComponentCount, a.ComponentType)
	}

	fmt.Fprintf(stdout, "\n[%s] %d\n", dwn.TagMeshes, len(s.Meshes))
	for i, m := range s.Meshes {
		fmt.Fprintf(stdout, "%4d  indices=%d layout=%d\n", i, m.IndexAccessor, m.VertexLayout)
	}

	fmt.Fprintf(stdout, "\n[%s] %d\n", dwn.TagObjects, len(s.Objects))
	for i, o := range s.Objects {
		fmt.Fprintf(stdout, "%4d  %s mesh=%d\n", i, o.Type, o.Mesh)
	}

	fmt.Fprintf(stdout, "\n[%s] %d\n", dwn.TagTransformNodes, len(s.TransformNodes))
	for i, n := range s.TransformNodes {
		t := n.Transform
		fmt.Fprintf(stdout, "%4d  object=%d children=%v\n", i, n.Object, n.Children)
		fmt.Fprintf(stdout, "      orientation=(%g, %g, %g, %g) position=(%g, %g, %g) scale=(%g, %g, %g)\n",
			t.Orientation.W, t.Orientation.X, t.Orientation.Y, t.Orientation.Z,
			t.Position.X, t.Position.Y, t.Position.Z,
			t.Scale.X, t.Scale.Y, t.Scale.Z)
	}

	fmt.Fprintf(stdout, "\n[%s] %d\n", dwn.TagVertexLayouts, len(s.VertexLayouts))
	for i, l := range s.VertexLayouts {
		parts := make([]string, len(l.Attributes))
		for j, a := range l.Attributes {
			parts[j] = fmt.Sprintf("%s@%d", a.Type, a.Accessor)
		}
		fmt.Fprintf(stdout, "%4d  %s\n", i, strings.Join(parts, " "))
	}

	fmt.Fprintf(stdout, "\n[%s] %d\n", dwn.TagBuffers, len(s.Buffers))
	for i, b := range s.Buffers {
		fmt.Fprintf(stdout, "%4d  %d bytes\n", i, len(b))
	}
	return nil
}

func cmdModels(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("models", flag.ContinueOnError)
	var archives []string
	fs.Func("grf", "GRF archive to list (repeatable)", func(v string) error {
		archives = append(archives, v)
		return nil
	})
	limit := fs.Int("n", 0, "Limit output to N models (0 = all)")
	if err := fs.Parse(args); err != nil {
		return usageError("dwntool models [-grf archive]... [pattern]")
	}
	if len(archives) == 0 {
		cfg, err := config.Load("", nil)
		if err != nil {
			return err
		}
		archives = cfg.Source.GRFPaths
	}
	if len(archives) == 0 {
		return usageError("dwntool models [-grf archive]... [pattern]")
	}

	pattern := "data/model/*.rsm"
	if fs.NArg() > 0 {
		pattern = fs.Arg(0)
	}

	set, err := grf.OpenSet(archives)
	if err != nil {
		return err
	}
	defer set.Close()

	count := 0
	for _, a := range set {
		matches, err := a.Glob(pattern)
		if err != nil {
			return fmt.Errorf("bad pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			if *limit > 0 && count >= *limit {
				return nil
			}
			fmt.Fprintf(stdout, "%s\t%s\n", a.Path(), m)
			count++
		}
	}
	return nil
}
