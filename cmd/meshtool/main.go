// meshtool is a CLI utility for inspecting model files the previewer loads.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Faultbox/meshview/internal/engine/camera"
	"github.com/Faultbox/meshview/internal/engine/scene"
	"github.com/Faultbox/meshview/internal/importer"
	"github.com/Faultbox/meshview/internal/logger"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "info":
		cmdInfo(args)
	case "tree":
		cmdTree(args)
	case "frame":
		cmdFrame(args)
	case "textures", "tex":
		cmdTextures(args)
	case "formats":
		cmdFormats()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`meshtool - model file inspector

Usage:
  meshtool <command> [options]

Commands:
  info <model>                       Show format, counts and bounds
  tree [-depth N] <model>            Print the node hierarchy
  frame [-fov F] [-aspect A] <model> Show the camera framing for a model
  textures <model>                   List materials and their textures
  formats                            List supported formats

Examples:
  meshtool info robot.glb
  meshtool tree -depth 3 character.fbx
  meshtool frame -aspect 1.6 scene.gltf`)
}

// load imports path with the previewer's importer. Textures are resolved
// next to the model. Set MESHTOOL_DEBUG to see importer logs.
func load(path string) (*scene.Node, importer.Format, error) {
	if os.Getenv("MESHTOOL_DEBUG") != "" {
		if err := logger.Init("debug", ""); err != nil {
			return nil, importer.Format{}, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, importer.Format{}, err
	}

	reg := importer.NewDefault(importer.WithSearchPaths(filepath.Dir(path)))
	format, err := reg.Detect(path, data)
	if err != nil {
		return nil, importer.Format{}, err
	}
	root, err := reg.Import(context.Background(), path, bytes.NewReader(data))
	if err != nil {
		return nil, format, err
	}
	return root, format, nil
}

func mustLoad(cmd string, fs *flag.FlagSet) (*scene.Node, importer.Format, string) {
	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: meshtool %s <model>\n", cmd)
		os.Exit(1)
	}
	path := fs.Arg(0)
	root, format, err := load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return root, format, path
}

func cmdInfo(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	fs.Parse(args)

	start := time.Now()
	root, format, path := mustLoad("info", fs)
	elapsed := time.Since(start)

	st, _ := os.Stat(path)
	sum := scene.Summarize(root)
	box := root.Bounds()

	fmt.Printf("Model:     %s\n", path)
	fmt.Printf("Format:    %s\n", format.Type.MIME.Value)
	if st != nil {
		fmt.Printf("Size:      %.2f MB\n", float64(st.Size())/(1024*1024))
	}
	fmt.Printf("Import:    %s\n", elapsed.Round(time.Millisecond))
	fmt.Println()
	fmt.Printf("Groups:    %d\n", sum.Groups)
	fmt.Printf("Joints:    %d\n", sum.Joints)
	fmt.Printf("Meshes:    %d\n", sum.Meshes)
	fmt.Printf("Vertices:  %d\n", sum.Vertices)
	fmt.Printf("Triangles: %d\n", sum.Triangles)
	fmt.Printf("Materials: %d\n", sum.Materials)
	fmt.Printf("Textures:  %d\n", sum.Textures)
	fmt.Println()
	if box.IsEmpty() {
		fmt.Println("Bounds:    (empty)")
		return
	}
	size := box.Size()
	fmt.Printf("Bounds:    min %s  max %s\n", vec(box.Min.X, box.Min.Y, box.Min.Z), vec(box.Max.X, box.Max.Y, box.Max.Z))
	fmt.Printf("Extent:    %s\n", vec(size.X, size.Y, size.Z))
}

func cmdTree(args []string) {
	fs := flag.NewFlagSet("tree", flag.ExitOnError)
	depth := fs.Int("depth", 0, "Limit output to N levels (0 = all)")
	fs.Parse(args)

	root, _, _ := mustLoad("tree", fs)
	printTree(os.Stdout, root, *depth)
}

func cmdFrame(args []string) {
	fs := flag.NewFlagSet("frame", flag.ExitOnError)
	fov := fs.Float64("fov", 60, "Vertical field of view in degrees")
	aspect := fs.Float64("aspect", 16.0/9.0, "Viewport width / height")
	fs.Parse(args)
	if err := checkFrameFlags(*fov, *aspect); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	root, _, _ := mustLoad("frame", fs)
	f := camera.Frame(root.Bounds(), float32(*fov), float32(*aspect))

	if f.Degenerate {
		fmt.Println("Model has no usable extent; the default camera is used.")
	}
	fmt.Printf("Target:       %s\n", vec(f.Target.X, f.Target.Y, f.Target.Z))
	fmt.Printf("Position:     %s\n", vec(f.Position.X, f.Position.Y, f.Position.Z))
	fmt.Printf("Distance:     %.4g\n", f.Distance)
	fmt.Printf("Near/Far:     %.4g / %.4g\n", f.Near, f.Far)
	if f.MaxDistance > 0 {
		fmt.Printf("Max distance: %.4g\n", f.MaxDistance)
	}
}

func cmdTextures(args []string) {
	fs := flag.NewFlagSet("textures", flag.ExitOnError)
	fs.Parse(args)

	root, _, _ := mustLoad("textures", fs)

	seen := make(map[*scene.Material]bool)
	count := 0
	root.Traverse(func(n *scene.Node) {
		if n.Mesh == nil {
			return
		}
		for _, m := range n.Mesh.Materials {
			if m == nil || seen[m] {
				continue
			}
			seen[m] = true
			count++
			fmt.Printf("%s  color %s  opacity %.2f\n", materialName(m), vec(m.Color[0], m.Color[1], m.Color[2]), m.Color[3])
			for _, slot := range []struct {
				name string
				tex  *scene.Texture
			}{{"map", m.Map}, {"normal", m.NormalMap}, {"emissive", m.EmissiveMap}} {
				if slot.tex == nil {
					continue
				}
				w, h := 0, 0
				if slot.tex.Image != nil {
					b := slot.tex.Image.Bounds()
					w, h = b.Dx(), b.Dy()
				}
				fmt.Printf("  %-8s %s (%dx%d)\n", slot.name, slot.tex.Name, w, h)
			}
		}
	})
	fmt.Printf("\nTotal: %d materials\n", count)
}

func cmdFormats() {
	reg := importer.NewDefault()
	for _, f := range reg.Formats() {
		fmt.Printf("  %-28s %s\n", f.Type.MIME.Value, strings.Join(f.Extensions, ", "))
	}
}

func materialName(m *scene.Material) string {
	if m.Name == "" {
		return "(unnamed)"
	}
	return m.Name
}

func vec(x, y, z float32) string {
	return fmt.Sprintf("(%.4g, %.4g, %.4g)", x, y, z)
}
