// Command michelangelo loads smooth CSG scenes, queries their distance
// field, meshes them and renders previews.
//
//	michelangelo eval scene.csg 0 0 0
//	michelangelo mesh scene.zy -o scene.json
//	michelangelo render scene.csg -o preview.png
package main

import (
	"encoding/json"
	"fmt"
	"image/png"
	"io"
	"os"
	"strconv"

	"github.com/chazu/michelangelo/pkg/csg"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	app := new(*App)

	root := &cobra.Command{
		Use:          "michelangelo",
		Short:        "Evaluate, mesh and preview smooth CSG scenes",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := DefaultConfig()
			if configPath != "" {
				var err error
				if cfg, err = LoadConfig(configPath); err != nil {
					return err
				}
			}
			*app = NewApp(cfg)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "YAML settings file")

	root.AddCommand(
		newEvalCmd(app),
		newMeshCmd(app),
		newRenderCmd(app),
	)
	return root
}

func newEvalCmd(app **App) *cobra.Command {
	return &cobra.Command{
		Use:   "eval <scene> <x> <y> <z>",
		Short: "Print the signed distance at a point",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			var p [3]float32
			for i, s := range args[1:] {
				f, err := strconv.ParseFloat(s, 32)
				if err != nil {
					return fmt.Errorf("coordinate %q: %w", s, err)
				}
				p[i] = float32(f)
			}
			a := *app
			if err := a.Open(args[0]); err != nil {
				return err
			}
			d, err := a.Distance(csg.Vec3{X: p[0], Y: p[1], Z: p[2]})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), strconv.FormatFloat(float64(d), 'g', -1, 32))
			return nil
		},
	}
}

func newMeshCmd(app **App) *cobra.Command {
	var out string
	var perLeaf bool
	cmd := &cobra.Command{
		Use:   "mesh <scene>",
		Short: "Tessellate a scene and write the meshes as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := *app
			if cmd.Flags().Changed("per-leaf") {
				a.cfg.Mesh.PerLeaf = perLeaf
			}
			if err := a.Open(args[0]); err != nil {
				return err
			}
			meshes, err := a.Meshes()
			if err != nil {
				return err
			}
			for _, m := range meshes {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %d triangles\n", m.Name, len(m.Indices)/3)
			}
			return writeOutput(out, cmd.OutOrStdout(), func(w io.Writer) error {
				return json.NewEncoder(w).Encode(meshes)
			})
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&perLeaf, "per-leaf", false, "mesh every primitive separately")
	return cmd
}

func newRenderCmd(app **App) *cobra.Command {
	var out string
	var width, height int
	cmd := &cobra.Command{
		Use:   "render <scene>",
		Short: "Sphere trace a preview image and write it as PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := *app
			if width > 0 {
				a.cfg.Render.Width = width
			}
			if height > 0 {
				a.cfg.Render.Height = height
			}
			if err := a.Open(args[0]); err != nil {
				return err
			}
			img, err := a.Preview(cmd.Context())
			if err != nil {
				return err
			}
			return writeOutput(out, cmd.OutOrStdout(), func(w io.Writer) error {
				return png.Encode(w, img)
			})
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output PNG file (default stdout)")
	cmd.Flags().IntVar(&width, "width", 0, "image width, overrides the config")
	cmd.Flags().IntVar(&height, "height", 0, "image height, overrides the config")
	return cmd
}

// writeOutput runs write against path, or against stdout when path is empty.
func writeOutput(path string, stdout io.Writer, write func(io.Writer) error) (err error) {
	if path == "" {
		return write(stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return write(f)
}
