package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Nikhil-Joson/HomeCanvas/internal/generate"
	"github.com/Nikhil-Joson/HomeCanvas/internal/geometry"
	"github.com/Nikhil-Joson/HomeCanvas/internal/history"
	"github.com/Nikhil-Joson/HomeCanvas/internal/imaging"
)

func newComposeCmd() *cobra.Command {
	var (
		productPath, scenePath   string
		productLabel, sceneLabel string
		x, y                     float64
		outPath, debugPath       string
	)

	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Composite a product into a scene at a percentage position",
		Example: `  # Put the lamp a third of the way across, near the floor
  homecanvas compose --product lamp.png --scene room.jpg --x 33 --y 80 -o out.png`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if x < 0 || x > 100 || y < 0 || y > 100 {
				return fmt.Errorf("position %.1f,%.1f outside 0-100", x, y)
			}
			gen, err := newGenerator(cmd)
			if err != nil {
				return err
			}

			product, err := readImage(productPath)
			if err != nil {
				return err
			}
			scene, err := readImage(scenePath)
			if err != nil {
				return err
			}

			res, err := gen.GenerateComposite(cmd.Context(), generate.CompositeRequest{
				Product:      product,
				ProductLabel: labelOr(productLabel, productPath),
				Scene:        scene,
				SceneLabel:   labelOr(sceneLabel, scenePath),
				Position:     geometry.NormalizedPosition{XPercent: x, YPercent: y},
			})
			if err != nil {
				return fmt.Errorf("%s: %w", generate.UserMessage(err), err)
			}

			if err := os.WriteFile(outPath, res.Image.Data, 0o644); err != nil {
				return fmt.Errorf("write composite: %w", err)
			}
			if debugPath != "" && !res.DebugImage.IsZero() {
				if err := os.WriteFile(debugPath, res.DebugImage.Data, 0o644); err != nil {
					return fmt.Errorf("write debug image: %w", err)
				}
			}
			slog.Info("composite written", "path", outPath, "width", res.Image.Width, "height", res.Image.Height)
			if res.Prompt != "" {
				fmt.Fprintln(cmd.OutOrStdout(), res.Prompt)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&productPath, "product", "", "Product image file")
	cmd.Flags().StringVar(&scenePath, "scene", "", "Scene image file")
	cmd.Flags().StringVar(&productLabel, "product-label", "", "Product description (defaults to the file name)")
	cmd.Flags().StringVar(&sceneLabel, "scene-label", "", "Scene description (defaults to the file name)")
	cmd.Flags().Float64Var(&x, "x", 50, "Horizontal position as a percentage of the scene width")
	cmd.Flags().Float64Var(&y, "y", 50, "Vertical position as a percentage of the scene height")
	cmd.Flags().StringVarP(&outPath, "output", "o", "composite.png", "Output file")
	cmd.Flags().StringVar(&debugPath, "debug", "", "Also write the marked scene sent to the model")
	cmd.MarkFlagRequired("product")
	cmd.MarkFlagRequired("scene")

	return cmd
}

func newEditCmd() *cobra.Command {
	var imagePath, prompt, outPath string

	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Apply a text instruction to an image",
		Example: `  homecanvas edit --image composite.png --prompt "make the lamp brass" -o edited.png`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(prompt) == "" {
				return fmt.Errorf("prompt is empty")
			}
			gen, err := newGenerator(cmd)
			if err != nil {
				return err
			}
			base, err := readImage(imagePath)
			if err != nil {
				return err
			}

			res, err := gen.EditWithInstruction(cmd.Context(), prompt, base)
			if err != nil {
				return fmt.Errorf("%s: %w", generate.UserMessage(err), err)
			}
			if res.Empty() {
				return fmt.Errorf("the model returned nothing")
			}
			if res.Text != "" {
				fmt.Fprintln(cmd.OutOrStdout(), res.Text)
			}
			if res.Image == nil {
				return nil
			}
			if err := os.WriteFile(outPath, res.Image.Data, 0o644); err != nil {
				return fmt.Errorf("write edit: %w", err)
			}
			slog.Info("edit written", "path", outPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&imagePath, "image", "", "Image to edit")
	cmd.Flags().StringVar(&prompt, "prompt", "", "Edit instruction")
	cmd.Flags().StringVarP(&outPath, "output", "o", "edited.png", "Output file")
	cmd.MarkFlagRequired("image")
	cmd.MarkFlagRequired("prompt")

	return cmd
}

func newMapCmd() *cobra.Command {
	var (
		pointer   geometry.Point
		container geometry.Rect
		natural   geometry.Size
	)

	cmd := &cobra.Command{
		Use:   "map",
		Short: "Print the image position for a pointer over a letterboxed container",
		Example: `  # 800x400 image shown in a 400x300 box; the centre maps to 50,50
  homecanvas map --px 200 --py 150 --width 400 --height 300 --image-width 800 --image-height 400`,
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := geometry.MapToImage(pointer, container, natural)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "x=%.2f%% y=%.2f%%\n", pos.XPercent, pos.YPercent)
			return nil
		},
	}

	cmd.Flags().Float64Var(&pointer.X, "px", 0, "Pointer x in client coordinates")
	cmd.Flags().Float64Var(&pointer.Y, "py", 0, "Pointer y in client coordinates")
	cmd.Flags().Float64Var(&container.X, "left", 0, "Container left edge")
	cmd.Flags().Float64Var(&container.Y, "top", 0, "Container top edge")
	cmd.Flags().Float64Var(&container.Width, "width", 0, "Container width")
	cmd.Flags().Float64Var(&container.Height, "height", 0, "Container height")
	cmd.Flags().Float64Var(&natural.Width, "image-width", 0, "Natural image width")
	cmd.Flags().Float64Var(&natural.Height, "image-height", 0, "Natural image height")

	return cmd
}

func newGenerator(cmd *cobra.Command) (*generate.Gemini, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	gen, err := generate.NewGemini(cmd.Context(), generate.GeminiConfig{
		APIKey:     cfg.GeminiAPIKey,
		ImageModel: cfg.GeminiImageModel,
		TextModel:  cfg.GeminiTextModel,
	})
	if err != nil {
		return nil, fmt.Errorf("create generator: %w", err)
	}
	return gen, nil
}

func readImage(path string) (history.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return history.Image{}, fmt.Errorf("read %s: %w", path, err)
	}
	return imaging.Inspect(filepath.Base(path), data)
}

func labelOr(label, path string) string {
	if label != "" {
		return label
	}
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}
