package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/Nikhil-Joson/HomeCanvas/internal/history"
	"github.com/Nikhil-Joson/HomeCanvas/internal/imaging"
)

var ErrNoAPIKey = errors.New("gemini API key not configured")

// GeminiConfig selects the models used for each step.
type GeminiConfig struct {
	APIKey     string
	ImageModel string
	TextModel  string
}

// Gemini implements Service on the Gemini API.
type Gemini struct {
	client     *genai.Client
	imageModel string
	textModel  string
	prompts    *Prompts
}

func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	prompts, err := DefaultPrompts()
	if err != nil {
		return nil, err
	}
	return &Gemini{
		client:     client,
		imageModel: cfg.ImageModel,
		textModel:  cfg.TextModel,
		prompts:    prompts,
	}, nil
}

// GenerateComposite pads both images to squares, asks the text model where
// the marked placement is, has the image model compose the scene and crops
// the result back to the scene's aspect ratio.
func (g *Gemini) GenerateComposite(ctx context.Context, req CompositeRequest) (*CompositeResult, error) {
	in, err := prepareComposite(req)
	if err != nil {
		return nil, err
	}

	location, err := g.describeLocation(ctx, in.debug, req.SceneLabel)
	if err != nil {
		// The composite prompt still carries the numeric position.
		slog.Warn("location description failed", "error", err)
	}

	prompt, err := g.prompts.Composite(PromptData{
		ProductLabel: req.ProductLabel,
		SceneLabel:   req.SceneLabel,
		Location:     location,
		Position:     req.Position,
	})
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.imageModel,
		[]*genai.Content{{Role: "user", Parts: []*genai.Part{
			inlinePart(in.product),
			inlinePart(in.scene),
			{Text: prompt},
		}}},
		&genai.GenerateContentConfig{
			ResponseModalities: []string{"TEXT", "IMAGE"},
			SystemInstruction:  systemContent(g.prompts.CompositeSystem),
		})
	if err != nil {
		return nil, fmt.Errorf("generate composite: %w", err)
	}

	out := extract(resp)
	slog.Info("composite generated",
		"model", g.imageModel,
		"duration", time.Since(start),
		"has_image", out.image != nil,
		"text_length", len(out.text))
	if out.image == nil {
		return nil, ErrEmptyResponse
	}

	img, err := finishComposite(out.image.Data, req.Scene)
	if err != nil {
		return nil, err
	}
	return &CompositeResult{Image: img, DebugImage: in.debug, Prompt: prompt}, nil
}

// EditWithInstruction sends base and prompt to the image model and returns
// whatever text and image came back.
func (g *Gemini) EditWithInstruction(ctx context.Context, prompt string, base history.Image) (*EditResult, error) {
	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.imageModel,
		[]*genai.Content{{Role: "user", Parts: []*genai.Part{
			inlinePart(base),
			{Text: prompt},
		}}},
		&genai.GenerateContentConfig{
			ResponseModalities: []string{"TEXT", "IMAGE"},
			SystemInstruction:  systemContent(g.prompts.EditSystem),
		})
	if err != nil {
		return nil, fmt.Errorf("edit with instruction: %w", err)
	}

	out := extract(resp)
	slog.Info("edit generated",
		"model", g.imageModel,
		"duration", time.Since(start),
		"has_image", out.image != nil,
		"text_length", len(out.text))

	res := &EditResult{Text: out.text}
	if out.image != nil {
		img, err := imaging.Inspect("edit", out.image.Data)
		if err != nil {
			return nil, err
		}
		res.Image = &img
	}
	return res, nil
}

func (g *Gemini) describeLocation(ctx context.Context, debug history.Image, sceneLabel string) (string, error) {
	prompt, err := g.prompts.Locate(PromptData{SceneLabel: sceneLabel})
	if err != nil {
		return "", err
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.textModel,
		[]*genai.Content{{Role: "user", Parts: []*genai.Part{
			inlinePart(debug),
			{Text: prompt},
		}}},
		&genai.GenerateContentConfig{
			SystemInstruction: systemContent(g.prompts.LocateSystem),
		})
	if err != nil {
		return "", fmt.Errorf("describe location: %w", err)
	}
	location := strings.TrimSpace(extract(resp).text)
	slog.Debug("placement described", "location", location)
	return location, nil
}

type compositeInputs struct {
	product history.Image
	scene   history.Image
	debug   history.Image
}

// prepareComposite letterboxes both images into squares and draws the
// placement marker on a copy of the scene.
func prepareComposite(req CompositeRequest) (*compositeInputs, error) {
	product, _, err := imaging.Decode("product", req.Product.Data)
	if err != nil {
		return nil, err
	}
	scene, _, err := imaging.Decode("scene", req.Scene.Data)
	if err != nil {
		return nil, err
	}

	productSq, _ := imaging.PadSquare(product, imaging.SquareSize)
	sceneSq, fit := imaging.PadSquare(scene, imaging.SquareSize)
	marked := imaging.Clone(sceneSq)
	imaging.DrawMarker(marked, fit.PointFor(req.Position), imaging.MarkerRadius(imaging.SquareSize))

	var in compositeInputs
	if in.product, err = imaging.EncodePNG(productSq); err != nil {
		return nil, err
	}
	if in.scene, err = imaging.EncodePNG(sceneSq); err != nil {
		return nil, err
	}
	if in.debug, err = imaging.EncodePNG(marked); err != nil {
		return nil, err
	}
	return &in, nil
}

// finishComposite decodes the model output and crops away the padding that
// prepareComposite added around the scene.
func finishComposite(data []byte, scene history.Image) (history.Image, error) {
	img, _, err := imaging.Decode("composite", data)
	if err != nil {
		return history.Image{}, err
	}
	aspect := 0.0
	if scene.Width > 0 && scene.Height > 0 {
		aspect = float64(scene.Width) / float64(scene.Height)
	}
	return imaging.EncodePNG(imaging.CropToAspect(img, aspect))
}

type extracted struct {
	text  string
	image *history.Image
}

// extract collects the text parts and the first inline image of the first
// candidate.
func extract(resp *genai.GenerateContentResponse) extracted {
	var out extracted
	if resp == nil || len(resp.Candidates) == 0 {
		return out
	}
	c := resp.Candidates[0]
	if c == nil || c.Content == nil {
		return out
	}

	var texts []string
	for _, p := range c.Content.Parts {
		if p == nil {
			continue
		}
		if p.Text != "" && !p.Thought {
			texts = append(texts, p.Text)
		}
		if p.InlineData != nil && len(p.InlineData.Data) > 0 && out.image == nil {
			out.image = &history.Image{Data: p.InlineData.Data, MIMEType: p.InlineData.MIMEType}
		}
	}
	out.text = strings.TrimSpace(strings.Join(texts, "\n"))
	return out
}

func inlinePart(img history.Image) *genai.Part {
	return &genai.Part{InlineData: &genai.Blob{Data: img.Data, MIMEType: img.MIMEType}}
}

func systemContent(text string) *genai.Content {
	if text == "" {
		return nil
	}
	return &genai.Content{Parts: []*genai.Part{{Text: text}}}
}
