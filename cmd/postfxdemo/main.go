// Command postfxdemo renders one frame of an effect chain with the
// headless backend and writes it as PNG. With -dump it prints the merged
// WGSL program instead.
package main

import (
	"context"
	"flag"
	"fmt"
	"image/png"
	"log"
	"log/slog"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/postfx"
	"github.com/gogpu/postfx/backend/headless"
	"github.com/gogpu/postfx/config"
	"github.com/gogpu/postfx/effects"
	"github.com/gogpu/postfx/passes"
)

func main() {
	var (
		width    = flag.Int("width", 800, "image width")
		height   = flag.Int("height", 600, "image height")
		output   = flag.String("output", "postfx.png", "output file")
		cfgPath  = flag.String("config", "", "TOML configuration file")
		dump     = flag.Bool("dump", false, "print the merged WGSL program and exit")
		noise    = flag.Float64("noise", 0.2, "noise opacity, 0 disables noise")
		pixelate = flag.Float64("pixelate", 0, "pixelation granularity, 0 disables pixelation")
	)
	flag.Parse()

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		if cfg, err = config.Load(*cfgPath); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	level, err := cfg.Log.SlogLevel()
	if err != nil {
		log.Fatalf("Invalid log level: %v", err)
	}
	postfx.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	chain := []postfx.Effect{
		effects.NewBrightnessContrast(0.05, 0.1),
		effects.NewChromaticAberration(mgl32.Vec2{0.002, 0.001}, true, 0.15),
		effects.NewVignette(0.5, 0.6),
	}
	if *pixelate > 0 {
		chain = append([]postfx.Effect{effects.NewPixelation(float32(*pixelate))}, chain...)
	}
	if *noise > 0 {
		chain = append(chain, effects.NewNoise(float32(*noise), true))
	}

	b := headless.New()
	pl := postfx.NewRenderPipeline(b, postfx.WithConfig(cfg))
	defer pl.Dispose()

	background := passes.NewClearPass(gputypes.Color{R: 0.1, G: 0.2, B: 0.4, A: 1})
	fx, err := postfx.NewEffectPass(chain...)
	if err != nil {
		log.Fatalf("Failed to create effect pass: %v", err)
	}
	fx.Input().SetDefaultBuffer(background.Output().DefaultBuffer())

	if err := pl.SetSize(*width, *height); err != nil {
		log.Fatalf("Failed to size pipeline: %v", err)
	}
	if err := pl.Add(background, fx); err != nil {
		log.Fatalf("Failed to build pipeline: %v", err)
	}
	if err := pl.Compile(context.Background()); err != nil {
		log.Fatalf("Failed to compile: %v", err)
	}

	if *dump {
		mat, err := fx.Materials().Material()
		if err != nil {
			log.Fatalf("Failed to build material: %v", err)
		}
		fmt.Print(mat.Shader.Source())
		return
	}

	if err := pl.Render(0); err != nil {
		log.Fatalf("Failed to render: %v", err)
	}
	if err := savePNG(*output, b); err != nil {
		log.Fatalf("Failed to save: %v", err)
	}
	log.Printf("Frame saved to %s (%dx%d, %d draws)\n", *output, *width, *height, len(b.Draws()))
}

func savePNG(path string, b *headless.Backend) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	img := b.Screen().ColorAttachments()[0].(*headless.Texture).Image()
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
