// Command gbemu runs the core either windowed (ebiten host) or headless,
// and exposes a trace subcommand for instruction-level debugging.
package main

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"strings"
	"time"

	"github.com/cespare/xxhash"
	"github.com/dmgcore/gbcore/internal/emu"
	"github.com/dmgcore/gbcore/internal/ui"
	"github.com/urfave/cli"
)

func main() {
	app := cli.NewApp()
	app.Name = "gbemu"
	app.Usage = "DMG Game Boy core runner"
	app.Commands = []cli.Command{
		runCommand(),
		headlessCommand(),
		traceCommand(),
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func commonFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{Name: "rom", Usage: "path to ROM (.gb)"},
		cli.StringFlag{Name: "log-level", Value: "", Usage: "debug|info|warn|error (empty disables logging)"},
	}
}

func runCommand() cli.Command {
	return cli.Command{
		Name:  "run",
		Usage: "open the ebiten window and play a ROM",
		Flags: append(commonFlags(),
			cli.IntFlag{Name: "scale", Value: 3, Usage: "window scale"},
			cli.StringFlag{Name: "title", Value: "gbemu", Usage: "window title"},
			cli.StringFlag{Name: "roms-dir", Value: "roms", Usage: "directory browsed by the in-app ROM picker"},
			cli.BoolFlag{Name: "trace", Usage: "log every fetched instruction"},
		),
		Action: func(c *cli.Context) error {
			m := emu.New(emu.Config{Trace: c.Bool("trace"), LogLevel: c.String("log-level")})
			if rom := c.String("rom"); rom != "" {
				if err := m.LoadROMFromFile(rom); err != nil {
					return fmt.Errorf("load rom: %w", err)
				}
			}
			uiCfg := ui.Config{Title: c.String("title"), Scale: c.Int("scale"), ROMsDir: c.String("roms-dir")}
			return ui.NewApp(uiCfg, m).Run()
		},
	}
}

func headlessCommand() cli.Command {
	return cli.Command{
		Name:  "headless",
		Usage: "step N frames with no window, optionally check a frame-buffer hash",
		Flags: append(commonFlags(),
			cli.IntFlag{Name: "frames", Value: 300, Usage: "frames to run"},
			cli.StringFlag{Name: "outpng", Usage: "write the final framebuffer to this PNG path"},
			cli.StringFlag{Name: "expect", Usage: "expected xxhash of the final RGBA framebuffer (hex)"},
		),
		Action: func(c *cli.Context) error {
			rom := c.String("rom")
			if rom == "" {
				return fmt.Errorf("headless requires -rom")
			}
			m := emu.New(emu.Config{LogLevel: c.String("log-level")})
			if err := m.LoadROMFromFile(rom); err != nil {
				return fmt.Errorf("load rom: %w", err)
			}

			frames := c.Int("frames")
			if frames <= 0 {
				frames = 1
			}
			start := time.Now()
			for i := 0; i < frames; i++ {
				m.StepFrame()
			}
			dur := time.Since(start)

			fb := m.Framebuffer()
			sum := xxhash.Sum64(fb)
			fmt.Printf("headless: frames=%d elapsed=%s fps=%.2f fb_xxhash=%016x\n",
				frames, dur.Truncate(time.Millisecond), float64(frames)/dur.Seconds(), sum)

			if out := c.String("outpng"); out != "" {
				if err := writeFramePNG(fb, 160, 144, out); err != nil {
					return fmt.Errorf("write png: %w", err)
				}
			}
			if want := c.String("expect"); want != "" {
				got := fmt.Sprintf("%016x", sum)
				if strings.ToLower(want) != got {
					return fmt.Errorf("framebuffer hash mismatch: got %s want %s", got, want)
				}
			}
			return nil
		},
	}
}

func traceCommand() cli.Command {
	return cli.Command{
		Name:  "trace",
		Usage: "run headless while printing every fetched instruction's PC",
		Flags: append(commonFlags(),
			cli.IntFlag{Name: "frames", Value: 60, Usage: "frames to run"},
		),
		Action: func(c *cli.Context) error {
			rom := c.String("rom")
			if rom == "" {
				return fmt.Errorf("trace requires -rom")
			}
			m := emu.New(emu.Config{Trace: true, LogLevel: "debug"})
			if err := m.LoadROMFromFile(rom); err != nil {
				return fmt.Errorf("load rom: %w", err)
			}
			if h := m.Header(); h != nil {
				fmt.Printf("# %s (%s) fingerprint=%016x\n", h.Title, h.CartTypeStr, xxhash.Sum64([]byte(h.Title)))
			}
			for i := 0; i < c.Int("frames"); i++ {
				m.StepFrame()
			}
			return nil
		},
	}
}

func writeFramePNG(pix []byte, w, h int, path string) error {
	img := &image.RGBA{
		Pix:    append([]byte(nil), pix...),
		Stride: 4 * w,
		Rect:   image.Rect(0, 0, w, h),
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}
