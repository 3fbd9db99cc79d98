package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	json "github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/lanternml/lantern/internal/backend"
	"github.com/lanternml/lantern/internal/backend/llamacpp"
	"github.com/lanternml/lantern/internal/inference"
	"github.com/lanternml/lantern/internal/logger"
)

func showCmd() *cli.Command {
	var (
		modelPath    string
		libPath      string
		asJSON       bool
		showMetadata bool
		logLevel     string
	)

	return &cli.Command{
		Name:  "show",
		Usage: "Print model information",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "model",
				Aliases:     []string{"m"},
				Usage:       "path to a GGUF model file",
				Destination: &modelPath,
			},
			&cli.StringFlag{
				Name:        "lib",
				Usage:       "path to the llama.cpp shared libraries",
				Destination: &libPath,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "emit the model info as JSON",
				Destination: &asJSON,
			},
			&cli.BoolFlag{
				Name:        "metadata",
				Usage:       "include all GGUF metadata keys",
				Destination: &showMetadata,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level: debug, info, warn, error",
				Value:       "error",
				Destination: &logLevel,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg := LoadConfig()
			if cfg.Model != "" && !c.IsSet("model") {
				modelPath = cfg.Model
			}
			if cfg.LibraryPath != "" && !c.IsSet("lib") {
				libPath = cfg.LibraryPath
			}
			if modelPath == "" {
				return cli.Exit("error: --model is required", 1)
			}

			log := logger.Pretty(os.Stderr, logger.ParseLevel(logLevel))
			engine := inference.NewEngine(llamacpp.Open, log)

			info, err := engine.Load(modelPath, backend.Config{LibraryPath: libPath})
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			defer engine.Close()

			if !showMetadata {
				info.Metadata = nil
			}
			if asJSON {
				b, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				fmt.Println(string(b))
				return nil
			}

			printModelInfo(info, showMetadata)
			return nil
		},
	}
}

func printModelInfo(info inference.ModelInfo, withMetadata bool) {
	fmt.Printf("Model: %s\n", modelDisplayName(info))
	fmt.Printf("Path:  %s\n", info.Path)
	if info.Architecture != "" {
		fmt.Printf("Architecture:    %s\n", info.Architecture)
	}
	fmt.Printf("Context length:  %d (trained %d)\n", info.ContextLength, info.TrainedContextLength)
	if info.HasChatTemplate {
		fmt.Println("Chat template:   embedded")
	} else {
		fmt.Println("Chat template:   none (plain prompt format)")
	}

	d := info.SamplerDefaults
	fmt.Println("Sampler defaults:")
	fmt.Printf("  temperature:    %.2f\n", d.Temperature)
	fmt.Printf("  top_k:          %d\n", d.TopK)
	fmt.Printf("  top_p:          %.2f\n", d.TopP)
	fmt.Printf("  min_p:          %.2f\n", d.MinP)
	fmt.Printf("  repeat_penalty: %.2f\n", d.RepeatPenalty)
	fmt.Printf("  repeat_last_n:  %d\n", d.RepeatLastN)

	if withMetadata && len(info.Metadata) > 0 {
		fmt.Println("Metadata:")
		keys := make([]string, 0, len(info.Metadata))
		for k := range info.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			v := info.Metadata[k]
			if len(v) > 120 {
				v = v[:120] + "..."
			}
			fmt.Printf("  %s = %s\n", k, v)
		}
	}
}
