package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/lanternml/lantern/internal/backend"
	"github.com/lanternml/lantern/internal/backend/llamacpp"
	"github.com/lanternml/lantern/internal/inference"
	"github.com/lanternml/lantern/internal/logger"
	"github.com/lanternml/lantern/internal/logits"
)

func runCmd() *cli.Command {
	var (
		modelPath string
		prompt    string
		system    string

		maxTokens     int64
		temp          float64
		topK          int64
		topP          float64
		minP          float64
		repeatPenalty float64
		repeatLastN   int64
		seed          int64

		contextLen int64
		batchSize  int64
		gpuLayers  int64
		threads    int64
		libPath    string

		stop       string
		noTemplate bool
		echoPrompt bool
		streamMode string
		logLevel   string
		configFile string
	)

	defaults := logits.Defaults()

	return &cli.Command{
		Name:  "run",
		Usage: "Generate text from a local model",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "model",
				Aliases:     []string{"m"},
				Usage:       "path to a GGUF model file",
				Destination: &modelPath,
			},
			&cli.StringFlag{
				Name:        "prompt",
				Aliases:     []string{"p"},
				Usage:       "prompt text (omit for interactive mode)",
				Destination: &prompt,
			},
			&cli.StringFlag{
				Name:        "system",
				Aliases:     []string{"sys"},
				Usage:       "optional system prompt",
				Destination: &system,
			},
			&cli.Int64Flag{
				Name:        "max-tokens",
				Aliases:     []string{"n", "num-tokens"},
				Usage:       "max tokens to generate (-1 = fill the context window)",
				Value:       -1,
				Destination: &maxTokens,
			},
			&cli.Float64Flag{
				Name:        "temp",
				Aliases:     []string{"temperature", "t"},
				Usage:       "sampling temperature (0 = greedy)",
				Value:       float64(defaults.Temperature),
				Destination: &temp,
			},
			&cli.Int64Flag{
				Name:        "top-k",
				Aliases:     []string{"top_k", "topk"},
				Usage:       "top-k sampling parameter (0 = disabled)",
				Value:       int64(defaults.TopK),
				Destination: &topK,
			},
			&cli.Float64Flag{
				Name:        "top-p",
				Aliases:     []string{"top_p", "topp"},
				Usage:       "top-p (nucleus) sampling parameter",
				Value:       float64(defaults.TopP),
				Destination: &topP,
			},
			&cli.Float64Flag{
				Name:        "min-p",
				Aliases:     []string{"min_p", "minp"},
				Usage:       "min-p sampling parameter (0 = disabled)",
				Value:       float64(defaults.MinP),
				Destination: &minP,
			},
			&cli.Float64Flag{
				Name:        "repeat-penalty",
				Aliases:     []string{"repeat_penalty"},
				Usage:       "repetition penalty (1.0 = disabled)",
				Value:       float64(defaults.RepeatPenalty),
				Destination: &repeatPenalty,
			},
			&cli.Int64Flag{
				Name:        "repeat-last-n",
				Aliases:     []string{"repeat_last_n"},
				Usage:       "last n tokens to penalize",
				Value:       int64(defaults.RepeatLastN),
				Destination: &repeatLastN,
			},
			&cli.Int64Flag{
				Name:        "seed",
				Usage:       "sampling RNG seed (-1 = random)",
				Value:       -1,
				Destination: &seed,
			},
			&cli.Int64Flag{
				Name:        "context",
				Aliases:     []string{"ctx", "c"},
				Usage:       "context length (0 = model's trained length)",
				Destination: &contextLen,
			},
			&cli.Int64Flag{
				Name:        "batch",
				Usage:       "prefill batch size",
				Destination: &batchSize,
			},
			&cli.Int64Flag{
				Name:        "gpu-layers",
				Aliases:     []string{"ngl"},
				Usage:       "layers to offload to the GPU (-1 = all)",
				Destination: &gpuLayers,
			},
			&cli.Int64Flag{
				Name:        "threads",
				Usage:       "CPU threads for decode (0 = auto)",
				Destination: &threads,
			},
			&cli.StringFlag{
				Name:        "lib",
				Usage:       "path to the llama.cpp shared libraries",
				Destination: &libPath,
			},
			&cli.StringFlag{
				Name:        "stop",
				Usage:       "extra stop sequences, comma separated",
				Destination: &stop,
			},
			&cli.BoolFlag{
				Name:        "no-template",
				Usage:       "disable chat template rendering",
				Destination: &noTemplate,
			},
			&cli.BoolFlag{
				Name:        "echo-prompt",
				Usage:       "print the rendered prompt before generation",
				Destination: &echoPrompt,
			},
			&cli.StringFlag{
				Name:        "stream-mode",
				Usage:       "output mode: instant, typewriter, quiet, ndjson",
				Value:       string(StreamInstant),
				Destination: &streamMode,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level: debug, info, warn, error",
				Value:       "warn",
				Destination: &logLevel,
			},
			&cli.StringFlag{
				Name:        "config",
				Usage:       "path to a config file",
				Destination: &configFile,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg := LoadConfig()
			if configFile != "" {
				cfg = LoadConfigFrom(configFile)
			}
			applyRunConfig(c, cfg, &modelPath, &libPath, &temp, &topK,
				&topP, &minP, &repeatPenalty, &repeatLastN, &seed,
				&maxTokens, &contextLen, &streamMode, &logLevel)

			if modelPath == "" {
				return cli.Exit("error: --model is required", 1)
			}
			mode, err := parseStreamMode(streamMode)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			log := logger.Pretty(os.Stderr, logger.ParseLevel(logLevel))
			engine := inference.NewEngine(llamacpp.Open, log)

			loadStart := time.Now()
			info, err := engine.Load(modelPath, backend.Config{
				ContextLength: int(contextLen),
				BatchSize:     int(batchSize),
				GPULayers:     int(gpuLayers),
				Threads:       int(threads),
				LibraryPath:   libPath,
			})
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			defer engine.Close()

			if mode != StreamNDJSON {
				fmt.Fprintf(os.Stderr, "Model loaded in %s (%s, ctx %d)\n",
					time.Since(loadStart).Round(time.Millisecond), modelDisplayName(info), info.ContextLength)
			}

			samp := sampling{
				seed:          seed,
				temp:          temp,
				topK:          topK,
				topP:          topP,
				minP:          minP,
				repeatPenalty: repeatPenalty,
				repeatLastN:   repeatLastN,
			}

			msgs := make([]inference.Message, 0, 8)
			interactive := prompt == ""
			if interactive {
				fmt.Fprintln(os.Stderr, "Interactive mode. Type /exit to quit, Ctrl+C to stop a response.")
			} else {
				msgs = append(msgs, inference.Message{Role: "user", Content: prompt})
			}

			for {
				if interactive && (len(msgs) == 0 || msgs[len(msgs)-1].Role != "user") {
					input, err := readInteractiveLine("> ")
					if err != nil {
						break
					}
					trimmed := strings.TrimSpace(input)
					if trimmed == "/exit" {
						break
					}
					if trimmed == "" {
						continue
					}
					msgs = append(msgs, inference.Message{Role: "user", Content: input})
				}

				req := buildRequest(system, msgs, maxTokens, stop, samp, noTemplate, echoPrompt && !interactive)
				res, err := generate(engine, req, mode)
				if err != nil {
					fmt.Fprintln(os.Stderr, "error: generation:", err)
					if !interactive {
						return cli.Exit("", 1)
					}
					continue
				}

				if mode != StreamNDJSON {
					fmt.Fprintf(os.Stderr, "Stats: %.2f TPS (%d tokens in %s, %s)\n",
						res.TPS, res.TokensGenerated, res.Duration.Round(time.Millisecond), res.FinishReason)
				}

				msgs = append(msgs, inference.Message{Role: "assistant", Content: res.Text})
				if !interactive {
					break
				}
			}
			return nil
		},
	}
}

type sampling struct {
	seed          int64
	temp          float64
	topK          int64
	topP          float64
	minP          float64
	repeatPenalty float64
	repeatLastN   int64
}

func buildRequest(system string, msgs []inference.Message, maxTokens int64,
	stop string, s sampling, noTemplate, echoPrompt bool,
) inference.Request {
	temp := float32(s.temp)
	topK := int(s.topK)
	topP := float32(s.topP)
	minP := float32(s.minP)
	repeatPenalty := float32(s.repeatPenalty)
	repeatLastN := int(s.repeatLastN)
	maxToks := int(maxTokens)

	opts := inference.Options{
		Messages:      msgs,
		MaxTokens:     &maxToks,
		Stop:          splitStopSequences(stop),
		Seed:          &s.seed,
		Temperature:   &temp,
		TopK:          &topK,
		TopP:          &topP,
		MinP:          &minP,
		RepeatPenalty: &repeatPenalty,
		RepeatLastN:   &repeatLastN,
		NoTemplate:    &noTemplate,
		EchoPrompt:    &echoPrompt,
	}
	if system != "" {
		opts.System = &system
	}
	return inference.ResolveRequest(opts, logits.Defaults())
}

// generate runs one request to completion, streaming through mode and
// cancelling on Ctrl+C.
func generate(engine *inference.Engine, req inference.Request, mode StreamMode) (inference.Result, error) {
	writer := NewStreamWriter(mode, os.Stdout)

	g, err := engine.Start(req, inference.Callbacks{
		OnToken: writer.Write,
	})
	if err != nil {
		return inference.Result{}, err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		select {
		case <-sigCh:
			g.Cancel()
		case <-g.Done():
		}
	}()

	res, genErr := g.Wait()
	signal.Stop(sigCh)

	writer.Finish(res)
	if genErr != nil {
		return res, genErr
	}
	return res, nil
}

func splitStopSequences(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func modelDisplayName(info inference.ModelInfo) string {
	if info.Name != "" {
		return info.Name
	}
	return info.Path
}
