package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/raine/ai-camera-cloud/client"
)

func main() {
	baseURL := flag.String("url", client.DefaultBaseURL, "service base URL")
	mode := flag.String("mode", "analyze", "analyze, llava or price")
	category := flag.String("category", "", "object category detected on the device")
	confidence := flag.Float64("confidence", 0.8, "on-device detection confidence")
	prompt := flag.String("prompt", "", "analysis prompt")
	timeout := flag.Duration("timeout", 2*time.Minute, "request timeout")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <image-path>\n\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	c := client.NewClient(client.ClientOpts{BaseURL: *baseURL})

	var (
		result any
		err    error
	)

	switch *mode {
	case "price":
		if *category == "" {
			fail("-category is required")
		}
		result, err = c.PriceCheck(ctx, client.PriceRequest{
			Category:    *category,
			Description: *prompt,
		})
	case "analyze", "llava":
		if flag.NArg() < 1 {
			flag.Usage()
			os.Exit(1)
		}
		imagePath := flag.Arg(0)
		imageData, readErr := os.ReadFile(imagePath)
		if readErr != nil {
			fail("failed to read image: %v", readErr)
		}

		if *mode == "llava" {
			if *prompt == "" {
				fail("-prompt is required in llava mode")
			}
			result, err = c.LlavaAnalyze(ctx, client.LlavaRequest{
				Image:    imageData,
				Filename: filepath.Base(imagePath),
				Prompt:   *prompt,
			})
		} else {
			if *category == "" {
				fail("-category is required")
			}
			result, err = c.Analyze(ctx, client.AnalyzeRequest{
				Image:      imageData,
				Filename:   filepath.Base(imagePath),
				Category:   *category,
				Confidence: *confidence,
				Prompt:     *prompt,
			})
		}
	default:
		fail("unknown mode: %s (use analyze, llava or price)", *mode)
	}

	if err != nil {
		fail("request failed: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(result); err != nil {
		fail("failed to encode result: %v", err)
	}
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
