package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/ironsheep/label-line-mcp/internal/ocr"
	"github.com/ironsheep/label-line-mcp/internal/pipeline"
)

type extractOptions struct {
	imagePath      string
	detectionsPath string
	req            pipeline.Request
}

func parseExtractFlags(args []string) (extractOptions, error) {
	var opts extractOptions

	fs := flag.NewFlagSet("extract", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: label-line extract [flags] <image>\n")
		fs.PrintDefaults()
	}
	pattern := fs.String("pattern", "", "Literal substring the target line must contain (default from config)")
	yThreshold := fs.Float64("y-threshold", -1, "Vertical tolerance in pixels (default from config)")
	anchor := fs.String("anchor", "", "Grouping anchor: first or running-mean (default from config)")
	detections := fs.String("detections", "", "Read recorded OCR detections from this JSON file instead of running OCR")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	opts.detectionsPath = *detections
	switch {
	case fs.NArg() == 1:
		opts.imagePath = fs.Arg(0)
	case fs.NArg() == 0 && opts.detectionsPath != "":
	default:
		fs.Usage()
		return opts, errors.New("expected exactly one image path")
	}

	opts.req = pipeline.Request{Pattern: *pattern, Anchor: *anchor}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "y-threshold" {
			v := *yThreshold
			opts.req.YThreshold = &v
		}
	})
	return opts, nil
}

// runExtract prints each reconstructed line followed by the JSON result.
func runExtract(ctx context.Context, args []string, svc *pipeline.Service, out io.Writer) error {
	opts, err := parseExtractFlags(args)
	if err != nil {
		return err
	}

	var res *pipeline.Result
	if opts.detectionsPath != "" {
		data, err := os.ReadFile(opts.detectionsPath)
		if err != nil {
			return fmt.Errorf("failed to read detections: %w", err)
		}
		batch, err := ocr.BatchFromJSON(data)
		if err != nil {
			return err
		}
		res, err = svc.ExtractBatch(ctx, batch, opts.req)
		if err != nil {
			return err
		}
	} else {
		data, err := os.ReadFile(opts.imagePath)
		if err != nil {
			return fmt.Errorf("failed to read image: %w", err)
		}
		res, err = svc.ExtractImage(ctx, data, opts.req)
		if err != nil {
			return err
		}
	}

	return writeExtractResult(out, res)
}

func writeExtractResult(out io.Writer, res *pipeline.Result) error {
	for i, line := range res.Lines {
		marker := " "
		if res.Match.Found && i == res.Match.Index {
			marker = "*"
		}
		if _, err := fmt.Fprintf(out, "%s %2d: %s\n", marker, i, line); err != nil {
			return err
		}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
