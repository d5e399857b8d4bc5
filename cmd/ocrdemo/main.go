// Command ocrdemo sends one local file and one remote URL through the OCR client and
// stores the raw provider responses.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"paper-reader/internal/app"
	"paper-reader/internal/ocr"
)

type recognizer interface {
	Recognize(ctx context.Context, source string, opts ocr.Options, isURL bool) ([]byte, error)
}

type job struct {
	source string
	isURL  bool
	output string
}

func main() {
	file := flag.String("file", "README.pdf", "local PDF to send as binary content")
	url := flag.String("url", "https://example.com/example.pdf", "remote PDF URL to send")
	flag.Parse()

	client, log, err := app.BuildOCR()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	jobs := []job{
		{source: *file, output: "result_1.json"},
		{source: *url, isURL: true, output: "result_2.json"},
	}
	if err := run(context.Background(), client, jobs, os.Stdout); err != nil {
		log.Error("ocr demo failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, client recognizer, jobs []job, out io.Writer) error {
	for _, j := range jobs {
		start := time.Now()
		body, err := client.Recognize(ctx, j.source, ocr.DefaultOptions(), j.isURL)
		if err != nil {
			return fmt.Errorf("recognize %s: %w", j.source, err)
		}
		fmt.Fprintln(out, "request time: ", time.Since(start).Seconds())

		if !gjson.ValidBytes(body) {
			return fmt.Errorf("recognize %s: %w", j.source, errors.New("response is not valid JSON"))
		}
		formatted := pretty.PrettyOptions(body, &pretty.Options{Width: 80, Indent: "    "})
		if err := os.WriteFile(j.output, formatted, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", j.output, err)
		}
	}
	return nil
}
