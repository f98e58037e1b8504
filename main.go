package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/briangreenhill/fetchweather/cache"
	"github.com/briangreenhill/fetchweather/internal/config"
	"github.com/briangreenhill/fetchweather/internal/setup"
	"github.com/briangreenhill/fetchweather/wttr"
)

const version = "v0.1.0"

func main() {
	if err := runCLI(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runCLI(args []string, stdout, stderr io.Writer) error {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(context.Background())
}

type cliOptions struct {
	format   string
	view     string
	units    string
	lang     string
	moon     bool
	moonDate string
	metadata bool
	mock     bool
	persist  bool
	output   string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var opts cliOptions

	cmd := &cobra.Command{
		Use:   "fetchweather [location]",
		Short: "Fetch the weather from wttr.in",
		Long: `Fetch the weather for a location from wttr.in.

Without a location the service guesses it from your IP address. When the
service cannot be reached, deterministic mock data is printed instead.

Environment:
  WTTR_BASE_URL   weather service address (default https://wttr.in)
  WTTR_TIMEOUT    request timeout (default 10s)
  WTTR_MOCK       always use mock data
  WTTR_CACHE_DIR  keep the response cache in this directory
  REDIS_ADDR      share the response cache through redis`,
		Args:          cobra.MaximumNArgs(1),
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			location := ""
			if len(args) == 1 {
				location = args[0]
			}
			return run(cmd.Context(), opts, location, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	f := cmd.Flags()
	f.StringVarP(&opts.format, "format", "f", string(wttr.FormatText), "output format: json, raw_json, text or png")
	f.StringVar(&opts.view, "view", "", "wttr view options, e.g. 0, 1, 2, n, q, T")
	f.StringVarP(&opts.units, "units", "u", "", "units: m (metric), u (USCS) or M (metric, wind in m/s)")
	f.StringVarP(&opts.lang, "lang", "l", "", "language code, e.g. fr")
	f.BoolVar(&opts.moon, "moon", false, "show the moon phase instead of the weather")
	f.StringVar(&opts.moonDate, "moon-date", "", "moon phase date as YYYY-MM-DD, implies --moon")
	f.BoolVar(&opts.metadata, "metadata", false, "print response metadata to stderr")
	f.BoolVar(&opts.mock, "mock", false, "use mock data without contacting the service")
	f.BoolVar(&opts.persist, "cache", false, "keep responses in the user cache directory between runs")
	f.StringVarP(&opts.output, "output", "o", "", "write the result to a file instead of stdout")

	return cmd
}

func run(ctx context.Context, opts cliOptions, location string, stdout, stderr io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if opts.persist && cfg.Wttr.CacheDir == "" {
		if cfg.Wttr.CacheDir, err = cache.DefaultFileCacheDir(); err != nil {
			return fmt.Errorf("locate cache directory: %w", err)
		}
	}
	client, closeCache, err := setup.Client(ctx, cfg, setup.Logger(cfg, stderr), nil)
	if err != nil {
		return err
	}
	defer func() { _ = closeCache() }()

	if opts.mock {
		client.SetMockMode(true)
	}

	reqOpts := []wttr.RequestOption{
		wttr.WithFormat(wttr.Format(opts.format)),
		wttr.WithViewOptions(opts.view),
		wttr.WithUnits(wttr.Units(opts.units)),
		wttr.WithLang(opts.lang),
		wttr.WithMetadata(),
	}
	if opts.moon || opts.moonDate != "" {
		reqOpts = append(reqOpts, wttr.WithMoon(opts.moonDate))
	}

	res, err := client.Get(ctx, location, reqOpts...)
	if err != nil {
		return err
	}

	body, err := encodeResult(res)
	if err != nil {
		return err
	}

	if opts.output != "" {
		if err := os.WriteFile(opts.output, body, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", opts.output, err)
		}
	} else if _, err := stdout.Write(body); err != nil {
		return err
	}

	if opts.metadata {
		meta, err := json.MarshalIndent(res.Metadata, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		fmt.Fprintln(stderr, string(meta))
	} else if res.Metadata.HasError() {
		fmt.Fprintf(stderr, "warning: showing mock data (%s: %s)\n", res.Metadata.ErrorType, res.Metadata.ErrorMessage)
	}
	return nil
}

// encodeResult renders text and png as is and JSON indented
func encodeResult(res *wttr.Result) ([]byte, error) {
	switch res.Format() {
	case wttr.FormatJSON, wttr.FormatRawJSON:
		b, err := json.MarshalIndent(res.Payload, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", res.Format(), err)
		}
		return append(b, '\n'), nil
	default:
		return wttr.MarshalPayload(res.Payload)
	}
}
