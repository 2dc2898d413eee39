package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"pagescope/internal/browser"
	"pagescope/internal/config"
	"pagescope/internal/extractor"
	"pagescope/internal/fetcher"
	"pagescope/internal/formatter"
	"pagescope/internal/logger"
	"pagescope/internal/output"
	"pagescope/internal/render"
	"pagescope/internal/scraper"
)

var version = "dev"

var (
	headers      []string
	outputFormat string
	outputFile   string
	timeout      time.Duration
	showUI       bool
	proxyURL     string
	threshold    int
	scrolls      int
	maxPages     int
	rawHTMLMax   int
	logLevel     string
	cfgFile      string
)

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"timeout":      "fetcher.timeout",
	"proxy":        "browser.proxy_url",
	"threshold":    "scraper.text_threshold",
	"scrolls":      "render.scroll_times",
	"max-pages":    "render.max_pages",
	"raw-html-max": "scraper.raw_html_max_chars",
	"log-level":    "logger.level",
}

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "pagescope [URL]",
		Short:   "Extract structured sections from any web page",
		Version: version,
		Long: `pagescope fetches a page, splits it into classified sections (hero, nav,
section, footer) with their headings, text, links, images, lists and tables,
and falls back to a headless browser that scrolls, clicks "load more" and
follows pagination when the static HTML carries too little text.`,
		Example: `  # Print the JSON result
  pagescope https://example.com

  # Markdown, inferred from the output file extension
  pagescope -o page.md https://example.com

  # Export every table on a paginated listing
  pagescope --max-pages 5 -f csv https://example.com/list

  # Render through a proxy with a visible browser
  pagescope -p http://127.0.0.1:7890 --showui https://example.com`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Help()
				os.Exit(0)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE:         run,
		SilenceUsage: true,
	}

	flags := rootCmd.Flags()
	flags.StringVarP(&outputFormat, "format", "f", formatter.JSON, "Output format ("+strings.Join(formatter.Formats, ", ")+")")
	flags.StringVarP(&outputFile, "output", "o", "", "Output file path (format inferred from extension if -f not specified)")
	flags.StringSliceVarP(&headers, "header", "H", []string{}, "Extra static fetch headers, \"Key: Value\" (can be used multiple times)")
	flags.DurationVarP(&timeout, "timeout", "t", 15*time.Second, "Static fetch timeout")
	flags.StringVarP(&proxyURL, "proxy", "p", "", "Browser proxy URL (e.g. http://127.0.0.1:7890), defaults to PAGESCOPE_PROXY env var")
	flags.BoolVar(&showUI, "showui", false, "Show browser UI (disable headless mode)")
	flags.IntVar(&threshold, "threshold", scraper.DefaultTextThreshold, "Static text length below which the page is rendered in a browser")
	flags.IntVar(&scrolls, "scrolls", render.DefaultScrollTimes, "Number of scrolls performed while rendering")
	flags.IntVar(&maxPages, "max-pages", render.DefaultMaxPages, "Maximum number of pages visited while rendering")
	flags.IntVar(&rawHTMLMax, "raw-html-max", extractor.DefaultRawHTMLMaxChars, "Maximum characters of raw HTML kept per section")
	flags.StringVar(&logLevel, "log-level", logger.DefaultLevel, "Log level (debug, info, warn, error)")
	flags.StringVar(&cfgFile, "config", "", "Config file (default ./pagescope.yaml)")

	return rootCmd
}

func run(cmd *cobra.Command, args []string) error {
	target := strings.TrimSpace(args[0])

	format := resolveFormat(outputFormat, outputFile, cmd.Flags().Changed("format"))
	if !formatter.Valid(format) {
		return fmt.Errorf("invalid output format: %s", format)
	}

	v := viper.New()
	if err := config.Init(v, cfgFile); err != nil {
		return err
	}
	if err := bindFlags(v, cmd); err != nil {
		return err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	s := scraper.New(
		cfg.Scraper,
		fetcher.New(cfg.Fetcher),
		render.NewNavigator(browser.NewEngine(cfg.Browser), cfg.Render, log),
		log,
	)
	result := s.Scrape(ctx, target)

	content, err := formatter.Format(result, format)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	return output.New(outputFile).Write(content)
}

// bindFlags lets explicitly set flags override file and environment values.
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}
	if cmd.Flags().Changed("showui") {
		v.Set("browser.headless", !showUI)
	}
	if h := parseHeaders(headers); len(h) > 0 {
		v.Set("fetcher.headers", h)
	}
	return nil
}

// resolveFormat infers the format from the output file extension unless
// one was given explicitly.
func resolveFormat(format, file string, explicit bool) string {
	if file != "" && !explicit {
		if inferred := formatter.FromExtension(file); inferred != "" {
			return inferred
		}
	}
	return format
}

// parseHeaders parses request header parameters
func parseHeaders(headerSlice []string) map[string]string {
	headersMap := make(map[string]string)
	for _, h := range headerSlice {
		parts := strings.SplitN(h, ":", 2)
		if len(parts) == 2 {
			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])
			if key != "" {
				headersMap[key] = value
			}
		}
	}
	return headersMap
}
