// Command scan2pdf drives a document feeder end to end: pages are acquired
// from the scanner, cleaned up and classified, text-recognized, and rendered
// into a single searchable PDF at the requested output path.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wudi/scan2pdf/assemble"
	"github.com/wudi/scan2pdf/naming"
	"github.com/wudi/scan2pdf/observability"
	"github.com/wudi/scan2pdf/ocr/tesseract"
	"github.com/wudi/scan2pdf/pipeline"
	"github.com/wudi/scan2pdf/scan"
	"github.com/wudi/scan2pdf/scan/sanedev"
)

var version = "dev"

// fileConfig is the optional YAML defaults file. Flags given explicitly on
// the command line win over it.
type fileConfig struct {
	Device                 string   `yaml:"device"`
	Resolution             int      `yaml:"resolution"`
	Source                 string   `yaml:"source"`
	Mode                   string   `yaml:"mode"`
	Languages              []string `yaml:"languages"`
	Outfile                string   `yaml:"outfile"`
	AutoName               bool     `yaml:"auto_name"`
	ClassifyBeforeGeometry bool     `yaml:"classify_before_geometry"`
	PerPageBudgetSeconds   int      `yaml:"per_page_budget_seconds"`
}

func main() {
	os.Exit(run())
}

func run() int {
	var (
		resolution = flag.Int("r", 300, "scan resolution in dpi")
		outfile    = flag.String("o", "scan.pdf", "output path; the filename may carry %o %d %s %t %a tokens")
		autoName   = flag.Bool("auto", false, "resolve filename tokens from the document text")
		device     = flag.String("device", "", "scanner device name (default: first available)")
		languages  = flag.String("lang", "eng", "comma-separated OCR languages")
		configPath = flag.String("config", "", "YAML defaults file")
		debug      = flag.Bool("debug", false, "debug logging")
		showVer    = flag.Bool("v", false, "print version and exit")
	)
	flag.Parse()

	if *showVer {
		fmt.Println("scan2pdf", version)
		return 0
	}

	level := observability.LevelInfo
	if *debug {
		level = observability.LevelDebug
	}
	log := observability.NewWriterLogger(os.Stderr, level)

	cfg := fileConfig{
		Device:     *device,
		Resolution: *resolution,
		Source:     "ADF Duplex",
		Mode:       "Color",
		Languages:  strings.Split(*languages, ","),
		Outfile:    *outfile,
		AutoName:   *autoName,
	}
	if *configPath != "" {
		if err := loadConfig(*configPath, &cfg); err != nil {
			log.Error("config", observability.Error("err", err))
			return 1
		}
		// Explicit flags override file values.
		flag.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "r":
				cfg.Resolution = *resolution
			case "o":
				cfg.Outfile = *outfile
			case "auto":
				cfg.AutoName = *autoName
			case "device":
				cfg.Device = *device
			case "lang":
				cfg.Languages = strings.Split(*languages, ",")
			}
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	dest, err := scanToPDF(ctx, cfg, log)
	if err != nil {
		log.Error("scan failed", observability.Error("err", err))
		return 1
	}
	log.Info("done",
		observability.String("outfile", dest),
		observability.Duration("elapsed", time.Since(start)))
	return 0
}

// deviceOptions starts from the stock duplex option set and repoints source
// and mode when the config names them.
func deviceOptions(cfg fileConfig) []scan.Option {
	opts := scan.DefaultOptions(cfg.Resolution)
	for i, o := range opts {
		switch o.Name {
		case scan.OptSource:
			if cfg.Source != "" {
				opts[i] = scan.StringOption(o.Name, cfg.Source)
			}
		case scan.OptMode:
			if cfg.Mode != "" {
				opts[i] = scan.StringOption(o.Name, cfg.Mode)
			}
		}
	}
	return opts
}

func loadConfig(path string, cfg *fileConfig) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(raw, cfg)
}

func scanToPDF(ctx context.Context, cfg fileConfig, log observability.Logger) (string, error) {
	workDir, err := os.MkdirTemp(os.TempDir(), "scan2pdf-")
	if err != nil {
		return "", fmt.Errorf("create working directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	backend := sanedev.New()
	session, err := backend.Open(cfg.Device, deviceOptions(cfg))
	if err != nil {
		return "", fmt.Errorf("open scanner: %w", err)
	}
	defer session.Close()

	engine := tesseract.NewEngine()
	engine.DPI = cfg.Resolution
	res, err := pipeline.Run(ctx, session, engine, engine, pipeline.Config{
		Resolution:             cfg.Resolution,
		Languages:              cfg.Languages,
		ClassifyBeforeGeometry: cfg.ClassifyBeforeGeometry,
		Logger:                 log,
	})
	if err != nil {
		return "", err
	}

	asm := &assemble.Assembler{
		WorkDir:       workDir,
		Renderer:      engine,
		PerPageBudget: time.Duration(cfg.PerPageBudgetSeconds) * time.Second,
		Logger:        log,
	}
	artifact, err := asm.Assemble(ctx, res.Pages)
	if err != nil {
		return "", err
	}

	dest := cfg.Outfile
	if cfg.AutoName && res.Text != "" {
		resolver := naming.Resolver{Org: naming.HeuristicGuesser{}}
		dir, base := filepath.Split(dest)
		dest = filepath.Join(dir, resolver.Resolve(base, res.Text))
		log.Info("resolved output name", observability.String("outfile", dest))
	}
	if err := assemble.Deliver(artifact, dest); err != nil {
		return "", err
	}
	return dest, nil
}
