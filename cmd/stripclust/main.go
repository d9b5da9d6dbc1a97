// Command stripclust clusters silicon-strip digis read from a file.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/LynnColeArt/stripclust"
	"github.com/LynnColeArt/stripclust/report"
)

// Global flags
var (
	configPath   string
	inputPath    string
	backend      string
	partitions   int
	maxStrips    int
	chargeMode   string
	verbose      bool
	logLevel     string
	verify       bool
	histogramDir string
)

var rootCmd = &cobra.Command{
	Use:   "stripclust",
	Short: "Strip detector clustering",
	Long: `Reads zero-suppressed strip digis, finds seeds, grows clusters around
them and applies the cluster significance cut. Runs on the host or on the
stream device runtime; both produce identical clusters.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger(logLevel)
		cfg, err := loadConfig(cmd, log)
		if err != nil {
			return err
		}
		return run(cfg, log)
	},
}

var generateOpts = stripclust.DefaultGenerateOptions()
var (
	outputPath string
	compress   bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write a synthetic digi file",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger(logLevel)
		store := stripclust.GenerateStrips(generateOpts)
		if err := stripclust.WriteDigiFile(outputPath, store, compress); err != nil {
			return fmt.Errorf("write %s: %w", outputPath, err)
		}
		log.WithFields(logrus.Fields{
			"file":       outputPath,
			"strips":     store.Len(),
			"compressed": compress,
		}).Info("digis generated")
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the module version",
	Run: func(cmd *cobra.Command, args []string) {
		v, sum := stripclust.Version()
		if v == "" {
			v = "(devel)"
		}
		fmt.Println("stripclust", v, sum)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")

	addRunFlags(rootCmd)
	_ = rootCmd.MarkFlagRequired("input")

	g := generateCmd.Flags()
	g.StringVarP(&outputPath, "output", "o", "digis.bin", "Output file")
	g.IntVar(&generateOpts.Detectors, "detectors", generateOpts.Detectors, "Number of detectors")
	g.IntVar(&generateOpts.StripsPerDetector, "strips", generateOpts.StripsPerDetector, "Strips per detector")
	g.IntVar(&generateOpts.HitsPerDetector, "hits", generateOpts.HitsPerDetector, "Hits per detector")
	g.Float32Var(&generateOpts.Occupancy, "occupancy", generateOpts.Occupancy, "Noise strip occupancy")
	g.Float32Var(&generateOpts.BadFraction, "bad", generateOpts.BadFraction, "Bad channel fraction")
	g.Uint64Var(&generateOpts.Seed, "seed", generateOpts.Seed, "Generator seed")
	g.BoolVar(&compress, "zstd", false, "Compress with zstd")

	rootCmd.AddCommand(generateCmd, versionCmd)
}

// addRunFlags registers the clustering flags on cmd.
func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&inputPath, "input", "i", "", "Digi file to cluster (raw or zstd)")
	f.StringVar(&configPath, "config", "", "YAML configuration file")
	f.StringVar(&backend, "backend", string(stripclust.BackendCPU), "Backend: cpu, cpu-parallel, stream")
	f.IntVar(&partitions, "partitions", stripclust.DefaultPartitions, "Number of chunks")
	f.IntVar(&maxStrips, "max-strips", stripclust.DefaultMaxStrips, "Strip capacity")
	f.StringVar(&chargeMode, "charge", string(stripclust.ChargeRaw), "Charge mode: raw, gain")
	f.BoolVarP(&verbose, "verbose", "v", false, "Print accepted clusters")
	f.BoolVar(&verify, "verify", false, "Cross-check against a second backend")
	f.StringVar(&histogramDir, "histogram", "", "Directory for charge and width histograms")
}

func newLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		logger.WithField("level", level).Warn("unknown log level, using info")
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}

// loadConfig reads the config file, if any, and applies flags the user set
// explicitly on top of it.
func loadConfig(cmd *cobra.Command, log *logrus.Logger) (stripclust.Config, error) {
	cfg := stripclust.DefaultConfig()
	if configPath != "" {
		var err error
		if cfg, err = stripclust.LoadConfig(configPath); err != nil {
			return cfg, err
		}
	}

	f := cmd.Flags()
	if f.Changed("backend") {
		cfg.Backend = stripclust.BackendKind(backend)
	}
	if f.Changed("partitions") {
		cfg.Partitions = partitions
	}
	if f.Changed("max-strips") {
		cfg.MaxStrips = maxStrips
	}
	if f.Changed("charge") {
		cfg.Thresholds.Charge = stripclust.ChargeMode(chargeMode)
	}
	if f.Changed("verbose") {
		cfg.Verbose = verbose
	}
	cfg.Logger = log
	return cfg, cfg.Validate()
}

func run(cfg stripclust.Config, log *logrus.Logger) error {
	b, err := stripclust.NewBackend(cfg)
	if err != nil {
		return err
	}
	store, err := stripclust.Ingest(inputPath, cfg)
	if err != nil {
		return err
	}

	res, err := b.Run(store)
	if err != nil {
		return err
	}
	if err := stripclust.CheckInvariants(store, res); err != nil {
		return err
	}

	out := os.Stdout
	if cfg.Verbose {
		if err := stripclust.WriteClusters(out, store, res); err != nil {
			return err
		}
	}
	if err := res.Timing.WriteReport(out, cfg.Backend == stripclust.BackendStream); err != nil {
		return err
	}
	if err := stripclust.Summarize(res).Write(out); err != nil {
		return err
	}

	if verify {
		if err := verifyAgainst(cfg, store, res, log); err != nil {
			return err
		}
	}

	if histogramDir != "" {
		paths, err := report.WriteHistograms(histogramDir, res)
		if err != nil {
			return err
		}
		log.WithField("files", paths).Info("histograms written")
	}
	return nil
}

// verifyAgainst reruns the pass on the other side of the host/device split
// and fails on any difference.
func verifyAgainst(cfg stripclust.Config, store *stripclust.StripStore, res *stripclust.Result, log *logrus.Logger) error {
	other := cfg
	other.Backend = stripclust.BackendStream
	if cfg.Backend == stripclust.BackendStream {
		other.Backend = stripclust.BackendCPU
	}
	b, err := stripclust.NewBackend(other)
	if err != nil {
		return err
	}
	ref, err := b.Run(store)
	if err != nil {
		return fmt.Errorf("verify with %s: %w", other.Backend, err)
	}
	if diff := stripclust.CompareResults(res, ref); diff != "" {
		return fmt.Errorf("%s and %s disagree (-%s +%s):\n%s", res.Backend, ref.Backend, res.Backend, ref.Backend, diff)
	}
	log.WithField("against", ref.Backend).Info("backends agree")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
