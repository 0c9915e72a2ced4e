package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"progen/pkg/emit"
	"progen/pkg/funcspec"
	"progen/pkg/generator"
	"progen/pkg/ir"
	"progen/pkg/policy"
)

var version = "0.1.0"

// Generation options
var (
	seedFlag      uint64
	configPath    string
	functionsPath string
	outputPath    string
	checkAlgoFlag string
	valsNumber    int
	mainValIdx    int
	allowDeadData bool
	dumpStructure bool
	verbose       bool
)

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "progen: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "progen",
		Short: "progen generates random C++ programs for compiler testing",
		Long: `progen emits self-contained, undefined-behavior-free C++ test
programs together with the checksum a correct compilation must
produce. A recorded seed regenerates its program bit for bit.`,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return doGenerate(cmd, out, errOut)
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	rootCmd.Flags().Uint64Var(&seedFlag, "seed", 0, "Generation seed (0 picks one from the clock)")
	rootCmd.Flags().StringVar(&configPath, "config", "", "YAML generation policy overriding the defaults")
	rootCmd.Flags().StringVar(&functionsPath, "functions", "", "YAML external function specifications to splice in")
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file (default stdout)")
	rootCmd.Flags().StringVar(&checkAlgoFlag, "check-algo", "", "Checking mode: hash, precompute, or asserts")
	rootCmd.Flags().IntVar(&valsNumber, "vals-number", 0, "Values per multi-value entity")
	rootCmd.Flags().IntVar(&mainValIdx, "main-val-idx", -1, "Index of the main value track")
	rootCmd.Flags().BoolVar(&allowDeadData, "allow-dead-data", false, "Permit never-read entities")
	rootCmd.Flags().BoolVar(&dumpStructure, "dump-structure", false, "Dump the scope skeleton instead of C++ source")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	return rootCmd
}

func doGenerate(cmd *cobra.Command, out, errOut io.Writer) error {
	log, err := newLogger(verbose)
	if err != nil {
		return err
	}
	defer log.Sync()
	sugar := log.Sugar()

	pol, err := buildPolicy(cmd)
	if err != nil {
		return err
	}

	seed := seedFlag
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
		sugar.Infow("picked seed from the clock", "seed", seed)
	}

	var funcs []funcspec.Function
	if functionsPath != "" {
		funcs = funcspec.Load(functionsPath, sugar)
	}

	gen := generator.New(&pol, funcs, sugar)
	prog, err := gen.Generate(seed)
	if err != nil {
		return err
	}

	w := out
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	if dumpStructure {
		ir.DumpStructure(w, prog.Tree)
		return nil
	}
	emit.NewPrinter(w).PrintProgram(prog)
	return nil
}

// buildPolicy layers the command line over the config file over the
// defaults. Only flags the user actually set override the file.
func buildPolicy(cmd *cobra.Command) (policy.Policy, error) {
	pol := policy.Default()
	if configPath != "" {
		loaded, err := policy.Load(configPath)
		if err != nil {
			return policy.Policy{}, err
		}
		pol = loaded
	}

	if cmd.Flags().Changed("check-algo") {
		algo, err := policy.ParseCheckAlgo(checkAlgoFlag)
		if err != nil {
			return policy.Policy{}, err
		}
		pol.CheckAlgo = algo
	}
	if cmd.Flags().Changed("vals-number") {
		pol.ValsNumber = valsNumber
	}
	if cmd.Flags().Changed("main-val-idx") {
		pol.MainValIdx = mainValIdx
	}
	if cmd.Flags().Changed("allow-dead-data") {
		pol.AllowDeadData = allowDeadData
	}
	if err := pol.Validate(); err != nil {
		return policy.Policy{}, err
	}
	return pol, nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	return cfg.Build()
}
