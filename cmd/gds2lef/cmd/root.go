package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/gds2lef/pkg/pipeline"
)

var (
	// Global flags
	verbose bool

	configPath string
	strict     bool
	pdfPath    string
	dxfPath    string
	yosysPath  string
)

var rootCmd = &cobra.Command{
	Use:   "gds2lef <layout.gds> <layers.lyp|lyt> <directions.lib|v> <out.lef>",
	Short: "Extract LEF macros from a GDSII layout",
	Long: `Converts the top cells of a GDSII layout into a LEF macro library.

Layer names come from a KLayout layer properties (.lyp) or technology (.lyt)
file; pin labels are only found with a technology file. Pin directions come
from a Liberty file, or from a Verilog file elaborated with yosys.

Examples:
  gds2lef cells.gds tech.lyt cells.lib cells.lef
  gds2lef cells.gds tech.lyt cells.v cells.lef --yosys /opt/yosys/bin/yosys
  gds2lef cells.gds tech.lyt cells.lib cells.lef --strict --preview cells.pdf`,
	Version:      "0.1.0",
	Args:         cobra.ExactArgs(4),
	SilenceUsage: true,
	RunE:         runConvert,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "TOML configuration file")
	rootCmd.Flags().BoolVar(&strict, "strict", false, "fail when any extraction warning is reported")
	rootCmd.Flags().StringVar(&pdfPath, "preview", "", "also render the macros to this PDF file")
	rootCmd.Flags().StringVar(&dxfPath, "dxf", "", "also draw the macros into this DXF file")
	rootCmd.Flags().StringVar(&yosysPath, "yosys", "", "yosys binary for Verilog direction sources (default \"yosys\")")
}

// newLogger creates a timestamped logger writing to w.
func newLogger(w io.Writer) *log.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// loadConfig reads the config file, if any, and applies command-line
// overrides on top of it.
func loadConfig(cmd *cobra.Command) (*pipeline.Config, error) {
	cfg := pipeline.DefaultConfig()
	if configPath != "" {
		var err error
		if cfg, err = pipeline.LoadConfig(configPath); err != nil {
			return nil, err
		}
	}

	if cmd.Flags().Changed("strict") {
		cfg.Strict = strict
	}
	if pdfPath != "" {
		cfg.Preview.PDF = pdfPath
	}
	if dxfPath != "" {
		cfg.Preview.DXF = dxfPath
	}
	if yosysPath != "" {
		cfg.Yosys = yosysPath
	}
	return cfg, cfg.Validate()
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	runner := pipeline.NewRunner(cfg, newLogger(cmd.ErrOrStderr()))
	_, err = runner.Run(ctx, pipeline.Inputs{
		Layout:     args[0],
		Layers:     args[1],
		Directions: args[2],
		Output:     args[3],
	})
	return err
}

// runWith executes the root command with args; used by tests.
func runWith(ctx context.Context, args []string, stderr io.Writer) error {
	rootCmd.SetArgs(args)
	rootCmd.SetErr(stderr)
	rootCmd.SetOut(stderr)
	return rootCmd.ExecuteContext(ctx)
}
