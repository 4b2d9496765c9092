// Command simulator runs the GCN accelerator pipeline simulator
// against a graph, a set of per-layer feature files, and a stack of
// TOML configuration overrides.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rfielding/gcn-accel-sim/accel"
	"github.com/rfielding/gcn-accel-sim/internal/config"
	"github.com/rfielding/gcn-accel-sim/internal/dram"
	"github.com/rfielding/gcn-accel-sim/internal/stats"
)

var log = logrus.StandardLogger()

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		log.WithError(err).Error("simulator run failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var outputDir string
	var completions string

	cmd := &cobra.Command{
		Use:   "simulator [config_path ...]",
		Short: "Cycle-accurate simulator for a GCN inference accelerator",
		Long: "simulator runs the pipeline control-plane model of a graph\n" +
			"convolutional network accelerator: double-buffered stage\n" +
			"transitions, sparse/dense aggregation and MLP cycle accounting,\n" +
			"and a DRAM-timing-aware memory interface. A default\n" +
			"configuration is always loaded first; each positional argument\n" +
			"is a TOML file whose keys override it, later files winning over\n" +
			"earlier ones.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if completions != "" {
				return genCompletions(cmd, completions)
			}
			return runSimulation(args, outputDir)
		},
	}
	cmd.Flags().StringVar(&outputDir, "output-dir", "output", "directory to write the run's stats JSON into")
	cmd.Flags().StringVar(&completions, "completions", "", "generate a completion script for the given shell (bash|zsh|fish|powershell) and exit")
	return cmd
}

func genCompletions(cmd *cobra.Command, shell string) error {
	switch shell {
	case "bash":
		return cmd.Root().GenBashCompletion(os.Stdout)
	case "zsh":
		return cmd.Root().GenZshCompletion(os.Stdout)
	case "fish":
		return cmd.Root().GenFishCompletion(os.Stdout, true)
	case "powershell":
		return cmd.Root().GenPowerShellCompletion(os.Stdout)
	default:
		return fmt.Errorf("unsupported shell %q", shell)
	}
}

func runSimulation(configPaths []string, outputDir string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("simulator aborted: %v", r)
		}
	}()

	settings, loadErr := config.Load(configPaths)
	if loadErr != nil {
		return loadErr
	}

	graph, graphErr := accel.LoadGraph(settings.GraphPath)
	if graphErr != nil {
		return graphErr
	}

	layerFeatures := make([]*accel.NodeFeatures, len(settings.FeaturesPaths))
	for i, p := range settings.FeaturesPaths {
		nf, featErr := accel.LoadNodeFeatures(p)
		if featErr != nil {
			return featErr
		}
		layerFeatures[i] = nf
	}

	mode, modeErr := accel.ParseRunningMode(settings.AcceleratorSettings.RunningMode)
	if modeErr != nil {
		return modeErr
	}
	if mode == accel.Mixed {
		return accel.ErrUnsupportedMode
	}

	dramCfg, dramErr := dram.LoadConfig(settings.AcceleratorSettings.MemConfigName)
	if dramErr != nil {
		return dramErr
	}
	oracle := dram.NewFixedLatencyModel(dramCfg)

	sysCfg := accel.SystemConfig{
		Mode:            mode,
		InputBufferSize: settings.AcceleratorSettings.InputBufferSize,
		AggBufferSize:   settings.AcceleratorSettings.AggBufferSize,
		HiddenSize:      settings.AcceleratorSettings.GcnHiddenSize,
		MemSendSize:     settings.AcceleratorSettings.MemSendQueue,
		MemRecvSize:     settings.AcceleratorSettings.MemRecvQueue,
		Aggregator: accel.AggregatorSettings{
			SparseCores: settings.AggregatorSettings.SparseCores,
			SparseWidth: settings.AggregatorSettings.SparseWidth,
			DenseCores:  settings.AggregatorSettings.DenseCores,
			DenseWidth:  settings.AggregatorSettings.DenseWidth,
		},
		MLP: accel.MLPSettings{
			SystolicRows:   settings.MLPSettings.SystolicRows,
			SystolicCols:   settings.MLPSettings.SystolicCols,
			MlpSparseCores: settings.MLPSettings.MlpSparseCores,
		},
		Sparsifier: accel.SparsifierSettings{
			FixedCycles: settings.SparsifierSettings.FixedCycles,
		},
	}

	sys := accel.NewSystem(graph, layerFeatures, oracle, sysCfg, log)

	start := time.Now()
	sys.Run()
	elapsed := time.Since(start)

	log.WithFields(logrus.Fields{"cycles": sys.CycleCount, "elapsed": elapsed}).Info("simulation finished")

	result := stats.NewResult(settings, sys.CycleCount, elapsed.String())
	path, writeErr := stats.Write(outputDir, time.Now().Format("20060102T150405.000000000"), result)
	if writeErr != nil {
		return writeErr
	}
	log.WithField("path", path).Info("wrote run statistics")
	return nil
}
