package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/Brownie44l1/imgeval/internal/config"
	"github.com/Brownie44l1/imgeval/internal/model"
	"github.com/Brownie44l1/imgeval/internal/nodes"
)

func main() {
	if err := NewCLI().Execute(); err != nil {
		os.Exit(1)
	}
}

func NewCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "server",
		Short:         "Image similarity scoring nodes",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          ServeHandler,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the node host HTTP server",
		Args:  cobra.ExactArgs(0),
		RunE:  ServeHandler,
	}

	nodesCmd := &cobra.Command{
		Use:   "nodes",
		Short: "List registered nodes",
		Args:  cobra.ExactArgs(0),
		RunE:  NodesHandler,
	}

	runCmd := &cobra.Command{
		Use:   "run NODE_ID",
		Short: "Invoke a node locally",
		Args:  cobra.ExactArgs(1),
		RunE:  RunHandler,
	}
	runCmd.Flags().StringToString("image", nil, "Image input as NAME=PATH (repeatable)")
	runCmd.Flags().StringToString("string", nil, "String input as NAME=VALUE (repeatable)")

	rootCmd.AddCommand(serveCmd, nodesCmd, runCmd)
	return rootCmd
}

// setup loads configuration and builds the node registry on top of the ONNX
// loader. The returned cleanup tears the runtime down.
func setup() (*config.Config, *nodes.Registry, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := model.InitRuntime(cfg.RuntimeLib); err != nil {
		return nil, nil, nil, err
	}

	loader := model.NewONNXLoader(cfg.ModelsDir, model.Options{
		UseCUDA: cfg.Device == config.CUDA,
		Threads: cfg.Threads,
	})

	registry, err := nodes.Default(loader)
	if err != nil {
		model.DestroyRuntime()
		return nil, nil, nil, err
	}

	log.Printf("Models directory: %s (device %s)", cfg.ModelsDir, cfg.Device)
	return cfg, registry, model.DestroyRuntime, nil
}
