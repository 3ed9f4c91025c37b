package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Brownie44l1/imgeval/internal/nodes"
	"github.com/Brownie44l1/imgeval/internal/tensor"
)

func RunHandler(cmd *cobra.Command, args []string) error {
	images, err := cmd.Flags().GetStringToString("image")
	if err != nil {
		return err
	}
	strs, err := cmd.Flags().GetStringToString("string")
	if err != nil {
		return err
	}

	inputs, err := loadInputs(images, strs)
	if err != nil {
		return err
	}

	_, registry, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	return runNode(cmd, registry, args[0], inputs)
}

func runNode(cmd *cobra.Command, registry *nodes.Registry, id string, inputs nodes.Inputs) error {
	out, err := registry.Invoke(cmd.Context(), id, inputs)
	if err != nil {
		return err
	}

	for i, name := range registry.ClassMappings[id].ReturnNames() {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", name, out[i])
	}
	return nil
}

func loadInputs(images, strs map[string]string) (nodes.Inputs, error) {
	inputs := make(nodes.Inputs, len(images)+len(strs))

	for name, path := range images {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		img, _, err := tensor.Decode(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		inputs[name] = img
	}

	for name, value := range strs {
		inputs[name] = value
	}

	return inputs, nil
}
