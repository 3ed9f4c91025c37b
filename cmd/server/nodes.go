package main

import (
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/Brownie44l1/imgeval/internal/model"
	"github.com/Brownie44l1/imgeval/internal/nodes"
)

func NodesHandler(cmd *cobra.Command, args []string) error {
	// Listing only reads declarations, so no runtime or checkpoint is needed.
	registry, err := nodes.Default(model.NewONNXLoader("", model.Options{}))
	if err != nil {
		return err
	}

	var data [][]string
	for _, id := range registry.IDs() {
		n := registry.ClassMappings[id]
		data = append(data, []string{
			id,
			registry.DisplayNameMappings[id],
			n.Category(),
			strings.Join(n.ReturnNames(), ", "),
		})
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"ID", "NAME", "CATEGORY", "OUTPUTS"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()

	return nil
}
