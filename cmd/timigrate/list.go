/*
Copyright 2024 The timigrate authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/openshift-ecosystem/timigrate/internal/migration"
	"github.com/openshift-ecosystem/timigrate/internal/runtime"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Prints a table of TemplateInstances and their stale object references",
	Example: `  # List the TemplateInstances in a namespace
  timigrate list --namespace default

  # List the TemplateInstances in all namespaces
  timigrate list -A
`,
	RunE: runListCmd,
}

type listFlags struct {
	allNamespaces bool
}

var listArgs listFlags

func init() {
	listCmd.Flags().BoolVarP(&listArgs.allNamespaces, "all-namespaces", "A", false,
		"list the TemplateInstances across all namespaces.")

	rootCmd.AddCommand(listCmd)
}

func runListCmd(cmd *cobra.Command, args []string) error {
	rm, err := runtime.NewResourceManager(kubeconfigArgs)
	if err != nil {
		return err
	}

	tim := runtime.NewTemplateInstanceManager(rm.Client())

	ctx, cancel := context.WithTimeout(cmd.Context(), rootArgs.timeout)
	defer cancel()

	ns := *kubeconfigArgs.Namespace
	if listArgs.allNamespaces {
		ns = ""
	}
	instances, err := tim.List(ctx, ns)
	if err != nil {
		return err
	}

	var rows [][]string
	for _, inst := range instances {
		objects := fmt.Sprintf("%v", migration.ObjectReferences(inst))
		stale := fmt.Sprintf("%v", migration.StaleReferences(inst))
		if listArgs.allNamespaces {
			rows = append(rows, []string{inst.GetName(), inst.GetNamespace(), objects, stale})
		} else {
			rows = append(rows, []string{inst.GetName(), objects, stale})
		}
	}

	if listArgs.allNamespaces {
		printTable(rootCmd.OutOrStdout(), []string{"name", "namespace", "objects", "stale"}, rows)
	} else {
		printTable(rootCmd.OutOrStdout(), []string{"name", "objects", "stale"}, rows)
	}

	return nil
}

func printTable(writer io.Writer, header []string, rows [][]string) {
	table := tablewriter.NewWriter(writer)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)
	table.AppendBulk(rows)
	table.Render()
}
