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
	"os"

	"github.com/spf13/cobra"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/openshift-ecosystem/timigrate/internal/logger"
	"github.com/openshift-ecosystem/timigrate/internal/runtime"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Update TemplateInstances to point to the latest group-version-kinds",
	Long: `The migrate command rewrites the apiVersion of the object references
recorded under the status of the cluster's TemplateInstances and patches
the changed instances back. Analogous to 'oc adm migrate template-instances'.

Rewriting runs against the full cluster view; when a namespace is
selected, the instances are fetched but left untouched.`,
	Example: `  # Preview the TemplateInstances that would be migrated
  timigrate migrate -A --dry-run

  # Preview with a YAML diff per instance
  timigrate migrate -A --dry-run --diff

  # Migrate the TemplateInstances in all namespaces
  timigrate migrate -A
`,
	RunE: runMigrateCmd,
}

type migrateFlags struct {
	allNamespaces bool
	dryRun        bool
	diff          bool
}

var migrateArgs migrateFlags

func init() {
	migrateCmd.Flags().BoolVarP(&migrateArgs.allNamespaces, "all-namespaces", "A", false,
		"migrate the TemplateInstances across all namespaces.")
	migrateCmd.Flags().BoolVar(&migrateArgs.dryRun, "dry-run", false,
		"report the TemplateInstances that would be migrated without patching them.")
	migrateCmd.Flags().BoolVar(&migrateArgs.diff, "diff", false,
		"print a YAML diff per instance, requires --dry-run.")

	rootCmd.AddCommand(migrateCmd)
}

func runMigrateCmd(cmd *cobra.Command, args []string) error {
	if migrateArgs.diff && !migrateArgs.dryRun {
		return fmt.Errorf("--diff can only be used together with --dry-run")
	}

	log := LoggerFrom(cmd.Context())

	rm, err := runtime.NewResourceManager(kubeconfigArgs)
	if err != nil {
		return err
	}

	tim := runtime.NewTemplateInstanceManager(rm.Client())

	ctx, cancel := context.WithTimeout(cmd.Context(), rootArgs.timeout)
	defer cancel()

	ns := *kubeconfigArgs.Namespace
	if migrateArgs.allNamespaces {
		ns = ""
	}

	if migrateArgs.dryRun {
		report, err := tim.Migrate(ctx, ns, true)
		if err != nil {
			return err
		}

		for _, inst := range report.Items {
			log.Info(logger.ColorizeJoin(inst, "migrated", logger.DryRunClient))
			if migrateArgs.diff {
				if err := printInstanceDiff(ctx, tim, inst); err != nil {
					return err
				}
			}
		}

		if !report.Changed {
			log.Info("no template instances to migrate")
		}
		return nil
	}

	spin := logger.StartSpinner("migrating template instances")
	report, err := tim.Migrate(ctx, ns, false)
	spin.Stop()
	if err != nil {
		return err
	}

	for _, inst := range report.Items {
		log.Info(logger.ColorizeJoin(inst, "migrated"))
	}

	if !report.Changed {
		log.Info("no template instances to migrate")
		return nil
	}

	log.Info(fmt.Sprintf("migration finished, %d instance(s) changed", len(report.Items)))
	return nil
}

// printInstanceDiff renders a YAML diff between the in-cluster instance
// and its migrated counterpart.
func printInstanceDiff(ctx context.Context, tim *runtime.TemplateInstanceManager, migrated *unstructured.Unstructured) error {
	live, err := tim.Get(ctx, migrated.GetName(), migrated.GetNamespace())
	if err != nil {
		return err
	}

	tmpDir, err := os.MkdirTemp("", "timigrate")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmpDir)

	return diffYAMLObjects(tmpDir, live, migrated, rootCmd.OutOrStdout())
}
