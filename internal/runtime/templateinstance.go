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

package runtime

import (
	"context"
	"fmt"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/openshift-ecosystem/timigrate/internal/migration"
)

var (
	// TemplateInstanceGVK identifies the template.openshift.io
	// TemplateInstance resource.
	TemplateInstanceGVK = schema.GroupVersionKind{
		Group:   "template.openshift.io",
		Version: "v1",
		Kind:    "TemplateInstance",
	}

	templateInstanceListGVK = schema.GroupVersionKind{
		Group:   "template.openshift.io",
		Version: "v1",
		Kind:    "TemplateInstanceList",
	}
)

// TemplateInstanceManager performs operations on the cluster's
// TemplateInstances.
type TemplateInstanceManager struct {
	kubeClient client.Client
}

// NewTemplateInstanceManager creates a TemplateInstanceManager for the
// given cluster client.
func NewTemplateInstanceManager(kubeClient client.Client) *TemplateInstanceManager {
	return &TemplateInstanceManager{kubeClient: kubeClient}
}

// List returns the TemplateInstances found in the given namespace, or
// in all namespaces when none is given.
func (m *TemplateInstanceManager) List(ctx context.Context, namespace string) ([]*unstructured.Unstructured, error) {
	list := &unstructured.UnstructuredList{}
	list.SetGroupVersionKind(templateInstanceListGVK)

	var opts []client.ListOption
	if namespace != "" {
		opts = append(opts, client.InNamespace(namespace))
	}

	if err := m.kubeClient.List(ctx, list, opts...); err != nil {
		if namespace != "" {
			return nil, fmt.Errorf("failed to retrieve TemplateInstances in namespace '%s': %w", namespace, err)
		}
		return nil, fmt.Errorf("failed to retrieve TemplateInstances: %w", err)
	}

	instances := make([]*unstructured.Unstructured, 0, len(list.Items))
	for i := range list.Items {
		instances = append(instances, &list.Items[i])
	}
	return instances, nil
}

// Migrate rewrites the stale status object references of the cluster's
// TemplateInstances and patches the changed instances back, one at a
// time, aborting on the first patch failure. In dry-run mode the
// changed instances are reported without touching the cluster.
//
// Rewriting runs exclusively against the full cluster view; when a
// namespace is given, the scoped listing is fetched but left untouched.
func (m *TemplateInstanceManager) Migrate(ctx context.Context, namespace string, dryRun bool) (*migration.Report, error) {
	if namespace != "" {
		if _, err := m.List(ctx, namespace); err != nil {
			return nil, err
		}
		return &migration.Report{}, nil
	}

	instances, err := m.List(ctx, "")
	if err != nil {
		return nil, err
	}

	migrated := migration.Migrate(instances)
	if len(migrated) == 0 {
		return &migration.Report{}, nil
	}

	if dryRun {
		return &migration.Report{Changed: true, Items: migrated}, nil
	}

	report := &migration.Report{Changed: true}
	for _, inst := range migrated {
		result := inst.DeepCopy()
		if err := m.kubeClient.Status().Patch(ctx, result, client.Merge); err != nil {
			return nil, fmt.Errorf("failed to migrate TemplateInstance %s/%s: %w",
				inst.GetNamespace(), inst.GetName(), err)
		}
		report.Items = append(report.Items, result)
	}
	return report, nil
}

// Get fetches a single TemplateInstance by name and namespace.
func (m *TemplateInstanceManager) Get(ctx context.Context, name, namespace string) (*unstructured.Unstructured, error) {
	inst := &unstructured.Unstructured{}
	inst.SetGroupVersionKind(TemplateInstanceGVK)

	key := client.ObjectKey{Name: name, Namespace: namespace}
	if err := m.kubeClient.Get(ctx, key, inst); err != nil {
		return nil, err
	}
	return inst, nil
}
