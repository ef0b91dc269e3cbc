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

package migration

import (
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// Report holds the outcome of a migration run.
type Report struct {
	// Changed is true when at least one TemplateInstance had a stale
	// object reference.
	Changed bool

	// Items are the TemplateInstances that were (or in dry-run mode,
	// would be) migrated, in the order they were listed.
	Items []*unstructured.Unstructured
}

// Migrate returns the TemplateInstances whose status object references
// point at a non-canonical apiVersion, each one deep copied with all of
// its stale references rewritten. Instances already on canonical
// versions are excluded. The input is never mutated, so running Migrate
// over the returned items yields an empty result.
func Migrate(instances []*unstructured.Unstructured) []*unstructured.Unstructured {
	var migrated []*unstructured.Unstructured
	for _, inst := range instances {
		if StaleReferences(inst) == 0 {
			continue
		}
		out := inst.DeepCopy()
		for _, ref := range objectRefs(out) {
			if canonical, stale := staleRef(ref); stale {
				ref["apiVersion"] = canonical
			}
		}
		migrated = append(migrated, out)
	}
	return migrated
}

// StaleReferences counts the object references of a TemplateInstance
// that Migrate would rewrite.
func StaleReferences(inst *unstructured.Unstructured) int {
	var count int
	for _, ref := range objectRefs(inst) {
		if _, stale := staleRef(ref); stale {
			count++
		}
	}
	return count
}

// ObjectReferences returns the number of object references recorded in
// the instance status.
func ObjectReferences(inst *unstructured.Unstructured) int {
	return len(objectRefs(inst))
}

// objectRefs extracts the reference maps under status.objects[].ref.
// A missing path or an entry of an unexpected shape yields no
// references rather than an error, matching the API server's tolerance
// for partially populated status.
func objectRefs(inst *unstructured.Unstructured) []map[string]interface{} {
	field, found, err := unstructured.NestedFieldNoCopy(inst.Object, "status", "objects")
	if !found || err != nil {
		return nil
	}
	entries, ok := field.([]interface{})
	if !ok {
		return nil
	}
	refs := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		obj, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		ref, ok := obj["ref"].(map[string]interface{})
		if !ok {
			continue
		}
		refs = append(refs, ref)
	}
	return refs
}

// staleRef reports whether the reference needs rewriting and to which
// apiVersion. References without a kind, or whose kind has no canonical
// mapping, are never stale.
func staleRef(ref map[string]interface{}) (string, bool) {
	kind, ok := ref["kind"].(string)
	if !ok {
		return "", false
	}
	canonical, ok := CanonicalVersionFor(kind)
	if !ok {
		return "", false
	}
	if current, _ := ref["apiVersion"].(string); current == canonical {
		return "", false
	}
	return canonical, true
}
