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
	"testing"

	"github.com/google/go-cmp/cmp"
	. "github.com/onsi/gomega"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

func ref(kind, apiVersion string) map[string]interface{} {
	r := map[string]interface{}{
		"kind": kind,
		"name": "obj",
	}
	if apiVersion != "" {
		r["apiVersion"] = apiVersion
	}
	return r
}

func templateInstance(name string, refs ...map[string]interface{}) *unstructured.Unstructured {
	objects := make([]interface{}, 0, len(refs))
	for _, r := range refs {
		objects = append(objects, map[string]interface{}{"ref": r})
	}
	return &unstructured.Unstructured{
		Object: map[string]interface{}{
			"apiVersion": "template.openshift.io/v1",
			"kind":       "TemplateInstance",
			"metadata": map[string]interface{}{
				"name":      name,
				"namespace": "test",
			},
			"status": map[string]interface{}{
				"objects": objects,
			},
		},
	}
}

func refVersion(g *WithT, inst *unstructured.Unstructured, index int) string {
	objects, found, err := unstructured.NestedSlice(inst.Object, "status", "objects")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(found).To(BeTrue())
	entry := objects[index].(map[string]interface{})
	version, _ := entry["ref"].(map[string]interface{})["apiVersion"].(string)
	return version
}

func TestCanonicalVersionFor(t *testing.T) {
	g := NewWithT(t)

	for kind, want := range map[string]string{
		"Build":            "build.openshift.io/v1",
		"BuildConfig":      "build.openshift.io/v1",
		"DeploymentConfig": "apps.openshift.io/v1",
		"Route":            "route.openshift.io/v1",
	} {
		version, ok := CanonicalVersionFor(kind)
		g.Expect(ok).To(BeTrue(), kind)
		g.Expect(version).To(Equal(want), kind)
	}

	for _, kind := range []string{"Secret", "Pod", "Deployment", ""} {
		_, ok := CanonicalVersionFor(kind)
		g.Expect(ok).To(BeFalse(), kind)
	}
}

func TestMigrate_RewritesStaleReferences(t *testing.T) {
	g := NewWithT(t)

	inst := templateInstance("demo",
		ref("Route", "route.openshift.io/v1.Route"),
		ref("Secret", "v1"),
	)

	migrated := Migrate([]*unstructured.Unstructured{inst})
	g.Expect(migrated).To(HaveLen(1))
	g.Expect(migrated[0].GetName()).To(Equal("demo"))
	g.Expect(refVersion(g, migrated[0], 0)).To(Equal("route.openshift.io/v1"))
	g.Expect(refVersion(g, migrated[0], 1)).To(Equal("v1"))
}

func TestMigrate_MissingAPIVersionIsStale(t *testing.T) {
	g := NewWithT(t)

	inst := templateInstance("demo", ref("Build", ""))

	migrated := Migrate([]*unstructured.Unstructured{inst})
	g.Expect(migrated).To(HaveLen(1))
	g.Expect(refVersion(g, migrated[0], 0)).To(Equal("build.openshift.io/v1"))
}

func TestMigrate_Selectivity(t *testing.T) {
	t.Run("unmapped kinds are never rewritten", func(t *testing.T) {
		g := NewWithT(t)
		inst := templateInstance("demo",
			ref("Pod", "v1.Pod"),
			ref("Secret", "legacy/v1"),
		)
		g.Expect(Migrate([]*unstructured.Unstructured{inst})).To(BeEmpty())
	})

	t.Run("canonical references are left alone", func(t *testing.T) {
		g := NewWithT(t)
		inst := templateInstance("demo", ref("BuildConfig", "build.openshift.io/v1"))
		g.Expect(Migrate([]*unstructured.Unstructured{inst})).To(BeEmpty())
	})

	t.Run("instance without status objects is excluded", func(t *testing.T) {
		g := NewWithT(t)
		inst := templateInstance("demo")
		unstructured.RemoveNestedField(inst.Object, "status", "objects")
		g.Expect(Migrate([]*unstructured.Unstructured{inst})).To(BeEmpty())
	})

	t.Run("malformed entries are skipped", func(t *testing.T) {
		g := NewWithT(t)
		inst := templateInstance("demo", ref("Route", "v1"))
		objects, _, _ := unstructured.NestedSlice(inst.Object, "status", "objects")
		objects = append(objects, "not-a-map", map[string]interface{}{"ref": "not-a-map-either"})
		g.Expect(unstructured.SetNestedSlice(inst.Object, objects, "status", "objects")).To(Succeed())

		migrated := Migrate([]*unstructured.Unstructured{inst})
		g.Expect(migrated).To(HaveLen(1))
		g.Expect(refVersion(g, migrated[0], 0)).To(Equal("route.openshift.io/v1"))
	})
}

func TestMigrate_OrderAndUniqueness(t *testing.T) {
	g := NewWithT(t)

	first := templateInstance("first",
		ref("Build", "v1"),
		ref("BuildConfig", "v1"),
		ref("DeploymentConfig", "v1"),
	)
	second := templateInstance("second", ref("Secret", "v1"))
	third := templateInstance("third", ref("Route", "v1"))

	migrated := Migrate([]*unstructured.Unstructured{first, second, third})
	g.Expect(migrated).To(HaveLen(2))
	g.Expect(migrated[0].GetName()).To(Equal("first"))
	g.Expect(migrated[1].GetName()).To(Equal("third"))
}

func TestMigrate_InputNotMutated(t *testing.T) {
	g := NewWithT(t)

	inst := templateInstance("demo", ref("Route", "route.openshift.io/v1.Route"))
	snapshot := inst.DeepCopy()

	firstRun := Migrate([]*unstructured.Unstructured{inst})
	g.Expect(firstRun).To(HaveLen(1))
	g.Expect(cmp.Diff(snapshot.Object, inst.Object)).To(BeEmpty())

	secondRun := Migrate([]*unstructured.Unstructured{inst})
	g.Expect(secondRun).To(HaveLen(1))
	g.Expect(cmp.Diff(firstRun[0].Object, secondRun[0].Object)).To(BeEmpty())
}

func TestMigrate_Idempotence(t *testing.T) {
	g := NewWithT(t)

	instances := []*unstructured.Unstructured{
		templateInstance("a", ref("Build", "v1"), ref("Secret", "v1")),
		templateInstance("b", ref("Route", "")),
	}

	migrated := Migrate(instances)
	g.Expect(migrated).To(HaveLen(2))
	g.Expect(Migrate(migrated)).To(BeEmpty())
}

func TestStaleReferences(t *testing.T) {
	g := NewWithT(t)

	inst := templateInstance("demo",
		ref("Build", "v1"),
		ref("BuildConfig", "build.openshift.io/v1"),
		ref("Secret", "v1"),
		ref("Route", ""),
	)

	g.Expect(StaleReferences(inst)).To(Equal(2))
	g.Expect(ObjectReferences(inst)).To(Equal(4))

	migrated := Migrate([]*unstructured.Unstructured{inst})
	g.Expect(migrated).To(HaveLen(1))
	g.Expect(StaleReferences(migrated[0])).To(BeZero())
}
