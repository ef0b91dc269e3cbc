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

// canonicalVersions maps the legacy OpenShift kinds that were regrouped
// under dedicated API groups to the group/version they must reference
// after a cluster upgrade.
var canonicalVersions = map[string]string{
	"Build":            "build.openshift.io/v1",
	"BuildConfig":      "build.openshift.io/v1",
	"DeploymentConfig": "apps.openshift.io/v1",
	"Route":            "route.openshift.io/v1",
}

// CanonicalVersionFor returns the canonical apiVersion for the given
// object kind. The second return value is false for kinds that are not
// subject to migration.
func CanonicalVersionFor(kind string) (string, bool) {
	version, ok := canonicalVersions[kind]
	return version, ok
}
