// Copyright (c) 2025 Fraunhofer AISEC
// Fraunhofer-Gesellschaft zur Foerderung der angewandten Forschung e.V.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package verifier

import (
	ar "github.com/Fraunhofer-AISEC/mrverify/attestationreport"
)

// VerifySelected checks for every reference entry whether its template hash
// is present in the observed runtime entries. Order and number of the
// observed entries are irrelevant.
func VerifySelected(observed []ar.RuntimeEntry, refs []ar.ReferenceEntry) []ar.SelectedResult {

	present := make(map[string]struct{}, len(observed))
	for _, e := range observed {
		present[e.TemplateHash] = struct{}{}
	}

	results := make([]ar.SelectedResult, 0, len(refs))
	for _, ref := range refs {
		log.Infof("Verifying digest: %v %v %v", ref.TemplateHash, ref.TemplateName, ref.Description)

		_, ok := present[ref.TemplateHash]
		if ok {
			log.Info("Verify success")
		} else {
			log.Warn("Verify failed")
		}

		results = append(results, ar.SelectedResult{
			Index:        ref.Index,
			TemplateHash: ref.TemplateHash,
			TemplateName: ref.TemplateName,
			Description:  ref.Description,
			Success:      ok,
		})
	}

	return results
}
