// Copyright 2026 The Samply Community
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

package cmd

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	fm "github.com/samply/golang-fhir-models/fhir-models/fhir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishCmd(t *testing.T) {
	defer config.Set("token", nil)

	t.Run("created", func(t *testing.T) {
		var received fm.Bundle
		var authorization string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authorization = r.Header.Get("Authorization")
			body, _ := io.ReadAll(r.Body)
			received, _ = fm.UnmarshalBundle(body)

			w.Header().Set("Content-Type", "application/fhir+json")
			_, _ = w.Write([]byte(`{"resourceType":"Bundle","type":"transaction-response",` +
				`"entry":[{"response":{"status":"201","location":"Library/DGQ7/_history/1"}}]}`))
		}))
		defer server.Close()

		config.Set("token", "secret")
		stdout, _, err := execute(t, "publish", "--server", server.URL, t2dmDefinition)
		require.NoError(t, err)

		assert.Equal(t, "Bearer secret", authorization)
		assert.Equal(t, fm.BundleTypeTransaction, received.Type)
		assert.Contains(t, stdout, "Published Library with canonical URL urn:uuid:")
		assert.Contains(t, stdout, " at Library/DGQ7/_history/1\n")
	})

	t.Run("rejected", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			diagnostics := "Library.status is required"
			outcome, _ := json.Marshal(fm.OperationOutcome{
				Issue: []fm.OperationOutcomeIssue{{
					Severity:    fm.IssueSeverityError,
					Code:        fm.IssueTypeInvalid,
					Diagnostics: &diagnostics,
				}},
			})
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write(outcome)
		}))
		defer server.Close()

		_, _, err := execute(t, "publish", "--server", server.URL, t2dmDefinition)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Error while publishing the Library with canonical URL urn:uuid:")
		assert.Contains(t, err.Error(), "StatusCode  : 400\nSeverity    : Error\n")
		assert.Contains(t, err.Error(), "Diagnostics : Library.status is required\n")
	})

	t.Run("no operation outcome", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("Bad Gateway"))
		}))
		defer server.Close()

		_, _, err := execute(t, "publish", "--server", server.URL, t2dmDefinition)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "StatusCode  : 502\nBody        : Bad Gateway\n")
	})
}
