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
	"context"
	"encoding/base64"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/samply/cohortctl/util"
	fm "github.com/samply/golang-fhir-models/fhir-models/fhir"
	"github.com/spf13/cobra"
)

func createCoding(system string, code string) fm.Coding {
	return fm.Coding{System: &system, Code: &code}
}

func createAttachment(contentType string, title string, data string) fm.Attachment {
	return fm.Attachment{
		ContentType: &contentType,
		Title:       &title,
		Data:        &data,
	}
}

// CreateLibraryResource wraps the description of a cohort definition into a
// Library with a single text/plain attachment.
func CreateLibraryResource(d *CohortDefinition, description string, libraryUrl string) *fm.Library {
	library := &fm.Library{
		Url:    &libraryUrl,
		Title:  &d.Name,
		Status: fm.PublicationStatusActive,
		Type: fm.CodeableConcept{
			Coding: []fm.Coding{
				createCoding("http://terminology.hl7.org/CodeSystem/library-type", "asset-collection"),
			},
		},
		Content: []fm.Attachment{
			createAttachment("text/plain", d.Name, base64.StdEncoding.EncodeToString([]byte(description))),
		},
	}
	if d.Description != "" {
		library.Description = &d.Description
	}
	return library
}

func createBundleEntry(url string, resource []byte) fm.BundleEntry {
	return fm.BundleEntry{
		Resource: resource,
		Request: &fm.BundleEntryRequest{
			Method: fm.HTTPVerbPOST,
			Url:    url,
		},
	}
}

func randomUrl() (string, error) {
	myUuid, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}

	return "urn:uuid:" + myUuid.String(), nil
}

// createLibraryBundle describes the definition in filename and returns a
// transaction bundle creating the Library together with the Library's
// canonical URL.
func createLibraryBundle(ctx context.Context, filename string) ([]byte, string, error) {
	description, definition, err := describeFile(ctx, filename)
	if err != nil {
		return nil, "", err
	}

	libraryUrl, err := randomUrl()
	if err != nil {
		return nil, "", err
	}

	libraryBytes, err := json.Marshal(CreateLibraryResource(definition, description, libraryUrl))
	if err != nil {
		return nil, "", err
	}

	bundle := fm.Bundle{
		Type:  fm.BundleTypeTransaction,
		Entry: []fm.BundleEntry{createBundleEntry("Library", libraryBytes)},
	}

	bundleBytes, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return nil, "", err
	}
	return bundleBytes, libraryUrl, nil
}

var exportOutputFile string

var exportCmd = &cobra.Command{
	Use:   "export [definition-file]",
	Short: "Exports a cohort definition as FHIR transaction bundle",
	Long: `Describes a cohort definition and wraps the description into a FHIR Library
resource inside a transaction bundle. The Library gets a random urn:uuid
canonical URL.

The bundle can be uploaded to any FHIR server or published directly using
the publish command.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bundle, _, err := createLibraryBundle(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if exportOutputFile != "" {
			file, err := util.CreateOutputFile(exportOutputFile)
			if err != nil {
				return err
			}
			defer file.Close()
			out = file
		}
		_, err = out.Write(append(bundle, '\n'))
		return err
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportOutputFile, "output", "o", "", "write the bundle to this file instead of stdout")
}

