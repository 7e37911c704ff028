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
	"bytes"
	"fmt"
	"io"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/samply/cohortctl/fhir"
	"github.com/samply/cohortctl/logger"
	"github.com/samply/cohortctl/util"
	"github.com/spf13/cobra"
)

// publishBundle posts the transaction bundle and returns the location of the
// created Library as reported by the server.
func publishBundle(bundle []byte) (string, error) {
	req, err := client.NewTransactionRequest(bytes.NewReader(bundle))
	if err != nil {
		return "", err
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "could not reach the FHIR server")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", err
		}
		logger.Logger.Warnw("FHIR server rejected the transaction", logger.FieldStatus, resp.StatusCode)
		serverError := &util.ServerError{StatusCode: resp.StatusCode}
		if outcome, err := fhir.ReadOperationOutcome(bytes.NewReader(body)); err == nil {
			serverError.OperationOutcome = outcome
		} else {
			serverError.Body = string(body)
		}
		return "", serverError
	}

	response, err := fhir.ReadBundle(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "could not read the transaction response")
	}
	if len(response.Entry) == 0 || response.Entry[0].Response == nil || response.Entry[0].Response.Location == nil {
		return "", nil
	}
	return *response.Entry[0].Response.Location, nil
}

var publishCmd = &cobra.Command{
	Use:   "publish [definition-file]",
	Short: "Publishes a cohort definition on a FHIR server",
	Long: `Describes a cohort definition and creates a FHIR Library resource holding
the description on the server given by --server.

The Library is created in a transaction. On failure, the OperationOutcome
returned by the server is printed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bundle, libraryUrl, err := createLibraryBundle(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if err := createClient(); err != nil {
			return err
		}

		location, err := publishBundle(bundle)
		if err != nil {
			return errors.Wrapf(err, "Error while publishing the Library with canonical URL %s", libraryUrl)
		}

		logger.Logger.Infow("Published cohort definition",
			logger.FieldFile, args[0],
			logger.FieldServer, config.GetString("server"))
		fmt.Fprintf(cmd.OutOrStdout(), "Published Library with canonical URL %s", libraryUrl)
		if location != "" {
			fmt.Fprintf(cmd.OutOrStdout(), " at %s", location)
		}
		fmt.Fprintln(cmd.OutOrStdout())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(publishCmd)
}
