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
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/samply/cohortctl/conceptset"
	"github.com/samply/cohortctl/data"
	"github.com/samply/cohortctl/logger"
	"github.com/samply/cohortctl/vocabulary"
	"github.com/spf13/cobra"
)

// printConceptSets lists every concept set followed by its concepts.
func printConceptSets(w io.Writer, conceptSets []*conceptset.ConceptSet) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for i, cs := range conceptSets {
		if i > 0 {
			fmt.Fprintln(tw)
		}
		descendants := ""
		if cs.IncludeDescendants() {
			descendants = ", including descendants"
		}
		fmt.Fprintf(tw, "%d. %s (%d concepts%s)\n", cs.ID(), cs.Name(), cs.Len(), descendants)
		for _, c := range cs.Concepts() {
			standard := c.StandardConcept
			if standard == "" {
				standard = "-"
			}
			fmt.Fprintf(tw, "   %d\t%s\t%s\t%s\t%s\t%s\n", c.ID, c.Name, c.DomainID, c.VocabularyID,
				c.ConceptCode, standard)
		}
	}
	return tw.Flush()
}

var conceptSetCmd = &cobra.Command{
	Use:   "concept-set [definition-file]",
	Short: "Resolves the concept sets of a cohort definition",
	Long: `Resolves the concept sets of a cohort definition against an OMOP vocabulary
database and lists the concepts of each set.

Concept names and ids are looked up in the concept table. Descendants are
taken from the concept_ancestor table.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := data.ReadDefinition(args[0])
		if err != nil {
			return err
		}

		driver := config.GetString("vocabulary-driver")
		store, err := vocabulary.Open(cmd.Context(), driver, config.GetString("vocabulary-dsn"))
		if err != nil {
			return err
		}
		defer store.Close()

		resolve := buildConceptSets(conceptset.NewBuilder(conceptset.NewRegistry(), store))
		definition, err := BuildDefinition(cmd.Context(), d, resolve)
		if err != nil {
			return err
		}

		logger.Logger.Infow("Resolved concept sets",
			logger.FieldDefinition, definition.Name,
			logger.FieldDriver, driver,
			logger.FieldCount, len(definition.ConceptSets))
		return printConceptSets(cmd.OutOrStdout(), definition.ConceptSets)
	},
}

func init() {
	rootCmd.AddCommand(conceptSetCmd)
}
