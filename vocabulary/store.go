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

// Package vocabulary resolves OMOP vocabulary concepts over database/sql.
//
// The Store reads the CDM tables concept and concept_ancestor and implements
// conceptset.Querier. Both a local sqlite extract and a Postgres CDM are
// supported.
package vocabulary

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/samply/cohortctl/conceptset"
	"github.com/samply/cohortctl/logger"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // register sqlite as a database/sql driver
)

const (
	DriverSQLite = "sqlite"
	DriverPgx    = "pgx"
)

var ErrUnsupportedDriver = errors.New("unsupported vocabulary driver")

var _ conceptset.Querier = (*Store)(nil)

const conceptColumns = "c.concept_id, c.concept_name, c.domain_id, c.vocabulary_id, " +
	"c.concept_class_id, c.standard_concept, c.concept_code"

// Store answers concept lookups against a vocabulary database.
type Store struct {
	db     *sql.DB
	driver string
}

// Open opens and pings the vocabulary database reachable under dsn.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	if driver != DriverSQLite && driver != DriverPgx {
		return nil, errors.WithHint(errors.Mark(errors.Newf("unsupported vocabulary driver %q", driver), ErrUnsupportedDriver),
			"use sqlite or pgx")
	}
	if dsn == "" {
		return nil, errors.WithHint(errors.New("missing vocabulary database DSN"),
			"set --vocabulary-dsn or COHORTCTL_VOCABULARY_DSN")
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", driver)
	}
	if driver == DriverSQLite {
		// every connection to :memory: is a distinct database
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "ping %s", driver)
	}

	logger.Logger.Debugw("Opened vocabulary database", logger.FieldDriver, driver)
	return New(db, driver), nil
}

// New wraps an already opened database. The driver selects the placeholder dialect.
func New(db *sql.DB, driver string) *Store {
	return &Store{db: db, driver: driver}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ConceptsByIDs(ctx context.Context, ids []int64) ([]conceptset.Concept, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := "SELECT " + conceptColumns + " FROM concept c WHERE c.concept_id IN (" +
		s.placeholders(len(ids)) + ") ORDER BY c.concept_id"
	return s.query(ctx, query, int64Args(ids))
}

func (s *Store) ConceptsByNames(ctx context.Context, names []string) ([]conceptset.Concept, error) {
	if len(names) == 0 {
		return nil, nil
	}
	args := make([]any, len(names))
	for i, name := range names {
		args[i] = name
	}
	query := "SELECT " + conceptColumns + " FROM concept c WHERE c.concept_name IN (" +
		s.placeholders(len(names)) + ") ORDER BY c.concept_id"
	return s.query(ctx, query, args)
}

// Descendants follows concept_ancestor, which lists every concept as its own
// descendant at level zero.
func (s *Store) Descendants(ctx context.Context, ids []int64) ([]conceptset.Concept, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := "SELECT DISTINCT " + conceptColumns + " FROM concept_ancestor ca" +
		" JOIN concept c ON c.concept_id = ca.descendant_concept_id" +
		" WHERE ca.ancestor_concept_id IN (" + s.placeholders(len(ids)) + ") ORDER BY c.concept_id"
	return s.query(ctx, query, int64Args(ids))
}

func (s *Store) query(ctx context.Context, query string, args []any) ([]conceptset.Concept, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query concepts")
	}
	defer rows.Close()

	var concepts []conceptset.Concept
	for rows.Next() {
		var c conceptset.Concept
		var standard sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &c.DomainID, &c.VocabularyID, &c.ConceptClassID,
			&standard, &c.ConceptCode); err != nil {
			return nil, errors.Wrap(err, "scan concept")
		}
		c.StandardConcept = standard.String
		concepts = append(concepts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "read concepts")
	}
	return concepts, nil
}

func (s *Store) placeholders(n int) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		if i > 1 {
			b.WriteString(", ")
		}
		if s.driver == DriverPgx {
			b.WriteString("$" + strconv.Itoa(i))
		} else {
			b.WriteString("?")
		}
	}
	return b.String()
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
