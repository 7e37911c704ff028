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

// Package logger holds the structured logger shared by all commands.
package logger

import (
	"os"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field names used across log statements.
const (
	FieldConceptSet   = "concept_set"
	FieldConceptSetID = "concept_set_id"
	FieldCount        = "count"
	FieldDefinition   = "definition"
	FieldDriver       = "driver"
	FieldDurationMS   = "duration_ms"
	FieldError        = "error"
	FieldFile         = "file"
	FieldServer       = "server"
	FieldStatus       = "status"
)

// Logger is a no-op logger until Initialize is called.
var Logger = zap.NewNop().Sugar()

// Initialize replaces Logger. Logs go to stderr so they never mix with
// descriptions written to stdout. level is one of zap's level names.
func Initialize(level string, jsonOutput bool) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return errors.WithHint(errors.Wrapf(err, "invalid log level %q", level),
			"use one of debug, info, warn or error")
	}

	var encoder zapcore.Encoder
	if jsonOutput {
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	} else {
		config := zap.NewDevelopmentEncoderConfig()
		config.TimeKey = ""
		encoder = zapcore.NewConsoleEncoder(config)
	}

	Logger = zap.New(zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), lvl)).Sugar()
	return nil
}

// Sync flushes buffered log entries.
func Sync() {
	_ = Logger.Sync()
}
