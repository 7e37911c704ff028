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

package util

import (
	"os"

	"github.com/cockroachdb/errors"
)

var ErrOutputFileExists = errors.New("output file does already exist")

// CreateOutputFile creates the output file at the given filepath and returns
// its handle. Existing files are never overwritten.
//
// Note: The callee has to make sure that the file handle is closed properly.
func CreateOutputFile(filepath string) (*os.File, error) {
	outputFile, err := os.OpenFile(filepath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return nil, errors.WithHint(errors.Wrapf(ErrOutputFileExists, "%s", filepath),
				"remove the file or choose another --output")
		}
		return nil, errors.Wrapf(err, "could not create the output file %s", filepath)
	}
	return outputFile, nil
}
