// Copyright 2025 Future Networks Research Group
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package command

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
)

// NewGendocs creates a hidden cobra command that writes markdown
// documentation for the whole command tree to a directory.
func NewGendocs(pather Pather) *cobra.Command {
	return &cobra.Command{
		Use:    "gendocs <directory>",
		Short:  "Generate documentation",
		Args:   cobra.ExactArgs(1),
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.Root().DisableAutoGenTag = true

			directory := args[0]
			if err := os.MkdirAll(directory, 0o755); err != nil {
				return fmt.Errorf("creating directory: %w", err)
			}
			if err := doc.GenMarkdownTree(cmd.Root(), directory); err != nil {
				return fmt.Errorf("generating documentation: %w", err)
			}
			return nil
		},
	}
}
