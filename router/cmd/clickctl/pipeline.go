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

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fnrg-nfv/click/pkg/private/serrors"
	"github.com/fnrg-nfv/click/private/app/command"
)

func newPipeline(pather command.Pather) *cobra.Command {
	var c client

	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Show the definition of the running pipeline",
		Args:  cobra.NoArgs,
		Example: fmt.Sprintf(`  %[1]s pipeline
  %[1]s pipeline --api 192.0.2.1:7777`, pather.CommandPath()),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			text, err := c.get(cmd.Context(), "/pipeline")
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), text)
			if !strings.HasSuffix(text, "\n") {
				fmt.Fprintln(cmd.OutOrStdout())
			}
			return nil
		},
	}

	c.register(cmd.Flags())
	return cmd
}

func newHotswap(pather command.Pather) *cobra.Command {
	var c client

	cmd := &cobra.Command{
		Use:   "hotswap <file>",
		Short: "Replace the running pipeline with a new definition",
		Args:  cobra.ExactArgs(1),
		Example: fmt.Sprintf(`  %[1]s hotswap pipeline.click`, pather.CommandPath()),
		Long: `'hotswap' uploads a pipeline definition file and atomically replaces
the running pipeline with it. Elements that keep the same instance name carry
their state over. If the new definition is rejected, the running pipeline
stays in place.
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			raw, err := os.ReadFile(args[0])
			if err != nil {
				return serrors.Wrap("reading pipeline definition", err, "file", args[0])
			}
			if err := c.post(cmd.Context(), "/hotconfig", string(raw)); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Pipeline applied.")
			return nil
		},
	}

	c.register(cmd.Flags())
	return cmd
}
