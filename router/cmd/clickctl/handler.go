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
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fnrg-nfv/click/private/app/command"
)

func newRead(pather command.Pather) *cobra.Command {
	var c client

	cmd := &cobra.Command{
		Use:   "read <element.handler>",
		Short: "Read a handler of a pipeline element",
		Args:  cobra.ExactArgs(1),
		Example: fmt.Sprintf(`  %[1]s read red.avg_queue_size
  %[1]s read q.length --api 192.0.2.1:7777`, pather.CommandPath()),
		RunE: func(cmd *cobra.Command, args []string) error {
			element, handler, err := splitHandler(args[0])
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			value, err := c.get(cmd.Context(), handlerPath(element, handler))
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), value)
			if !strings.HasSuffix(value, "\n") {
				fmt.Fprintln(cmd.OutOrStdout())
			}
			return nil
		},
	}

	c.register(cmd.Flags())
	return cmd
}

func newWrite(pather command.Pather) *cobra.Command {
	var c client

	cmd := &cobra.Command{
		Use:   "write <element.handler> [value]",
		Short: "Write a handler of a pipeline element",
		Args:  cobra.RangeArgs(1, 2),
		Example: fmt.Sprintf(`  %[1]s write red.max_p 0.05
  %[1]s write cnt.reset_counts`, pather.CommandPath()),
		RunE: func(cmd *cobra.Command, args []string) error {
			element, handler, err := splitHandler(args[0])
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			var value string
			if len(args) == 2 {
				value = args[1]
			}
			return c.put(cmd.Context(), handlerPath(element, handler), value)
		},
	}

	c.register(cmd.Flags())
	return cmd
}

func handlerPath(element, handler string) string {
	return fmt.Sprintf("/elements/%s/%s", url.PathEscape(element), url.PathEscape(handler))
}
