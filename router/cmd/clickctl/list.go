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
	"encoding/json"
	"fmt"
	"io"
	"net/url"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/fnrg-nfv/click/pkg/private/serrors"
	"github.com/fnrg-nfv/click/private/app/command"
	"github.com/fnrg-nfv/click/router/api"
)

func newList(pather command.Pather) *cobra.Command {
	var c client
	var flags struct {
		format  string
		noColor bool
	}

	cmd := &cobra.Command{
		Use:     "list [element]",
		Short:   "List the elements of the running pipeline",
		Args:    cobra.MaximumNArgs(1),
		Example: fmt.Sprintf(`  %[1]s list
  %[1]s list red --api 192.0.2.1:7777
  %[1]s list --format json`, pather.CommandPath()),
		Long: `'list' shows the elements of the pipeline the router is currently
running. With an element name as argument, the element's configuration and
its handlers are shown.
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch flags.format {
			case "human", "json":
			default:
				return serrors.New("output format not supported", "format", flags.format)
			}
			cmd.SilenceUsage = true

			if len(args) == 1 {
				body, err := c.get(cmd.Context(), "/elements/"+url.PathEscape(args[0]))
				if err != nil {
					return err
				}
				var element api.Element
				if err := json.Unmarshal([]byte(body), &element); err != nil {
					return serrors.Wrap("decoding response", err)
				}
				if flags.format == "json" {
					return writeJSON(cmd.OutOrStdout(), element)
				}
				renderElement(cmd.OutOrStdout(), element, !flags.noColor)
				return nil
			}

			body, err := c.get(cmd.Context(), "/elements")
			if err != nil {
				return err
			}
			var elements []api.Element
			if err := json.Unmarshal([]byte(body), &elements); err != nil {
				return serrors.Wrap("decoding response", err)
			}
			if flags.format == "json" {
				return writeJSON(cmd.OutOrStdout(), elements)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d elements:\n", len(elements))
			renderElements(cmd.OutOrStdout(), elements)
			return nil
		},
	}

	c.register(cmd.Flags())
	cmd.Flags().StringVar(&flags.format, "format", "human",
		"Specify the output format (human|json)")
	cmd.Flags().BoolVar(&flags.noColor, "no-color", false, "disable colored output")
	return cmd
}

func renderElements(w io.Writer, elements []api.Element) {
	table := newTable(w)
	table.SetHeader([]string{"NAME", "CLASS", "PORTS", "CONFIG"})
	for _, el := range elements {
		table.Append([]string{
			el.Name,
			el.Class,
			fmt.Sprintf("%d/%d", el.Inputs, el.Outputs),
			el.Config,
		})
	}
	table.Render()
}

func renderElement(w io.Writer, el api.Element, colored bool) {
	keys := color.New()
	if colored {
		keys = color.New(color.FgHiCyan)
	}
	fmt.Fprintf(w, "%s %s\n", keys.Sprint("Name:"), el.Name)
	fmt.Fprintf(w, "%s %s\n", keys.Sprint("Class:"), el.Class)
	if el.Config != "" {
		fmt.Fprintf(w, "%s %s\n", keys.Sprint("Config:"), el.Config)
	}
	fmt.Fprintf(w, "%s %d/%d\n", keys.Sprint("Ports:"), el.Inputs, el.Outputs)
	fmt.Fprintln(w)
	table := newTable(w)
	table.SetHeader([]string{"HANDLER", "MODE"})
	for _, h := range el.Handlers {
		table.Append([]string{h.Name, h.Mode})
	}
	table.Render()
}

func newTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetHeaderLine(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
