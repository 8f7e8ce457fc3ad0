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

// Package command defines common helpers for cobra commands.
package command

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/fnrg-nfv/click/pkg/private/serrors"
	"github.com/fnrg-nfv/click/private/config"
)

// Pather returns the path to a command.
type Pather interface {
	CommandPath() string
}

// StringPather implements Pather for a string.
type StringPather string

// CommandPath returns the string.
func (s StringPather) CommandPath() string {
	return string(s)
}

// Join joins the path of the pather with the use string.
func Join(pather Pather, use string) Pather {
	return StringPather(fmt.Sprintf("%s %s", pather.CommandPath(), use))
}

// NewCompletion creates a cobra command to generate the shell completion.
func NewCompletion(pather Pather) *cobra.Command {
	var shell string

	cmd := &cobra.Command{
		Use:   "completion",
		Short: "Generates shell completion",
		Example: fmt.Sprintf(`  %[1]s completion > /usr/share/bash-completion/completions/%[2]s
  %[1]s completion --shell zsh > "${fpath[1]}/_%[2]s"`,
			pather.CommandPath(), "click"),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch shell {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			default:
				return serrors.New("unknown shell", "input", shell)
			}
		},
	}
	cmd.Flags().StringVar(&shell, "shell", "bash", "Shell type (bash|zsh|fish)")
	return cmd
}

// NewVersion creates a cobra command to display version information.
func NewVersion(pather Pather) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			version := "unknown"
			if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
				version = info.Main.Version
			}
			fmt.Fprintf(cmd.OutOrStdout(), "  Version:   %s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "  Go:        %s %s/%s\n",
				runtime.Version(), runtime.GOOS, runtime.GOARCH)
			return nil
		},
	}
}

// NewSample creates a cobra command to generate sample files.
func NewSample(pather Pather, factories ...func(Pather) *cobra.Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Display sample files",
	}
	joined := Join(pather, cmd.Use)
	for _, factory := range factories {
		cmd.AddCommand(factory(joined))
	}
	return cmd
}

// NewSampleConfig creates a cobra command that displays the sample
// configuration file of the given config.
func NewSampleConfig(cfg config.Sampler) func(Pather) *cobra.Command {
	return func(pather Pather) *cobra.Command {
		return &cobra.Command{
			Use:   "config",
			Short: "Display sample configuration file",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg.Sample(os.Stdout, nil, nil)
				return nil
			},
		}
	}
}
