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

// Package cli implements markovctl's cobra command tree: import, generate,
// stats, and serve, all sharing one Engine constructed from --config.
package cli

import (
	"github.com/spf13/cobra"
)

// RootOptions holds flags shared by every subcommand.
type RootOptions struct {
	ConfigPath string
	Verbose    bool
}

// NewRootCommand builds the markovctl command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "markovctl",
		Short: "markovctl operates the per-tenant Markov chain generation engine",
		Long:  "markovctl is the operator CLI for the generation engine: bulk imports, ad-hoc generations, stats, and the demo server.",
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to a JSON config file")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose logging")

	cmd.AddCommand(newImportCommand(opts))
	cmd.AddCommand(newGenerateCommand(opts))
	cmd.AddCommand(newStatsCommand(opts))
	cmd.AddCommand(newServeCommand(opts))

	return cmd
}
