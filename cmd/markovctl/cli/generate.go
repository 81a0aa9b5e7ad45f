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

package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	var tenant, seed string
	var maxLen int

	cmd := &cobra.Command{
		Use:           "generate",
		Short:         "Generate a token sequence from a tenant's chain",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(rootOpts, tenant, seed, maxLen)
		},
	}

	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant id (required)")
	cmd.Flags().StringVar(&seed, "seed", "", "seed tokens, space-separated")
	cmd.Flags().IntVar(&maxLen, "max-len", 40, "maximum tokens to generate")
	cmd.MarkFlagRequired("tenant")

	return cmd
}

func runGenerate(rootOpts *RootOptions, tenant, seed string, maxLen int) error {
	eng, cfg, _, err := buildEngine(rootOpts)
	if err != nil {
		return err
	}
	defer closeEngine(eng, time.Duration(cfg.GracefulShutdownMs)*time.Millisecond)

	var seedTokens []string
	if seed != "" {
		seedTokens = strings.Fields(seed)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tokens, err := eng.Generate(ctx, tenant, seedTokens, maxLen)
	if err != nil {
		return fmt.Errorf("markovctl: generate: %w", err)
	}
	fmt.Println(strings.Join(tokens, " "))
	return nil
}
