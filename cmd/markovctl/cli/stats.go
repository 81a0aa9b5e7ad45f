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
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func newStatsCommand(rootOpts *RootOptions) *cobra.Command {
	var tenant string

	cmd := &cobra.Command{
		Use:           "stats",
		Short:         "Print a tenant's chain statistics as JSON",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(rootOpts, tenant)
		},
	}

	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant id (required)")
	cmd.MarkFlagRequired("tenant")

	return cmd
}

func runStats(rootOpts *RootOptions, tenant string) error {
	eng, cfg, _, err := buildEngine(rootOpts)
	if err != nil {
		return err
	}
	defer closeEngine(eng, time.Duration(cfg.GracefulShutdownMs)*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stats, err := eng.Stats(ctx, tenant)
	if err != nil {
		return fmt.Errorf("markovctl: stats: %w", err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}
