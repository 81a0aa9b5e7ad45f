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
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"markov/train"
)

func newImportCommand(rootOpts *RootOptions) *cobra.Command {
	var tenant string
	var file string
	var clear bool

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Bulk-train a tenant's chain from a JSON records file",
		Long: `import reads an array of {"message": string, "attachments"?: string[]}
objects from --file (or stdin, when --file is omitted) and trains the
named tenant's chain from it. --clear wipes the tenant's existing chain
first, for a from-scratch reimport.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(rootOpts, tenant, file, clear)
		},
	}

	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant id (required)")
	cmd.Flags().StringVar(&file, "file", "", "path to a JSON records file (default: stdin)")
	cmd.Flags().BoolVar(&clear, "clear", false, "clear the tenant's existing chain before importing")
	cmd.MarkFlagRequired("tenant")

	return cmd
}

func runImport(rootOpts *RootOptions, tenant, file string, clearExisting bool) error {
	eng, cfg, logger, err := buildEngine(rootOpts)
	if err != nil {
		return err
	}
	defer closeEngine(eng, time.Duration(cfg.GracefulShutdownMs)*time.Millisecond)

	var r io.ReadCloser = os.Stdin
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return fmt.Errorf("markovctl: open %s: %w", file, err)
		}
		r = f
	}
	defer r.Close()

	src := train.NewJSONArraySource(r)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	result, err := eng.Train(ctx, tenant, src, clearExisting)
	if err != nil {
		return fmt.Errorf("markovctl: import: %w", err)
	}
	logger.Info("import complete",
		"tenant", tenant,
		"records", result.RecordsConsumed,
		"batches", result.BatchesSubmitted,
		"tokens", result.TokensSeen)
	return nil
}
