// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"io"

	"github.com/awslabs/ar-go-vprep/analysis/config"
	"github.com/awslabs/ar-go-vprep/analysis/pipeline"
	"github.com/awslabs/ar-go-vprep/cmd/vprep/tools"
	"github.com/awslabs/ar-go-vprep/internal/formatutil"
	"github.com/awslabs/ar-go-vprep/internal/funcutil"
	"github.com/spf13/cobra"
)

var passesConfig string

var passesCmd = &cobra.Command{
	Use:   "passes",
	Short: "List the passes",
	Long: `Lists the passes that can appear in a pipeline. With a config file, prints the passes run by the config
in order, with the policy options applied.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if passesConfig == "" {
			printPasses(cmd.OutOrStdout())
			return nil
		}
		cfg, err := tools.LoadConfig(passesConfig)
		if err != nil {
			return err
		}
		printPipeline(cmd.OutOrStdout(), cfg)
		return nil
	},
}

func init() {
	passesCmd.Flags().StringVarP(&passesConfig, "config", "c", "", "config file path")
}

func printPasses(w io.Writer) {
	for _, name := range config.KnownPasses {
		mark := " "
		if funcutil.Contains(config.DefaultPipeline, name) {
			mark = formatutil.Green("*")
		}
		fmt.Fprintf(w, "%s %-26s %s\n", mark, name, pipeline.Descriptions[name])
	}
	fmt.Fprintf(w, "\n%s passes run by default\n", formatutil.Green("*"))
}

func printPipeline(w io.Writer, cfg *config.Config) {
	for k, name := range cfg.Passes() {
		fmt.Fprintf(w, "%2d. %-26s %s\n", k+1, name, formatutil.Faint(pipeline.Descriptions[name]))
	}
}
