// cmd/tools/prompt-registry/main.go
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"opportunity-workers/internal/models"
	"opportunity-workers/internal/synthesis"
	"opportunity-workers/pkg/registry"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var registryPath string

	root := &cobra.Command{
		Use:           "prompt-registry",
		Short:         "Inspect and validate the prompt template registry",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&registryPath, "path", "configs/prompt-registry.json", "Path to registry file")

	root.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate every template in the registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.OutOrStdout(), registryPath)
		},
	})

	var inputPath string
	render := &cobra.Command{
		Use:   "render <prompt-id>",
		Short: "Print the model payload a template produces for an opportunity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := readOpportunity(cmd.InOrStdin(), inputPath)
			if err != nil {
				return err
			}
			return runRender(cmd.OutOrStdout(), registryPath, args[0], in)
		},
	}
	render.Flags().StringVar(&inputPath, "input", "-", "Opportunity JSON file, - for stdin")
	root.AddCommand(render)

	return root
}

func runValidate(w io.Writer, path string) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("load registry: %w", err)
	}
	if err := reg.Validate(); err != nil {
		return fmt.Errorf("registry %s is invalid: %w", path, err)
	}

	fmt.Fprintf(w, "Registry %s is valid (version %s, %d prompts)\n", path, reg.Version, len(reg.Prompts))
	for _, p := range reg.Prompts {
		fmt.Fprintf(w, "  %-24s %-40s placeholders: %s\n", p.ID, p.ModelID, strings.Join(p.Placeholders(), ", "))
	}
	return nil
}

func runRender(w io.Writer, path, promptID string, in models.OpportunityInput) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("load registry: %w", err)
	}
	tmpl, err := reg.Find(promptID)
	if err != nil {
		return err
	}

	payload, err := synthesis.BuildPayload(tmpl, in, synthesis.AnalyzeCharacteristics(in), synthesis.RequestMeta{
		RequestID: uuid.NewString(),
		Timestamp: time.Now(),
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func readOpportunity(stdin io.Reader, path string) (models.OpportunityInput, error) {
	var in models.OpportunityInput

	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return in, err
		}
		defer f.Close()
		r = f
	}

	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return in, fmt.Errorf("decode opportunity: %w", err)
	}
	return in, nil
}
