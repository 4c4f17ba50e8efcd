package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"speciesdesk/pkg/domain"
)

var errInvalidSpecies = errors.New("invalid species found")

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file.json>",
		Short: "Validate species inputs and report field errors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			inputs, err := decodeInputs(data)
			if err != nil {
				return fmt.Errorf("decode %s: %w", args[0], err)
			}
			return checkInputs(cmd.OutOrStdout(), inputs)
		},
	}
}

// decodeInputs accepts either a single object or an array of objects.
func decodeInputs(data []byte) ([]domain.SpeciesInput, error) {
	trimmed := bytes.TrimSpace(data)
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var many []domain.SpeciesInput
		if err := dec.Decode(&many); err != nil {
			return nil, err
		}
		return many, nil
	}
	var one domain.SpeciesInput
	if err := dec.Decode(&one); err != nil {
		return nil, err
	}
	return []domain.SpeciesInput{one}, nil
}

func checkInputs(out io.Writer, inputs []domain.SpeciesInput) error {
	invalid := 0
	for i, in := range inputs {
		payload, errs := domain.ValidateSpecies(in)
		if errs != nil {
			invalid++
			fmt.Fprintf(out, "[%d] %s\n", i, errs.Error())
			continue
		}
		fmt.Fprintf(out, "[%d] ok %s (%s)\n", i, payload.ScientificName, payload.Kingdom)
	}
	if invalid > 0 {
		return fmt.Errorf("%w: %d of %d", errInvalidSpecies, invalid, len(inputs))
	}
	return nil
}
