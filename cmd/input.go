package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/CodeMonkeyCybersecurity/verdict/pkg/types"
	"github.com/CodeMonkeyCybersecurity/verdict/pkg/validation"
)

// readInput returns the contents of path, or of stdin when path is "-"
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("an input file is required (-f, use - for stdin)")
	}
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

// decode parses JSON for .json files and YAML for everything else
func decode(path string, data []byte, out interface{}) error {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(out); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		return nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		if err == io.EOF {
			return fmt.Errorf("failed to parse %s: empty document", path)
		}
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// parseRequest accepts either a full request document (finding plus
// experiments) or a bare finding.
func parseRequest(path string, data []byte) (validation.PipelineRequest, error) {
	var keys map[string]interface{}
	if err := yaml.Unmarshal(data, &keys); err != nil {
		return validation.PipelineRequest{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	var req validation.PipelineRequest
	if _, ok := keys["finding"]; ok {
		err := decode(path, data, &req)
		return req, err
	}

	err := decode(path, data, &req.Finding)
	return req, err
}

func loadRequest(cmd *cobra.Command, path string) (validation.PipelineRequest, error) {
	data, err := readInput(cmd, path)
	if err != nil {
		return validation.PipelineRequest{}, err
	}
	return parseRequest(path, data)
}

func loadBatch(cmd *cobra.Command, path string) ([]validation.PipelineRequest, error) {
	data, err := readInput(cmd, path)
	if err != nil {
		return nil, err
	}
	var reqs []validation.PipelineRequest
	if err := decode(path, data, &reqs); err != nil {
		return nil, err
	}
	return reqs, nil
}

func loadInputs(cmd *cobra.Command, path string) (types.ValidationInputs, error) {
	var inputs types.ValidationInputs
	data, err := readInput(cmd, path)
	if err != nil {
		return inputs, err
	}
	err = decode(path, data, &inputs)
	return inputs, err
}

// render writes v in the format chosen by --output. text is used for the
// default human-readable format.
func render(cmd *cobra.Command, v interface{}, text func(w io.Writer)) error {
	format, _ := cmd.Flags().GetString("output")
	w := cmd.OutOrStdout()

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "text", "":
		text(w)
		return nil
	default:
		return fmt.Errorf("unknown output format %q (text, json, yaml)", format)
	}
}
