package main

import (
	"encoding/json"
	"io"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
)

const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

type outputOpts struct {
	output string
}

func AddOutputFlags(cmd *cobra.Command, opts *outputOpts) {
	cmd.Flags().StringVarP(&opts.output, "output", "o", outputText, "(text|json|yaml) whether to summarise in text, or output in JSON or YAML")
}

func (opts outputOpts) validate() error {
	switch opts.output {
	case outputText, outputJSON, outputYAML:
		return nil
	}
	return errorInvalidOutputFormat
}

// write outputs v as JSON or YAML, or calls text for the text format.
func (opts outputOpts) write(out io.Writer, v interface{}, text func(io.Writer)) error {
	var bytes []byte
	var err error
	switch opts.output {
	case outputJSON:
		bytes, err = json.MarshalIndent(v, "", "  ")
		bytes = append(bytes, '\n')
	case outputYAML:
		bytes, err = yaml.Marshal(v)
	default:
		text(out)
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "marshalling to output format "+opts.output)
	}
	_, err = out.Write(bytes)
	return err
}

func newTabwriter(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
}
