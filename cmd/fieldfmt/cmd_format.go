package main

import (
	"fmt"

	"github.com/CTAG07/fieldfmt/pkg/fieldfmt"
	"github.com/CTAG07/fieldfmt/pkg/templating"
	"github.com/spf13/cobra"
)

// formatOptions holds the flags of the format command.
type formatOptions struct {
	kind     string
	value    string
	location string
	locale   string
	quote    bool
}

func newFormatCmd(root *rootOptions) *cobra.Command {
	opts := &formatOptions{}

	cmd := &cobra.Command{
		Use:   "format [flags] DIRECTIVE",
		Short: "Format one value with a directive",
		Long: `Format reads --value as the given --kind and prints it laid out by DIRECTIVE.

Kinds: opaque (default), number, timestamp, datetime, date, zoned, time.`,
		Example: `  fieldfmt format --kind number --value 2.5 "l=10&t=_&a=1&f=0.00"
  fieldfmt format --kind timestamp --value 1527159959 --location UTC "l=16&t=_&a=2&f=yyyyMMddHHmmss"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := formatValue(opts, args[0])
			if err != nil {
				return err
			}
			root.logger.Debug("Formatted value", "kind", opts.kind, "directive", args[0])
			if opts.quote {
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%q\n", result)
			} else {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), result)
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&opts.kind, "kind", "k", "opaque", "how --value is read")
	cmd.Flags().StringVar(&opts.value, "value", "", "the raw value to format")
	cmd.Flags().StringVar(&opts.location, "location", "Local", "IANA zone timestamps are rendered in")
	cmd.Flags().StringVar(&opts.locale, "locale", "", "BCP 47 locale for number symbols")
	cmd.Flags().BoolVarP(&opts.quote, "quote", "q", false, "print the result as a quoted Go string so padding is visible")
	return cmd
}

func formatValue(opts *formatOptions, directive string) (string, error) {
	kind, err := fieldfmt.ParseKind(opts.kind)
	if err != nil {
		return "", err
	}
	value, err := fieldfmt.Coerce(kind, opts.value)
	if err != nil {
		return "", err
	}

	config := templating.TemplateConfig{Location: opts.location, Locale: opts.locale}
	formatterOpts, err := config.FormatterOptions()
	if err != nil {
		return "", err
	}
	return fieldfmt.New(formatterOpts...).Format(value, directive)
}
