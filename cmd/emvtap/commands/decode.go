package commands

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gregLibert/emvtap/pkg/emv"
	"github.com/gregLibert/emvtap/pkg/tlv"
)

// PAN-bearing tags are masked in dumps.
var panTags = map[string]bool{"5A": true, "57": true}

func decodeCmd() *cobra.Command {
	var (
		nested   bool
		template string
		tag      string
	)

	cmd := &cobra.Command{
		Use:   "decode <hex>...",
		Short: "Decode a BER-TLV hex dump",
		Long: "Decode a BER-TLV hex dump. Arguments are joined and spaces ignored.\n" +
			"With --template the data is parsed as an EMV structure: fci, ppse, record or gpo.\n" +
			"With --tag only the value of that tag is printed, searched through every template.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := tlv.DecodeHex(strings.ReplaceAll(strings.Join(args, ""), " ", ""))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if tag != "" {
				value, err := tlv.GetValue(data, tag)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, displayValue(strings.ToUpper(tag), tlv.EncodeHex(value)))
				return nil
			}

			switch template {
			case "":
				if nested {
					return dumpNested(out, data)
				}
				return dumpFlat(out, data)
			case "fci", "ppse":
				fci, err := emv.ParseFCI(data)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, fci.Describe())
				for i, app := range fci.Applications() {
					fmt.Fprintf(out, "candidate %d: %s (%s)\n", i+1, app.AIDHex(), emv.ClassifyByAID(app.AIDHex()))
				}
			case "record":
				rec, err := emv.ParseRecord(data)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, rec.Describe())
			case "gpo":
				po, err := emv.ParseProcessingOptions(data)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, po.Describe())
			default:
				return fmt.Errorf("unknown template %q (want fci, ppse, record or gpo)", template)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&nested, "nested", false, "expand constructed templates")
	cmd.Flags().StringVarP(&template, "template", "t", "", "parse as fci, ppse, record or gpo")
	cmd.Flags().StringVar(&tag, "tag", "", "print only the value of this tag (e.g. 4F, 5F24)")
	return cmd
}

func dumpFlat(w io.Writer, data []byte) error {
	fields, err := tlv.Scan(data)
	if err != nil {
		return err
	}
	for _, f := range fields {
		kind := "primitive"
		if f.Constructed() {
			kind = "constructed"
		}
		fmt.Fprintf(w, "%-4s %-11s %s\n", f.Tag, kind, displayValue(f.Tag, tlv.EncodeHex(f.Value)))
	}
	return nil
}

func dumpNested(w io.Writer, data []byte) error {
	m, err := tlv.DecodeNested(data)
	if err != nil {
		return err
	}
	tags := make([]string, 0, len(m))
	for tag := range m {
		tags = append(tags, tag)
	}
	slices.Sort(tags)

	// Template content is already listed through its children.
	for _, tag := range tags {
		if (tlv.Field{Tag: tag}).Constructed() {
			fmt.Fprintf(w, "%-4s constructed (%d bytes)\n", tag, len(m[tag])/2)
			continue
		}
		fmt.Fprintf(w, "%-4s %s\n", tag, displayValue(tag, m[tag]))
	}
	return nil
}

func displayValue(tag, value string) string {
	if panTags[tag] {
		return tlv.MaskPAN(value)
	}
	return value
}
