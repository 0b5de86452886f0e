package commands

import (
	"fmt"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/gregLibert/emvtap/pkg/emv"
)

var aidPattern = regexp.MustCompile(`(?i)^A0[0-9A-F]{8,30}$`)

func classifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <pan-or-aid>",
		Short: "Guess the brand of a PAN or AID and check its Luhn digit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			input := args[0]

			if aidPattern.MatchString(input) {
				fmt.Fprintf(out, "AID:   %s\n", input)
				fmt.Fprintf(out, "Brand: %s\n", emv.ClassifyByAID(input))
				return nil
			}

			pan := emv.NormalizePAN(input)
			if len(pan) == 0 {
				return fmt.Errorf("empty PAN")
			}

			luhn := "invalid"
			if emv.LuhnValid(pan) {
				luhn = "valid"
			}

			fmt.Fprintf(out, "PAN:   %s\n", emv.FormatPAN(pan))
			fmt.Fprintf(out, "Brand: %s\n", emv.ClassifyByPAN(pan))
			fmt.Fprintf(out, "Luhn:  %s\n", luhn)
			if !emv.ValidPAN(pan) {
				fmt.Fprintf(out, "Note:  not a valid PAN (%d-%d digits with a correct check digit)\n", emv.MinPANLength, emv.MaxPANLength)
			}
			return nil
		},
	}
}
