package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/cloudfly/dian-service/internal/domain/document"
	"github.com/cloudfly/dian-service/internal/infrastructure/codec"
)

var (
	fingerprintFile         string
	fingerprintNumber       string
	fingerprintTechnicalKey string
	fingerprintEnvironment  string
)

type fingerprintOutput struct {
	DocumentType string `json:"documentType"`
	Number       string `json:"number"`
	Fingerprint  string `json:"fingerprint"`
	Fallback     bool   `json:"fallback,omitempty"`
}

var fingerprintCmd = &cobra.Command{
	Use:   "fingerprint",
	Short: "Compute the CUFE or CUNE of an event",
	Long: `Compute the fingerprint of the document an event would produce.
Invoices and notes need the technical key of their numbering range. The
number defaults to the one carried by the payload. --environment supplies
the ambient when the payload carries none, as the operation mode would.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		event, err := readEvent(fingerprintFile)
		if err != nil {
			return err
		}
		g := codec.NewGenerator(codec.WithLogger(log))

		out := fingerprintOutput{DocumentType: event.DocumentType.String()}
		switch event.DocumentType.Category() {
		case document.CategoryInvoice:
			out.Number = fingerprintNumber
			if out.Number == "" {
				out.Number = event.Invoice.DocumentNumber()
			}
			if out.Number == "" {
				return errors.New("--number is required when the payload carries no invoice number")
			}
			fields := codec.NewInvoiceFingerprintFields(event.Invoice, &document.NumberingRange{TechnicalKey: fingerprintTechnicalKey}, out.Number)
			if fields.EnvironmentFlag == "" && fingerprintEnvironment != "" {
				fields.EnvironmentFlag = codec.AmbientCode(document.ParseEnvironment(fingerprintEnvironment))
			}
			out.Fingerprint, out.Fallback = g.InvoiceFingerprint(fields)
		case document.CategoryPayroll:
			out.Number = fingerprintNumber
			if out.Number == "" {
				out.Number = event.Payroll.DocumentNumber()
			}
			out.Fingerprint, out.Fallback = g.PayrollFingerprint(codec.NewPayrollFingerprintFields(event.Payroll, out.Number))
		}
		return printJSON(out)
	},
}

func init() {
	rootCmd.AddCommand(fingerprintCmd)
	fingerprintCmd.Flags().StringVarP(&fingerprintFile, "file", "f", "", "Event JSON file")
	fingerprintCmd.Flags().StringVar(&fingerprintNumber, "number", "", "Document number (prefix and sequence)")
	fingerprintCmd.Flags().StringVar(&fingerprintTechnicalKey, "technical-key", "", "Technical key of the numbering range")
	fingerprintCmd.Flags().StringVar(&fingerprintEnvironment, "environment", "", "TEST or PRODUCTION when the payload has no ambient")
	_ = fingerprintCmd.MarkFlagRequired("file")
}
