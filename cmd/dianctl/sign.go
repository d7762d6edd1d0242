package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloudfly/dian-service/internal/infrastructure/signer"
)

var (
	signFile       string
	signCredential string
	signPassword   string
	verifyFile     string
)

var signCmd = &cobra.Command{
	Use:   "sign",
	Short: "Sign an XML document with a PKCS#12 credential",
	Long:  `Sign an XML document with an enveloped XML-DSig signature and write the result to stdout.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(signFile)
		if err != nil {
			return err
		}
		s := signer.New(log)
		if err := s.Initialize(); err != nil {
			return err
		}
		signed, err := s.Sign(data, signCredential, signPassword)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(signed)
		return err
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the signature of a signed document",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(verifyFile)
		if err != nil {
			return err
		}
		count, err := signer.CountSignatures(data)
		if err != nil {
			return err
		}
		if count != 1 {
			return fmt.Errorf("expected exactly one signature, found %d", count)
		}
		cert, err := signer.Verify(data)
		if err != nil {
			return err
		}
		return printJSON(map[string]any{
			"valid":     true,
			"subject":   cert.Subject.String(),
			"issuer":    cert.Issuer.String(),
			"notBefore": cert.NotBefore,
			"notAfter":  cert.NotAfter,
		})
	},
}

func init() {
	rootCmd.AddCommand(signCmd, verifyCmd)

	signCmd.Flags().StringVarP(&signFile, "file", "f", "", "Unsigned XML file")
	signCmd.Flags().StringVar(&signCredential, "credential", "", "PKCS#12 credential file")
	signCmd.Flags().StringVar(&signPassword, "password", "", "Credential password")
	_ = signCmd.MarkFlagRequired("file")
	_ = signCmd.MarkFlagRequired("credential")

	verifyCmd.Flags().StringVarP(&verifyFile, "file", "f", "", "Signed XML file")
	_ = verifyCmd.MarkFlagRequired("file")
}
