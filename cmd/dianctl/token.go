package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cloudfly/dian-service/internal/infrastructure/auth"
	"github.com/cloudfly/dian-service/internal/infrastructure/config"
)

var (
	tokenSecret string
	tokenIssuer string
	tokenTenant int64
	tokenUser   string
	tokenTTL    time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for the query API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if tokenTenant <= 0 {
			return errors.New("--tenant must be positive")
		}
		svc := auth.NewJWTService(config.JWTConfig{Secret: tokenSecret, Issuer: tokenIssuer})
		token, err := svc.IssueToken(tokenTenant, tokenUser, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().StringVar(&tokenSecret, "secret", "", "HMAC secret shared with the service")
	tokenCmd.Flags().StringVar(&tokenIssuer, "issuer", "", "Token issuer")
	tokenCmd.Flags().Int64Var(&tokenTenant, "tenant", 0, "Tenant id claim")
	tokenCmd.Flags().StringVar(&tokenUser, "user", "dianctl", "Subject of the token")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "Token lifetime")
	_ = tokenCmd.MarkFlagRequired("secret")
}
