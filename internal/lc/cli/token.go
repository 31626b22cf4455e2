package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/abdul-hamid-achik/learn.cheap/internal/api"
	"github.com/abdul-hamid-achik/learn.cheap/internal/webhook"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "API token helpers",
}

var tokenMintCmd = &cobra.Command{
	Use:   "mint",
	Short: "Mint a signed API token for local use",
	Long: `Mint an HS256 token signed with JWT_SECRET. Intended for development and
operator use against your own deployment.

Examples:
  lc token mint --user <id>
  lc token mint --user <id> --role admin --ttl 1h --save`,
	Args: cobra.NoArgs,
	RunE: runTokenMint,
}

var (
	tokenUser   string
	tokenRole   string
	tokenTTL    time.Duration
	tokenSecret string
	tokenSave   bool

	secretSave bool
)

var tokenWebhookSecretCmd = &cobra.Command{
	Use:   "webhook-secret",
	Short: "Generate a WEBHOOK_SECRET for enrollment callbacks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		secret, err := webhook.GenerateSecret()
		if err != nil {
			return err
		}
		if secretSave {
			cfg.WebhookSecret = secret
			if err := cfg.Save(); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}
		}
		if jsonOutput {
			return printer.JSON(map[string]string{"secret": secret})
		}
		fmt.Fprintln(cmd.OutOrStdout(), secret)
		return nil
	},
}

func init() {
	tokenCmd.AddCommand(tokenMintCmd)
	tokenCmd.AddCommand(tokenWebhookSecretCmd)

	tokenWebhookSecretCmd.Flags().BoolVar(&secretSave, "save", false, "Store the secret in the config file")

	tokenMintCmd.Flags().StringVar(&tokenUser, "user", "", "User ID (default: random)")
	tokenMintCmd.Flags().StringVar(&tokenRole, "role", api.RoleStudent, "Role claim (student or admin)")
	tokenMintCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "Token lifetime")
	tokenMintCmd.Flags().StringVar(&tokenSecret, "secret", "", "Signing secret (default: JWT_SECRET)")
	tokenMintCmd.Flags().BoolVar(&tokenSave, "save", false, "Store the token in the config file")
}

func runTokenMint(cmd *cobra.Command, args []string) error {
	secret := tokenSecret
	if secret == "" {
		secret = cfg.JWTSecret
	}
	if secret == "" {
		return errors.New("no signing secret: pass --secret or set JWT_SECRET")
	}
	if tokenRole != api.RoleStudent && tokenRole != api.RoleAdmin {
		return fmt.Errorf("--role must be %s or %s", api.RoleStudent, api.RoleAdmin)
	}
	if tokenTTL <= 0 {
		return errors.New("--ttl must be positive")
	}

	userID := uuid.New()
	if tokenUser != "" {
		var err error
		if userID, err = uuid.Parse(tokenUser); err != nil {
			return fmt.Errorf("--user: invalid id %q", tokenUser)
		}
	}

	token, err := api.IssueToken(secret, userID, tokenRole, tokenTTL)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}

	if tokenSave {
		cfg.Token = token
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
	}

	if jsonOutput {
		return printer.JSON(map[string]string{
			"token":     token,
			"userId":    userID.String(),
			"role":      tokenRole,
			"expiresIn": tokenTTL.String(),
		})
	}
	if tokenSave {
		printer.Success("Token saved for user %s (%s)", userID, tokenRole)
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
