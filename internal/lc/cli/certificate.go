package cli

import (
	"errors"
	"fmt"

	"github.com/abdul-hamid-achik/learn.cheap/internal/lc/client"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var certificateCmd = &cobra.Command{
	Use:   "certificate",
	Short: "Certificate operations",
}

var certificateIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Queue certificate generation for a completed enrollment",
	Long: `Send a signed enrollment-completed webhook so the worker generates the
certificate. Repeating the call for the same enrollment is safe: the worker
returns the existing certificate.

Examples:
  lc certificate issue --enrollment <id> --user <id> --course <id>`,
	Args: cobra.NoArgs,
	RunE: runCertificateIssue,
}

var (
	certEnrollment string
	certUser       string
	certCourse     string
	certSecret     string
)

func init() {
	certificateCmd.AddCommand(certificateIssueCmd)

	certificateIssueCmd.Flags().StringVar(&certEnrollment, "enrollment", "", "Enrollment ID (required)")
	certificateIssueCmd.Flags().StringVar(&certUser, "user", "", "Student user ID (required)")
	certificateIssueCmd.Flags().StringVar(&certCourse, "course", "", "Course ID (required)")
	certificateIssueCmd.Flags().StringVar(&certSecret, "secret", "", "Webhook secret (default: config webhook_secret)")
	_ = certificateIssueCmd.MarkFlagRequired("enrollment")
	_ = certificateIssueCmd.MarkFlagRequired("user")
	_ = certificateIssueCmd.MarkFlagRequired("course")
}

func runCertificateIssue(cmd *cobra.Command, args []string) error {
	secret := certSecret
	if secret == "" {
		secret = cfg.WebhookSecret
	}
	if secret == "" {
		return errors.New("no webhook secret: pass --secret or set LC_WEBHOOK_SECRET")
	}

	for name, v := range map[string]string{"enrollment": certEnrollment, "user": certUser, "course": certCourse} {
		if _, err := uuid.Parse(v); err != nil {
			return fmt.Errorf("--%s: invalid id %q", name, v)
		}
	}

	resp, err := apiClient.EnrollmentCompleted(commandContext(cmd), secret, client.EnrollmentCompleted{
		EnrollmentID: certEnrollment,
		UserID:       certUser,
		CourseID:     certCourse,
	})
	if err != nil {
		return err
	}

	if jsonOutput {
		return printer.JSON(resp)
	}
	printer.Success("Certificate generation queued")
	printer.KeyValue("Enrollment", resp.EnrollmentID)
	printer.KeyValue("Job", resp.JobID)
	return nil
}
