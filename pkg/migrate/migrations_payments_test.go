package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPaymentAttemptsMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_payment_attempts.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no payment attempts migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS payment_attempts",
		"stripe_session_id VARCHAR(255) NOT NULL UNIQUE",
		"FOREIGN KEY (contribution_id) REFERENCES contributions(id) ON DELETE CASCADE",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_payment_attempts_open_contribution",
		"WHERE status IN ('pending', 'processing')",
		"DROP TABLE IF EXISTS payment_attempts",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestWebhookReceiptsMigrationContainsDedupConstraint(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_webhook_receipts.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no webhook receipts migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS webhook_receipts",
		"stripe_event_id VARCHAR(255) NOT NULL UNIQUE",
		"payload JSONB NOT NULL",
		"DROP TABLE IF EXISTS webhook_receipts",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}
