package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/luisargote/vendora-backend/pkg/migrate"
)

func TestSettlementMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_settlement_tables.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no settlement migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS vendor_orders",
		"FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE",
		"CHECK (commission_cents + earnings_cents = subtotal_cents)",
		"CHECK (original_commission_cents + original_earnings_cents = original_subtotal_cents)",
		"CHECK (refunded_cents >= 0 AND refunded_cents <= amount_cents)",
		"DROP TABLE IF EXISTS vendor_orders",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMigrationsDirValidates(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations dir: %v", err)
	}
}
