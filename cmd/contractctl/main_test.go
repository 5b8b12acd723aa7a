package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestPolicyCommand(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("POLICY_FILE", writeFile(t, dir, "policy.json",
		`[{"Category": "Liability", "Condition": "Total liability cap above 100% of contract price", "Approval_Matrix": {"BA President": "Approves/Decides"}}]`))

	cmd := policyCMD()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--format", "compact"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out.String(), "1. [Liability] IF Total liability cap above 100% of contract price THEN REQUIRE: BA President(Approves/Decides)") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
}

func TestCustomerCommand(t *testing.T) {
	dir := t.TempDir()
	ledger := writeFile(t, dir, "ledger.json", `[
		{"purchaser": "Acme Oy", "accepted_deviations": [{"condition": "Payment term longer than 90 days net"}], "customer_negotiation_rounds": 2},
		{"purchaser": "Acme Oy", "accepted_deviations": [], "customer_negotiation_rounds": 4}
	]`)

	cmd := customerCMD()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader("SUPPLY CONTRACT\nPURCHASER: Acme Oy\n"))
	cmd.SetArgs([]string{"--ledger", ledger})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	for _, want := range []string{"Customer: Acme Oy", "Previous contracts: 2", "Average negotiation rounds: 3.0"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("expected %q in:\n%s", want, out.String())
		}
	}
}

func TestMigrateRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	cmd := migrateCMD()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected an error without DATABASE_URL")
	}
}
