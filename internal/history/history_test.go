package history

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contract_approval/backend/internal/models"
)

func TestExtractCustomerName(t *testing.T) {
	cases := []struct {
		name string
		text string
		want string
	}{
		{
			name: "purchaser label with legal suffix",
			text: "SUPPLY CONTRACT\nPURCHASER: Nordic   Paper Mills Oy, Business ID 123\nSUPPLIER: Valmet",
			want: "Nordic Paper Mills Oy",
		},
		{
			name: "abbreviated suffix keeps its dot",
			text: "PURCHASER: Foo Ltd. Helsinki\n",
			want: "Foo Ltd.",
		},
		{
			name: "label in lower case",
			text: "purchaser - Acme Industries GmbH\n",
			want: "Acme Industries GmbH",
		},
		{
			name: "customer label",
			text: "Order form\nCustomer: Baltic Timber AB\nDate: 2024-05-01",
			want: "Baltic Timber AB",
		},
		{
			name: "buyer label",
			text: "Buyer: Kemi Energy, represented by ...",
			want: "Kemi Energy",
		},
		{
			name: "between supplier and",
			text: "This agreement is made between the SUPPLIER and Lapland Pulp Ltd, hereinafter",
			want: "Lapland Pulp Ltd",
		},
		{
			name: "parenthetical purchaser",
			text: "delivered to Acme Oy (purchaser) at its mill",
			want: "Acme Oy",
		},
		{
			name: "reserved token skipped for next candidate",
			text: "Customer: SUPPLIER\nCustomer: Real Customer Oy\n",
			want: "Real Customer Oy",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ExtractCustomerName(tc.text)
			require.True(t, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestExtractCustomerNamePriority(t *testing.T) {
	text := "Customer: Second Choice Ltd\nPURCHASER: First Choice Oy\n"
	got, ok := ExtractCustomerName(text)
	require.True(t, ok)
	assert.Equal(t, "First Choice Oy", got)
}

func TestExtractCustomerNameNoMatch(t *testing.T) {
	for _, text := range []string{
		"",
		"The invoices are due for payment 120 days net.",
		"This contract is made between SUPPLIER and Vendor",
		"Customer: contractor",
	} {
		got, ok := ExtractCustomerName(text)
		assert.False(t, ok, text)
		assert.Empty(t, got, text)
	}
}

func TestNamePatternsIndividually(t *testing.T) {
	samples := map[string]string{
		"purchaser_label_legal_suffix": "PURCHASER Acme Oy",
		"customer_or_buyer_label":      "Customer: Acme",
		"between_supplier_and":         "between SUPPLIER and Acme",
		"purchaser_parenthetical":      "Acme (the purchaser)",
	}
	for _, p := range NamePatterns {
		sample, ok := samples[p.Name]
		require.True(t, ok, p.Name)
		m := p.Re.FindStringSubmatch(sample)
		require.Len(t, m, 2, p.Name)
		assert.Contains(t, m[1], "Acme", p.Name)
	}
}

func acmeLedger() []models.PastContract {
	return []models.PastContract{
		{Purchaser: "Acme Oy", CustomerNegotiationRounds: 3, AcceptedDeviations: []models.AcceptedDeviation{
			{Condition: "Payment term longer than 90 days net"},
		}},
		{Purchaser: "Other Ltd", CustomerNegotiationRounds: 9, AcceptedDeviations: []models.AcceptedDeviation{
			{Condition: "Liability cap above 100%"},
		}},
		{Purchaser: "ACME OY", CustomerNegotiationRounds: 5},
		{Purchaser: "acme oy", CustomerNegotiationRounds: 4, AcceptedDeviations: []models.AcceptedDeviation{
			{Condition: "Liquidated damages above 10%"},
			{Condition: "Payment term longer than 90 days net"},
		}},
	}
}

func TestSummarizeAggregates(t *testing.T) {
	h := Summarize("Acme Oy", acmeLedger())
	assert.True(t, h.HasHistory)
	assert.Equal(t, 3, h.TotalContracts)
	assert.Equal(t, 3, h.TotalAcceptedDeviations)
	assert.Equal(t, 2, h.ContractsWithDeviations)
	assert.Equal(t, 4.0, h.AvgNegotiationRounds)
	assert.Equal(t, []string{
		"Payment term longer than 90 days net",
		"Liquidated damages above 10%",
		"Payment term longer than 90 days net",
	}, h.AcceptedDeviationTypes)
}

func TestSummarizeRoundsToOneDecimal(t *testing.T) {
	ledger := []models.PastContract{
		{Purchaser: "Acme Oy", CustomerNegotiationRounds: 6},
		{Purchaser: "Acme Oy", CustomerNegotiationRounds: 6},
		{Purchaser: "Acme Oy", CustomerNegotiationRounds: 7},
	}
	h := Summarize("Acme Oy", ledger)
	assert.Equal(t, 6.3, h.AvgNegotiationRounds)
	assert.Equal(t, 0, h.TotalAcceptedDeviations)
	assert.Equal(t, 0.0, h.AcceptanceShare())
}

func TestSummarizeNoHistory(t *testing.T) {
	h := Summarize("Unknown Oy", acmeLedger())
	assert.False(t, h.HasHistory)
	assert.Equal(t, 0, h.TotalContracts)
	assert.Equal(t, 0.0, h.AvgNegotiationRounds)
	assert.Empty(t, h.AcceptedDeviationTypes)

	h = Summarize("", acmeLedger())
	assert.False(t, h.HasHistory)
}

func TestLoadLedgerDegradesToEmpty(t *testing.T) {
	dir := t.TempDir()
	assert.Empty(t, LoadLedger(filepath.Join(dir, "missing.json"), zerolog.Nop()))

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{nope"), 0o600))
	assert.Empty(t, LoadLedger(bad, zerolog.Nop()))

	good := filepath.Join(dir, "ledger.json")
	require.NoError(t, os.WriteFile(good, []byte(`[
		{"purchaser": "Acme Oy", "customer_negotiation_rounds": 2,
		 "accepted_deviations": [{"condition": "Payment term longer than 90 days net", "approved_by": "CEO"}]}
	]`), 0o600))
	ledger := LoadLedger(good, zerolog.Nop())
	require.Len(t, ledger, 1)
	assert.Equal(t, 2, ledger[0].CustomerNegotiationRounds)
	assert.Equal(t, "Payment term longer than 90 days net", ledger[0].AcceptedDeviations[0].Condition)
}

func TestContextBlock(t *testing.T) {
	assert.Contains(t, ContextBlock(models.CustomerHistory{}), "could not be identified")
	assert.Contains(t, ContextBlock(models.CustomerHistory{CustomerName: "New Oy"}), "No previous contracts")

	block := ContextBlock(Summarize("Acme Oy", acmeLedger()))
	assert.Contains(t, block, "Previous contracts: 3")
	assert.Contains(t, block, "Contracts with accepted deviations: 2 (67%)")
	assert.Contains(t, block, "Average negotiation rounds: 4.0")
}
