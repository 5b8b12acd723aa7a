package history

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/contract_approval/backend/internal/models"
)

const (
	legalSuffix = `(?i:Oyj|Oy|Ltd|Limited|Inc|Corp|Corporation|GmbH|AB|A/S|AS|LLC|PLC|BV|SA)`
	nameWord    = `[A-Z][\w&.'\-]*`
)

// NamePattern is one customer-name heuristic. The first capture group holds
// the candidate name.
type NamePattern struct {
	Name string
	Re   *regexp.Regexp
}

// NamePatterns are tried in order; the first acceptable capture wins.
// Labels match in any case, names must start with a capital letter.
var NamePatterns = []NamePattern{
	{
		Name: "purchaser_label_legal_suffix",
		Re:   regexp.MustCompile(`(?i:PURCHASER)\s*[:\-]?\s*((?:` + nameWord + `[ \t]+){1,5}` + legalSuffix + `(?:\.|\b))`),
	},
	{
		Name: "customer_or_buyer_label",
		Re:   regexp.MustCompile(`\b(?i:Customer|Buyer)\s*:\s*([^\n,;(]+)`),
	},
	{
		Name: "between_supplier_and",
		Re:   regexp.MustCompile(`\b(?i:between)\s+(?i:the\s+)?(?i:SUPPLIER)\s+(?i:and)\s+(?i:the\s+)?([^\n,;(]+)`),
	},
	{
		Name: "purchaser_parenthetical",
		Re:   regexp.MustCompile(`((?:` + nameWord + `[ \t]+){0,4}` + nameWord + `)\s*\(\s*(?i:the\s+)?["“]?(?i:purchaser)["”]?\s*\)`),
	},
}

// ReservedNames are the contract's own role labels, never a customer.
var ReservedNames = map[string]struct{}{
	"SUPPLIER":   {},
	"CONTRACTOR": {},
	"VENDOR":     {},
}

var spaces = regexp.MustCompile(`\s+`)

// ExtractCustomerName returns the purchaser named in the contract text.
// A contract without a recognisable purchaser yields ("", false).
func ExtractCustomerName(text string) (string, bool) {
	for _, p := range NamePatterns {
		for _, m := range p.Re.FindAllStringSubmatch(text, -1) {
			if len(m) < 2 {
				continue
			}
			name := normalizeName(m[1])
			if acceptable(name) {
				return name, true
			}
		}
	}
	return "", false
}

func normalizeName(s string) string {
	s = spaces.ReplaceAllString(s, " ")
	return strings.Trim(s, " \t,;:")
}

func acceptable(name string) bool {
	if name == "" {
		return false
	}
	_, reserved := ReservedNames[strings.ToUpper(name)]
	return !reserved
}

// LoadLedger reads the historical contract ledger. A missing or malformed
// file degrades to an empty ledger.
func LoadLedger(path string, logger zerolog.Logger) []models.PastContract {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("ledger unavailable, continuing without history")
		return nil
	}
	var ledger []models.PastContract
	if err := json.Unmarshal(data, &ledger); err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("ledger malformed, continuing without history")
		return nil
	}
	return ledger
}

// Summarize aggregates every ledger entry whose purchaser equals name,
// ignoring case.
func Summarize(name string, ledger []models.PastContract) models.CustomerHistory {
	h := models.CustomerHistory{CustomerName: name, AcceptedDeviationTypes: []string{}}
	if strings.TrimSpace(name) == "" {
		return h
	}

	rounds := 0
	for _, c := range ledger {
		if !strings.EqualFold(strings.TrimSpace(c.Purchaser), strings.TrimSpace(name)) {
			continue
		}
		h.TotalContracts++
		h.TotalAcceptedDeviations += len(c.AcceptedDeviations)
		if len(c.AcceptedDeviations) > 0 {
			h.ContractsWithDeviations++
		}
		rounds += c.CustomerNegotiationRounds
		for _, d := range c.AcceptedDeviations {
			h.AcceptedDeviationTypes = append(h.AcceptedDeviationTypes, d.Condition)
		}
	}
	if h.TotalContracts == 0 {
		return h
	}
	h.HasHistory = true
	h.AvgNegotiationRounds = math.Round(float64(rounds)/float64(h.TotalContracts)*10) / 10
	return h
}

// ContextBlock renders the history for inclusion in the analysis request.
func ContextBlock(h models.CustomerHistory) string {
	if h.CustomerName == "" {
		return "CUSTOMER HISTORY:\nCustomer could not be identified from the contract text. No history available."
	}
	if !h.HasHistory {
		return fmt.Sprintf("CUSTOMER HISTORY:\nCustomer: %s\nNo previous contracts with this customer.", h.CustomerName)
	}
	types := "none"
	if len(h.AcceptedDeviationTypes) > 0 {
		types = strings.Join(h.AcceptedDeviationTypes, "; ")
	}
	return fmt.Sprintf(`CUSTOMER HISTORY:
Customer: %s
Previous contracts: %d
Contracts with accepted deviations: %d (%.0f%%)
Total accepted deviations: %d
Average negotiation rounds: %.1f
Previously accepted deviation types: %s`,
		h.CustomerName,
		h.TotalContracts,
		h.ContractsWithDeviations, h.AcceptanceShare()*100,
		h.TotalAcceptedDeviations,
		h.AvgNegotiationRounds,
		types,
	)
}
