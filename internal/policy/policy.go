package policy

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

var ErrCatalogUnavailable = errors.New("policy catalog unavailable")

type Format string

const (
	FormatMarkdown   Format = "markdown"
	FormatStructured Format = "structured"
	FormatCompact    Format = "compact"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatMarkdown, nil
	case FormatMarkdown, FormatStructured, FormatCompact:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format: %s (use markdown, structured or compact)", s)
	}
}

// Approval is one role entry of a rule's approval matrix.
type Approval struct {
	Role        string
	Involvement string
}

// ApprovalMatrix keeps roles in file order, which is the order they are
// rendered in.
type ApprovalMatrix []Approval

func (m *ApprovalMatrix) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("approval matrix must be an object")
	}
	out := ApprovalMatrix{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		role, _ := keyTok.(string)
		var involvement string
		if err := dec.Decode(&involvement); err != nil {
			return fmt.Errorf("approval matrix role %q: %w", role, err)
		}
		out = append(out, Approval{Role: role, Involvement: involvement})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*m = out
	return nil
}

func (m ApprovalMatrix) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, a := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, _ := json.Marshal(a.Role)
		v, _ := json.Marshal(a.Involvement)
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type Rule struct {
	Category       string         `json:"Category"`
	Condition      string         `json:"Condition"`
	ApprovalMatrix ApprovalMatrix `json:"Approval_Matrix"`
}

type Catalog struct {
	Rules []Rule
}

// Load reads the approval matrix file. Any failure is reported as
// ErrCatalogUnavailable so callers can treat it as fatal for the turn.
func Load(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	return Parse(data)
}

func Parse(data []byte) (Catalog, error) {
	var rules []Rule
	if err := json.Unmarshal(data, &rules); err != nil {
		return Catalog{}, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	return Catalog{Rules: rules}, nil
}

func (c Catalog) Render(f Format) (string, error) {
	switch f {
	case FormatMarkdown:
		return c.markdown(), nil
	case FormatStructured:
		return c.structured(), nil
	case FormatCompact:
		return c.compact(), nil
	default:
		return "", fmt.Errorf("unknown format: %s", f)
	}
}

func (c Catalog) markdown() string {
	out := []string{
		"# Contract Approval Matrix",
		"",
		"Use this matrix to determine required approvals for contract terms:",
		"",
	}

	var categories []string
	byCategory := map[string][]Rule{}
	for _, r := range c.Rules {
		if _, ok := byCategory[r.Category]; !ok {
			categories = append(categories, r.Category)
		}
		byCategory[r.Category] = append(byCategory[r.Category], r)
	}

	for _, category := range categories {
		out = append(out, "## "+category, "")
		for _, r := range byCategory[category] {
			out = append(out,
				"### Condition: "+r.Condition,
				"",
				"| Role | Involvement Level |",
				"|------|-------------------|",
			)
			for _, a := range r.ApprovalMatrix {
				out = append(out, fmt.Sprintf("| %s | %s |", a.Role, a.Involvement))
			}
			out = append(out, "")
		}
	}
	return strings.Join(out, "\n")
}

func (c Catalog) structured() string {
	rule := strings.Repeat("=", 80)
	sep := strings.Repeat("-", 80)
	out := []string{"CONTRACT APPROVAL MATRIX", rule, ""}
	for i, r := range c.Rules {
		out = append(out,
			fmt.Sprintf("RULE #%d", i+1),
			sep,
			"Category: "+r.Category,
			"Trigger Condition: "+r.Condition,
			"",
			"Required Approvals:",
		)
		for _, a := range r.ApprovalMatrix {
			out = append(out, fmt.Sprintf("  • %s: %s", a.Role, a.Involvement))
		}
		out = append(out, "")
	}
	return strings.Join(out, "\n")
}

func (c Catalog) compact() string {
	out := []string{"CONTRACT APPROVAL RULES:"}
	for i, r := range c.Rules {
		approvers := make([]string, 0, len(r.ApprovalMatrix))
		for _, a := range r.ApprovalMatrix {
			approvers = append(approvers, fmt.Sprintf("%s(%s)", a.Role, a.Involvement))
		}
		out = append(out, fmt.Sprintf("%d. [%s] IF %s THEN REQUIRE: %s", i+1, r.Category, r.Condition, strings.Join(approvers, ", ")))
	}
	return strings.Join(out, "\n")
}
