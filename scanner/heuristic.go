package scanner

import (
	"regexp"

	"github.com/zero-day-ai/devdefend/finding"
)

const (
	// HeuristicRiskType is the label of every heuristic finding.
	HeuristicRiskType = "Heuristic Risk"

	// HeuristicSnippetContext is how far a heuristic snippet extends past the
	// end of the match, in characters.
	HeuristicSnippetContext = 80

	// HeuristicSnippetLimit caps heuristic snippets, in characters.
	HeuristicSnippetLimit = 300
)

// heuristicToken is a literal high-risk token and the severity it reports.
type heuristicToken struct {
	literal  string
	severity finding.Severity
	re       *regexp.Regexp
}

// HeuristicTokens lists the literal tokens the heuristic pass looks for, in scan order.
var HeuristicTokens = []string{"eval(", "exec(", "shell=True", "pickle.loads(", "verify=False"}

// lowRiskTokens report SeverityMedium instead of SeverityHigh.
var lowRiskTokens = map[string]bool{
	"verify=False": true,
}

// HeuristicScanner is a token-substring pass over raw text. It stands in for a
// learned classifier and produces low-confidence findings.
type HeuristicScanner struct {
	tokens []heuristicToken
}

// NewHeuristicScanner builds a scanner for HeuristicTokens.
func NewHeuristicScanner() *HeuristicScanner {
	tokens := make([]heuristicToken, 0, len(HeuristicTokens))
	for _, lit := range HeuristicTokens {
		sev := finding.SeverityHigh
		if lowRiskTokens[lit] {
			sev = finding.SeverityMedium
		}
		tokens = append(tokens, heuristicToken{
			literal:  lit,
			severity: sev,
			re:       regexp.MustCompile("(?i)" + regexp.QuoteMeta(lit)),
		})
	}
	return &HeuristicScanner{tokens: tokens}
}

// Scan reports every case-insensitive occurrence of every token.
// The snippet is the match plus HeuristicSnippetContext characters, capped at
// HeuristicSnippetLimit characters.
func (s *HeuristicScanner) Scan(text string) []finding.Finding {
	var findings []finding.Finding
	cursor := newRuneCursor(text)

	for _, tok := range s.tokens {
		for _, loc := range tok.re.FindAllStringIndex(text, -1) {
			start := cursor.runeOffset(loc[0])
			end := cursor.runeOffset(loc[1])
			snippetEnd := min(
				forwardRunes(text, loc[1], HeuristicSnippetContext),
				forwardRunes(text, loc[0], HeuristicSnippetLimit),
			)

			findings = append(findings, finding.Finding{
				VulnerabilityType: HeuristicRiskType,
				Severity:          tok.severity,
				Start:             start,
				End:               end,
				Snippet:           text[loc[0]:snippetEnd],
				Origin:            finding.OriginHeuristic,
				RuleID:            tok.literal,
			})
		}
	}

	return findings
}
