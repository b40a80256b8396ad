package remediation

import (
	"regexp"
	"strings"
)

const fence = "```"

// fenceInfo matches a language tag on the opening line of a fenced block.
var fenceInfo = regexp.MustCompile(`^[A-Za-z0-9_+#.-]*$`)

// parseSuggestion splits a backend answer into an explanation and a patched
// snippet. The explanation is the text before the first fenced block and the
// patch is the block's body. Without a fence the whole answer is the
// explanation and the original snippet is kept.
func parseSuggestion(content, snippet string) (explanation, patched string) {
	text := strings.TrimSpace(content)

	before, rest, found := strings.Cut(text, fence)
	if !found {
		return text, snippet
	}

	block, _, _ := strings.Cut(rest, fence)
	if first, body, ok := strings.Cut(block, "\n"); ok && fenceInfo.MatchString(strings.TrimSpace(first)) {
		block = body
	}

	explanation = strings.TrimSpace(before)
	patched = strings.TrimSpace(block)
	if patched == "" {
		patched = snippet
	}
	return explanation, patched
}
