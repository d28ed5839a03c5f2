package injection

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dev-fuadhasan/openapi/internal/models"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// signature is one compiled DB error pattern
type signature struct {
	dbms    string
	pattern *regexp.Regexp
}

// compileSignatures flattens the DBMS table into a deterministic list, DBMS
// names sorted, patterns in table order
func compileSignatures(table map[string][]string) ([]signature, error) {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []signature
	for _, name := range names {
		for _, p := range table[name] {
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				return nil, fmt.Errorf("invalid %s signature %q: %w", name, p, err)
			}
			out = append(out, signature{dbms: name, pattern: re})
		}
	}
	return out, nil
}

// evidenceBuilder turns a payload response into VulnerableParam evidence
type evidenceBuilder struct {
	signatures    []signature
	dmp           *diffmatchpatch.DiffMatchPatch
	divergence    int
	maxSnippetLen int
}

func newEvidenceBuilder(signatures []signature, divergence, maxSnippetLen int) *evidenceBuilder {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = time.Second
	return &evidenceBuilder{
		signatures:    signatures,
		dmp:           dmp,
		divergence:    divergence,
		maxSnippetLen: maxSnippetLen,
	}
}

// matchSignature returns the DBMS and a window of text around the first
// signature found in body
func (b *evidenceBuilder) matchSignature(body string) (string, string, bool) {
	for _, sig := range b.signatures {
		loc := sig.pattern.FindStringIndex(body)
		if loc == nil {
			continue
		}
		return sig.dbms, b.window(body, loc[0], loc[1]), true
	}
	return "", "", false
}

// window centres the match in a snippet of at most maxSnippetLen runes
func (b *evidenceBuilder) window(body string, start, end int) string {
	match := body[start:end]
	if utf8.RuneCountInString(match) >= b.maxSnippetLen {
		return truncateRunes(match, b.maxSnippetLen)
	}

	pad := (b.maxSnippetLen - utf8.RuneCountInString(match)) / 2
	before := []rune(body[:start])
	if len(before) > pad {
		before = before[len(before)-pad:]
	}
	snippet := string(before) + match + body[end:]
	return strings.TrimSpace(truncateRunes(snippet, b.maxSnippetLen))
}

// diverges reports whether the payload body length differs from the baseline
// by more than the threshold, counted in characters
func (b *evidenceBuilder) diverges(baseline, payload string) bool {
	delta := utf8.RuneCountInString(payload) - utf8.RuneCountInString(baseline)
	if delta < 0 {
		delta = -delta
	}
	return delta > b.divergence
}

// diffEvidence summarizes what changed between baseline and payload bodies
func (b *evidenceBuilder) diffEvidence(baseline, payload string) string {
	diffs := b.dmp.DiffMain(baseline, payload, false)
	diffs = b.dmp.DiffCleanupSemantic(diffs)

	var sb strings.Builder
	fmt.Fprintf(&sb, "response length %d -> %d chars", utf8.RuneCountInString(baseline), utf8.RuneCountInString(payload))
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			sb.WriteString("\n+ ")
			sb.WriteString(strings.TrimSpace(d.Text))
		case diffmatchpatch.DiffDelete:
			sb.WriteString("\n- ")
			sb.WriteString(strings.TrimSpace(d.Text))
		}
		if utf8.RuneCountInString(sb.String()) >= b.maxSnippetLen {
			break
		}
	}
	return truncateRunes(sb.String(), b.maxSnippetLen)
}

// evaluate returns the evidence for one payload response, if any
func (b *evidenceBuilder) evaluate(param, payload, baselineBody, payloadBody string) (models.VulnerableParam, bool) {
	if dbms, snippet, ok := b.matchSignature(payloadBody); ok {
		return models.VulnerableParam{
			Parameter:    param,
			Payload:      payload,
			EvidenceType: models.EvidenceErrorSignature,
			Evidence:     snippet,
			DBMS:         dbms,
		}, true
	}
	if b.diverges(baselineBody, payloadBody) {
		return models.VulnerableParam{
			Parameter:    param,
			Payload:      payload,
			EvidenceType: models.EvidenceLengthDivergence,
			Evidence:     b.diffEvidence(baselineBody, payloadBody),
		}, true
	}
	return models.VulnerableParam{}, false
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
