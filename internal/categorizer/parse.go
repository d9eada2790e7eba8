package categorizer

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/alainbuyze/outlook-categorizer/internal/model"
)

// Bound on truncation-repair attempts; the loop below never backtracks more
// than this many times.
const maxRepairAttempts = 200

var (
	codeFenceRe     = regexp.MustCompile("(?i)```(?:json)?\\s*|```")
	danglingCommaRe = regexp.MustCompile(`,\s*}\s*$`)
)

// rawResult matches the keys the model is instructed to emit. encoding/json
// matches field names case-insensitively, so "id"/"ID" and
// "subcategory"/"subCategory" all land correctly; snake_case needs its own
// field.
type rawResult struct {
	ID              string `json:"ID"`
	Subject         string `json:"subject"`
	Category        string `json:"category"`
	SubCategory     string `json:"subCategory"`
	Analysis        string `json:"analysis"`
	SenderGoal      string `json:"senderGoal"`
	SenderGoalSnake string `json:"sender_goal"`
}

// parseResponse turns a raw model response into a validated result. Returns
// nil when no usable JSON object can be extracted, or when the category field
// is missing or outside the enumeration. The second return reports whether
// truncation recovery was needed.
func parseResponse(responseText, emailID string) (*model.CategorizationResult, bool) {
	if responseText == "" {
		return nil, false
	}

	cleaned := stripCodeFences(responseText)

	extracted, recovered, ok := extractFirstJSONObject(cleaned)
	if !ok {
		return nil, false
	}

	var raw rawResult
	if err := json.Unmarshal([]byte(extracted), &raw); err != nil {
		return nil, recovered
	}

	category, ok := model.CanonicalCategory(raw.Category)
	if !ok {
		return nil, recovered
	}

	id := raw.ID
	if id == "" {
		id = emailID
	}
	senderGoal := raw.SenderGoal
	if senderGoal == "" {
		senderGoal = raw.SenderGoalSnake
	}

	return &model.CategorizationResult{
		ID:          id,
		Subject:     raw.Subject,
		Category:    category,
		SubCategory: strings.TrimSpace(raw.SubCategory),
		Analysis:    raw.Analysis,
		SenderGoal:  senderGoal,
	}, recovered
}

// stripCodeFences removes Markdown code-fence markers the model sometimes
// wraps its output in despite instructions.
func stripCodeFences(text string) string {
	return codeFenceRe.ReplaceAllString(text, "")
}

// extractFirstJSONObject scans for the first decodable JSON object. The model
// is told to return raw JSON but in practice may surround it with prose or
// truncate it mid-field; truncated input goes through recoverTruncated.
func extractFirstJSONObject(text string) (extracted string, recovered, ok bool) {
	start := strings.IndexByte(text, '{')
	for start != -1 {
		dec := json.NewDecoder(strings.NewReader(text[start:]))
		var raw json.RawMessage
		if err := dec.Decode(&raw); err == nil && len(raw) > 0 && raw[0] == '{' {
			return string(raw), false, true
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next == -1 {
			break
		}
		start += 1 + next
	}

	if repaired, ok := recoverTruncated(text); ok {
		return repaired, true, true
	}
	return "", false, false
}

// recoverTruncated is a best-effort repair for responses that begin a JSON
// object but cut off mid-key or mid-string. Each attempt closes a dangling
// string, appends missing closing braces, and strips one trailing comma; on
// failure the candidate is trimmed back to the last newline or comma
// boundary. Attempts are bounded; the candidate becoming too short to hold an
// object ends the search.
func recoverTruncated(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start == -1 {
		return "", false
	}

	candidate := text[start:]
	for i := 0; i < maxRepairAttempts; i++ {
		snippet := strings.TrimSpace(candidate)
		if len(snippet) < 2 {
			return "", false
		}

		attempt := snippet
		if countUnescapedQuotes(attempt)%2 == 1 {
			attempt += `"`
		}
		if missing := strings.Count(attempt, "{") - strings.Count(attempt, "}"); missing > 0 {
			attempt += strings.Repeat("}", missing)
		}
		attempt = danglingCommaRe.ReplaceAllString(attempt, "}")

		if json.Valid([]byte(attempt)) {
			return attempt, true
		}

		lastNewline := strings.LastIndexByte(candidate, '\n')
		lastComma := strings.LastIndexByte(candidate, ',')
		cut := lastNewline
		if lastComma > cut {
			cut = lastComma
		}
		if cut <= 0 {
			candidate = candidate[:len(candidate)-1]
		} else {
			candidate = candidate[:cut]
		}
	}

	return "", false
}

func countUnescapedQuotes(s string) int {
	count := 0
	escaped := false
	for _, b := range []byte(s) {
		switch {
		case escaped:
			escaped = false
		case b == '\\':
			escaped = true
		case b == '"':
			count++
		}
	}
	return count
}
