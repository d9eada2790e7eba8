package categorizer

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alainbuyze/outlook-categorizer/internal/config"
	"github.com/alainbuyze/outlook-categorizer/internal/model"
)

// Prompt size caps. Oversized system prompts raise the odds of truncated
// model output; the body cap keeps the user prompt small.
const (
	maxSystemPromptLen  = 12000
	maxBodyLen          = 1200
	maxCompletionTokens = 900
)

//go:embed system_prompt.md
var systemPromptTemplate string

// renderSystemPrompt substitutes the known placeholders literally. The
// template is Markdown containing brace-heavy JSON examples, so anything
// resembling general template evaluation would misfire; only these exact
// placeholder strings are replaced.
func renderSystemPrompt(cfg *config.Config) string {
	replacer := strings.NewReplacer(
		"{boss_email}", cfg.BossEmail,
		"{company_domain}", cfg.CompanyDomain,
		"{management_emails}", strings.Join(cfg.ManagementEmails, ", "),
		"{direct_reports_emails}", strings.Join(cfg.DirectReportsEmails, ", "),
		"{categories}", strings.Join(model.Categories(), ", "),
	)

	rendered := replacer.Replace(systemPromptTemplate)

	runes := []rune(rendered)
	if len(runes) > maxSystemPromptLen {
		rendered = string(runes[:maxSystemPromptLen])
	}
	return rendered
}

type emailPayload struct {
	ID         string `json:"id"`
	Subject    string `json:"subject"`
	Sender     string `json:"sender"`
	From       string `json:"from"`
	Importance string `json:"importance"`
	Body       string `json:"body"`
}

// buildUserPrompt embeds the message fields as JSON inside <email> tags so
// the instructions can reference the payload unambiguously.
func buildUserPrompt(email *model.Email, sanitizedBody string) string {
	body := sanitizedBody
	if runes := []rune(body); len(runes) > maxBodyLen {
		body = string(runes[:maxBodyLen])
	}

	payload := emailPayload{
		ID:         email.ID,
		Subject:    email.Subject,
		Sender:     email.SenderEmail(),
		From:       email.FromEmail(),
		Importance: email.Importance,
		Body:       body,
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		data = []byte(fmt.Sprintf(`{"id": %q, "subject": %q}`, email.ID, email.Subject))
	}

	return fmt.Sprintf(`Categorize the following email:
<email>
%s
</email>

Ensure your final output is valid JSON with no additional text.
Also include senderGoal: a very short description (3-8 words) of the sender's intent.
Return a single JSON object only (no Markdown fences).
`, data)
}
