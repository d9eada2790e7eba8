// Package categorizer assigns a category (and optional subcategory) to each
// email. Deterministic heuristics run first; when none match, a Groq chat
// completion is issued and its JSON response parsed tolerantly. The engine
// never fails: any internal error degrades to the "Other" category.
package categorizer

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/alainbuyze/outlook-categorizer/internal/config"
	"github.com/alainbuyze/outlook-categorizer/internal/llm"
	"github.com/alainbuyze/outlook-categorizer/internal/metrics"
	"github.com/alainbuyze/outlook-categorizer/internal/model"
	"github.com/alainbuyze/outlook-categorizer/internal/sanitize"
)

var receiptKeywords = []string{"receipt", "order confirmation", "purchase", "invoice"}

// Engine is the categorization engine. Safe to reuse across messages; the
// model client is stateless.
type Engine struct {
	cfg     *config.Config
	caller  llm.Client
	logger  *logrus.Logger
	metrics *metrics.Metrics
}

func New(cfg *config.Config, caller llm.Client, logger *logrus.Logger, m *metrics.Metrics) *Engine {
	return &Engine{
		cfg:     cfg,
		caller:  caller,
		logger:  logger,
		metrics: m,
	}
}

// Categorize assigns a category to a single email. Always returns a usable
// result; heuristics win over the model, and any model failure falls back to
// "Other".
func (e *Engine) Categorize(ctx context.Context, email *model.Email) *model.CategorizationResult {
	bodyContent, contentType := email.BodyContent()
	sanitizedBody := sanitize.Sanitize(bodyContent, contentType)

	if result := e.applyHeuristics(email); result != nil {
		e.metrics.HeuristicMatch()
		e.logger.WithFields(logrus.Fields{
			"email_id": email.ID,
			"category": result.Category,
		}).Info("quick categorization via heuristic")
		return result
	}

	systemPrompt := renderSystemPrompt(e.cfg)
	userPrompt := buildUserPrompt(email, sanitizedBody)

	e.metrics.ModelCall()
	responseText, err := e.caller.Complete(ctx, systemPrompt, userPrompt, maxCompletionTokens)
	if err != nil {
		e.logger.WithFields(logrus.Fields{
			"email_id": email.ID,
			"error":    err,
		}).Warn("model call failed, falling back to Other")
		return e.fallbackResult(email, "Model call failed")
	}

	result, recovered := parseResponse(strings.TrimSpace(responseText), email.ID)
	if recovered {
		e.metrics.ParseRecovered()
	}
	if result == nil {
		e.logger.WithFields(logrus.Fields{
			"email_id": email.ID,
			"snippet":  snippet(responseText, 300),
		}).Warn("model response unusable, falling back to Other")
		return e.fallbackResult(email, "Model response could not be parsed")
	}

	e.logger.WithFields(logrus.Fields{
		"email_id":    email.ID,
		"category":    result.Category,
		"subcategory": result.SubCategory,
	}).Info("categorized email")
	return result
}

// CategorizeBatch categorizes messages independently; a failure only
// degrades that entry to "Other" and never aborts the batch.
func (e *Engine) CategorizeBatch(ctx context.Context, emails []*model.Email) []*model.CategorizationResult {
	results := make([]*model.CategorizationResult, 0, len(emails))
	for _, email := range emails {
		results = append(results, e.Categorize(ctx, email))
	}
	return results
}

// applyHeuristics evaluates deterministic rules in strict precedence order
// and returns the first match, or nil to use the model. New rules must be
// inserted with their precedence in mind: earlier wins.
func (e *Engine) applyHeuristics(email *model.Email) *model.CategorizationResult {
	sender := email.SenderEmail()
	fromAddr := email.FromEmail()
	subjectLower := strings.ToLower(email.Subject)
	senderDomain := sanitize.ExtractDomain(sender)

	// Account security alerts are time-sensitive and must not wait on a
	// model call.
	if senderDomain != "" {
		for _, suffix := range e.cfg.SecurityAlertDomains {
			if strings.HasSuffix(senderDomain, suffix) {
				return &model.CategorizationResult{
					ID:         email.ID,
					Subject:    email.Subject,
					Category:   model.CategoryAction,
					Analysis:   "Account security alert",
					SenderGoal: "Verify new account sign-in",
				}
			}
		}
	}

	if e.cfg.PartnerDomain != "" && senderDomain == e.cfg.PartnerDomain {
		return &model.CategorizationResult{
			ID:          email.ID,
			Subject:     email.Subject,
			Category:    model.CategoryBusiness,
			SubCategory: e.cfg.PartnerSubcategory,
			Analysis:    "Email from partner marketing domain",
			SenderGoal:  "Promote partner offers",
		}
	}

	if e.cfg.BossEmail != "" && (sender == e.cfg.BossEmail || fromAddr == e.cfg.BossEmail) {
		return &model.CategorizationResult{
			ID:         email.ID,
			Subject:    email.Subject,
			Category:   model.CategoryBoss,
			Analysis:   "Email from boss",
			SenderGoal: "Request your attention",
		}
	}

	for _, collaborator := range e.cfg.CollaboratorEmails {
		if sender == collaborator {
			return &model.CategorizationResult{
				ID:         email.ID,
				Subject:    email.Subject,
				Category:   model.CategoryCollaborators,
				Analysis:   "Email from team collaborator",
				SenderGoal: "Share a work update",
			}
		}
	}

	if e.cfg.CompanyDomain != "" && senderDomain != "" && strings.Contains(senderDomain, e.cfg.CompanyDomain) {
		return &model.CategorizationResult{
			ID:         email.ID,
			Subject:    email.Subject,
			Category:   model.CategoryCompany,
			Analysis:   "Email from company domain (" + e.cfg.CompanyDomain + ")",
			SenderGoal: "Provide a company update",
		}
	}

	if sanitize.LooksLikeNoReply(sender) || sanitize.LooksLikeNoReply(fromAddr) {
		for _, keyword := range receiptKeywords {
			if strings.Contains(subjectLower, keyword) {
				return &model.CategorizationResult{
					ID:         email.ID,
					Subject:    email.Subject,
					Category:   model.CategoryReceipt,
					Analysis:   "Purchase/order confirmation from noreply address",
					SenderGoal: "Confirm your purchase",
				}
			}
		}
	}

	return nil
}

func (e *Engine) fallbackResult(email *model.Email, analysis string) *model.CategorizationResult {
	return &model.CategorizationResult{
		ID:       email.ID,
		Subject:  email.Subject,
		Category: model.CategoryOther,
		Analysis: analysis,
	}
}

func snippet(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", `\n`)
	if len(s) > max {
		return s[:max]
	}
	return s
}
