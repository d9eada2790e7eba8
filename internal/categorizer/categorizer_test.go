package categorizer

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alainbuyze/outlook-categorizer/internal/config"
	"github.com/alainbuyze/outlook-categorizer/internal/llm"
	"github.com/alainbuyze/outlook-categorizer/internal/model"
)

func testConfig() *config.Config {
	return &config.Config{
		BossEmail:            "boss@corp.example",
		CompanyDomain:        "corp.example",
		CollaboratorEmails:   []string{"ann@partner.example"},
		SecurityAlertDomains: []string{"accountprotection.microsoft.com"},
		PartnerDomain:        "em.delhaize.be",
		PartnerSubcategory:   "Delhaize",
	}
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestEngine(cfg *config.Config) (*Engine, *llm.MockClient) {
	mock := llm.NewMockClient()
	return New(cfg, mock, testLogger(), nil), mock
}

func emailFrom(address, subject string) *model.Email {
	return &model.Email{
		ID:      "msg-1",
		Subject: subject,
		Sender:  &model.Recipient{EmailAddress: model.EmailAddress{Address: address}},
		Body:    model.Body{ContentType: "text", Content: "hello"},
	}
}

func TestHeuristics(t *testing.T) {
	t.Run("security alert domain goes to Action without model call", func(t *testing.T) {
		engine, mock := newTestEngine(testConfig())
		result := engine.Categorize(context.Background(), emailFrom("alerts@accountprotection.microsoft.com", "Unusual sign-in"))

		assert.Equal(t, model.CategoryAction, result.Category)
		assert.Equal(t, 0, mock.Calls)
	})

	t.Run("security alert matches domain suffix", func(t *testing.T) {
		engine, mock := newTestEngine(testConfig())
		result := engine.Categorize(context.Background(), emailFrom("x@eur.accountprotection.microsoft.com", "Alert"))

		assert.Equal(t, model.CategoryAction, result.Category)
		assert.Equal(t, 0, mock.Calls)
	})

	t.Run("partner domain goes to Business with subcategory", func(t *testing.T) {
		engine, mock := newTestEngine(testConfig())
		result := engine.Categorize(context.Background(), emailFrom("promo@em.delhaize.be", "Weekend deals"))

		assert.Equal(t, model.CategoryBusiness, result.Category)
		assert.Equal(t, "Delhaize", result.SubCategory)
		assert.Equal(t, 0, mock.Calls)
	})

	t.Run("boss wins over company domain", func(t *testing.T) {
		engine, mock := newTestEngine(testConfig())
		result := engine.Categorize(context.Background(), emailFrom("boss@corp.example", "Staffing"))

		assert.Equal(t, model.CategoryBoss, result.Category)
		assert.Equal(t, 0, mock.Calls)
	})

	t.Run("collaborator address", func(t *testing.T) {
		engine, mock := newTestEngine(testConfig())
		result := engine.Categorize(context.Background(), emailFrom("ann@partner.example", "Draft review"))

		assert.Equal(t, model.CategoryCollaborators, result.Category)
		assert.Equal(t, 0, mock.Calls)
	})

	t.Run("company domain", func(t *testing.T) {
		engine, mock := newTestEngine(testConfig())
		result := engine.Categorize(context.Background(), emailFrom("newsletter@mail.corp.example", "All-hands recording"))

		assert.Equal(t, model.CategoryCompany, result.Category)
		assert.Equal(t, 0, mock.Calls)
	})

	t.Run("noreply with receipt keyword", func(t *testing.T) {
		engine, mock := newTestEngine(testConfig())
		result := engine.Categorize(context.Background(), emailFrom("noreply@shop.example", "Your order confirmation #4521"))

		assert.Equal(t, model.CategoryReceipt, result.Category)
		assert.Equal(t, 0, mock.Calls)
	})

	t.Run("noreply without keyword falls through to model", func(t *testing.T) {
		engine, mock := newTestEngine(testConfig())
		engine.Categorize(context.Background(), emailFrom("noreply@social.example", "Someone mentioned you"))

		assert.Equal(t, 1, mock.Calls)
	})

	t.Run("case-insensitive addresses", func(t *testing.T) {
		engine, mock := newTestEngine(testConfig())
		result := engine.Categorize(context.Background(), emailFrom("Boss@Corp.Example", "1:1"))

		assert.Equal(t, model.CategoryBoss, result.Category)
		assert.Equal(t, 0, mock.Calls)
	})
}

func TestCategorizeModelPath(t *testing.T) {
	t.Run("valid JSON response", func(t *testing.T) {
		engine, mock := newTestEngine(testConfig())
		mock.CompleteFunc = func(_ context.Context, _, _ string, _ int) (string, error) {
			return `{"ID": "123", "subject": "Win big", "category": "Junk", "analysis": "marketing blast", "senderGoal": "Sell a promotion"}`, nil
		}

		result := engine.Categorize(context.Background(), emailFrom("marketing@random.example", "Win big"))

		assert.Equal(t, "123", result.ID)
		assert.Equal(t, model.CategoryJunk, result.Category)
		assert.Equal(t, "Sell a promotion", result.SenderGoal)
	})

	t.Run("JSON embedded in prose", func(t *testing.T) {
		engine, mock := newTestEngine(testConfig())
		mock.CompleteFunc = func(_ context.Context, _, _ string, _ int) (string, error) {
			return `Sure, here is the categorization: {"category": "Junk", "analysis": "ad"} hope that helps`, nil
		}

		result := engine.Categorize(context.Background(), emailFrom("a@random.example", "subj"))

		assert.Equal(t, model.CategoryJunk, result.Category)
		assert.Equal(t, "msg-1", result.ID)
	})

	t.Run("fenced response", func(t *testing.T) {
		engine, mock := newTestEngine(testConfig())
		mock.CompleteFunc = func(_ context.Context, _, _ string, _ int) (string, error) {
			return "```json\n{\"category\": \"Response\", \"analysis\": \"needs a reply\"}\n```", nil
		}

		result := engine.Categorize(context.Background(), emailFrom("a@random.example", "subj"))
		assert.Equal(t, model.CategoryResponse, result.Category)
	})

	t.Run("truncated response recovers subcategory", func(t *testing.T) {
		engine, mock := newTestEngine(testConfig())
		mock.CompleteFunc = func(_ context.Context, _, _ string, _ int) (string, error) {
			return `{"ID": "9", "category": "Junk", "subCategory": "Promo`, nil
		}

		result := engine.Categorize(context.Background(), emailFrom("a@random.example", "subj"))

		assert.Equal(t, model.CategoryJunk, result.Category)
		assert.Equal(t, "Promo", result.SubCategory)
	})

	t.Run("model error falls back to Other", func(t *testing.T) {
		engine, mock := newTestEngine(testConfig())
		mock.CompleteFunc = func(_ context.Context, _, _ string, _ int) (string, error) {
			return "", fmt.Errorf("rate limited")
		}

		result := engine.Categorize(context.Background(), emailFrom("a@random.example", "subj"))

		require.NotNil(t, result)
		assert.Equal(t, model.CategoryOther, result.Category)
		assert.Equal(t, "Model call failed", result.Analysis)
	})

	t.Run("unparseable response falls back to Other", func(t *testing.T) {
		engine, mock := newTestEngine(testConfig())
		mock.CompleteFunc = func(_ context.Context, _, _ string, _ int) (string, error) {
			return "I cannot categorize this email.", nil
		}

		result := engine.Categorize(context.Background(), emailFrom("a@random.example", "subj"))

		assert.Equal(t, model.CategoryOther, result.Category)
		assert.Equal(t, "Model response could not be parsed", result.Analysis)
	})

	t.Run("unknown category falls back to Other", func(t *testing.T) {
		engine, mock := newTestEngine(testConfig())
		mock.CompleteFunc = func(_ context.Context, _, _ string, _ int) (string, error) {
			return `{"category": "Urgent", "analysis": "x"}`, nil
		}

		result := engine.Categorize(context.Background(), emailFrom("a@random.example", "subj"))
		assert.Equal(t, model.CategoryOther, result.Category)
	})

	t.Run("category names normalize case", func(t *testing.T) {
		engine, mock := newTestEngine(testConfig())
		mock.CompleteFunc = func(_ context.Context, _, _ string, _ int) (string, error) {
			return `{"category": "junk", "analysis": "x"}`, nil
		}

		result := engine.Categorize(context.Background(), emailFrom("a@random.example", "subj"))
		assert.Equal(t, model.CategoryJunk, result.Category)
	})
}

func TestCategorizeBatch(t *testing.T) {
	engine, mock := newTestEngine(testConfig())
	calls := 0
	mock.CompleteFunc = func(_ context.Context, _, _ string, _ int) (string, error) {
		calls++
		if calls == 1 {
			return "", fmt.Errorf("boom")
		}
		return `{"category": "Community", "analysis": "meetup"}`, nil
	}

	emails := []*model.Email{
		emailFrom("a@random.example", "first"),
		emailFrom("b@random.example", "second"),
	}
	results := engine.CategorizeBatch(context.Background(), emails)

	require.Len(t, results, 2)
	assert.Equal(t, model.CategoryOther, results[0].Category)
	assert.Equal(t, model.CategoryCommunity, results[1].Category)
}
