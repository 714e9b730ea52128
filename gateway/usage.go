package gateway

import (
	"context"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// UsageRecord is one request logged by the gateway.
type UsageRecord struct {
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens"`
	Cost             float64   `json:"cost,omitempty"`
	Model            string    `json:"model,omitempty"`
	Provider         string    `json:"provider,omitempty"`
	Timestamp        time.Time `json:"timestamp,omitzero"`
}

// Key groups a record by provider:model.
func (r UsageRecord) Key() string {
	if r.Provider == "" {
		return r.Model
	}
	return r.Provider + ":" + r.Model
}

// parseUsage reads records leniently: missing numbers count as zero.
func parseUsage(body []byte) ([]UsageRecord, error) {
	items, err := listItems(body, "usage")
	if err != nil {
		return nil, err
	}
	records := make([]UsageRecord, 0, len(items))
	for _, item := range items {
		rec := UsageRecord{
			PromptTokens:     int(item.Get("prompt_tokens").Int()),
			CompletionTokens: int(item.Get("completion_tokens").Int()),
			TotalTokens:      int(item.Get("total_tokens").Int()),
			Cost:             item.Get("cost").Float(),
			Model:            item.Get("model").String(),
			Provider:         item.Get("provider").String(),
		}
		if ts := firstString(item, "timestamp", "created_at"); ts != "" {
			if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
				rec.Timestamp = t
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// Summary totals a set of usage records.
type Summary struct {
	TotalPromptTokens     int     `json:"total_prompt_tokens"`
	TotalCompletionTokens int     `json:"total_completion_tokens"`
	TotalTokens           int     `json:"total_tokens"`
	TotalCost             float64 `json:"total_cost,omitempty"`
	RequestCount          int     `json:"request_count"`
}

// Add returns the field-wise sum of s and o.
func (s Summary) Add(o Summary) Summary {
	return Summary{
		TotalPromptTokens:     s.TotalPromptTokens + o.TotalPromptTokens,
		TotalCompletionTokens: s.TotalCompletionTokens + o.TotalCompletionTokens,
		TotalTokens:           s.TotalTokens + o.TotalTokens,
		TotalCost:             s.TotalCost + o.TotalCost,
		RequestCount:          s.RequestCount + o.RequestCount,
	}
}

// Summarize totals records. RequestCount is the number of records.
func Summarize(records []UsageRecord) Summary {
	return Summary{
		TotalPromptTokens:     lo.SumBy(records, func(r UsageRecord) int { return r.PromptTokens }),
		TotalCompletionTokens: lo.SumBy(records, func(r UsageRecord) int { return r.CompletionTokens }),
		TotalTokens:           lo.SumBy(records, func(r UsageRecord) int { return r.TotalTokens }),
		TotalCost:             lo.SumBy(records, func(r UsageRecord) float64 { return r.Cost }),
		RequestCount:          len(records),
	}
}

// ByModel summarizes records per provider:model.
func ByModel(records []UsageRecord) map[string]Summary {
	groups := lo.GroupBy(records, UsageRecord.Key)
	return lo.MapValues(groups, func(rs []UsageRecord, _ string) Summary { return Summarize(rs) })
}

// UserSummary is one user's totals.
type UserSummary struct {
	UserID string `json:"user_id"`
	Summary
}

// Aggregate is the usage of several users.
type Aggregate struct {
	Users []UserSummary `json:"users"`
	Total Summary       `json:"total"`
}

// DefaultConcurrency bounds AggregateUsers' parallel requests.
const DefaultConcurrency = 4

// AggregateUsers fetches the usage of each user concurrently. Any failed
// fetch fails the whole aggregate. Users keep the order of ids.
func (c *Client) AggregateUsers(ctx context.Context, ids []string) (Aggregate, error) {
	users := make([]UserSummary, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(DefaultConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			records, err := c.UserUsage(gctx, id)
			if err != nil {
				return err
			}
			users[i] = UserSummary{UserID: id, Summary: Summarize(records)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Aggregate{}, err
	}

	total := lo.Reduce(users, func(acc Summary, u UserSummary, _ int) Summary { return acc.Add(u.Summary) }, Summary{})
	return Aggregate{Users: users, Total: total}, nil
}
