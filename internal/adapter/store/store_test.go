package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"launchdock/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAISettingsDefaults(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	settings, err := s.AISettings(ctx)
	require.NoError(t, err)
	require.False(t, settings.Enabled)
	require.Equal(t, "http://localhost:1234", settings.EndpointURL)
	require.Empty(t, settings.APIKey)
	require.Empty(t, settings.DefaultModel)
	require.Equal(t, 1, settings.MaxConcurrentAgents)
}

func TestAISettingsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetAIEnabled(ctx, true))
	require.NoError(t, s.SetAIEndpointURL(ctx, "http://example.com:8080"))
	require.NoError(t, s.SetAIAPIKey(ctx, "sk-test"))
	require.NoError(t, s.SetAIDefaultModel(ctx, "llama-3.1-8b"))
	require.NoError(t, s.SetAIMaxConcurrent(ctx, 3))

	settings, err := s.AISettings(ctx)
	require.NoError(t, err)
	require.True(t, settings.Enabled)
	require.Equal(t, "http://example.com:8080", settings.EndpointURL)
	require.Equal(t, "sk-test", settings.APIKey)
	require.Equal(t, "llama-3.1-8b", settings.DefaultModel)
	require.Equal(t, 3, settings.MaxConcurrentAgents)
}

func TestAISettingsIgnoresInvalidMaxConcurrent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.setSetting(ctx, keyAIMaxConcurrent, "not-a-number"))
	settings, err := s.AISettings(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, settings.MaxConcurrentAgents)
}

func TestAgentAppCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	agent := &domain.AgentConfig{
		AppID:             42,
		Name:              "disk-watcher",
		Model:             "qwen2.5-coder",
		Prompt:            "Check the disk usage and summarize it.",
		ToolNotification:  true,
		ToolRunCommand:    true,
		Command:           "df -h",
		ToolWebsiteScrape: true,
		WebsiteURL:        "https://example.com",
		ScrapeFormat:      domain.ScrapeFormatMarkdown,
	}
	require.NoError(t, s.SaveAgentApp(ctx, agent))

	got, err := s.GetAgentApp(ctx, 42)
	require.NoError(t, err)
	require.Equal(t, "disk-watcher", got.Name)
	require.Equal(t, "qwen2.5-coder", got.Model)
	require.Equal(t, "df -h", got.Command)
	require.True(t, got.ToolNotification)
	require.True(t, got.ToolRunCommand)
	require.True(t, got.ToolWebsiteScrape)
	require.Equal(t, domain.ScrapeFormatMarkdown, got.ScrapeFormat)
	// Delivery defaults are materialized on save.
	require.Equal(t, domain.DeliverBoth, got.ScrapeDelivery)
	require.Equal(t, domain.DeliverTool, got.CommandDelivery)

	agent.Prompt = "Summarize aggressively."
	require.NoError(t, s.SaveAgentApp(ctx, agent))
	got, err = s.GetAgentApp(ctx, 42)
	require.NoError(t, err)
	require.Equal(t, "Summarize aggressively.", got.Prompt)

	require.NoError(t, s.DeleteAgentApp(ctx, 42))
	_, err = s.GetAgentApp(ctx, 42)
	require.ErrorIs(t, err, domain.ErrItemNotFound)
	require.ErrorIs(t, s.DeleteAgentApp(ctx, 42), domain.ErrItemNotFound)
}

func TestQueueLifecycleCompleted(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.AddQueueItem(ctx, `[{"role":"system","content":"hi"}]`, "watcher")
	require.NoError(t, err)

	item, err := s.GetQueueItem(ctx, id)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, item.Status)
	require.Equal(t, "watcher", item.AgentName)
	require.False(t, item.CreatedAt.IsZero())
	require.Nil(t, item.StartedAt)
	require.Nil(t, item.CompletedAt)

	require.NoError(t, s.MarkProcessing(ctx, id))
	item, err = s.GetQueueItem(ctx, id)
	require.NoError(t, err)
	require.Equal(t, domain.StatusProcessing, item.Status)
	require.NotNil(t, item.StartedAt)

	require.NoError(t, s.MarkTerminal(ctx, id, domain.StatusCompleted, "All good"))
	item, err = s.GetQueueItem(ctx, id)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, item.Status)
	require.Equal(t, "All good", item.Response)
	require.NotNil(t, item.CompletedAt)
}

func TestQueueTerminalStatusIsExclusive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.AddQueueItem(ctx, "m", "a")
	require.NoError(t, err)
	require.NoError(t, s.MarkProcessing(ctx, id))
	require.NoError(t, s.MarkTerminal(ctx, id, domain.StatusFailed, "LLM request failed: boom"))

	// A second terminal write must not overwrite the first.
	err = s.MarkTerminal(ctx, id, domain.StatusCompleted, "late success")
	require.ErrorIs(t, err, domain.ErrItemNotFound)

	item, err := s.GetQueueItem(ctx, id)
	require.NoError(t, err)
	require.Equal(t, domain.StatusFailed, item.Status)
	require.Equal(t, "LLM request failed: boom", item.Response)
}

func TestMarkProcessingRequiresPending(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.AddQueueItem(ctx, "m", "a")
	require.NoError(t, err)
	require.NoError(t, s.MarkProcessing(ctx, id))
	require.ErrorIs(t, s.MarkProcessing(ctx, id), domain.ErrItemNotFound)
	require.ErrorIs(t, s.MarkProcessing(ctx, id+100), domain.ErrItemNotFound)
}

func TestMarkTerminalRejectsLiveStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.AddQueueItem(ctx, "m", "a")
	require.NoError(t, err)
	err = s.MarkTerminal(ctx, id, domain.StatusProcessing, "")
	require.Error(t, err)
	var de *domain.DomainError
	require.True(t, errors.As(err, &de))
	require.Equal(t, domain.CodeInvalidInput, de.Code())
}

func TestExpireProcessing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	stuck, err := s.AddQueueItem(ctx, "m1", "a")
	require.NoError(t, err)
	require.NoError(t, s.MarkProcessing(ctx, stuck))

	fresh, err := s.AddQueueItem(ctx, "m2", "a")
	require.NoError(t, err)

	ids, err := s.ExpireProcessing(ctx, time.Now().Add(time.Minute), "processing deadline exceeded")
	require.NoError(t, err)
	require.Equal(t, []int64{stuck}, ids)

	item, err := s.GetQueueItem(ctx, stuck)
	require.NoError(t, err)
	require.Equal(t, domain.StatusFailed, item.Status)
	require.Equal(t, "processing deadline exceeded", item.Response)

	// Pending rows are untouched.
	item, err = s.GetQueueItem(ctx, fresh)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, item.Status)
}

func TestQueueItemsAndClearFinished(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, err := s.AddQueueItem(ctx, "m1", "x")
	require.NoError(t, err)
	b, err := s.AddQueueItem(ctx, "m2", "x")
	require.NoError(t, err)

	items, err := s.QueueItems(ctx, 0)
	require.NoError(t, err)
	require.Len(t, items, 2)
	// Newest first; same-second inserts fall back to id order.
	require.Equal(t, b, items[0].ID)
	require.Equal(t, a, items[1].ID)

	require.NoError(t, s.MarkProcessing(ctx, a))
	require.NoError(t, s.MarkTerminal(ctx, a, domain.StatusCompleted, "done"))

	n, err := s.ClearFinished(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	count, err := s.CountQueueItems(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestNotifications(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.CreateNotification(ctx, "disk almost full")
	require.NoError(t, err)
	_, err = s.CreateNotification(ctx, "build finished")
	require.NoError(t, err)

	active, err := s.Notifications(ctx, false)
	require.NoError(t, err)
	require.Len(t, active, 2)

	require.NoError(t, s.DismissNotification(ctx, first))
	active, err = s.Notifications(ctx, false)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, "build finished", active[0].Text)

	all, err := s.Notifications(ctx, true)
	require.NoError(t, err)
	require.Len(t, all, 2)

	require.NoError(t, s.DismissAllNotifications(ctx))
	active, err = s.Notifications(ctx, false)
	require.NoError(t, err)
	require.Empty(t, active)
}

func TestSaveModelsReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveModels(ctx, []domain.Model{
		{ID: "llama-3.1-8b", Created: 100},
		{ID: "qwen2.5-coder", Created: 200},
	}))
	require.NoError(t, s.SaveModels(ctx, []domain.Model{
		{ID: "mistral-7b", Created: 300},
	}))

	models, err := s.Models(ctx)
	require.NoError(t, err)
	require.Len(t, models, 1)
	require.Equal(t, "mistral-7b", models[0].ID)
}
