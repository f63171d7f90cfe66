package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"

	"launchdock/internal/domain"
	"launchdock/internal/infra/config"
	"launchdock/internal/infra/tracer"
)

// Short per-tool guidance lines enumerated in the system prompt. Their
// wording shapes model behavior and is part of the functional contract.
const (
	notificationGuidance = "send_notification: Send a notification to the user. Use this when you need to inform the user about something important."
	scrapeGuidance       = "scrape_website: Scrape a website and extract its text content. The content will be provided to you as context."
	runCommandGuidance   = "run_command: Run a system command. You can only run the exact command provided - you cannot modify or alter it."
)

// SettingsSource reads the global AI settings. Settings are re-read on
// every invocation and may change between the two calls of one invocation.
type SettingsSource interface {
	AISettings(ctx context.Context) (domain.AISettings, error)
}

// ChatClient issues chat-completion requests.
type ChatClient interface {
	ChatCompletion(ctx context.Context, model string, messages []domain.Message, tools []domain.ToolSchema) (*domain.ChatResponse, error)
}

// ToolRunner executes model-requested tool calls and derives the tool
// schemas offered for an agent configuration.
type ToolRunner interface {
	Execute(ctx context.Context, name, arguments string) (string, error)
	Schemas(agent *domain.AgentConfig) []domain.ToolSchema
}

// ContextScraper fetches website content for pre-execution injection.
type ContextScraper interface {
	ScrapeFormat(ctx context.Context, url, format string) (string, error)
}

// OrchestratorDeps carries the orchestrator's collaborators.
type OrchestratorDeps struct {
	Settings SettingsSource
	Chat     ChatClient
	Tools    ToolRunner
	Scraper  ContextScraper
	Queue    *QueueManager
	Logger   *slog.Logger
}

// Orchestrator drives one agent invocation through the two-phase
// conversation protocol: prompt assembly, admission, first call, optional
// tool execution, second call.
type Orchestrator struct {
	deps         OrchestratorDeps
	admission    string
	pollInterval time.Duration
}

// NewOrchestrator creates an orchestrator. queueCfg selects the admission
// mechanism (semaphore default, polling behind the flag).
func NewOrchestrator(deps OrchestratorDeps, queueCfg config.QueueConfig) *Orchestrator {
	admission := queueCfg.Admission
	if admission == "" {
		admission = config.AdmissionSemaphore
	}
	pollInterval := queueCfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 100 * time.Millisecond
	}
	return &Orchestrator{deps: deps, admission: admission, pollInterval: pollInterval}
}

// ExecuteAgent runs one agent invocation and returns the final text.
// Every terminus writes exactly one terminal queue status before
// returning, so queue state and the returned error never diverge.
func (o *Orchestrator) ExecuteAgent(ctx context.Context, agent *domain.AgentConfig) (string, error) {
	runID := ulid.Make().String()
	logger := o.deps.Logger.With("run_id", runID, "agent", agent.Name)

	ctx, span := tracer.StartSpan(ctx, "agent.execute",
		trace.WithAttributes(
			tracer.StringAttr("agent.run_id", runID),
			tracer.StringAttr("agent.name", agent.Name),
		),
	)
	defer span.End()

	settings, err := o.deps.Settings.AISettings(ctx)
	if err != nil {
		tracer.RecordError(span, err)
		return "", domain.WrapOp("agent.ExecuteAgent", err)
	}
	if !settings.Enabled {
		tracer.RecordError(span, domain.ErrAIDisabled)
		return "", domain.ErrAIDisabled
	}

	model := agent.Model
	if model == "" {
		model = settings.DefaultModel
	}
	if model == "" {
		tracer.RecordError(span, domain.ErrNoModel)
		return "", domain.ErrNoModel
	}
	span.SetAttributes(tracer.StringAttr("agent.model", model))

	systemPrompt := BuildSystemPrompt(agent)
	schemas := o.deps.Tools.Schemas(agent)

	messages := []domain.Message{{Role: domain.RoleSystem, Content: systemPrompt}}
	messages = o.injectContext(ctx, logger, agent, messages)

	serialized, err := json.Marshal(messages)
	if err != nil {
		serialized = []byte("")
	}

	queueID, err := o.deps.Queue.Enqueue(ctx, string(serialized), agent.Name)
	if err != nil {
		tracer.RecordError(span, err)
		return "", err
	}
	span.SetAttributes(tracer.Int64Attr("agent.queue_id", queueID))
	logger = logger.With("queue_id", queueID)

	if err := o.awaitSlot(ctx, queueID); err != nil {
		o.failItem(ctx, logger, queueID, err.Error())
		tracer.RecordError(span, err)
		return "", err
	}

	logger.Info("agent started", "model", model, "tools", len(schemas))

	response, err := o.deps.Chat.ChatCompletion(ctx, model, messages, schemas)
	if err != nil {
		o.failItem(ctx, logger, queueID, fmt.Sprintf("LLM request failed: %s", err))
		tracer.RecordError(span, err)
		return "", err
	}

	if len(response.Choices) == 0 {
		o.failItem(ctx, logger, queueID, "No choices in response")
		err := domain.NewDomainError("agent.ExecuteAgent", domain.ErrNoChoices, "first call")
		tracer.RecordError(span, err)
		return "", err
	}

	choice := response.Choices[0]
	if len(choice.Message.ToolCalls) == 0 {
		// No tool calls: the first response's content is the final answer.
		content := choice.Message.Content
		if err := o.deps.Queue.Complete(ctx, queueID, content); err != nil {
			tracer.RecordError(span, err)
			return "", err
		}
		logger.Info("agent completed", "phase", "first_call")
		tracer.SetOK(span)
		return content, nil
	}

	// Tool phase: execute each requested call in order, then replay the
	// conversation with the model's own partial reply before the results.
	finalMessages := make([]domain.Message, 0, len(messages)+1+len(choice.Message.ToolCalls))
	finalMessages = append(finalMessages, messages...)
	finalMessages = append(finalMessages, domain.Message{
		Role:    domain.RoleAssistant,
		Content: choice.Message.Content,
	})
	for _, call := range choice.Message.ToolCalls {
		finalMessages = append(finalMessages, o.executeToolCall(ctx, logger, call))
	}

	finalResponse, err := o.deps.Chat.ChatCompletion(ctx, model, finalMessages, nil)
	if err != nil {
		o.failItem(ctx, logger, queueID, fmt.Sprintf("LLM request failed: %s", err))
		tracer.RecordError(span, err)
		return "", err
	}

	if len(finalResponse.Choices) == 0 {
		o.failItem(ctx, logger, queueID, "No response from LLM")
		err := domain.NewDomainError("agent.ExecuteAgent", domain.ErrNoChoices, "second call")
		tracer.RecordError(span, err)
		return "", err
	}

	content := finalResponse.Choices[0].Message.Content
	if err := o.deps.Queue.Complete(ctx, queueID, content); err != nil {
		tracer.RecordError(span, err)
		return "", err
	}
	logger.Info("agent completed", "phase", "second_call", "tool_calls", len(choice.Message.ToolCalls))
	tracer.SetOK(span)
	return content, nil
}

// BuildSystemPrompt assembles the system prompt from the agent's base
// prompt, enabled-capability guidance, and static parameters. It is a pure
// function of the config: toggling a capability off removes both its tool
// guidance and its static-parameter text.
func BuildSystemPrompt(agent *domain.AgentConfig) string {
	var prompt strings.Builder
	prompt.WriteString(agent.Prompt)

	var guidance []string
	if agent.ToolNotification {
		guidance = append(guidance, notificationGuidance)
	}
	if agent.ToolWebsiteScrape {
		if agent.EffectiveScrapeDelivery().OffersTool() {
			guidance = append(guidance, scrapeGuidance)
		}
		if agent.WebsiteURL != "" {
			fmt.Fprintf(&prompt, "\n\nWebsite URL available for scraping: %s", agent.WebsiteURL)
		}
	}
	if agent.ToolRunCommand {
		if agent.EffectiveCommandDelivery().OffersTool() {
			guidance = append(guidance, runCommandGuidance)
		}
		if agent.Command != "" {
			fmt.Fprintf(&prompt, "\n\nCommand available to run: %s", agent.Command)
		}
	}

	if len(guidance) > 0 {
		prompt.WriteString("\n\nAvailable tools:\n")
		for _, g := range guidance {
			fmt.Fprintf(&prompt, "- %s\n", g)
		}
	}
	return prompt.String()
}

// injectContext performs the pre-execution side effects whose output
// becomes conversation context. Failures are recovered locally: a failed
// scrape is logged and skipped, a failed command becomes a user message
// the model can react to.
func (o *Orchestrator) injectContext(ctx context.Context, logger *slog.Logger, agent *domain.AgentConfig, messages []domain.Message) []domain.Message {
	if agent.ToolWebsiteScrape && agent.WebsiteURL != "" && agent.EffectiveScrapeDelivery().Injects() {
		content, err := o.deps.Scraper.ScrapeFormat(ctx, agent.WebsiteURL, agent.EffectiveScrapeFormat())
		if err != nil {
			logger.Warn("failed to scrape website", "url", agent.WebsiteURL, "error", err)
		} else {
			messages = append(messages, domain.Message{
				Role:    domain.RoleUser,
				Content: fmt.Sprintf("Please analyze the following website content from %s:\n\n%s", agent.WebsiteURL, content),
			})
		}
	}

	if agent.ToolRunCommand && agent.Command != "" && agent.EffectiveCommandDelivery().Injects() {
		args, _ := json.Marshal(map[string]string{"command": agent.Command})
		output, err := o.deps.Tools.Execute(ctx, "run_command", string(args))
		if err != nil {
			logger.Warn("pre-configured command failed", "command", agent.Command, "error", err)
			messages = append(messages, domain.Message{
				Role:    domain.RoleUser,
				Content: fmt.Sprintf("The pre-configured command %q failed: %s", agent.Command, err),
			})
		} else {
			messages = append(messages, domain.Message{
				Role:    domain.RoleUser,
				Content: fmt.Sprintf("Output of the pre-configured command %q:\n\n%s", agent.Command, output),
			})
		}
	}
	return messages
}

// awaitSlot acquires a processing slot using the configured admission
// mechanism.
func (o *Orchestrator) awaitSlot(ctx context.Context, queueID int64) error {
	if o.admission == config.AdmissionPolling {
		for !o.deps.Queue.CanProcess() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(o.pollInterval):
			}
		}
		return o.deps.Queue.StartProcessing(ctx, queueID)
	}
	return o.deps.Queue.Acquire(ctx, queueID)
}

// executeToolCall runs one tool call and converts the outcome into a
// tool-role message. Failures surface to the model as error text rather
// than aborting the turn.
func (o *Orchestrator) executeToolCall(ctx context.Context, logger *slog.Logger, call domain.ToolCall) domain.Message {
	result, err := o.deps.Tools.Execute(ctx, call.Name, call.Arguments)
	if err != nil {
		logger.Warn("tool call failed", "tool", call.Name, "error", err)
		return domain.Message{Role: domain.RoleTool, Content: fmt.Sprintf("Error: %s", err)}
	}
	logger.Debug("tool call succeeded", "tool", call.Name)
	return domain.Message{Role: domain.RoleTool, Content: result}
}

// failItem writes the item's terminal failed status. It survives caller
// cancellation so the queue row never stays processing.
func (o *Orchestrator) failItem(ctx context.Context, logger *slog.Logger, queueID int64, errText string) {
	if err := o.deps.Queue.Fail(context.WithoutCancel(ctx), queueID, errText); err != nil {
		logger.Error("failed to mark queue item failed", "queue_id", queueID, "error", err)
	}
}
