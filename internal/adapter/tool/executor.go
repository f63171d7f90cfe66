package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"launchdock/internal/domain"
	"launchdock/internal/infra/tracer"
)

// Notifier delivers a notification to the user.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// Scraper fetches a web page as plain text.
type Scraper interface {
	Scrape(ctx context.Context, url string) (string, error)
}

// Executor dispatches a named tool call with JSON arguments to one of the
// fixed side-effecting actions and returns a textual result.
type Executor struct {
	notifier   Notifier
	scraper    Scraper
	cmdTimeout time.Duration
	logger     *slog.Logger
}

// NewExecutor creates an Executor. cmdTimeout bounds run_command executions;
// zero means no timeout.
func NewExecutor(notifier Notifier, scraper Scraper, cmdTimeout time.Duration, logger *slog.Logger) *Executor {
	return &Executor{
		notifier:   notifier,
		scraper:    scraper,
		cmdTimeout: cmdTimeout,
		logger:     logger,
	}
}

// SchemasFor returns the tool definitions offered to the model for an agent
// configuration, derived from its capability flags and delivery modes.
func SchemasFor(agent *domain.AgentConfig) []domain.ToolSchema {
	var schemas []domain.ToolSchema
	if agent.ToolNotification {
		schemas = append(schemas, NotificationDefinition())
	}
	if agent.ToolWebsiteScrape && agent.EffectiveScrapeDelivery().OffersTool() {
		schemas = append(schemas, ScrapeDefinition())
	}
	if agent.ToolRunCommand && agent.EffectiveCommandDelivery().OffersTool() {
		schemas = append(schemas, RunCommandDefinition())
	}
	return schemas
}

// Execute runs the named tool. Arguments are parsed leniently: malformed
// JSON is treated as an empty object rather than aborting the turn.
func (e *Executor) Execute(ctx context.Context, name, arguments string) (string, error) {
	ctx, span := tracer.StartSpan(ctx, "tool.execute",
		trace.WithAttributes(tracer.StringAttr("tool.name", name)),
	)
	defer span.End()

	args := parseArgs(arguments)

	var result string
	var err error
	switch name {
	case NameSendNotification:
		result, err = e.sendNotification(ctx, args)
	case NameScrapeWebsite:
		result, err = e.scrapeWebsite(ctx, args)
	case NameRunCommand:
		result, err = e.runCommand(ctx, args)
	default:
		err = domain.NewDomainError("tool.Execute", domain.ErrToolNotFound, name)
	}

	if err != nil {
		tracer.RecordError(span, err)
		return "", err
	}
	tracer.SetOK(span)
	return result, nil
}

// parseArgs decodes the model-supplied argument string. A parse failure
// yields an empty argument set.
func parseArgs(arguments string) map[string]any {
	args := map[string]any{}
	if arguments == "" {
		return args
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return map[string]any{}
	}
	return args
}

func stringArg(args map[string]any, key string) (string, bool) {
	v, ok := args[key].(string)
	return v, ok
}

func (e *Executor) sendNotification(ctx context.Context, args map[string]any) (string, error) {
	message, ok := stringArg(args, "message")
	if !ok {
		return "", domain.NewDomainError("tool.send_notification", domain.ErrMissingArgument, "message")
	}

	if err := e.notifier.Send(ctx, message); err != nil {
		return "", domain.WrapOp("tool.send_notification", err)
	}
	return fmt.Sprintf("Notification sent: %s", message), nil
}

func (e *Executor) scrapeWebsite(ctx context.Context, args map[string]any) (string, error) {
	url, ok := stringArg(args, "url")
	if !ok {
		return "", domain.NewDomainError("tool.scrape_website", domain.ErrMissingArgument, "url")
	}

	content, err := e.scraper.Scrape(ctx, url)
	if err != nil {
		return "", domain.WrapOp("tool.scrape_website", err)
	}
	return fmt.Sprintf("Website content from %s:\n\n%s", url, content), nil
}

// runCommand executes the literal program named by the command string.
// There is no allow-list, confirmation step, or sandbox; every execution is
// audit-logged. See DESIGN.md for the risk discussion.
func (e *Executor) runCommand(ctx context.Context, args map[string]any) (string, error) {
	commandStr, ok := stringArg(args, "command")
	if !ok {
		return "", domain.NewDomainError("tool.run_command", domain.ErrMissingArgument, "command")
	}

	words, err := SplitWords(commandStr)
	if err != nil {
		return "", domain.NewDomainError("tool.run_command", domain.ErrInvalidInput, err.Error())
	}
	if len(words) == 0 {
		return "", domain.NewDomainError("tool.run_command", domain.ErrEmptyCommand, "")
	}

	if e.cmdTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cmdTimeout)
		defer cancel()
	}

	e.logger.Info("executing command", "program", words[0], "args", words[1:])

	cmd := exec.CommandContext(ctx, words[0], words[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	var exitErr *exec.ExitError
	if runErr != nil && !errors.As(runErr, &exitErr) {
		return "", domain.NewDomainError("tool.run_command", domain.ErrSpawnFailed, runErr.Error())
	}

	var report strings.Builder
	if stdout.Len() > 0 {
		fmt.Fprintf(&report, "STDOUT:\n%s\n", stdout.String())
	}
	if stderr.Len() > 0 {
		fmt.Fprintf(&report, "STDERR:\n%s\n", stderr.String())
	}
	if code := cmd.ProcessState.ExitCode(); code >= 0 {
		fmt.Fprintf(&report, "Exit code: %d\n", code)
	}
	return report.String(), nil
}

// Schemas implements the orchestrator's schema lookup for an agent config.
func (e *Executor) Schemas(agent *domain.AgentConfig) []domain.ToolSchema {
	return SchemasFor(agent)
}
