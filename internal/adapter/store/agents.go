package store

import (
	"context"
	"database/sql"

	"launchdock/internal/domain"
)

// GetAgentApp loads the agent configuration for an app id.
func (s *Store) GetAgentApp(ctx context.Context, appID int64) (*domain.AgentConfig, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT app_id, name, model, prompt,
		       tool_notification, tool_website_scrape, tool_run_command,
		       website_url, scrape_format, scrape_delivery, command_delivery, command
		FROM agent_apps WHERE app_id = ?`, appID)

	var a domain.AgentConfig
	var model, websiteURL, scrapeFormat, scrapeDelivery, commandDelivery, command sql.NullString
	var notif, scrape, runCmd int
	err := row.Scan(&a.AppID, &a.Name, &model, &a.Prompt,
		&notif, &scrape, &runCmd,
		&websiteURL, &scrapeFormat, &scrapeDelivery, &commandDelivery, &command)
	if err == sql.ErrNoRows {
		return nil, domain.NewDomainError("store.GetAgentApp", domain.ErrItemNotFound, "agent app")
	}
	if err != nil {
		return nil, err
	}

	a.Model = model.String
	a.ToolNotification = notif != 0
	a.ToolWebsiteScrape = scrape != 0
	a.ToolRunCommand = runCmd != 0
	a.WebsiteURL = websiteURL.String
	a.ScrapeFormat = scrapeFormat.String
	a.ScrapeDelivery = domain.Delivery(scrapeDelivery.String)
	a.CommandDelivery = domain.Delivery(commandDelivery.String)
	a.Command = command.String
	return &a, nil
}

// SaveAgentApp inserts or replaces an agent configuration.
func (s *Store) SaveAgentApp(ctx context.Context, a *domain.AgentConfig) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO agent_apps (app_id, name, model, prompt,
			tool_notification, tool_website_scrape, tool_run_command,
			website_url, scrape_format, scrape_delivery, command_delivery, command)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(app_id) DO UPDATE SET
			name = excluded.name,
			model = excluded.model,
			prompt = excluded.prompt,
			tool_notification = excluded.tool_notification,
			tool_website_scrape = excluded.tool_website_scrape,
			tool_run_command = excluded.tool_run_command,
			website_url = excluded.website_url,
			scrape_format = excluded.scrape_format,
			scrape_delivery = excluded.scrape_delivery,
			command_delivery = excluded.command_delivery,
			command = excluded.command`,
		a.AppID, a.Name, a.Model, a.Prompt,
		boolToInt(a.ToolNotification), boolToInt(a.ToolWebsiteScrape), boolToInt(a.ToolRunCommand),
		a.WebsiteURL, a.EffectiveScrapeFormat(), string(a.EffectiveScrapeDelivery()),
		string(a.EffectiveCommandDelivery()), a.Command,
	)
	return err
}

// DeleteAgentApp removes an agent configuration.
func (s *Store) DeleteAgentApp(ctx context.Context, appID int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM agent_apps WHERE app_id = ?", appID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.NewDomainError("store.DeleteAgentApp", domain.ErrItemNotFound, "agent app")
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
