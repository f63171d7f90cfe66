package domain

// Delivery says how a capability's static parameter reaches the model.
type Delivery string

const (
	// DeliverInject runs the capability before the first call and injects
	// its output as a user message.
	DeliverInject Delivery = "inject"
	// DeliverTool offers the capability to the model as an invocable tool.
	DeliverTool Delivery = "tool"
	// DeliverBoth does both.
	DeliverBoth Delivery = "both"
)

// Injects reports whether the delivery includes pre-execution injection.
func (d Delivery) Injects() bool { return d == DeliverInject || d == DeliverBoth }

// OffersTool reports whether the delivery includes a model-invocable tool.
func (d Delivery) OffersTool() bool { return d == DeliverTool || d == DeliverBoth }

// Scrape output formats.
const (
	ScrapeFormatText     = "text"
	ScrapeFormatMarkdown = "markdown"
)

// AgentConfig is the stored configuration of one agent: a system prompt
// paired with a model and a set of enabled tool capabilities.
// It is read-only input to orchestration.
type AgentConfig struct {
	AppID int64  `json:"app_id"`
	Name  string `json:"name"` // diagnostic/queue label

	Model  string `json:"model,omitempty"` // override; falls back to global default
	Prompt string `json:"prompt"`

	ToolNotification  bool `json:"tool_notification"`
	ToolWebsiteScrape bool `json:"tool_website_scrape"`
	ToolRunCommand    bool `json:"tool_run_command"`

	WebsiteURL      string   `json:"website_url,omitempty"`
	ScrapeFormat    string   `json:"scrape_format,omitempty"`    // text|markdown
	ScrapeDelivery  Delivery `json:"scrape_delivery,omitempty"`  // default both
	CommandDelivery Delivery `json:"command_delivery,omitempty"` // default tool
	Command         string   `json:"command,omitempty"`
}

// EffectiveScrapeDelivery returns the scrape delivery with the default applied.
func (a *AgentConfig) EffectiveScrapeDelivery() Delivery {
	if a.ScrapeDelivery == "" {
		return DeliverBoth
	}
	return a.ScrapeDelivery
}

// EffectiveCommandDelivery returns the command delivery with the default applied.
func (a *AgentConfig) EffectiveCommandDelivery() Delivery {
	if a.CommandDelivery == "" {
		return DeliverTool
	}
	return a.CommandDelivery
}

// EffectiveScrapeFormat returns the scrape format with the default applied.
func (a *AgentConfig) EffectiveScrapeFormat() string {
	if a.ScrapeFormat == "" {
		return ScrapeFormatText
	}
	return a.ScrapeFormat
}
