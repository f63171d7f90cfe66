package tool

import (
	"encoding/json"

	"launchdock/internal/domain"
)

// Fixed tool names offered to the model.
const (
	NameSendNotification = "send_notification"
	NameScrapeWebsite    = "scrape_website"
	NameRunCommand       = "run_command"
)

// The tool descriptions below are a behavioral contract, not documentation:
// their wording biases the model toward conservative tool use.

// NotificationDefinition returns the send_notification tool schema.
func NotificationDefinition() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        NameSendNotification,
		Description: "Send a notification to the user to inform them about important events, findings, or errors. ONLY use this tool when the user's specified conditions are met or when there's critical information to report. Do NOT send notifications for negative results unless explicitly requested. Examples: 'Product is now in stock', 'Error: Unable to access the website', 'New article found matching your criteria'.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"message": {
					"type": "string",
					"description": "The notification message to display to the user. Should be clear, concise, and informative."
				}
			},
			"required": ["message"]
		}`),
	}
}

// ScrapeDefinition returns the scrape_website tool schema.
func ScrapeDefinition() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        NameScrapeWebsite,
		Description: "Scrape a website and extract its text content. Use this when you need the current content of a web page to complete your task. The extracted text will be returned to you as context. Only scrape pages relevant to your instructions.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"url": {
					"type": "string",
					"description": "The full URL of the website to scrape (e.g., 'https://example.com/news')"
				}
			},
			"required": ["url"]
		}`),
	}
}

// RunCommandDefinition returns the run_command tool schema.
func RunCommandDefinition() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        NameRunCommand,
		Description: "Execute a system command and get its output. Use this when you need to perform actions or gather additional information by running commands. The command will be executed and you will receive its stdout, stderr, and exit code. You can run any valid system command.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"command": {
					"type": "string",
					"description": "The system command to execute (e.g., 'ls -la', 'df -h', 'touch /path/to/file')"
				}
			},
			"required": ["command"]
		}`),
	}
}
