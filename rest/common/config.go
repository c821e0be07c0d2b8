package common

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// REST server configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds all configuration parameters for the REST server.
type ServerConfig struct {
	// Stores maps a route alias to the segment name it fronts. The server
	// attaches to every listed segment on startup (creating it if needed).
	Stores map[string]string

	// HTTP api settings
	Endpoint string

	// Logging configuration
	LogLevel string
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// REST settings
	addSection("REST Server")
	addField("Endpoint", c.Endpoint)

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	// Stores
	addSection("Stores")

	// Sort aliases for consistent output
	var aliases []string
	for alias := range c.Stores {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	for _, alias := range aliases {
		addField(alias, c.Stores[alias])
	}

	return sb.String()
}

// --------------------------------------------------------------------------
// REST client configuration struct
// --------------------------------------------------------------------------

type ClientConfig struct {
	Endpoints     []string
	Store         string
	TimeoutSecond int
	RetryCount    int
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Store", c.Store)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", strconv.Itoa(c.RetryCount))

	// Endpoints
	addSection("Endpoints")
	for i, endpoint := range c.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	return sb.String()
}
