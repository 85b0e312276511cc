package main

import (
	"strings"

	"folio/internal/config"
)

// commandContext carries flag values and lazily resolved settings shared by
// all commands.
type commandContext struct {
	apiFlag    *string
	configFlag *string
}

func newCommandContext(apiFlag, configFlag *string) *commandContext {
	return &commandContext{apiFlag: apiFlag, configFlag: configFlag}
}

// apiBaseURL resolves the daemon address: the --api flag wins, otherwise the
// bind address from configuration.
func (c *commandContext) apiBaseURL() (string, error) {
	if c.apiFlag != nil {
		if flag := strings.TrimSpace(*c.apiFlag); flag != "" {
			return strings.TrimRight(flag, "/"), nil
		}
	}
	path := ""
	if c.configFlag != nil {
		path = *c.configFlag
	}
	cfg, _, _, err := config.Load(path)
	if err != nil {
		return "", err
	}
	bind := cfg.Paths.APIBind
	if strings.HasPrefix(bind, ":") {
		bind = "127.0.0.1" + bind
	}
	return "http://" + bind, nil
}

func (c *commandContext) client() (*apiClient, error) {
	base, err := c.apiBaseURL()
	if err != nil {
		return nil, err
	}
	return newAPIClient(base), nil
}
