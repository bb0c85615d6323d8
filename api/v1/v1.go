// Package v1 implements the v1 ruleset API.
package v1

import (
	rulesets "github.com/database64128/rulesets-go"
	"github.com/database64128/rulesets-go/build"
	"github.com/gofiber/fiber/v2"
)

// StandardError is the standard error response.
type StandardError struct {
	Message string `json:"error"`
}

// ServerInfo contains information about the API server.
type ServerInfo struct {
	Name       string `json:"server"`
	Version    string `json:"version"`
	APIVersion string `json:"apiVersion"`
}

var serverInfo = ServerInfo{
	Name:       "rulesets-go",
	Version:    rulesets.Version,
	APIVersion: "v1",
}

// GetServerInfo returns information about the API server.
func GetServerInfo(c *fiber.Ctx) error {
	return c.JSON(&serverInfo)
}

// Routes sets up routes for the /v1 endpoint.
func Routes(router fiber.Router, store *build.Store) *RulesetManager {
	v1 := router.Group("/v1")
	v1.Get("", GetServerInfo)
	rm := NewRulesetManager(store)
	rm.Routes(v1)
	return rm
}
