package v1

import (
	"net/netip"

	"github.com/database64128/rulesets-go/build"
	"github.com/database64128/rulesets-go/output"
	"github.com/gofiber/fiber/v2"
)

// RulesetManager handles ruleset API requests.
type RulesetManager struct {
	store *build.Store
}

// NewRulesetManager returns a new ruleset manager that serves rulesets from the store.
func NewRulesetManager(store *build.Store) *RulesetManager {
	return &RulesetManager{store: store}
}

// Routes sets up routes for the /v1/rulesets endpoint.
func (rm *RulesetManager) Routes(v1 fiber.Router) {
	v1.Get("/rulesets", rm.ListRulesets)

	ruleset := v1.Group("/rulesets/:ruleset", rm.ContextRuleset)
	ruleset.Get("", rm.GetRuleset)
	ruleset.Get("/match", rm.Match)
	ruleset.Get("/files/:output", rm.GetFile)
}

// RulesetList contains the reports of the last successful build of each ruleset.
type RulesetList struct {
	Rulesets []build.Report `json:"rulesets"`
}

// ListRulesets lists all built rulesets.
func (rm *RulesetManager) ListRulesets(c *fiber.Ctx) error {
	return c.JSON(&RulesetList{Rulesets: rm.store.List()})
}

// ContextRuleset is a middleware for the rulesets group.
// It adds the ruleset with the given name to the request context.
func (rm *RulesetManager) ContextRuleset(c *fiber.Ctx) error {
	name := c.Params("ruleset")
	compiled, ok := rm.store.Get(name)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(&StandardError{Message: "ruleset not found"})
	}
	c.Locals(0, compiled)
	return c.Next()
}

// rulesetFromContext returns the ruleset from the request context.
func rulesetFromContext(c *fiber.Ctx) *build.Compiled {
	return c.Locals(0).(*build.Compiled)
}

// GetRuleset returns the build report of a ruleset.
func (rm *RulesetManager) GetRuleset(c *fiber.Ctx) error {
	return c.JSON(&rulesetFromContext(c).Report)
}

// MatchResult is the result of a match query.
type MatchResult struct {
	Ruleset string `json:"ruleset"`
	Query   string `json:"query"`
	Matched bool   `json:"matched"`
}

// Match checks whether the ruleset matches the domain or ip query parameter.
func (rm *RulesetManager) Match(c *fiber.Ctx) error {
	compiled := rulesetFromContext(c)
	domain, ip := c.Query("domain"), c.Query("ip")

	switch {
	case domain != "" && ip == "":
		if compiled.Report.Type != build.TypeDomain {
			return c.Status(fiber.StatusBadRequest).JSON(&StandardError{Message: "not a domain ruleset"})
		}
		return c.JSON(&MatchResult{
			Ruleset: compiled.Report.Name,
			Query:   domain,
			Matched: compiled.MatchDomain(domain),
		})

	case ip != "" && domain == "":
		if compiled.Report.Type != build.TypeIP {
			return c.Status(fiber.StatusBadRequest).JSON(&StandardError{Message: "not an IP ruleset"})
		}
		addr, err := netip.ParseAddr(ip)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(&StandardError{Message: err.Error()})
		}
		return c.JSON(&MatchResult{
			Ruleset: compiled.Report.Name,
			Query:   ip,
			Matched: compiled.MatchAddr(addr),
		})

	default:
		return c.Status(fiber.StatusBadRequest).JSON(&StandardError{Message: "exactly one of domain and ip is required"})
	}
}

// GetFile sends the output file of the given kind.
func (rm *RulesetManager) GetFile(c *fiber.Ctx) error {
	compiled := rulesetFromContext(c)
	path, ok := compiled.Report.Files[output.Kind(c.Params("output"))]
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(&StandardError{Message: "output not found"})
	}
	return c.SendFile(path)
}
