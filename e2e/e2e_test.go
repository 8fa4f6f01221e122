package e2e

import (
	"context"
	"os"
	"testing"

	"github.com/cucumber/godog"
)

// TestFeatures needs LONGTREES_E2E_URL pointing at a running server, e.g.
// http://localhost:8080.
func TestFeatures(t *testing.T) {
	baseURL := os.Getenv("LONGTREES_E2E_URL")
	if baseURL == "" {
		t.Skip("LONGTREES_E2E_URL not set")
	}

	tc := NewTestContext(baseURL)
	suite := godog.TestSuite{
		Name: "longtrees",
		ScenarioInitializer: func(ctx *godog.ScenarioContext) {
			ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
				tc.Reset()
				return ctx, nil
			})
			RegisterSteps(ctx, tc)
		},
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
			Strict:   true,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("feature run failed")
	}
}
