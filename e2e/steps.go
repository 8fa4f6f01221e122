package e2e

import (
	"github.com/cucumber/godog"

	"longtrees/e2e/steps/common"
	"longtrees/e2e/steps/nursery"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Register common steps (health, generic requests, assertions)
	common.RegisterSteps(ctx, tc)

	// Register nursery resource steps
	nursery.RegisterSteps(ctx, tc)
}
