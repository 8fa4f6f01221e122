package nursery

import (
	"context"
	"fmt"
	"net/http"
	"slices"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	GET(path string) error
	Status() int
	GetResponseField(field string) (any, error)
	Remember(alias string) error
	ID(alias string) (string, error)
}

// RegisterSteps registers steps that create and inspect nursery resources
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &nurserySteps{tc: tc}

	ctx.Step(`^a seed source "([^"]*)" exists as "([^"]*)"$`, steps.seedSourceExists)
	ctx.Step(`^a grower "([^"]*)" exists as "([^"]*)"$`, steps.growerExists)
	ctx.Step(`^a sub-succession of "([^"]*)" assigned to "([^"]*)" exists as "([^"]*)"$`, steps.subSuccessionExists)
	ctx.Step(`^the grower "([^"]*)" should list the sub-succession "([^"]*)"$`, steps.growerShouldList)
	ctx.Step(`^the sub-succession "([^"]*)" should list the tree "([^"]*)"$`, steps.subSuccessionShouldList)
}

type nurserySteps struct {
	tc TestContext
}

func (s *nurserySteps) create(path, alias string, body map[string]any) error {
	if err := s.tc.POST(path, body); err != nil {
		return err
	}
	if s.tc.Status() != http.StatusCreated {
		return fmt.Errorf("POST %s returned %d", path, s.tc.Status())
	}
	return s.tc.Remember(alias)
}

func (s *nurserySteps) seedSourceExists(ctx context.Context, number, alias string) error {
	return s.create("/seed_sources/", alias, map[string]any{
		"succession_number": number,
		"germination_rate":  0.82,
		"quantity":          50,
		"date_added":        "2024-03-01",
		"seeds_issued":      0,
	})
}

func (s *nurserySteps) growerExists(ctx context.Context, name, alias string) error {
	return s.create("/growers/", alias, map[string]any{
		"name":      name,
		"joined_at": "2024-01-10",
	})
}

func (s *nurserySteps) subSuccessionExists(ctx context.Context, seedAlias, growerAlias, alias string) error {
	seedID, err := s.tc.ID(seedAlias)
	if err != nil {
		return err
	}
	growerID, err := s.tc.ID(growerAlias)
	if err != nil {
		return err
	}
	return s.create("/sub_successions/", alias, map[string]any{
		"sub_succession_number": alias,
		"seed_source_id":        seedID,
		"grower_id":             growerID,
		"created_at":            "2024-03-02",
		"status":                "active",
	})
}

func (s *nurserySteps) growerShouldList(ctx context.Context, growerAlias, subAlias string) error {
	return s.listContains("/growers/", growerAlias, "assigned_sub_successions", subAlias)
}

func (s *nurserySteps) subSuccessionShouldList(ctx context.Context, subAlias, treeAlias string) error {
	return s.listContains("/sub_successions/", subAlias, "tree_list", treeAlias)
}

func (s *nurserySteps) listContains(base, ownerAlias, field, memberAlias string) error {
	ownerID, err := s.tc.ID(ownerAlias)
	if err != nil {
		return err
	}
	memberID, err := s.tc.ID(memberAlias)
	if err != nil {
		return err
	}
	if err := s.tc.GET(base + ownerID); err != nil {
		return err
	}
	v, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	items, _ := v.([]any)
	if !slices.Contains(items, any(memberID)) {
		return fmt.Errorf("%s of %s does not contain %s", field, ownerAlias, memberAlias)
	}
	return nil
}
