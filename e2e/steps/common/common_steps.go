package common

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	Do(method, path string, body any) error
	GET(path string) error
	Status() int
	GetResponseField(field string) (any, error)
	Remember(alias string) error
	Expand(s string) string
}

// RegisterSteps registers generic request and assertion steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^the longtrees API is running$`, steps.apiIsRunning)
	ctx.Step(`^I (GET|DELETE|POST) "([^"]*)"$`, steps.request)
	ctx.Step(`^I (POST|PUT) "([^"]*)" with:$`, steps.requestWithBody)
	ctx.Step(`^I remember the response as "([^"]*)"$`, steps.remember)

	ctx.Step(`^the response status should be (\d+)$`, steps.statusShouldBe)
	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, steps.fieldShouldEqual)
	ctx.Step(`^the error code should be "([^"]*)"$`, steps.errorCodeShouldBe)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) apiIsRunning(ctx context.Context) error {
	if err := s.tc.GET("/healthz"); err != nil {
		return err
	}
	if s.tc.Status() != http.StatusOK {
		return fmt.Errorf("health check returned %d", s.tc.Status())
	}
	return nil
}

func (s *commonSteps) request(ctx context.Context, method, path string) error {
	return s.tc.Do(method, path, nil)
}

func (s *commonSteps) requestWithBody(ctx context.Context, method, path string, doc *godog.DocString) error {
	var body map[string]any
	if err := json.Unmarshal([]byte(s.tc.Expand(doc.Content)), &body); err != nil {
		return fmt.Errorf("step body is not a JSON object: %w", err)
	}
	return s.tc.Do(method, path, body)
}

func (s *commonSteps) remember(ctx context.Context, alias string) error {
	return s.tc.Remember(alias)
}

func (s *commonSteps) statusShouldBe(ctx context.Context, want int) error {
	if got := s.tc.Status(); got != want {
		return fmt.Errorf("expected status %d, got %d", want, got)
	}
	return nil
}

func (s *commonSteps) fieldShouldEqual(ctx context.Context, field, want string) error {
	v, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	want = s.tc.Expand(want)
	if got := fmt.Sprint(v); got != want {
		return fmt.Errorf("expected %s=%q, got %q", field, want, got)
	}
	return nil
}

func (s *commonSteps) errorCodeShouldBe(ctx context.Context, code string) error {
	return s.fieldShouldEqual(ctx, "error", code)
}
