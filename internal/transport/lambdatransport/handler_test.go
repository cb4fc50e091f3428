package lambdatransport

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/aws/aws-lambda-go/events"

	"github.com/awmpietro/scenario-simulator/internal/app"
	"github.com/awmpietro/scenario-simulator/internal/scenario"
)

type svcStub struct {
	simulateFn func(ctx context.Context, in app.SimulateInput) (*scenario.ScenarioResult, error)
	historyFn  func(ctx context.Context, scenarioName string, limit int) ([]scenario.HistoryRecord, error)
}

func (s *svcStub) Simulate(ctx context.Context, in app.SimulateInput) (*scenario.ScenarioResult, error) {
	return s.simulateFn(ctx, in)
}

func (s *svcStub) History(ctx context.Context, scenarioName string, limit int) ([]scenario.HistoryRecord, error) {
	return s.historyFn(ctx, scenarioName, limit)
}

func newStub() *svcStub {
	return &svcStub{
		simulateFn: func(ctx context.Context, in app.SimulateInput) (*scenario.ScenarioResult, error) {
			return &scenario.ScenarioResult{Scenario: in.Name, Seed: 9}, nil
		},
		historyFn: func(ctx context.Context, scenarioName string, limit int) ([]scenario.HistoryRecord, error) {
			return []scenario.HistoryRecord{{Scenario: scenarioName}}, nil
		},
	}
}

func TestHandler_Simulate_InvalidJSON(t *testing.T) {
	h := NewHandler(newStub())

	resp, err := h.Simulate(context.Background(), events.APIGatewayV2HTTPRequest{Body: "{"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 400 {
		t.Fatalf("expected status 400, got %d", resp.StatusCode)
	}
}

func TestHandler_Simulate_Base64Body(t *testing.T) {
	h := NewHandler(newStub())

	body := base64.StdEncoding.EncodeToString([]byte(`{"name":"rollout","plan_dot":"digraph{a}"}`))
	resp, err := h.Simulate(context.Background(), events.APIGatewayV2HTTPRequest{Body: body, IsBase64Encoded: true})
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(resp.Body), &out); err != nil {
		t.Fatal(err)
	}
	result, ok := out["result"].(map[string]any)
	if !ok || result["scenario"] != "rollout" {
		t.Fatalf("unexpected result %#v", out["result"])
	}
}

func TestHandler_Simulate_PlanErrorIs422(t *testing.T) {
	stub := newStub()
	stub.simulateFn = func(ctx context.Context, in app.SimulateInput) (*scenario.ScenarioResult, error) {
		return nil, &scenario.UnknownDependencyError{Action: "ship", Dependency: "build"}
	}
	h := NewHandler(stub)

	resp, err := h.Simulate(context.Background(), events.APIGatewayV2HTTPRequest{Body: `{"actions":[{"name":"ship","depends_on":["build"]}]}`})
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 422 {
		t.Fatalf("expected status 422, got %d", resp.StatusCode)
	}
}

func TestHandler_Handle_RoutesHistory(t *testing.T) {
	h := NewHandler(newStub())

	resp, err := h.Handle(context.Background(), events.APIGatewayV2HTTPRequest{
		RawPath:               "/prod/history",
		QueryStringParameters: map[string]string{"scenario": "migration", "limit": "2"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}

	var out struct {
		Records []scenario.HistoryRecord `json:"records"`
	}
	if err := json.Unmarshal([]byte(resp.Body), &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Records) != 1 || out.Records[0].Scenario != "migration" {
		t.Fatalf("unexpected records %+v", out.Records)
	}

	resp, _ = h.Handle(context.Background(), events.APIGatewayV2HTTPRequest{
		RawPath:               "/history",
		QueryStringParameters: map[string]string{"limit": "-1"},
	})
	if resp.StatusCode != 400 {
		t.Fatalf("expected status 400 for negative limit, got %d", resp.StatusCode)
	}
}
