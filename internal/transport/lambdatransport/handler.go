package lambdatransport

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"github.com/awmpietro/scenario-simulator/internal/app"
	"github.com/awmpietro/scenario-simulator/internal/transport/simdto"
)

type Handler struct {
	svc app.SimulationService
}

func NewHandler(svc app.SimulationService) *Handler {
	return &Handler{svc: svc}
}

// Handle dispatches on the request path so a single function can sit behind
// both routes.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	switch {
	case strings.HasSuffix(req.RawPath, "/history"):
		return h.History(ctx, req)
	default:
		return h.Simulate(ctx, req)
	}
}

// Simulate assumes API Gateway already routed POST /simulate.
func (h *Handler) Simulate(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	body, err := readBody(req)
	if err != nil {
		return jsonResp(http.StatusBadRequest, simdto.ErrorResponse{Error: "invalid body", Details: err.Error()}), nil
	}

	var in simdto.SimulateRequest
	if err := json.Unmarshal(body, &in); err != nil {
		return jsonResp(http.StatusBadRequest, simdto.ErrorResponse{Error: "invalid json", Details: err.Error()}), nil
	}

	res, err := h.svc.Simulate(ctx, in.Input())
	if err != nil {
		status, errBody := simdto.ErrorStatus(err)
		return jsonResp(status, errBody), nil
	}
	return jsonResp(http.StatusOK, simdto.NewSimulateResponse(res, in.Report)), nil
}

func (h *Handler) History(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	limit := 0
	if raw := req.QueryStringParameters["limit"]; raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return jsonResp(http.StatusBadRequest, simdto.ErrorResponse{Error: "invalid limit", Details: raw}), nil
		}
		limit = v
	}

	recs, err := h.svc.History(ctx, req.QueryStringParameters["scenario"], limit)
	if err != nil {
		status, errBody := simdto.ErrorStatus(err)
		return jsonResp(status, errBody), nil
	}
	return jsonResp(http.StatusOK, simdto.HistoryResponse{Records: recs}), nil
}

func readBody(req events.APIGatewayV2HTTPRequest) ([]byte, error) {
	if req.IsBase64Encoded {
		return base64.StdEncoding.DecodeString(req.Body)
	}
	return []byte(req.Body), nil
}

func jsonResp(status int, body any) events.APIGatewayV2HTTPResponse {
	b, _ := json.Marshal(body)
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Headers:    map[string]string{"content-type": "application/json"},
		Body:       string(b),
	}
}
