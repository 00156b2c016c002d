package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
	"github.com/graphql-go/graphql"

	"defi-chat/internal/config"
	"defi-chat/internal/graph"
)

const (
	// GraphQLPath is the route served by the local HTTP server.
	GraphQLPath = "/api/graphql"

	correlationHeader  = "X-Correlation-Id"
	maxRequestBodySize = 1 << 20

	errorInvalidInput     = "INVALID_INPUT"
	errorMethodNotAllowed = "METHOD_NOT_ALLOWED"
)

type Executor interface {
	Execute(ctx context.Context, req graph.Request) *graphql.Result
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type requestError struct {
	status int
	code   string
	msg    string
}

func (e *requestError) Error() string { return e.msg }

// Handler serves GraphQL requests from API Gateway events or plain HTTP.
type Handler struct {
	exec Executor
}

func NewHandler(exec Executor) (*Handler, error) {
	if exec == nil {
		return nil, errors.New("handler: executor must not be nil")
	}
	return &Handler{exec: exec}, nil
}

// Handle serves an API Gateway proxy event. Stage variables become the
// request-scoped configuration.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	corrID := correlationID(event.Headers)

	body := event.Body
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return lambdaResponse(corrID, http.StatusBadRequest, errorResponse{Error: errorInvalidInput, Message: "body is not valid base64"}), nil
		}
		body = string(decoded)
	}

	req, err := parseRequest(event.HTTPMethod, body, func(k string) string { return event.QueryStringParameters[k] })
	if err != nil {
		return lambdaResponse(corrID, errStatus(err), errBody(err)), nil
	}

	ctx = config.WithEnv(ctx, config.Env(event.StageVariables))
	return lambdaResponse(corrID, http.StatusOK, h.execute(ctx, corrID, req)), nil
}

// ServeHTTP serves GraphQL over plain HTTP for local development.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	corrID := r.Header.Get(correlationHeader)
	if strings.TrimSpace(corrID) == "" {
		corrID = uuid.NewString()
	}

	var body string
	if r.Method == http.MethodPost {
		raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBodySize))
		if err != nil {
			writeJSON(w, corrID, http.StatusRequestEntityTooLarge, errorResponse{Error: errorInvalidInput, Message: "request body too large"})
			return
		}
		body = string(raw)
	}

	req, err := parseRequest(r.Method, body, r.URL.Query().Get)
	if err != nil {
		writeJSON(w, corrID, errStatus(err), errBody(err))
		return
	}
	writeJSON(w, corrID, http.StatusOK, h.execute(r.Context(), corrID, req))
}

func (h *Handler) execute(ctx context.Context, corrID string, req graph.Request) *graphql.Result {
	start := time.Now()
	res := h.exec.Execute(ctx, req)
	slog.Info("graphql request",
		"correlation_id", corrID,
		"operation", req.OperationName,
		"errors", len(res.Errors),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res
}

func parseRequest(method, body string, queryParam func(string) string) (graph.Request, error) {
	var req graph.Request
	switch method {
	case http.MethodPost:
		if err := json.Unmarshal([]byte(body), &req); err != nil {
			return graph.Request{}, &requestError{status: http.StatusBadRequest, code: errorInvalidInput, msg: "body must be a JSON GraphQL request"}
		}
	case http.MethodGet:
		req.Query = queryParam("query")
		req.OperationName = queryParam("operationName")
		if vars := queryParam("variables"); vars != "" {
			if err := json.Unmarshal([]byte(vars), &req.Variables); err != nil {
				return graph.Request{}, &requestError{status: http.StatusBadRequest, code: errorInvalidInput, msg: "variables must be a JSON object"}
			}
		}
	default:
		return graph.Request{}, &requestError{status: http.StatusMethodNotAllowed, code: errorMethodNotAllowed, msg: "use GET or POST"}
	}
	if strings.TrimSpace(req.Query) == "" {
		return graph.Request{}, &requestError{status: http.StatusBadRequest, code: errorInvalidInput, msg: "query is required"}
	}
	return req, nil
}

func errStatus(err error) int {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		return reqErr.status
	}
	return http.StatusInternalServerError
}

func errBody(err error) errorResponse {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		return errorResponse{Error: reqErr.code, Message: reqErr.msg}
	}
	return errorResponse{Error: "INTERNAL_ERROR", Message: "internal error"}
}

func correlationID(headers map[string]string) string {
	for k, v := range headers {
		if strings.EqualFold(k, correlationHeader) && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return uuid.NewString()
}

func lambdaResponse(corrID string, status int, payload any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(payload)
	if err != nil {
		slog.Error("failed to encode response", "correlation_id", corrID, "err", err)
		status = http.StatusInternalServerError
		body = []byte(`{"error":"INTERNAL_ERROR","message":"internal error"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":    "application/json",
			correlationHeader: corrID,
		},
		Body: string(body),
	}
}

func writeJSON(w http.ResponseWriter, corrID string, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(correlationHeader, corrID)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to write response", "correlation_id", corrID, "err", err)
	}
}
