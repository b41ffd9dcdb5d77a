package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"homebot/internal/domain"
	"homebot/internal/usecase"
)

const correlationHeader = "X-Correlation-Id"

// maxBodyBytes caps inbound activity payloads.
const maxBodyBytes = 64 << 10

type TurnProcessor interface {
	ProcessActivity(ctx context.Context, in usecase.TurnInput) (usecase.TurnOutput, error)
}

// Handler exposes the turn router as a webhook, behind API Gateway or echo.
type Handler struct {
	uc  TurnProcessor
	log zerolog.Logger
}

type activitiesResponse struct {
	Activities []domain.Activity `json:"activities"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

func NewHandler(uc TurnProcessor, log zerolog.Logger) (*Handler, error) {
	if uc == nil {
		return nil, errors.New("handler: turn processor must not be nil")
	}
	return &Handler{uc: uc, log: log}, nil
}

// Handle serves POST /api/messages for API Gateway proxy integrations.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	corrID := correlationID(req.Headers)

	body := []byte(req.Body)
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			return respond(http.StatusBadRequest, errorResponse{Error: string(usecase.ErrorInvalidInput), Reason: "invalid_body_encoding"}, corrID), nil
		}
		body = decoded
	}

	status, payload := h.serve(ctx, body, corrID)
	return respond(status, payload, corrID), nil
}

// serve decodes one activity, runs the turn and returns the status and JSON payload.
func (h *Handler) serve(ctx context.Context, body []byte, corrID string) (int, any) {
	if len(body) > maxBodyBytes {
		return http.StatusRequestEntityTooLarge, errorResponse{Error: string(usecase.ErrorInvalidInput), Reason: "body_too_large"}
	}
	var act domain.Activity
	if err := json.Unmarshal(body, &act); err != nil {
		h.log.Warn().Err(err).Str("correlation_id", corrID).Msg("invalid activity body")
		return http.StatusBadRequest, errorResponse{Error: string(usecase.ErrorInvalidInput), Reason: "invalid_json"}
	}

	out, err := h.uc.ProcessActivity(ctx, usecase.TurnInput{Activity: act, CorrelationID: corrID})
	if err != nil {
		status, resp := mapError(err)
		ev := h.log.Error()
		if status < http.StatusInternalServerError {
			ev = h.log.Warn()
		}
		ev.Err(err).Str("correlation_id", corrID).Int("status", status).Msg("turn failed")
		return status, resp
	}

	replies := out.Replies
	if replies == nil {
		replies = []domain.Activity{}
	}
	return http.StatusOK, activitiesResponse{Activities: replies}
}

func mapError(err error) (int, errorResponse) {
	var uerr *usecase.Error
	if !errors.As(err, &uerr) {
		return http.StatusInternalServerError, errorResponse{Error: string(usecase.ErrorInternal)}
	}
	resp := errorResponse{Error: string(uerr.Code), Reason: uerr.Reason}
	switch uerr.Code {
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest, resp
	case usecase.ErrorConflict:
		return http.StatusConflict, resp
	case usecase.ErrorUpstream:
		return http.StatusBadGateway, resp
	default:
		return http.StatusInternalServerError, resp
	}
}

func respond(status int, payload any, corrID string) events.APIGatewayProxyResponse {
	headers := map[string]string{
		"Content-Type":    "application/json",
		correlationHeader: corrID,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusInternalServerError,
			Headers:    headers,
			Body:       `{"error":"INTERNAL_ERROR"}`,
		}
	}
	return events.APIGatewayProxyResponse{StatusCode: status, Headers: headers, Body: string(raw)}
}

// correlationID returns the caller's X-Correlation-Id, matched case-insensitively,
// or a fresh id.
func correlationID(headers map[string]string) string {
	for k, v := range headers {
		if strings.EqualFold(k, correlationHeader) && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return newCorrelationID()
}

var newCorrelationID = func() string {
	return uuid.NewString()
}
