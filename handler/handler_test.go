package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"homebot/internal/domain"
	"homebot/internal/usecase"
)

type stubUseCase struct {
	out usecase.TurnOutput
	err error
	in  usecase.TurnInput
}

func (s *stubUseCase) ProcessActivity(_ context.Context, in usecase.TurnInput) (usecase.TurnOutput, error) {
	s.in = in
	return s.out, s.err
}

const activityBody = `{"type":"message","id":"a1","from":{"id":"user-1"},"recipient":{"id":"bot"},"conversation":{"id":"conv-1"},"text":"hi"}`

func makeEvent(body string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Path:       "/api/messages",
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       body,
	}
}

func parseBody[T any](t *testing.T, body string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(body), &v))
	return v
}

func newTestHandler(t *testing.T, uc *stubUseCase) *Handler {
	t.Helper()
	h, err := NewHandler(uc, zerolog.Nop())
	require.NoError(t, err)
	return h
}

func replyTo(text string) domain.Activity {
	return domain.Activity{
		Type:         domain.ActivityMessage,
		ID:           "r1",
		From:         domain.ChannelAccount{ID: "bot"},
		Recipient:    domain.ChannelAccount{ID: "user-1"},
		Conversation: domain.ConversationAccount{ID: "conv-1"},
		Text:         text,
		ReplyToID:    "a1",
	}
}

func TestNewHandler_ValidatesDependency(t *testing.T) {
	_, err := NewHandler(nil, zerolog.Nop())
	require.Error(t, err)
}

func TestHandle_HappyPath(t *testing.T) {
	uc := &stubUseCase{out: usecase.TurnOutput{Replies: []domain.Activity{replyTo("Hello"), replyTo("What should I call you?")}}}
	h := newTestHandler(t, uc)

	resp, err := h.Handle(context.Background(), makeEvent(activityBody))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "conv-1", uc.in.Activity.Conversation.ID)
	require.Equal(t, "hi", uc.in.Activity.Text)
	require.Equal(t, domain.ActivityMessage, uc.in.Activity.Type)

	out := parseBody[activitiesResponse](t, resp.Body)
	require.Len(t, out.Activities, 2)
	require.Equal(t, "What should I call you?", out.Activities[1].Text)
	require.Equal(t, "a1", out.Activities[0].ReplyToID)
	require.NotEmpty(t, resp.Headers["X-Correlation-Id"])
	require.Equal(t, resp.Headers["X-Correlation-Id"], uc.in.CorrelationID)
}

func TestHandle_NoRepliesIsEmptyList(t *testing.T) {
	h := newTestHandler(t, &stubUseCase{})
	resp, err := h.Handle(context.Background(), makeEvent(`{"type":"typing","conversation":{"id":"c"}}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"activities":[]}`, resp.Body)
}

func TestHandle_Base64Body(t *testing.T) {
	uc := &stubUseCase{}
	h := newTestHandler(t, uc)

	event := makeEvent(base64.StdEncoding.EncodeToString([]byte(activityBody)))
	event.IsBase64Encoded = true
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "hi", uc.in.Activity.Text)

	event.Body = "%%%"
	resp, err = h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandle_InvalidBody(t *testing.T) {
	h := newTestHandler(t, &stubUseCase{})

	resp, err := h.Handle(context.Background(), makeEvent(`not-json`))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	out := parseBody[errorResponse](t, resp.Body)
	require.Equal(t, string(usecase.ErrorInvalidInput), out.Error)

	resp, err = h.Handle(context.Background(), makeEvent(`{"text":"`+strings.Repeat("a", maxBodyBytes)+`"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestHandle_MapsUseCaseErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "invalid input", err: &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "missing_conversation_id"}, status: http.StatusBadRequest, code: string(usecase.ErrorInvalidInput)},
		{name: "conflict", err: &usecase.Error{Code: usecase.ErrorConflict, Reason: "state_version_conflict"}, status: http.StatusConflict, code: string(usecase.ErrorConflict)},
		{name: "upstream", err: &usecase.Error{Code: usecase.ErrorUpstream, Reason: "luis_error"}, status: http.StatusBadGateway, code: string(usecase.ErrorUpstream)},
		{name: "internal", err: &usecase.Error{Code: usecase.ErrorInternal, Reason: "state_write_error"}, status: http.StatusInternalServerError, code: string(usecase.ErrorInternal)},
		{name: "unexpected", err: errors.New("boom"), status: http.StatusInternalServerError, code: string(usecase.ErrorInternal)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestHandler(t, &stubUseCase{err: tc.err})

			resp, err := h.Handle(context.Background(), makeEvent(activityBody))
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)

			out := parseBody[errorResponse](t, resp.Body)
			require.Equal(t, tc.code, out.Error)
		})
	}
}

func TestHandle_UsesProvidedCorrelationID_CaseInsensitive(t *testing.T) {
	uc := &stubUseCase{}
	h := newTestHandler(t, uc)

	event := makeEvent(activityBody)
	event.Headers["x-correlation-id"] = "corr-123"
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, "corr-123", resp.Headers["X-Correlation-Id"])
	require.Equal(t, "corr-123", uc.in.CorrelationID)
}

func TestHandle_GeneratesCorrelationID(t *testing.T) {
	prev := newCorrelationID
	newCorrelationID = func() string { return "generated-id" }
	t.Cleanup(func() { newCorrelationID = prev })

	resp, err := newTestHandler(t, &stubUseCase{}).Handle(context.Background(), makeEvent(activityBody))
	require.NoError(t, err)
	require.Equal(t, "generated-id", resp.Headers["X-Correlation-Id"])
}

func TestEcho_Messages(t *testing.T) {
	uc := &stubUseCase{out: usecase.TurnOutput{Replies: []domain.Activity{replyTo("Hello")}}}
	h := newTestHandler(t, uc)
	e := echo.New()
	RegisterRoutes(e, h)

	req := httptest.NewRequest(http.MethodPost, "/api/messages", strings.NewReader(activityBody))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("X-Correlation-Id", "corr-echo")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "corr-echo", rec.Header().Get("X-Correlation-Id"))
	out := parseBody[activitiesResponse](t, rec.Body.String())
	require.Len(t, out.Activities, 1)
	require.Equal(t, "Hello", out.Activities[0].Text)
	require.Equal(t, "corr-echo", uc.in.CorrelationID)
}

func TestEcho_MessagesConflict(t *testing.T) {
	h := newTestHandler(t, &stubUseCase{err: &usecase.Error{Code: usecase.ErrorConflict, Reason: "state_version_conflict"}})
	e := echo.New()
	RegisterRoutes(e, h)

	req := httptest.NewRequest(http.MethodPost, "/api/messages", strings.NewReader(activityBody))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Correlation-Id"))
	require.Equal(t, string(usecase.ErrorConflict), parseBody[errorResponse](t, rec.Body.String()).Error)
}

func TestEcho_Health(t *testing.T) {
	e := echo.New()
	RegisterRoutes(e, newTestHandler(t, &stubUseCase{}))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}
