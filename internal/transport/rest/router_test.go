package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surveybot/internal/cache"
	"surveybot/internal/config"
	"surveybot/internal/logger"
	"surveybot/internal/metrics"
	"surveybot/internal/model"
	"surveybot/internal/repository"
	"surveybot/internal/service"
	"surveybot/internal/transport/rest/middleware"
	"surveybot/internal/transport/telegram"
)

type fakeConversations struct {
	states map[model.RespondentID]*model.ConversationState
	reset  []model.RespondentID
}

func (f *fakeConversations) Snapshot(_ context.Context, id model.RespondentID) (*model.ConversationState, error) {
	if st, ok := f.states[id]; ok {
		return st, nil
	}
	return nil, cache.ErrStateNotFound
}

func (f *fakeConversations) Reset(_ context.Context, id model.RespondentID) error {
	f.reset = append(f.reset, id)
	delete(f.states, id)
	return nil
}

type fakeSubmissions struct {
	items     []*model.Submission
	lastLimit int
}

func (f *fakeSubmissions) Save(context.Context, *model.Submission) error { return nil }

func (f *fakeSubmissions) GetByID(_ context.Context, id string) (*model.Submission, error) {
	for _, s := range f.items {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, repository.ErrSubmissionNotFound
}

func (f *fakeSubmissions) ListRecent(_ context.Context, limit int) ([]*model.Submission, error) {
	f.lastLimit = limit
	return f.items, nil
}

func (f *fakeSubmissions) ListByRespondent(_ context.Context, id model.RespondentID) ([]*model.Submission, error) {
	var out []*model.Submission
	for _, s := range f.items {
		if s.RespondentID == id {
			out = append(out, s)
		}
	}
	return out, nil
}

type nopUpdates struct{ n int }

func (u *nopUpdates) HandleUpdate(context.Context, tgbotapi.Update) { u.n++ }

type testEnv struct {
	router        http.Handler
	auth          *service.AuthService
	conversations *fakeConversations
	submissions   *fakeSubmissions
	updates       *nopUpdates
}

func newTestEnv(t *testing.T, withArchive bool) *testEnv {
	t.Helper()
	auth := service.NewAuthService(config.AuthConfig{
		OperatorUsername: "admin",
		OperatorPassword: "pw",
		JWTSecret:        "secret",
		TokenDuration:    3600,
	})
	st := model.NewConversationState(42)
	st.CurrentQuestion = "q1"
	env := &testEnv{
		auth:          auth,
		conversations: &fakeConversations{states: map[model.RespondentID]*model.ConversationState{42: st}},
		submissions: &fakeSubmissions{items: []*model.Submission{
			{ID: "s1", RespondentID: 42, Status: model.ExportStatusExported},
			{ID: "s2", RespondentID: 7, Status: model.ExportStatusFailed, Error: "quota"},
		}},
		updates: &nopUpdates{},
	}

	reg := prometheus.NewRegistry()
	metrics.NewPrometheusRecorder(reg).IncConversation(metrics.StageStarted)

	c := &Container{
		AuthService:   auth,
		Conversations: env.conversations,
		Questionnaire: model.NewQuestionnaire("q1", model.Messages{}, []model.Question{
			{ID: "q1", Text: "Name?", Type: model.QuestionTypeText, Next: model.QuestionCompleted},
		}),
		Webhook:     telegram.NewWebhookHandler(env.updates, "", nil, logger.Nop()),
		Metrics:     reg,
		CORSOrigins: "https://ops.example.com",
		Logger:      logger.Nop(),
	}
	if withArchive {
		c.Submissions = env.submissions
	}
	env.router = NewRouter(c)
	return env
}

func (e *testEnv) token(t *testing.T) string {
	t.Helper()
	resp, err := e.auth.Login("admin", "pw")
	require.NoError(t, err)
	return resp.Token
}

func (e *testEnv) do(method, path, token string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	env := newTestEnv(t, true)

	rr := env.do(http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get(middleware.RequestIDHeader))
	assert.Equal(t, "https://ops.example.com", rr.Header().Get("Access-Control-Allow-Origin"))

	rr = env.do(http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "surveybot_conversations_total")
}

func TestRouter_Login(t *testing.T) {
	env := newTestEnv(t, true)

	rr := env.do(http.MethodPost, "/v1/auth/login", "", `{"username":"admin","password":"pw"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var resp model.LoginResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)

	rr = env.do(http.MethodPost, "/v1/auth/login", "", `{"username":"admin","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = env.do(http.MethodPost, "/v1/auth/login", "", `not json`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRouter_OperatorRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t, true)

	for _, path := range []string{"/v1/questionnaire", "/v1/respondents/42/state", "/v1/submissions"} {
		rr := env.do(http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code, path)
	}
	rr := env.do(http.MethodGet, "/v1/questionnaire", "forged", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = env.do(http.MethodGet, "/v1/questionnaire?token="+env.token(t), "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"entry":"q1"`)
}

func TestRouter_Respondents(t *testing.T) {
	env := newTestEnv(t, true)
	token := env.token(t)

	rr := env.do(http.MethodGet, "/v1/respondents/42/state", token, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var st model.ConversationState
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &st))
	assert.Equal(t, "q1", st.CurrentQuestion)

	rr = env.do(http.MethodGet, "/v1/respondents/abc/state", token, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(http.MethodDelete, "/v1/respondents/42", token, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, []model.RespondentID{42}, env.conversations.reset)

	rr = env.do(http.MethodGet, "/v1/respondents/42/state", token, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRouter_Submissions(t *testing.T) {
	env := newTestEnv(t, true)
	token := env.token(t)

	rr := env.do(http.MethodGet, "/v1/submissions?limit=10", token, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"count":2`)
	assert.Equal(t, 10, env.submissions.lastLimit)

	rr = env.do(http.MethodGet, "/v1/submissions?respondent=7", token, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"count":1`)

	rr = env.do(http.MethodGet, "/v1/submissions?limit=abc", token, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(http.MethodGet, "/v1/submissions/s2", token, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"error":"quota"`)

	rr = env.do(http.MethodGet, "/v1/submissions/nope", token, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRouter_SubmissionsDisabled(t *testing.T) {
	env := newTestEnv(t, false)

	rr := env.do(http.MethodGet, "/v1/submissions", env.token(t), "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestRouter_Webhook(t *testing.T) {
	env := newTestEnv(t, true)

	rr := env.do(http.MethodPost, "/telegram/webhook", "", `{"update_id":1}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, env.updates.n)

	rr = env.do(http.MethodGet, "/telegram/webhook", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRouter_Preflight(t *testing.T) {
	env := newTestEnv(t, true)

	rr := env.do(http.MethodOptions, "/v1/questionnaire", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Access-Control-Allow-Methods"), "DELETE")
}

func TestRequireOperator_ContextCarriesOperator(t *testing.T) {
	env := newTestEnv(t, true)
	token := env.token(t)

	var seen string
	h := middleware.NewAuthMiddleware(env.auth).RequireOperator(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = middleware.GetOperatorID(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.True(t, strings.HasPrefix(seen, "op_"))

	assert.Empty(t, middleware.GetOperatorID(context.Background()))
}
