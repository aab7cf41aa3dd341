package echoapi

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aspirecraft/enrolment/assets"
	"github.com/aspirecraft/enrolment/core"
	"github.com/aspirecraft/enrolment/core/catalog"
	"github.com/aspirecraft/enrolment/core/enrolment"
	docsvc "github.com/aspirecraft/enrolment/services/document"
	emailsvc "github.com/aspirecraft/enrolment/services/email"
	logsvc "github.com/aspirecraft/enrolment/services/logger"
	"github.com/aspirecraft/enrolment/services/metrics"
	inmemdb "github.com/aspirecraft/enrolment/storage/inmem"
)

const ieltsReason = "Immigration: Meeting language requirements for migration to countries like the UK, Canada, or Australia."

type (
	testEnv struct {
		app      Server
		conf     *core.Config
		mail     *emailsvc.ConsoleServiceMock
		sessions enrolment.SessionRepository
		reg      *prometheus.Registry
	}

	httpErr struct {
		Error string `json:"error"`
	}

	httpTest struct {
		name     string
		method   string
		path     string
		body     interface{}
		token    string
		wantCode int
	}
)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	require.NoError(t, core.ParseEmailTemplates(assets.FS(), assets.EmailTemplatesDir, true))

	conf := &core.Config{
		AppName:   "AspireCraft",
		SecretKey: "test-secret",
		TestMode:  true,
		Server:    core.ServerConfig{SessionTokenExpiry: time.Hour, DisableReqLogs: true, BodyLimit: "2M"},
		Email:     core.EmailConfig{SenderName: "AspireCraft", InternalEmail: "staff@aspirecraft.test"},
	}
	conf.SetSecret(core.SecretSenderEmail, "sender@aspirecraft.test")

	cat, err := catalog.Load(assets.Resources())
	require.NoError(t, err)

	env := &testEnv{
		conf:     conf,
		mail:     emailsvc.NewConsoleServiceMock(conf),
		sessions: inmemdb.NewSessionRepository(inmemdb.NewDB()),
		reg:      prometheus.NewRegistry(),
	}
	logger := logsvc.NewRollbarLogger(zerolog.Nop(), conf)
	m := metrics.New(env.reg)
	renderer := docsvc.NewPDFRenderer(conf)
	ctrl := enrolment.NewController(cat, enrolment.DefaultRules(),
		enrolment.WithSubmitter(enrolment.NewSubmitter(conf, renderer, enrolment.NewDispatcher(env.mail))),
		enrolment.WithRecorder(m),
		enrolment.WithLogger(logger),
	)
	env.app = NewServer(ServerDeps{
		Conf:       conf,
		Logger:     logger,
		Controller: ctrl,
		Sessions:   env.sessions,
		Renderer:   renderer,
		Metrics:    m,
		Gatherer:   env.reg,
	})
	return env
}

func newAuthRequest(method, path, token string, body interface{}) (*http.Request, *httptest.ResponseRecorder) {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, httptest.NewRecorder()
}

func (env *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	req, rec := newAuthRequest(method, path, token, body)
	env.app.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) newSession(t *testing.T) string {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/v1/sessions", "", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var res struct {
		Token string             `json:"token"`
		View  enrolment.StepView `json:"view"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.NotEmpty(t, res.Token)
	assert.Equal(t, enrolment.StepWelcome, res.View.Step)
	return res.Token
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) enrolment.StepView {
	t.Helper()
	var v enrolment.StepView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func fields(kv ...interface{}) fieldsRequest {
	var req fieldsRequest
	for i := 0; i < len(kv); i += 2 {
		req.Fields = append(req.Fields, fieldValue{Field: string(kv[i].(enrolment.Field)), Value: kv[i+1]})
	}
	return req
}

func signatureDataURL(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 60, 30))
	for y := 0; y < 30; y++ {
		for x := 0; x < 60; x++ {
			img.Set(x, y, color.White)
		}
	}
	for x := 10; x < 50; x++ {
		img.Set(x, 15, color.Black)
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return pngDataURLPrefix + base64.StdEncoding.EncodeToString(buf.Bytes())
}

// walk fills and advances the session from the welcome page to the review page.
func (env *testEnv) walk(t *testing.T, token string) {
	t.Helper()
	steps := []struct {
		method string
		path   string
		body   interface{}
	}{
		{http.MethodPost, "/v1/session/next", nil},
		{http.MethodPatch, "/v1/session/fields", fields(enrolment.FieldFullName, "Ada Lovelace")},
		{http.MethodPost, "/v1/session/next", nil},
		{http.MethodPatch, "/v1/session/fields", fields(enrolment.FieldDOB, "1990-05-17")},
		{http.MethodPost, "/v1/session/next", nil},
		{http.MethodPatch, "/v1/session/fields", fields(enrolment.FieldGender, "Female")},
		{http.MethodPost, "/v1/session/next", nil},
		{http.MethodPatch, "/v1/session/fields", fields(
			enrolment.FieldCountry, "United Kingdom",
			enrolment.FieldNationality, "British",
			enrolment.FieldPreferredLanguage, "English",
		)},
		{http.MethodPost, "/v1/session/next", nil},
		{http.MethodPatch, "/v1/session/fields", fields(
			enrolment.FieldEmail, "ada.lovelace@example.com",
			enrolment.FieldPhone, "+44 7911 123456",
		)},
		{http.MethodPost, "/v1/session/next", nil},
		{http.MethodPatch, "/v1/session/fields", fields(
			enrolment.FieldCurrentInstitution, "none",
			enrolment.FieldHighestEducation, "Master's Degree",
			enrolment.FieldIndustryExperience, "3–5 years",
			enrolment.FieldCurrentRole, "Analyst",
		)},
		{http.MethodPost, "/v1/session/next", nil},
		{http.MethodPut, "/v1/session/subject-areas", subjectAreasRequest{Areas: []string{string(enrolment.AreaIELTS)}}},
		{http.MethodPatch, "/v1/session/subforms", subFieldsRequest{
			Area:   string(enrolment.AreaIELTS),
			Fields: []fieldValue{{Field: "ielts_reason", Value: ieltsReason}},
		}},
		{http.MethodPost, "/v1/session/next", nil},
		{http.MethodPatch, "/v1/session/fields", fields(
			enrolment.FieldPreferredStartDate, "ASAP",
			enrolment.FieldLearningPreferences, "Evening classes",
			enrolment.FieldSpecialRequirements, "none",
			enrolment.FieldEmergencyContact, "Charles Babbage +44 20 7946 0000",
			enrolment.FieldConsent, true,
		)},
		{http.MethodPost, "/v1/session/next", nil},
		{http.MethodPut, "/v1/session/signature", signatureRequest{Image: signatureDataURL(t)}},
		{http.MethodPost, "/v1/session/next", nil},
	}
	for _, s := range steps {
		rec := env.do(t, s.method, s.path, token, s.body)
		require.Equal(t, http.StatusOK, rec.Code, "%s %s: %s", s.method, s.path, rec.Body.String())
	}
}

func TestHome(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to the AspireCraft enrolment API!", rec.Body.String())
}

func TestCatalog(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/v1/catalog", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var res catalogResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.NotEmpty(t, res.Countries)
	assert.Contains(t, res.Nationalities, "British")
	assert.Contains(t, res.SubjectAreas, string(enrolment.AreaIELTS))
	assert.NotEmpty(t, res.CPDCourses)
}

func TestSessionAuth(t *testing.T) {
	env := newTestEnv(t)
	expired := *env.conf
	expired.Server.SessionTokenExpiry = -time.Minute
	expiredToken, err := GenerateToken(&expired, "whatever")
	require.NoError(t, err)
	unknownToken, err := GenerateToken(env.conf, "unknown-session")
	require.NoError(t, err)
	otherKey := *env.conf
	otherKey.SecretKey = "other-secret"
	forgedToken, err := GenerateToken(&otherKey, "whatever")
	require.NoError(t, err)

	tests := []httpTest{
		{name: "missing token", method: http.MethodGet, path: "/v1/session", wantCode: http.StatusUnauthorized},
		{name: "expired token", method: http.MethodGet, path: "/v1/session", token: expiredToken, wantCode: http.StatusUnauthorized},
		{name: "forged token", method: http.MethodGet, path: "/v1/session", token: forgedToken, wantCode: http.StatusUnauthorized},
		{name: "unknown session", method: http.MethodGet, path: "/v1/session", token: unknownToken, wantCode: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, tt.method, tt.path, tt.token, tt.body)
			if rec.Code != tt.wantCode {
				t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			var e httpErr
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
			assert.NotEmpty(t, e.Error)
		})
	}
}

func TestSessionErrors(t *testing.T) {
	env := newTestEnv(t)
	token := env.newSession(t)

	tests := []httpTest{
		{name: "back from welcome", method: http.MethodPost, path: "/v1/session/back", wantCode: http.StatusConflict},
		{name: "submit from welcome", method: http.MethodPost, path: "/v1/session/submit", wantCode: http.StatusConflict},
		{name: "document before review", method: http.MethodGet, path: "/v1/session/document", wantCode: http.StatusConflict},
		{name: "field of another step", method: http.MethodPatch, path: "/v1/session/fields",
			body: fields(enrolment.FieldEmail, "ada@example.com"), wantCode: http.StatusBadRequest},
		{name: "unknown upload field", method: http.MethodPost, path: "/v1/session/uploads/email", wantCode: http.StatusNotFound},
		{name: "bad signature", method: http.MethodPut, path: "/v1/session/signature",
			body: signatureRequest{Image: "data:image/jpeg;base64,AAAA"}, wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, tt.method, tt.path, token, tt.body)
			if rec.Code != tt.wantCode {
				t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
			}
		})
	}
}

func TestNext_ValidationErrors(t *testing.T) {
	env := newTestEnv(t)
	token := env.newSession(t)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/v1/session/next", token, nil).Code)

	rec := env.do(t, http.MethodPost, "/v1/session/next", token, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var res struct {
		Errors []core.FieldError `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res.Errors, 1)
	assert.Equal(t, string(enrolment.FieldFullName), res.Errors[0].Field)

	rec = env.do(t, http.MethodGet, "/v1/session", token, nil)
	assert.Equal(t, enrolment.StepPersonal, decodeView(t, rec).Step)
}

func TestUploads(t *testing.T) {
	env := newTestEnv(t)
	token := env.newSession(t)
	env.walk(t, token)

	// back from the review page to the optional uploads page
	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/v1/session/back", token, nil).Code)
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for _, name := range []string{"cv.pdf", "cv.pdf", "letter.pdf"} {
		fw, err := w.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte("%PDF-1.4 " + name))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/session/uploads/"+string(enrolment.FieldSupportingDocuments), &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	env.app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	v := decodeView(t, rec)
	assert.Equal(t, enrolment.StepSupportingDocuments, v.Step)
	require.Len(t, v.Inputs, 1)
	uploads, ok := v.Inputs[0].Value.([]interface{})
	require.True(t, ok, "%T", v.Inputs[0].Value)
	assert.Len(t, uploads, 2, "duplicates are dropped")
}

func TestSubmit(t *testing.T) {
	env := newTestEnv(t)
	token := env.newSession(t)
	env.walk(t, token)

	rec := env.do(t, http.MethodGet, "/v1/session", token, nil)
	v := decodeView(t, rec)
	require.Equal(t, enrolment.StepReview, v.Step)
	assert.True(t, v.CanSubmit)
	require.NotNil(t, v.Review)

	rec = env.do(t, http.MethodGet, "/v1/session/document", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "AspireCraft_Form_Submission_Ada Lovelace.pdf")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))

	// transport failure keeps the review page
	env.mail.Err = assert.AnError
	rec = env.do(t, http.MethodPost, "/v1/session/submit", token, nil)
	require.Equal(t, http.StatusBadGateway, rec.Code, rec.Body.String())
	env.mail.Reset()

	rec = env.do(t, http.MethodPost, "/v1/session/submit", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	v = decodeView(t, rec)
	assert.Equal(t, enrolment.StepThankYou, v.Step)
	assert.True(t, v.SubmissionDone)
	assert.False(t, v.CanGoBack)

	sent := env.mail.SentMessages()
	require.Len(t, sent, 2)
	assert.Equal(t, "staff@aspirecraft.test", sent[0].To[0].Address)
	require.Len(t, sent[0].Attachments, 1)
	assert.Equal(t, "application/pdf", sent[0].Attachments[0].ContentType)
	assert.Equal(t, "ada.lovelace@example.com", sent[1].To[0].Address)

	rec = env.do(t, http.MethodPost, "/v1/session/submit", token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `enrolment_submissions_total{outcome="sent"} 1`), rec.Body.String())
	assert.True(t, strings.Contains(rec.Body.String(), `enrolment_submissions_total{outcome="dispatch"} 1`))
}

func TestSubmit_MissingCredentials(t *testing.T) {
	t.Setenv("SENDER_EMAIL", "")
	env := newTestEnv(t)
	env.conf.Email.InternalEmail = ""
	env.conf.SetSecret(core.SecretSenderEmail, "")
	token := env.newSession(t)
	env.walk(t, token)

	rec := env.do(t, http.MethodPost, "/v1/session/submit", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code, rec.Body.String())
	assert.Empty(t, env.mail.SentMessages())
}

func TestDestroySession(t *testing.T) {
	env := newTestEnv(t)
	token := env.newSession(t)
	require.Equal(t, 1, env.sessions.Count())

	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, "/v1/session", token, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/v1/session", token, nil).Code)
	assert.Zero(t, env.sessions.Count())
}
