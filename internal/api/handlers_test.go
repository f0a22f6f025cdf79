package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"trackApply/internal/account"
	"trackApply/internal/auth"
	"trackApply/internal/config"
	"trackApply/internal/database"
	"trackApply/internal/jobs"
	"trackApply/internal/storage"
)

type recordingNotifier struct {
	mu    sync.Mutex
	links []string
	err   error
}

func (n *recordingNotifier) NotifyPasswordReset(_ context.Context, _, link string, _ time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.links = append(n.links, link)
	return nil
}

type fakeObjects struct {
	uploaded map[string][]byte
	deleted  []string
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{uploaded: map[string][]byte{}}
}

func (s *fakeObjects) Put(_ context.Context, objectName string, reader io.Reader, _ int64, _ string) error {
	b, _ := io.ReadAll(reader)
	s.uploaded[objectName] = b
	return nil
}

func (s *fakeObjects) PresignGet(_ context.Context, objectKey string, _ time.Duration) (string, error) {
	return "https://storage.example.invalid/" + objectKey, nil
}

func (s *fakeObjects) Remove(_ context.Context, objectKey string) error {
	s.deleted = append(s.deleted, objectKey)
	delete(s.uploaded, objectKey)
	return nil
}

type markerScanner struct{}

func (markerScanner) Scan(r io.Reader) error {
	b, _ := io.ReadAll(r)
	if bytes.Contains(b, []byte("EICAR")) {
		return storage.ErrInfected
	}
	return nil
}

type testEnv struct {
	router   *gin.Engine
	notifier *recordingNotifier
	objects  *fakeObjects
}

func newTestEnv(t *testing.T, limiter LoginLimiter) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	authService, err := auth.NewAuthService([]byte("test-secret-0123456789"), time.Hour)
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}
	notifier := &recordingNotifier{}
	objects := newFakeObjects()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := NewRouter(config.APIConfig{
		RequestTimeout: 5 * time.Second,
		AllowedOrigins: []string{"http://localhost:5173"},
	}, logger)
	RegisterRoutes(router, Dependencies{
		Accounts: account.NewService(database.NewUserStore(db), authService, notifier, account.Options{ClientURL: "http://localhost:5173"}),
		Jobs:     jobs.NewService(database.NewJobStore(db)),
		Limiter:  limiter,
		Objects:  objects,
		Scanner:  markerScanner{},
	})

	return &testEnv{router: router, notifier: notifier, objects: objects}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

type sessionBody struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

type errorBody struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields"`
}

type jobBody struct {
	ID                uint   `json:"job_id"`
	UserID            uint   `json:"user_id"`
	CompanyName       string `json:"company_name"`
	ApplicationStatus string `json:"application_status"`
	DateApplied       string `json:"date_applied"`
	HasResume         bool   `json:"has_resume"`
}

func (e *testEnv) signup(t *testing.T, username, email, password string) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/v1/auth/signup", "", gin.H{"username": username, "email": email, "password": password})
	if w.Code != http.StatusCreated {
		t.Fatalf("signup %s: expected 201, got %d %s", username, w.Code, w.Body.String())
	}
	return decode[sessionBody](t, w).Token
}

func acmeJob() gin.H {
	return gin.H{
		"company_name":       "Acme",
		"job_title":          "Engineer",
		"date_applied":       "2024-01-15",
		"application_status": "Applied",
	}
}

func TestAliceScenario(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPost, "/v1/auth/signup", "", gin.H{"username": "alice", "email": "alice@x.com", "password": "secret1"})
	if w.Code != http.StatusCreated || decode[sessionBody](t, w).Token == "" {
		t.Fatalf("signup: %d %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodPost, "/v1/auth/signin", "", gin.H{"identifier": "alice", "password": "secret1"})
	if w.Code != http.StatusOK {
		t.Fatalf("signin: %d %s", w.Code, w.Body.String())
	}
	session := decode[sessionBody](t, w)
	if session.Username != "alice" {
		t.Fatalf("unexpected username %q", session.Username)
	}

	w = env.do(t, http.MethodGet, "/v1/auth/me", session.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("me: %d %s", w.Code, w.Body.String())
	}
	profile := decode[account.Profile](t, w)

	w = env.do(t, http.MethodPost, "/v1/jobs", session.Token, acmeJob())
	if w.Code != http.StatusCreated {
		t.Fatalf("create job: %d %s", w.Code, w.Body.String())
	}
	created := decode[jobBody](t, w)
	if created.ID == 0 || created.UserID != profile.UserID {
		t.Fatalf("unexpected created job: %+v (alice=%d)", created, profile.UserID)
	}

	w = env.do(t, http.MethodGet, "/v1/jobs", session.Token, nil)
	list := decode[[]jobBody](t, w)
	if w.Code != http.StatusOK || len(list) != 1 || list[0].ID != created.ID {
		t.Fatalf("list: %d %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodDelete, fmt.Sprintf("/v1/jobs/%d", created.ID), session.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete: %d %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodGet, "/v1/jobs", session.Token, nil)
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != "[]" {
		t.Fatalf("expected empty list, got %d %s", w.Code, w.Body.String())
	}
}

func TestSignupErrors(t *testing.T) {
	env := newTestEnv(t, nil)
	env.signup(t, "alice", "alice@x.com", "secret1")

	w := env.do(t, http.MethodPost, "/v1/auth/signup", "", gin.H{"username": "alice", "email": "new@x.com", "password": "secret1"})
	if w.Code != http.StatusConflict || decode[errorBody](t, w).Fields["username"] == "" {
		t.Fatalf("expected username conflict, got %d %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodPost, "/v1/auth/signup", "", gin.H{"username": "bob", "email": "bob@x.com", "password": "123"})
	body := decode[errorBody](t, w)
	if w.Code != http.StatusBadRequest || body.Code != "validation_error" || body.Fields["password"] == "" {
		t.Fatalf("expected short password rejection, got %d %s", w.Code, w.Body.String())
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/signup", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed json, got %d", rec.Code)
	}
}

func TestSigninFailuresLookIdentical(t *testing.T) {
	env := newTestEnv(t, nil)
	env.signup(t, "alice", "alice@x.com", "secret1")

	wrong := env.do(t, http.MethodPost, "/v1/auth/signin", "", gin.H{"identifier": "alice", "password": "wrong12"})
	unknown := env.do(t, http.MethodPost, "/v1/auth/signin", "", gin.H{"identifier": "ghost", "password": "wrong12"})

	if wrong.Code != http.StatusBadRequest || unknown.Code != http.StatusBadRequest {
		t.Fatalf("expected 400s, got %d and %d", wrong.Code, unknown.Code)
	}
	if wrong.Body.String() != unknown.Body.String() {
		t.Fatalf("bodies differ: %s vs %s", wrong.Body.String(), unknown.Body.String())
	}
	if decode[errorBody](t, wrong).Code != "invalid_credentials" {
		t.Fatalf("unexpected code: %s", wrong.Body.String())
	}

	w := env.do(t, http.MethodPost, "/v1/auth/signin", "", gin.H{"email": "alice@x.com", "password": "secret1"})
	if w.Code != http.StatusOK {
		t.Fatalf("signin by email: %d %s", w.Code, w.Body.String())
	}
}

func TestSigninRateLimited(t *testing.T) {
	env := newTestEnv(t, NewRedisLoginLimiter(newMemoryCounter(), 2, 100, time.Minute))
	env.signup(t, "alice", "alice@x.com", "secret1")

	for i := 0; i < 2; i++ {
		env.do(t, http.MethodPost, "/v1/auth/signin", "", gin.H{"identifier": "alice", "password": "wrong12"})
	}
	w := env.do(t, http.MethodPost, "/v1/auth/signin", "", gin.H{"identifier": "alice", "password": "secret1"})
	if w.Code != http.StatusTooManyRequests || decode[errorBody](t, w).Code != "rate_limited" {
		t.Fatalf("expected 429, got %d %s", w.Code, w.Body.String())
	}
}

func TestJobsRequireToken(t *testing.T) {
	env := newTestEnv(t, nil)

	if w := env.do(t, http.MethodGet, "/v1/jobs", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/v1/jobs", "forged.token.value", nil); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 with bad token, got %d", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/v1/auth/me", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 on /me without token, got %d", w.Code)
	}
}

func TestCrossOwnerAccessIsNotFound(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.signup(t, "alice", "alice@x.com", "secret1")
	bob := env.signup(t, "bob", "bob@x.com", "secret1")

	created := decode[jobBody](t, env.do(t, http.MethodPost, "/v1/jobs", alice, acmeJob()))
	path := fmt.Sprintf("/v1/jobs/%d", created.ID)

	missing := env.do(t, http.MethodGet, "/v1/jobs/999999", bob, nil)
	for _, tc := range []struct {
		method string
		body   any
	}{
		{http.MethodGet, nil},
		{http.MethodPut, acmeJob()},
		{http.MethodDelete, nil},
	} {
		w := env.do(t, tc.method, path, bob, tc.body)
		if w.Code != http.StatusNotFound {
			t.Fatalf("%s as bob: expected 404, got %d", tc.method, w.Code)
		}
		if w.Body.String() != missing.Body.String() {
			t.Fatalf("%s as bob leaks existence: %s vs %s", tc.method, w.Body.String(), missing.Body.String())
		}
	}

	if w := env.do(t, http.MethodGet, "/v1/jobs/abc", alice, nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for non-numeric id, got %d", w.Code)
	}
	if w := env.do(t, http.MethodGet, path, alice, nil); w.Code != http.StatusOK {
		t.Fatalf("alice should still see her job, got %d", w.Code)
	}
}

func TestCreateIgnoresOwnerInBody(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.signup(t, "alice", "alice@x.com", "secret1")
	profile := decode[account.Profile](t, env.do(t, http.MethodGet, "/v1/auth/me", alice, nil))

	body := acmeJob()
	body["user_id"] = profile.UserID + 42
	body["job_id"] = 777
	w := env.do(t, http.MethodPost, "/v1/jobs", alice, body)
	created := decode[jobBody](t, w)
	if w.Code != http.StatusCreated || created.UserID != profile.UserID || created.ID == 777 {
		t.Fatalf("owner must be the caller: %d %s", w.Code, w.Body.String())
	}
}

func TestCreateValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.signup(t, "alice", "alice@x.com", "secret1")

	body := acmeJob()
	body["application_status"] = "Ghosted"
	body["date_applied"] = "yesterday"
	body["job_location"] = ""
	w := env.do(t, http.MethodPost, "/v1/jobs", alice, body)
	errBody := decode[errorBody](t, w)
	if w.Code != http.StatusBadRequest || errBody.Code != "validation_error" {
		t.Fatalf("expected validation error, got %d %s", w.Code, w.Body.String())
	}
	if errBody.Fields["application_status"] == "" || errBody.Fields["date_applied"] == "" {
		t.Fatalf("expected every violation reported: %v", errBody.Fields)
	}
	if _, ok := errBody.Fields["job_location"]; ok {
		t.Fatalf("empty optional field should not be a violation: %v", errBody.Fields)
	}

	w = env.do(t, http.MethodGet, "/v1/jobs", alice, nil)
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Fatalf("invalid job must not be stored: %s", w.Body.String())
	}
}

func TestCreateReportsTypeMismatchPerField(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.signup(t, "alice", "alice@x.com", "secret1")

	body := acmeJob()
	body["cover_letter_sent"] = "yes"
	body["application_status"] = "Ghosted"
	w := env.do(t, http.MethodPost, "/v1/jobs", alice, body)
	errBody := decode[errorBody](t, w)
	if w.Code != http.StatusBadRequest || errBody.Code != "validation_error" {
		t.Fatalf("expected validation error, got %d %s", w.Code, w.Body.String())
	}
	if errBody.Fields["cover_letter_sent"] != "must be a boolean" {
		t.Fatalf("expected type error on cover_letter_sent: %v", errBody.Fields)
	}
	if errBody.Fields["application_status"] == "" {
		t.Fatalf("other violations must still be reported: %v", errBody.Fields)
	}

	w = env.do(t, http.MethodGet, "/v1/jobs", alice, nil)
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Fatalf("invalid job must not be stored: %s", w.Body.String())
	}
}

func TestSignupTypeMismatchIsFieldError(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPost, "/v1/auth/signup", "", gin.H{"username": 42, "email": "alice@x.com", "password": "secret1"})
	errBody := decode[errorBody](t, w)
	if w.Code != http.StatusBadRequest || errBody.Fields["username"] != "must be a string" {
		t.Fatalf("expected username type error, got %d %s", w.Code, w.Body.String())
	}
}

func TestLongPasswordIsValidationError(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPost, "/v1/auth/signup", "", gin.H{
		"username": "alice",
		"email":    "alice@x.com",
		"password": strings.Repeat("é", 40),
	})
	errBody := decode[errorBody](t, w)
	if w.Code != http.StatusBadRequest || errBody.Code != "validation_error" || errBody.Fields["password"] == "" {
		t.Fatalf("expected password validation error, got %d %s", w.Code, w.Body.String())
	}
}

func TestUpdateJob(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.signup(t, "alice", "alice@x.com", "secret1")
	created := decode[jobBody](t, env.do(t, http.MethodPost, "/v1/jobs", alice, acmeJob()))

	body := acmeJob()
	body["application_status"] = "Interviewing"
	body["interview_date"] = "2024-02-01"
	w := env.do(t, http.MethodPut, fmt.Sprintf("/v1/jobs/%d", created.ID), alice, body)
	updated := decode[jobBody](t, w)
	if w.Code != http.StatusOK || updated.ApplicationStatus != "Interviewing" || updated.ID != created.ID {
		t.Fatalf("update: %d %s", w.Code, w.Body.String())
	}

	body["company_name"] = ""
	w = env.do(t, http.MethodPut, fmt.Sprintf("/v1/jobs/%d", created.ID), alice, body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty company, got %d", w.Code)
	}
}

func TestForgotPasswordQueueDownLooksTheSame(t *testing.T) {
	env := newTestEnv(t, nil)
	env.signup(t, "alice", "alice@x.com", "secret1")
	env.notifier.err = errors.New("redis unreachable")

	known := env.do(t, http.MethodPost, "/v1/auth/forgot-password", "", gin.H{"email": "alice@x.com"})
	unknown := env.do(t, http.MethodPost, "/v1/auth/forgot-password", "", gin.H{"email": "ghost@x.com"})
	if known.Code != http.StatusOK || unknown.Code != http.StatusOK || known.Body.String() != unknown.Body.String() {
		t.Fatalf("responses differ: %d %s vs %d %s", known.Code, known.Body.String(), unknown.Code, unknown.Body.String())
	}
}

func TestPasswordResetOverHTTP(t *testing.T) {
	env := newTestEnv(t, nil)
	env.signup(t, "alice", "alice@x.com", "secret1")

	known := env.do(t, http.MethodPost, "/v1/auth/forgot-password", "", gin.H{"email": "alice@x.com"})
	unknown := env.do(t, http.MethodPost, "/v1/auth/forgot-password", "", gin.H{"email": "ghost@x.com"})
	if known.Code != http.StatusOK || known.Body.String() != unknown.Body.String() {
		t.Fatalf("acknowledgements differ: %d %s vs %s", known.Code, known.Body.String(), unknown.Body.String())
	}
	if w := env.do(t, http.MethodPost, "/v1/auth/forgot-password", "", gin.H{}); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing email, got %d", w.Code)
	}

	if len(env.notifier.links) != 1 {
		t.Fatalf("expected one reset link, got %v", env.notifier.links)
	}
	link, _ := url.Parse(env.notifier.links[0])
	token := link.Query().Get("token")

	if w := env.do(t, http.MethodGet, "/v1/auth/validate-reset-token?token="+token, "", nil); w.Code != http.StatusOK {
		t.Fatalf("validate: %d %s", w.Code, w.Body.String())
	}
	if w := env.do(t, http.MethodPost, "/v1/auth/reset-password", "", gin.H{"token": token, "newPassword": "12345"}); w.Code != http.StatusBadRequest {
		t.Fatalf("expected weak password rejection, got %d", w.Code)
	}
	if w := env.do(t, http.MethodPost, "/v1/auth/reset-password", "", gin.H{"token": token, "newPassword": "newsecret"}); w.Code != http.StatusOK {
		t.Fatalf("reset: %d %s", w.Code, w.Body.String())
	}

	w := env.do(t, http.MethodPost, "/v1/auth/reset-password", "", gin.H{"token": token, "newPassword": "another1"})
	if w.Code != http.StatusBadRequest || decode[errorBody](t, w).Code != "invalid_or_expired" {
		t.Fatalf("expected reused token rejection, got %d %s", w.Code, w.Body.String())
	}
	if w := env.do(t, http.MethodGet, "/v1/auth/validate-reset-token?token="+token, "", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("consumed token must be invalid, got %d", w.Code)
	}

	if w := env.do(t, http.MethodPost, "/v1/auth/signin", "", gin.H{"identifier": "alice", "password": "newsecret"}); w.Code != http.StatusOK {
		t.Fatalf("sign in with new password: %d", w.Code)
	}
}

func uploadResume(t *testing.T, env *testEnv, token string, jobID uint, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = part.Write(content)
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/v1/jobs/%d/resume", jobID), body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func TestResumeAttachment(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.signup(t, "alice", "alice@x.com", "secret1")
	bob := env.signup(t, "bob", "bob@x.com", "secret1")
	created := decode[jobBody](t, env.do(t, http.MethodPost, "/v1/jobs", alice, acmeJob()))
	resumePath := fmt.Sprintf("/v1/jobs/%d/resume", created.ID)

	if w := env.do(t, http.MethodGet, resumePath, alice, nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before upload, got %d", w.Code)
	}

	w := uploadResume(t, env, alice, created.ID, "cv.pdf", []byte("%PDF-1.4 resume"))
	if w.Code != http.StatusCreated || !decode[jobBody](t, w).HasResume {
		t.Fatalf("upload: %d %s", w.Code, w.Body.String())
	}
	if len(env.objects.uploaded) != 1 {
		t.Fatalf("expected one stored object, got %d", len(env.objects.uploaded))
	}
	var firstKey string
	for key := range env.objects.uploaded {
		firstKey = key
	}
	if !strings.HasPrefix(firstKey, "resumes/") || !strings.HasSuffix(firstKey, ".pdf") {
		t.Fatalf("unexpected object key %q", firstKey)
	}

	w = env.do(t, http.MethodGet, resumePath, alice, nil)
	link := decode[map[string]any](t, w)
	if w.Code != http.StatusOK || !strings.HasSuffix(link["url"].(string), firstKey) {
		t.Fatalf("link: %d %s", w.Code, w.Body.String())
	}

	if w := uploadResume(t, env, alice, created.ID, "cv.exe", []byte("MZ")); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad extension, got %d", w.Code)
	}
	if w := uploadResume(t, env, alice, created.ID, "cv.pdf", []byte("X5O!EICAR")); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for infected file, got %d", w.Code)
	}
	if w := uploadResume(t, env, bob, created.ID, "cv.pdf", []byte("%PDF")); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign upload, got %d", w.Code)
	}

	w = uploadResume(t, env, alice, created.ID, "cv-v2.docx", []byte("PK docx"))
	if w.Code != http.StatusCreated {
		t.Fatalf("replace upload: %d %s", w.Code, w.Body.String())
	}
	if len(env.objects.deleted) != 1 || env.objects.deleted[0] != firstKey {
		t.Fatalf("previous object should be removed, deleted=%v", env.objects.deleted)
	}

	if w := env.do(t, http.MethodDelete, fmt.Sprintf("/v1/jobs/%d", created.ID), alice, nil); w.Code != http.StatusOK {
		t.Fatalf("delete job: %d", w.Code)
	}
	if len(env.objects.uploaded) != 0 {
		t.Fatalf("deleting the job should remove its attachment, left=%v", env.objects.uploaded)
	}
}

func TestHealthAndUnknownRoute(t *testing.T) {
	env := newTestEnv(t, nil)

	if w := env.do(t, http.MethodGet, "/health", "", nil); w.Code != http.StatusOK {
		t.Fatalf("health: %d", w.Code)
	}
	w := env.do(t, http.MethodGet, "/v1/nope", "", nil)
	if w.Code != http.StatusNotFound || decode[errorBody](t, w).Code != "not_found" {
		t.Fatalf("unknown route: %d %s", w.Code, w.Body.String())
	}
}
