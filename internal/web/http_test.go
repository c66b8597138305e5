package admin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/winspan/boomfilter/internal/lists"
	"github.com/winspan/boomfilter/pkg/logger"
)

const testToken = "test-token"

type fakeNotifier struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeNotifier) Notify(kind lists.Kind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, kind.Command())
	return nil
}

func (f *fakeNotifier) commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type testServer struct {
	router   *chi.Mux
	notifier *fakeNotifier
	files    map[lists.Kind]string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()

	cfg := &lists.Config{AdminToken: testToken}
	cfg.Lists.AllowFile = filepath.Join(dir, "allow.list")
	cfg.Lists.DenyFile = filepath.Join(dir, "deny.list")
	cfg.Lists.RegexFile = filepath.Join(dir, "regex.list")

	notifier := &fakeNotifier{}
	store := lists.NewStore(cfg.ListFiles())
	mgr := lists.NewManager(store, notifier, nil, logger.Discard(), cfg.CompareOptions())

	r := chi.NewRouter()
	BindRoutes(r, mgr, nil, cfg, logger.Discard())

	return &testServer{
		router:   r,
		notifier: notifier,
		files: map[lists.Kind]string{
			lists.Allow: cfg.Lists.AllowFile,
			lists.Deny:  cfg.Lists.DenyFile,
			lists.Regex: cfg.Lists.RegexFile,
		},
	}
}

func (s *testServer) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Authorization", "Bearer "+testToken)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) seed(t *testing.T, kind lists.Kind, content string) {
	t.Helper()
	if err := os.WriteFile(s.files[kind], []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func (s *testServer) fileContent(t *testing.T, kind lists.Kind) string {
	t.Helper()
	data, err := os.ReadFile(s.files[kind])
	if err != nil {
		if os.IsNotExist(err) {
			return ""
		}
		t.Fatal(err)
	}
	return string(data)
}

func expectStatusJSON(t *testing.T, rec *httptest.ResponseRecorder, want string) {
	t.Helper()
	var body struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	if body.Status != want {
		t.Errorf("status = %q, want %q (body %s)", body.Status, want, rec.Body.String())
	}
}

func TestHealthNoAuth(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200", rec.Code)
	}
}

func TestUnauthorized(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/dns/denylist", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestGetEmptyList(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/dns/allowlist", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Entries []string `json:"entries"`
		Count   int      `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Count != 0 || len(body.Entries) != 0 {
		t.Errorf("expected empty list, got %+v", body)
	}
}

func TestAddAndGetDenylist(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/dns/denylist", `{"entry":"ads.example.com"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	expectStatusJSON(t, rec, "success")

	rec = s.do(t, http.MethodGet, "/api/dns/denylist", "")
	var body struct {
		Entries []string `json:"entries"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Entries) != 1 || body.Entries[0] != "ads.example.com" {
		t.Errorf("entries = %v", body.Entries)
	}
}

func TestAddInvalidEntry(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/dns/denylist", `{"entry":"not a domain!!"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if got := s.fileContent(t, lists.Deny); got != "" {
		t.Errorf("file changed on rejected add: %q", got)
	}
}

func TestAddDuplicateEntry(t *testing.T) {
	s := newTestServer(t)

	s.do(t, http.MethodPost, "/api/dns/denylist", `{"entry":"example.com"}`)
	rec := s.do(t, http.MethodPost, "/api/dns/denylist", `{"entry":"example.com"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
	if got := s.fileContent(t, lists.Deny); got != "example.com\n" {
		t.Errorf("file content = %q", got)
	}
}

func TestDeleteAllowlistEntry(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, lists.Allow, "example.com\n")

	rec := s.do(t, http.MethodDelete, "/api/dns/allowlist/example.com", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	expectStatusJSON(t, rec, "success")

	if got := s.fileContent(t, lists.Allow); got != "" {
		t.Errorf("file content = %q, want empty", got)
	}
	if cmds := s.notifier.commands(); len(cmds) != 1 || cmds[0] != "reload-lists" {
		t.Errorf("notifications = %v", cmds)
	}
}

func TestDeleteMissingEntry(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodDelete, "/api/dns/denylist/absent.example.com", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestDeleteMissingOk(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodDelete, "/api/dns/denylist/absent.example.com?missing_ok=true", "")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 for idempotent delete", rec.Code)
	}
	expectStatusJSON(t, rec, "success")
}

func TestDeleteRegexlistEntry(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, lists.Regex, "^.*example.com$\n")

	target := "/api/dns/regexlist/" + url.PathEscape("^.*example.com$")
	rec := s.do(t, http.MethodDelete, target, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	if got := s.fileContent(t, lists.Regex); got != "" {
		t.Errorf("file content = %q, want empty", got)
	}
	if cmds := s.notifier.commands(); len(cmds) != 1 || cmds[0] != "recompile-regex" {
		t.Errorf("notifications = %v", cmds)
	}
}

func TestFailedCrossListCleanupIsLogged(t *testing.T) {
	dir := t.TempDir()

	cfg := &lists.Config{AdminToken: testToken}
	cfg.Lists.AllowFile = filepath.Join(dir, "allow.list")
	cfg.Lists.DenyFile = filepath.Join(dir, "deny.list")
	cfg.Lists.RegexFile = filepath.Join(dir, "regex.list")

	// 把拦截列表的路径占成目录，制造对侧清理时的存储错误
	if err := os.Mkdir(cfg.Lists.DenyFile, 0755); err != nil {
		t.Fatal(err)
	}

	logPath := filepath.Join(dir, "admin.log")
	lg, err := logger.NewLogger(&logger.Config{Level: logger.WARN, Output: logPath})
	if err != nil {
		t.Fatal(err)
	}
	defer lg.Close()

	store := lists.NewStore(cfg.ListFiles())
	mgr := lists.NewManager(store, &fakeNotifier{}, nil, logger.Discard(), cfg.CompareOptions())
	r := chi.NewRouter()
	BindRoutes(r, mgr, nil, cfg, lg)

	req := httptest.NewRequest(http.MethodPost, "/api/dns/allowlist", strings.NewReader(`{"entry":"example.com"}`))
	req.Header.Set("Authorization", "Bearer "+testToken)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	// 主操作成功，清理失败只降级为告警
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "清理") || !strings.Contains(string(data), "失败") {
		t.Errorf("expected cleanup failure warning in log, got %q", data)
	}
}

func TestAddAllowRemovesFromDeny(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, lists.Deny, "example.com\n")

	rec := s.do(t, http.MethodPost, "/api/dns/allowlist", `{"entry":"example.com"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	if got := s.fileContent(t, lists.Deny); got != "" {
		t.Errorf("denylist still contains entry after allowlisting: %q", got)
	}
	if got := s.fileContent(t, lists.Allow); got != "example.com\n" {
		t.Errorf("allowlist content = %q", got)
	}
}
