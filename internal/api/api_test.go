package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/webnote/internal/ai"
	"github.com/starford/webnote/internal/assistant"
	"github.com/starford/webnote/internal/i18n"
	"github.com/starford/webnote/internal/models"
	"github.com/starford/webnote/internal/notestore"
	"github.com/starford/webnote/internal/page"
	"github.com/starford/webnote/internal/session"
	"github.com/starford/webnote/internal/sse"
	"github.com/starford/webnote/internal/storage"
	"github.com/starford/webnote/internal/tabs"
	"github.com/starford/webnote/internal/testutil"
)

type fakeProvider struct {
	reply string
	err   error
}

func (f *fakeProvider) Chat(context.Context, ai.ChatRequest) (string, error) { return f.reply, f.err }
func (f *fakeProvider) ListModels(context.Context) ([]string, error) {
	return []string{"model-a", "model-b"}, nil
}

type env struct {
	router   http.Handler
	store    *notestore.Store
	kv       *storage.Memory
	session  *session.Controller
	bridge   *tabs.Bridge
	broker   *sse.Broker
	provider *fakeProvider
}

// testEnv wires the API over an in-memory store. authToken "" means
// disabled mode.
func testEnv(t *testing.T, authToken string) *env {
	t.Helper()
	e := &env{provider: &fakeProvider{reply: "- summary point"}}
	e.store, e.kv = testutil.TestStore(t)

	e.broker = sse.NewBroker(10 * time.Millisecond)
	t.Cleanup(e.broker.Close)

	e.session = session.New(e.store, nil, session.WithLogger(testutil.Logger()))
	e.bridge = tabs.NewBridge(func(_ context.Context, id int, url string) error {
		e.broker.PublishNavigate(id, url)
		return nil
	})
	tracker := tabs.NewTracker(e.bridge, e.session.OnURLChange, testutil.Logger())
	e.session.SetNavigator(tracker)
	if err := tracker.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(tracker.Stop)

	loc, err := i18n.New(i18n.LocaleEN)
	if err != nil {
		t.Fatal(err)
	}
	if err := loc.Load(); err != nil {
		t.Fatal(err)
	}
	factory := func(_ context.Context, s models.Settings) (ai.Provider, error) {
		if s.APIKey == "" {
			return nil, ai.ErrNoAPIKey
		}
		return e.provider, nil
	}

	h := NewHandler(Deps{
		Notes:     e.store,
		Session:   e.session,
		Tabs:      e.bridge,
		Pages:     page.NewLoader(page.DefaultConfig(), nil, testutil.Logger()),
		Assistant: assistant.New(e.store, factory, loc, testutil.Logger()),
		Localizer: loc,
		Providers: factory,
		Events:    e.broker,
	})
	e.router = NewRouter(h, authToken != "", authToken, e.broker)
	return e
}

func (e *env) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(data)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, rd)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

// openTab reports a single active tab and waits for the session to load it.
func (e *env) openTab(t *testing.T, url, title string) {
	t.Helper()
	w := e.do(t, http.MethodPost, "/tabs/snapshot", TabSnapshotRequest{
		Tabs:        []models.Tab{{ID: 1, URL: url, Title: title, Status: "complete"}},
		ActiveTabID: 1,
	})
	if w.Code != http.StatusNoContent {
		t.Fatalf("snapshot = %d: %s", w.Code, w.Body.String())
	}
	e.session.Wait()
}

var article = "<html><body><nav>menu</nav><article><h1>Heading</h1><p>" +
	strings.Repeat("Plenty of readable article text sits here for the extractor. ", 6) +
	"</p></article></body></html>"

func TestPutAndGetNote(t *testing.T) {
	e := testEnv(t, "")

	w := e.do(t, http.MethodPut, "/note?url=https://a.test", PutNoteRequest{Content: "hello", Title: "A"})
	if w.Code != http.StatusOK {
		t.Fatalf("put = %d: %s", w.Code, w.Body.String())
	}

	w = e.do(t, http.MethodGet, "/note?url=https://a.test", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get = %d", w.Code)
	}
	rec := decode[NoteRecord](t, w)
	if rec.Content != "hello" || rec.Title != "A" || rec.LastUpdated == 0 {
		t.Errorf("record = %+v", rec)
	}
}

func TestPutBlankDeletes(t *testing.T) {
	e := testEnv(t, "")
	e.do(t, http.MethodPut, "/note?url=https://a.test", PutNoteRequest{Content: "hello"})

	w := e.do(t, http.MethodPut, "/note?url=https://a.test", PutNoteRequest{Content: "  \n"})
	if w.Code != http.StatusNoContent {
		t.Fatalf("blank put = %d", w.Code)
	}
	if w = e.do(t, http.MethodGet, "/note?url=https://a.test", nil); w.Code != http.StatusNotFound {
		t.Errorf("get after blank put = %d, want 404", w.Code)
	}
}

func TestNoteURLRequired(t *testing.T) {
	e := testEnv(t, "")
	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		w := e.do(t, method, "/note", PutNoteRequest{Content: "x"})
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s without url = %d, want 400", method, w.Code)
		}
	}
}

func TestDeleteNote(t *testing.T) {
	e := testEnv(t, "")
	e.do(t, http.MethodPut, "/note?url=https://a.test", PutNoteRequest{Content: "hello"})

	if w := e.do(t, http.MethodDelete, "/note?url=https://a.test", nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", w.Code)
	}
	// Deleting again is not an error.
	if w := e.do(t, http.MethodDelete, "/note?url=https://a.test", nil); w.Code != http.StatusNoContent {
		t.Fatalf("second delete = %d", w.Code)
	}
}

func TestListNotes(t *testing.T) {
	e := testEnv(t, "")
	ctx := context.Background()
	old := notestore.New(e.kv, notestore.WithClock(func() time.Time { return time.UnixMilli(1000) }))
	if _, err := old.Set(ctx, "https://old.test/page", "# Old heading\nbody", ""); err != nil {
		t.Fatal(err)
	}
	e.do(t, http.MethodPut, "/note?url=https://new.test", PutNoteRequest{Content: "fresh", Title: "New"})
	if err := e.store.SaveSettings(ctx, notestore.DefaultSettings()); err != nil {
		t.Fatal(err)
	}

	w := e.do(t, http.MethodGet, "/notes", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	resp := decode[NoteListResponse](t, w)
	if resp.Total != 2 {
		t.Fatalf("total = %d, want 2 (settings excluded): %+v", resp.Total, resp.Notes)
	}
	if resp.Notes[0].URL != "https://new.test" {
		t.Errorf("first = %q, want most recent", resp.Notes[0].URL)
	}
	if got := resp.Notes[1]; got.DisplayTitle != "Old heading" || got.DisplayURL != "old.test/page" {
		t.Errorf("display fields = %+v", got)
	}
}

func TestSearchNotes(t *testing.T) {
	e := testEnv(t, "")
	e.do(t, http.MethodPut, "/note?url=https://go.dev", PutNoteRequest{Content: "Gophers"})
	e.do(t, http.MethodPut, "/note?url=https://rust.test", PutNoteRequest{Content: "Crabs"})

	w := e.do(t, http.MethodGet, "/notes/search?q=gopher", nil)
	resp := decode[NoteListResponse](t, w)
	if resp.Total != 1 || resp.Notes[0].URL != "https://go.dev" {
		t.Errorf("search = %+v", resp)
	}

	if w := e.do(t, http.MethodGet, "/notes/search", nil); w.Code != http.StatusBadRequest {
		t.Errorf("search no query = %d, want 400", w.Code)
	}
}

func TestSessionFollowsTabs(t *testing.T) {
	e := testEnv(t, "")
	e.do(t, http.MethodPut, "/note?url=https://b.test", PutNoteRequest{Content: "bee", Title: "B"})

	e.openTab(t, "https://a.test", "A")
	st := decode[session.State](t, e.do(t, http.MethodGet, "/session", nil))
	if st.CurrentURL != "https://a.test" || st.CurrentNote.Content != "" {
		t.Errorf("state = %+v", st)
	}

	e.do(t, http.MethodPost, "/tabs/updated", TabUpdate{TabID: 1, URL: "https://b.test", Title: "B"})
	e.session.Wait()
	st = decode[session.State](t, e.do(t, http.MethodGet, "/session", nil))
	if st.CurrentURL != "https://b.test" || st.CurrentNote.Content != "bee" {
		t.Errorf("after navigation = %+v", st)
	}
}

func TestChangeNote(t *testing.T) {
	e := testEnv(t, "")

	if w := e.do(t, http.MethodPut, "/session/note", ChangeNoteRequest{Content: "x"}); w.Code != http.StatusConflict {
		t.Errorf("change without page = %d, want 409", w.Code)
	}

	e.openTab(t, "https://a.test", "A")
	w := e.do(t, http.MethodPut, "/session/note", ChangeNoteRequest{Content: "typed"})
	if w.Code != http.StatusOK {
		t.Fatalf("change = %d: %s", w.Code, w.Body.String())
	}
	st := decode[session.State](t, w)
	if st.CurrentNote.Content != "typed" || st.CurrentNote.Title != "A" || len(st.AllNotes) != 1 {
		t.Errorf("state = %+v", st)
	}
}

func TestOpenNotePublishesNavigate(t *testing.T) {
	e := testEnv(t, "")

	if w := e.do(t, http.MethodPost, "/session/open", OpenNoteRequest{URL: "https://b.test"}); w.Code != http.StatusConflict {
		t.Errorf("open without tab = %d, want 409", w.Code)
	}

	e.openTab(t, "https://a.test", "A")
	ch := e.broker.Subscribe()
	defer e.broker.Unsubscribe(ch)

	if w := e.do(t, http.MethodPost, "/session/open", OpenNoteRequest{URL: "https://b.test"}); w.Code != http.StatusAccepted {
		t.Fatalf("open = %d: %s", w.Code, w.Body.String())
	}

	deadline := time.After(time.Second)
	for {
		select {
		case msg := <-ch:
			if strings.Contains(string(msg), "event: tab.navigate") {
				if !strings.Contains(string(msg), `"url":"https://b.test"`) {
					t.Errorf("navigate = %q", msg)
				}
				e.session.Wait()
				if got := e.session.Snapshot().CurrentURL; got != "https://b.test" {
					t.Errorf("current = %q", got)
				}
				return
			}
		case <-deadline:
			t.Fatal("no tab.navigate event")
		}
	}
}

func TestRemoveNote(t *testing.T) {
	e := testEnv(t, "")
	e.do(t, http.MethodPut, "/note?url=https://a.test", PutNoteRequest{Content: "hello"})
	e.openTab(t, "https://a.test", "A")

	w := e.do(t, http.MethodDelete, "/session/note?url=https://a.test", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("remove = %d", w.Code)
	}
	if st := decode[session.State](t, w); len(st.AllNotes) != 0 {
		t.Errorf("allNotes = %+v", st.AllNotes)
	}
	e.session.Wait()
	if got := e.session.Snapshot().CurrentNote.Content; got != "" {
		t.Errorf("current content = %q", got)
	}
}

func TestClip(t *testing.T) {
	e := testEnv(t, "")
	e.openTab(t, "https://a.test", "A")
	e.do(t, http.MethodPut, "/session/note", ChangeNoteRequest{Content: "mine"})

	w := e.do(t, http.MethodPost, "/session/clip", ClipRequest{HTML: article})
	if w.Code != http.StatusOK {
		t.Fatalf("clip = %d: %s", w.Code, w.Body.String())
	}
	st := decode[session.State](t, w)
	if !strings.HasPrefix(st.CurrentNote.Content, "mine\n\n# Heading") {
		t.Errorf("content = %q", st.CurrentNote.Content)
	}
	if strings.Contains(st.CurrentNote.Content, "menu") {
		t.Error("navigation clipped")
	}
}

func TestPageContent(t *testing.T) {
	e := testEnv(t, "")

	w := e.do(t, http.MethodPost, "/page/content", PageContentRequest{HTML: article})
	if w.Code != http.StatusOK {
		t.Fatalf("content = %d: %s", w.Code, w.Body.String())
	}
	if resp := decode[PageContentResponse](t, w); !strings.Contains(resp.Content, "readable article text") {
		t.Errorf("content = %q", resp.Content)
	}

	w = e.do(t, http.MethodPost, "/page/content", PageContentRequest{HTML: "<nav>only nav</nav><footer>f</footer>"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("empty page = %d, want 422", w.Code)
	}

	w = e.do(t, http.MethodPost, "/page/content", PageContentRequest{URL: "chrome://extensions"})
	resp := decode[PageContentResponse](t, w)
	if w.Code != http.StatusUnprocessableEntity || resp.Error != "Cannot summarize browser internal pages or extensions." {
		t.Errorf("internal page = %d %+v", w.Code, resp)
	}
}

func TestSummary(t *testing.T) {
	e := testEnv(t, "")
	e.openTab(t, "https://a.test", "A")
	if err := e.store.SaveSettings(context.Background(), models.Settings{
		APIKey: "k", Model: "m", Provider: models.ProviderOpenAI, BaseURL: notestore.DefaultBaseURL,
	}); err != nil {
		t.Fatal(err)
	}

	w := e.do(t, http.MethodPost, "/page/summary", SummaryRequest{HTML: article, AddToNote: true})
	if w.Code != http.StatusOK {
		t.Fatalf("summary = %d: %s", w.Code, w.Body.String())
	}
	resp := decode[SummaryResponse](t, w)
	if resp.Failed || resp.Text != "- summary point" || resp.Heading != "## Web Page Summary" {
		t.Errorf("resp = %+v", resp)
	}
	if got := e.session.Snapshot().CurrentNote.Content; got != "## Web Page Summary\n\n- summary point\n\n" {
		t.Errorf("note = %q", got)
	}
}

func TestSummaryAppendsToSummarizedPage(t *testing.T) {
	e := testEnv(t, "")
	ctx := context.Background()
	e.openTab(t, "https://a.test", "A")
	if err := e.store.SaveSettings(ctx, models.Settings{
		APIKey: "k", Model: "m", Provider: models.ProviderOpenAI,
	}); err != nil {
		t.Fatal(err)
	}

	w := e.do(t, http.MethodPost, "/page/summary", SummaryRequest{
		URL: "https://b.test", Title: "B", HTML: article, AddToNote: true,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("summary = %d: %s", w.Code, w.Body.String())
	}

	rec, ok, _ := e.store.Get(ctx, "https://b.test")
	if !ok || !strings.Contains(rec.Content, "- summary point") {
		t.Errorf("b.test note = %+v, %v", rec, ok)
	}
	if _, ok, _ := e.store.Get(ctx, "https://a.test"); ok {
		t.Error("summary of b.test written into the current page's note")
	}
}

func TestSummaryFailureIsLocalizedText(t *testing.T) {
	e := testEnv(t, "")
	e.openTab(t, "https://a.test", "A")

	// No API key stored.
	w := e.do(t, http.MethodPost, "/page/summary", SummaryRequest{HTML: article, Question: "why?", AddToNote: true})
	if w.Code != http.StatusOK {
		t.Fatalf("summary = %d", w.Code)
	}
	resp := decode[SummaryResponse](t, w)
	if !resp.Failed || !strings.HasPrefix(resp.Text, "No API key is configured.") {
		t.Errorf("resp = %+v", resp)
	}
	if got := e.session.Snapshot().CurrentNote.Content; got != "" {
		t.Errorf("failure appended to note: %q", got)
	}
}

func TestSettings(t *testing.T) {
	e := testEnv(t, "")

	s := decode[models.Settings](t, e.do(t, http.MethodGet, "/settings", nil))
	if s != notestore.DefaultSettings() {
		t.Errorf("defaults = %+v", s)
	}

	if w := e.do(t, http.MethodGet, "/settings/models", nil); w.Code != http.StatusBadRequest {
		t.Errorf("models without key = %d, want 400", w.Code)
	}

	bad := models.Settings{APIKey: "k", Model: "m", Provider: "nope"}
	if w := e.do(t, http.MethodPut, "/settings", bad); w.Code != http.StatusBadRequest {
		t.Errorf("invalid settings = %d, want 400", w.Code)
	}

	good := models.Settings{APIKey: "k", Model: "gemini-2.5-flash", Provider: models.ProviderGemini}
	w := e.do(t, http.MethodPut, "/settings", good)
	if w.Code != http.StatusOK {
		t.Fatalf("put settings = %d: %s", w.Code, w.Body.String())
	}
	if saved := decode[models.Settings](t, w); saved.Provider != models.ProviderGemini || saved.BaseURL == "" {
		t.Errorf("saved = %+v", saved)
	}

	w = e.do(t, http.MethodGet, "/settings/models", nil)
	if resp := decode[ModelsResponse](t, w); len(resp.Models) != 2 {
		t.Errorf("models = %+v", resp)
	}
}

func TestAuthMiddleware(t *testing.T) {
	e := testEnv(t, "secret123")

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong", "Bearer wrong", http.StatusUnauthorized},
		{"valid", "Bearer secret123", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/notes", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			e.router.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	e := testEnv(t, "")
	if w := e.do(t, http.MethodGet, "/notes", nil); w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

func TestCORSPreflightSkipsAuth(t *testing.T) {
	e := testEnv(t, "secret123")
	req := httptest.NewRequest(http.MethodOptions, "/notes", nil)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("preflight = %d, want 204", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Headers") == "" {
		t.Error("missing CORS headers")
	}
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	e := testEnv(t, "secret")
	if w := e.do(t, http.MethodGet, "/events", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	e := testEnv(t, "tok")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("SSE with valid token = %d, want 200", w.Code)
	}
}
