package relay

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
)

func do(t *testing.T, h http.Handler, method, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, "/api/chat", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type %q", ct)
	}
	if cors := rec.Header().Get("Access-Control-Allow-Origin"); cors != "*" {
		t.Fatalf("cors header %q", cors)
	}
	out := map[string]any{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("response is not json: %v (%s)", err, rec.Body.String())
	}
	return rec, out
}

func unconfigured() http.Handler {
	return NewHandler(New(Config{}, nil, zerolog.Nop()), zerolog.Nop())
}

func TestHandlerRejectsNonPost(t *testing.T) {
	for _, m := range []string{http.MethodGet, http.MethodPut, http.MethodOptions} {
		rec, out := do(t, unconfigured(), m, "")
		if rec.Code != http.StatusMethodNotAllowed || out["error"] != "Method not allowed" {
			t.Fatalf("%s: got %d %v", m, rec.Code, out)
		}
	}
}

func TestHandlerRejectsInvalidJSON(t *testing.T) {
	rec, out := do(t, unconfigured(), http.MethodPost, `{"message": "hi"`)
	if rec.Code != http.StatusBadRequest || out["error"] != "Invalid JSON" {
		t.Fatalf("got %d %v", rec.Code, out)
	}
}

func TestHandlerRequiresMessage(t *testing.T) {
	for _, body := range []string{`{"message": "   "}`, `{}`, ``, `{"message": null}`, `{"message": 5}`, `"hi"`} {
		rec, out := do(t, unconfigured(), http.MethodPost, body)
		if rec.Code != http.StatusBadRequest || out["error"] != "Message is required" {
			t.Fatalf("%q: got %d %v", body, rec.Code, out)
		}
	}
}

func TestHandlerUnconfigured(t *testing.T) {
	rec, out := do(t, unconfigured(), http.MethodPost, `{"message": "Hi"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d", rec.Code)
	}
	if out["notified"] != false || out["reply"] != ReplyReceived {
		t.Fatalf("unexpected body %v", out)
	}
}

func TestHandlerNotifiedButCompletionFails(t *testing.T) {
	var gotText string
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p map[string]string
		_ = json.NewDecoder(r.Body).Decode(&p)
		gotText = p["text"]
		w.WriteHeader(http.StatusOK)
	}))
	defer hook.Close()
	ai := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer ai.Close()

	r := New(Config{WebhookURL: hook.URL, CompletionKey: "sk-test", CompletionURL: ai.URL}, nil, zerolog.Nop())
	rec, out := do(t, NewHandler(r, zerolog.Nop()), http.MethodPost, `{"message": "  Is July free?  "}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d", rec.Code)
	}
	if out["notified"] != true || out["reply"] != ReplyFallback {
		t.Fatalf("unexpected body %v", out)
	}
	if gotText != "New site chat message\nIs July free?" {
		t.Fatalf("webhook text %q", gotText)
	}
}

func TestHandlerUnreachableDownstreams(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := dead.URL
	dead.Close()

	r := New(Config{WebhookURL: url, CompletionKey: "sk-test", CompletionURL: url}, nil, zerolog.Nop())
	rec, out := do(t, NewHandler(r, zerolog.Nop()), http.MethodPost, `{"message": "Hi"}`)
	if rec.Code != http.StatusOK || out["notified"] != false || out["reply"] != ReplyFallback {
		t.Fatalf("got %d %v", rec.Code, out)
	}
}

func TestWebhookErrorStatusIsNotNotified(t *testing.T) {
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer hook.Close()
	n := (&WebhookNotifier{URL: hook.URL, Client: hook.Client()}).Notify(context.Background(), "hi")
	if n.Status != NotifyFailed {
		t.Fatalf("got %s, want failed", n.Status)
	}
}

func TestChatCompleter(t *testing.T) {
	var calls int32
	var seen chatRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		auth = r.Header.Get("Authorization")
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &seen)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  The pool is heated.  "}}]}`))
	}))
	defer srv.Close()

	r := New(Config{CompletionKey: "sk-test", CompletionURL: srv.URL}, nil, zerolog.Nop())
	res := r.Relay(context.Background(), "Is the pool heated?")
	if res.Reply != "The pool is heated." || res.Notified {
		t.Fatalf("unexpected result %+v", res)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected a single call, got %d", calls)
	}
	if auth != "Bearer sk-test" {
		t.Fatalf("authorization %q", auth)
	}
	if seen.Model != "gpt-4o-mini" || seen.MaxTokens != 220 || seen.Temperature != 0.4 {
		t.Fatalf("unexpected request %+v", seen)
	}
	if len(seen.Messages) != 2 || seen.Messages[0].Role != "system" || seen.Messages[1].Content != "Is the pool heated?" {
		t.Fatalf("unexpected messages %+v", seen.Messages)
	}
}

func TestChatCompleterMissingOrBlankText(t *testing.T) {
	for _, body := range []string{`{"choices":[]}`, `{"choices":[{"message":{"content":"   "}}]}`, `{"error":"x"}`, `not json`} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}))
		c := &ChatCompleter{URL: srv.URL, Key: "k", Client: srv.Client()}
		got := c.Complete(context.Background(), "hi")
		srv.Close()
		if got.Status != CompletionFailed || got.Reply() != ReplyFallback {
			t.Fatalf("%s: got %+v", body, got)
		}
	}
}

func TestCompose(t *testing.T) {
	cases := []struct {
		n    Notification
		c    Completion
		want Result
	}{
		{Notification{Status: NotifySkipped}, Completion{Status: CompletionSkipped}, Result{false, ReplyReceived}},
		{Notification{Status: NotifyDelivered}, Completion{Status: CompletionFailed}, Result{true, ReplyFallback}},
		{Notification{Status: NotifyFailed}, Completion{Status: CompletionGenerated, Text: "hello"}, Result{false, "hello"}},
		{Notification{Status: NotifyDelivered}, Completion{Status: CompletionGenerated}, Result{true, ReplyFallback}},
	}
	for i, c := range cases {
		if got := Compose(c.n, c.c); got != c.want {
			t.Fatalf("case %d: got %+v, want %+v", i, got, c.want)
		}
	}
}

func TestHandlerFinishesAfterClientGoesAway(t *testing.T) {
	var hits int32
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer hook.Close()

	h := NewHandler(New(Config{WebhookURL: hook.URL}, nil, zerolog.Nop()), zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"Hi"}`)).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var res Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("response is not json: %v", err)
	}
	if rec.Code != http.StatusOK || !res.Notified {
		t.Fatalf("got %d %+v, want notified", rec.Code, res)
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("webhook hits %d, want 1", hits)
	}
}

func TestHandlerRejectsOversizeBody(t *testing.T) {
	big := `{"message":"` + strings.Repeat("a", MaxBody) + `"}`
	rec, out := do(t, unconfigured(), http.MethodPost, big)
	if rec.Code != http.StatusRequestEntityTooLarge || out["error"] != "Message too long" {
		t.Fatalf("got %d %v", rec.Code, out)
	}

	// a body right at the limit is still read whole
	pad := MaxBody - len(`{"message":"Hi"}`)
	fits := `{"message":"Hi"}` + strings.Repeat(" ", pad)
	rec, out = do(t, unconfigured(), http.MethodPost, fits)
	if rec.Code != http.StatusOK || out["reply"] != ReplyReceived {
		t.Fatalf("got %d %v", rec.Code, out)
	}
}
