package tutor

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/tutorctl/tutorctl/internal/assemble"
	"github.com/tutorctl/tutorctl/internal/gateway"
	"github.com/tutorctl/tutorctl/internal/session"
	"github.com/tutorctl/tutorctl/internal/tui"
)

// memStore keeps sessions in memory, satisfying the fails-soft contract.
type memStore struct {
	sessions []*session.Session
}

func (m *memStore) Load() ([]*session.Session, error) { return m.sessions, nil }
func (m *memStore) Save(s []*session.Session) error   { m.sessions = s; return nil }
func (m *memStore) Close() error                      { return nil }

type fakeCompleter struct {
	reply   string
	err     error
	block   chan struct{} // when set, Complete waits until closed
	started chan struct{} // when set, signaled once a call arrives

	calls   int
	lastReq *gateway.CompletionRequest
}

func (f *fakeCompleter) Complete(ctx context.Context, req *gateway.CompletionRequest) (*gateway.Completion, error) {
	f.calls++
	f.lastReq = req
	if f.started != nil {
		select {
		case f.started <- struct{}{}:
		default:
		}
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return &gateway.Completion{
		Text:  f.reply,
		Usage: gateway.Usage{InputTokens: 10, OutputTokens: 5},
	}, nil
}

func (f *fakeCompleter) Name() string         { return "fake" }
func (f *fakeCompleter) DefaultModel() string { return "fake-model" }

type fakeSearcher struct {
	results []gateway.Result
	err     error
	calls   int
}

func (f *fakeSearcher) Search(_ context.Context, _ string, _ int) ([]gateway.Result, error) {
	f.calls++
	return f.results, f.err
}

func newTestTutor(t *testing.T, completer gateway.Completer, searcher gateway.Searcher) (*Tutor, *session.Manager) {
	t.Helper()
	mgr := session.NewManager(&memStore{}, zerolog.Nop())
	tut := New(Options{
		Completer: completer,
		Searcher:  searcher,
		Manager:   mgr,
		Policy:    assemble.DefaultPolicy(),
		Language:  "en",
		IO:        tui.NewBufferIO(),
		Log:       zerolog.Nop(),
	})
	return tut, mgr
}

func TestAskRecordsBothTurns(t *testing.T) {
	fc := &fakeCompleter{reply: "Gravity pulls masses together."}
	tut, mgr := newTestTutor(t, fc, nil)

	reply, err := tut.Ask(context.Background(), "Explain gravity in simple terms", "")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if reply != "Gravity pulls masses together." {
		t.Errorf("reply = %q", reply)
	}

	active := mgr.Active()
	if active == nil {
		t.Fatal("no active session after Ask")
	}
	if len(active.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(active.Messages))
	}
	if active.Messages[0].Role != session.RoleUser || active.Messages[1].Role != session.RoleAssistant {
		t.Errorf("roles = %s, %s", active.Messages[0].Role, active.Messages[1].Role)
	}
	if active.Title != "Explain gravity in simple terms" {
		t.Errorf("title = %q, want derived from first utterance", active.Title)
	}
	if tut.Tokens() != 15 {
		t.Errorf("tokens = %d, want 15", tut.Tokens())
	}
}

func TestAskFailureAppendsLocalizedFallback(t *testing.T) {
	fc := &fakeCompleter{err: errors.New("rate limited")}
	tut, mgr := newTestTutor(t, fc, nil)

	reply, err := tut.Ask(context.Background(), "hello", "")
	if err != nil {
		t.Fatalf("completion failure must not surface as an error, got %v", err)
	}
	want := assemble.FailureMessage("en")
	if reply != want {
		t.Errorf("reply = %q, want the localized fallback", reply)
	}

	msgs := mgr.Active().Messages
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want user turn + fallback", len(msgs))
	}
	if msgs[1].Role != session.RoleAssistant || msgs[1].Content != want {
		t.Errorf("fallback turn = %+v", msgs[1])
	}

	// The in-flight flag must be clear: the next turn succeeds.
	fc.err = nil
	fc.reply = "recovered"
	if _, err := tut.Ask(context.Background(), "again", ""); err != nil {
		t.Errorf("next Ask after failure: %v", err)
	}
}

func TestAskRejectsConcurrentRequests(t *testing.T) {
	fc := &fakeCompleter{reply: "done", block: make(chan struct{}), started: make(chan struct{}, 1)}
	tut, _ := newTestTutor(t, fc, nil)

	firstDone := make(chan error, 1)
	go func() {
		_, err := tut.Ask(context.Background(), "slow question", "")
		firstDone <- err
	}()

	// Wait until the first request reaches the completer.
	<-fc.started

	if _, err := tut.Ask(context.Background(), "impatient", ""); !errors.Is(err, ErrBusy) {
		t.Errorf("second Ask err = %v, want ErrBusy", err)
	}

	close(fc.block)
	if err := <-firstDone; err != nil {
		t.Errorf("first Ask: %v", err)
	}
}

func TestAskEmptyInputRecordsNothing(t *testing.T) {
	fc := &fakeCompleter{reply: "x"}
	tut, mgr := newTestTutor(t, fc, nil)
	mgr.Create("Test")

	_, err := tut.Ask(context.Background(), "   ", "")
	if !errors.Is(err, assemble.ErrEmptyInput) {
		t.Fatalf("err = %v, want ErrEmptyInput", err)
	}
	if len(mgr.Active().Messages) != 0 {
		t.Error("empty input must not be recorded")
	}
	if fc.calls != 0 {
		t.Error("empty input must not reach the completer")
	}
}

func TestAskCancellationSurfaces(t *testing.T) {
	fc := &fakeCompleter{reply: "x", block: make(chan struct{}), started: make(chan struct{}, 1)}
	tut, mgr := newTestTutor(t, fc, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := tut.Ask(ctx, "question", "")
		done <- err
	}()
	<-fc.started
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	// Cancellation is not a model failure: no fallback turn.
	for _, msg := range mgr.Active().Messages {
		if msg.Role == session.RoleAssistant {
			t.Error("cancelled turn must not record an assistant message")
		}
	}
}

func TestSearchResultsFoldedIntoInstruction(t *testing.T) {
	fc := &fakeCompleter{reply: "answer"}
	fs := &fakeSearcher{results: []gateway.Result{
		{Title: "Photosynthesis basics", URL: "https://example.org/p", Snippet: "plants make sugar"},
	}}
	tut, _ := newTestTutor(t, fc, fs)
	tut.SetSearch(true)

	if _, err := tut.Ask(context.Background(), "how does photosynthesis work", ""); err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if fs.calls != 1 {
		t.Fatalf("searcher called %d times, want 1", fs.calls)
	}
	if !strings.Contains(fc.lastReq.Instruction, "Photosynthesis basics") {
		t.Error("search results missing from instruction channel")
	}
}

func TestReferenceSuppressesSearch(t *testing.T) {
	fc := &fakeCompleter{reply: "answer"}
	fs := &fakeSearcher{results: []gateway.Result{{Title: "hit"}}}
	tut, _ := newTestTutor(t, fc, fs)
	tut.SetSearch(true)
	tut.SetReference("the attached chapter text")

	if _, err := tut.Ask(context.Background(), "summarize the chapter", ""); err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if fs.calls != 0 {
		t.Errorf("searcher called %d times, want 0 with reference attached", fs.calls)
	}
	if !strings.Contains(fc.lastReq.Instruction, "the attached chapter text") {
		t.Error("reference missing from instruction channel")
	}
}

func TestSearchFailureDoesNotFailTheTurn(t *testing.T) {
	fc := &fakeCompleter{reply: "answer"}
	fs := &fakeSearcher{err: errors.New("search provider down")}
	tut, _ := newTestTutor(t, fc, fs)
	tut.SetSearch(true)

	reply, err := tut.Ask(context.Background(), "question", "")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if reply != "answer" {
		t.Errorf("reply = %q, want the completion despite search failure", reply)
	}
}

func TestRunOnceRendersReply(t *testing.T) {
	fc := &fakeCompleter{reply: "the answer"}
	mgr := session.NewManager(&memStore{}, zerolog.Nop())
	out := tui.NewBufferIO()
	tut := New(Options{
		Completer: fc,
		Manager:   mgr,
		Policy:    assemble.DefaultPolicy(),
		Language:  "en",
		IO:        out,
		Log:       zerolog.Nop(),
	})

	if err := tut.RunOnce(context.Background(), "q", ""); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if out.Output() != "the answer" {
		t.Errorf("output = %q", out.Output())
	}
}

// scriptIO feeds a fixed sequence of inputs to the REPL loop.
type scriptIO struct {
	tui.BufferIO
	inputs []string
	pos    int
	system []string
}

func (s *scriptIO) ReadInput() (string, error) {
	if s.pos >= len(s.inputs) {
		return "", io.EOF
	}
	line := s.inputs[s.pos]
	s.pos++
	return line, nil
}

func (s *scriptIO) SystemMessage(text string) { s.system = append(s.system, text) }

func TestRunHandlesSlashCommands(t *testing.T) {
	fc := &fakeCompleter{reply: "reply"}
	mgr := session.NewManager(&memStore{}, zerolog.Nop())
	script := &scriptIO{inputs: []string{"/new Algebra", "what is x", "/sessions", "/quit"}}
	tut := New(Options{
		Completer: fc,
		Manager:   mgr,
		Policy:    assemble.DefaultPolicy(),
		Language:  "en",
		IO:        script,
		Log:       zerolog.Nop(),
	})

	if err := tut.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(mgr.Sessions()) != 1 {
		t.Fatalf("got %d sessions, want 1", len(mgr.Sessions()))
	}
	if got := len(mgr.Active().Messages); got != 2 {
		t.Errorf("got %d messages, want 2", got)
	}
	if fc.calls != 1 {
		t.Errorf("completer called %d times, want 1 (slash commands must not reach it)", fc.calls)
	}

	var sawList bool
	for _, msg := range script.system {
		if strings.Contains(msg, "Sessions (1)") {
			sawList = true
		}
	}
	if !sawList {
		t.Error("/sessions did not render the session list")
	}
}

// cancellingIO hands the per-turn cancel function to the test, standing in
// for the TUI quit path.
type cancellingIO struct {
	scriptIO
	cancels chan context.CancelFunc
}

func (c *cancellingIO) SetLoopCancel(cancel context.CancelFunc) { c.cancels <- cancel }
func (c *cancellingIO) ClearLoopCancel()                        {}

func TestQuitDuringInFlightTurnEndsTheLoop(t *testing.T) {
	fc := &fakeCompleter{reply: "x", block: make(chan struct{}), started: make(chan struct{}, 1)}
	mgr := session.NewManager(&memStore{}, zerolog.Nop())
	cio := &cancellingIO{
		scriptIO: scriptIO{inputs: []string{"slow question"}},
		cancels:  make(chan context.CancelFunc, 1),
	}
	tut := New(Options{
		Completer: fc,
		Manager:   mgr,
		Policy:    assemble.DefaultPolicy(),
		Language:  "en",
		IO:        cio,
		Log:       zerolog.Nop(),
	})

	done := make(chan error, 1)
	go func() { done <- tut.Run(context.Background()) }()

	cancel := <-cio.cancels
	<-fc.started
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after the turn was cancelled")
	}

	// A cancelled turn is not a model failure: no reply, no fallback.
	for _, msg := range mgr.Active().Messages {
		if msg.Role == session.RoleAssistant {
			t.Error("cancelled turn must not record an assistant message")
		}
	}

	var sawInterrupted bool
	for _, s := range cio.system {
		if strings.Contains(s, "Interrupted") {
			sawInterrupted = true
		}
	}
	if !sawInterrupted {
		t.Error("loop should report the interruption")
	}
}

func TestTruncateKeepsValidUTF8(t *testing.T) {
	in := strings.Repeat("ع", 200)
	got := truncate(in, 100)

	if !utf8.ValidString(got) {
		t.Fatalf("truncate produced invalid UTF-8: %q", got)
	}
	if want := strings.Repeat("ع", 100) + "..."; got != want {
		t.Errorf("truncate = %q, want 100 whole characters plus ellipsis", got)
	}
	if short := truncate("short", 100); short != "short" {
		t.Errorf("truncate(short) = %q, want unchanged", short)
	}
}

func TestLangSwitchChangesFallback(t *testing.T) {
	fc := &fakeCompleter{err: errors.New("down")}
	tut, _ := newTestTutor(t, fc, nil)

	tut.handleSlashCommand("/lang ar")
	reply, err := tut.Ask(context.Background(), "سؤال", "")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if reply != assemble.FailureMessage("ar") {
		t.Errorf("reply = %q, want the Arabic fallback", reply)
	}
}
