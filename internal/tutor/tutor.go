// Package tutor orchestrates the interactive study loop: it owns the session
// manager, assembles the per-turn context, calls the completion boundary, and
// records both sides of the exchange.
package tutor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tutorctl/tutorctl/internal/assemble"
	"github.com/tutorctl/tutorctl/internal/config"
	"github.com/tutorctl/tutorctl/internal/extract"
	"github.com/tutorctl/tutorctl/internal/gateway"
	"github.com/tutorctl/tutorctl/internal/session"
	"github.com/tutorctl/tutorctl/internal/tui"
)

// ErrBusy is returned when a turn is submitted while another is in flight.
// One request at a time: replies always land in order.
var ErrBusy = errors.New("a request is already in flight")

const searchResultLimit = 5

// Options carries the tutoring loop dependencies.
type Options struct {
	Completer gateway.Completer
	Searcher  gateway.Searcher // nil disables live search
	Manager   *session.Manager
	Policy    assemble.Policy
	Model     string // "" selects the completer default
	Language  string
	// Instruction overrides the built-in role instruction when non-empty.
	Instruction string
	IO          tui.IO
	Log         zerolog.Logger
}

// Tutor runs the conversational loop between student, sessions, and gateway.
type Tutor struct {
	completer   gateway.Completer
	searcher    gateway.Searcher
	manager     *session.Manager
	policy      assemble.Policy
	model       string
	language    string
	instruction string
	io          tui.IO
	log         zerolog.Logger

	mu       sync.Mutex
	inFlight bool

	tokens    int
	reference string // sticky reference text attached to every turn
	search    bool   // live search toggle
}

func New(opts Options) *Tutor {
	lang := opts.Language
	if lang != config.LangEnglish && lang != config.LangArabic {
		lang = config.LangEnglish
	}
	return &Tutor{
		completer:   opts.Completer,
		searcher:    opts.Searcher,
		manager:     opts.Manager,
		policy:      opts.Policy,
		model:       opts.Model,
		language:    lang,
		instruction: opts.Instruction,
		io:          opts.IO,
		log:         opts.Log,
	}
}

// SetReference attaches reference text to every subsequent turn. Empty clears.
func (t *Tutor) SetReference(ref string) { t.reference = ref }

// SetSearch toggles live web augmentation for subsequent turns.
func (t *Tutor) SetSearch(on bool) { t.search = on }

// Tokens returns the cumulative token usage of this run.
func (t *Tutor) Tokens() int { return t.tokens }

// Ask runs one full turn: validate, record the user message, assemble the
// request, call the completion boundary, record the reply. A completion
// failure is absorbed into a localized fallback reply so the loop keeps
// going; only input errors, ErrBusy, and context cancellation surface.
func (t *Tutor) Ask(ctx context.Context, utterance, image string) (string, error) {
	if !t.begin() {
		return "", ErrBusy
	}
	defer t.end()

	if t.manager.Active() == nil {
		t.manager.Create(session.DefaultTitle(t.language))
	}

	// History is captured before the new turn is recorded so the utterance
	// appears exactly once in the outbound request.
	history := t.manager.Active().Messages

	req, err := t.policy.Assemble(assemble.Input{
		Utterance:   utterance,
		Image:       image,
		Reference:   t.reference,
		Instruction: t.instruction,
		History:     history,
		Language:    t.language,
		Search:      t.search,
	})
	if err != nil {
		return "", err
	}

	if err := t.manager.Append(session.NewUserMessage(utterance, image)); err != nil {
		return "", err
	}

	if req.Search && t.searcher != nil {
		t.augmentWithSearch(ctx, req, utterance)
	}

	comp, err := t.completer.Complete(ctx, &gateway.CompletionRequest{
		Model:       t.model,
		Instruction: req.Instruction,
		Body:        req.Body,
		Images:      req.Images,
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		t.log.Error().Err(err).Str("provider", t.completer.Name()).Msg("completion failed")
		fallback := assemble.FailureMessage(t.language)
		if appendErr := t.manager.Append(session.NewAssistantMessage(fallback)); appendErr != nil {
			t.log.Warn().Err(appendErr).Msg("could not record fallback reply")
		}
		return fallback, nil
	}

	t.tokens += comp.Usage.InputTokens + comp.Usage.OutputTokens
	if err := t.manager.Append(session.NewAssistantMessage(comp.Text)); err != nil {
		return "", err
	}
	return comp.Text, nil
}

// augmentWithSearch folds live search results into the instruction channel.
// Search failures are logged and skipped; the turn proceeds without them.
func (t *Tutor) augmentWithSearch(ctx context.Context, req *assemble.Request, query string) {
	results, err := t.searcher.Search(ctx, query, searchResultLimit)
	if err != nil {
		t.log.Warn().Err(err).Msg("web search failed, answering without it")
		return
	}
	if len(results) == 0 {
		return
	}
	req.Instruction += "\n\n" + gateway.FormatResults(query, results)
}

// Run starts the interactive REPL loop.
func (t *Tutor) Run(ctx context.Context) error {
	t.syncStatus()
	for {
		input, err := t.io.ReadInput()
		if err != nil {
			if err == io.EOF {
				break
			}
			return err
		}
		if input == "" {
			continue
		}

		// Slash commands are intercepted before anything is recorded.
		if strings.HasPrefix(input, "/") {
			handled, shouldQuit := t.handleSlashCommand(input)
			if shouldQuit {
				return t.manager.Save()
			}
			if handled {
				continue
			}
		}

		t.io.UserMessage(input)
		t.io.ThinkingStart()

		reply, err := t.askTurn(ctx, input)
		if err != nil {
			if ctx.Err() != nil {
				t.io.SystemMessage("\nInterrupted.")
				_ = t.manager.Save()
				return ctx.Err()
			}
			if errors.Is(err, context.Canceled) {
				// The UI cancelled just this turn; keep the loop alive.
				t.io.SystemMessage("Interrupted.")
				continue
			}
			t.io.Error(err.Error())
			continue
		}
		t.io.Assistant(reply)
		t.syncStatus()
	}

	return t.manager.Save()
}

// askTurn runs Ask under a per-turn context. When the IO can cancel turns
// (the TUI quit path), the cancel function is registered for the duration of
// the call so quitting never waits out a slow remote call.
func (t *Tutor) askTurn(ctx context.Context, input string) (string, error) {
	turnCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if lc, ok := t.io.(tui.LoopCanceller); ok {
		lc.SetLoopCancel(cancel)
		defer lc.ClearLoopCancel()
	}

	return t.Ask(turnCtx, input, "")
}

// RunOnce executes a single turn and exits (non-interactive mode).
func (t *Tutor) RunOnce(ctx context.Context, utterance, image string) error {
	t.io.UserMessage(utterance)
	t.io.ThinkingStart()

	reply, err := t.Ask(ctx, utterance, image)
	if err != nil {
		return err
	}
	t.io.Assistant(reply)
	return nil
}

func (t *Tutor) begin() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.inFlight {
		return false
	}
	t.inFlight = true
	return true
}

func (t *Tutor) end() {
	t.mu.Lock()
	t.inFlight = false
	t.mu.Unlock()
}

func (t *Tutor) syncStatus() {
	if active := t.manager.Active(); active != nil {
		t.io.SetSession(active.Title)
	}
	t.io.SetTokens(t.tokens)
}

// handleSlashCommand processes built-in commands.
// Returns (handled, shouldQuit).
func (t *Tutor) handleSlashCommand(input string) (bool, bool) {
	parts := strings.SplitN(strings.TrimSpace(input), " ", 2)
	cmd := parts[0]
	arg := ""
	if len(parts) > 1 {
		arg = strings.TrimSpace(parts[1])
	}

	switch cmd {
	case "/quit", "/exit", "/q":
		t.io.SystemMessage("Bye.")
		return true, true
	case "/help":
		return t.handleHelp(), false
	case "/new":
		return t.handleNew(arg), false
	case "/sessions":
		return t.handleSessions(), false
	case "/switch":
		return t.handleSwitch(arg), false
	case "/delete":
		return t.handleDelete(arg), false
	case "/title":
		return t.handleTitle(arg), false
	case "/ref":
		return t.handleRef(arg), false
	case "/search":
		return t.handleSearch(arg), false
	case "/lang":
		return t.handleLang(arg), false
	case "/clear":
		return t.handleClear(), false
	case "/history":
		return t.handleHistory(), false
	case "/cost":
		t.io.SystemMessage(fmt.Sprintf("Tokens used: %d", t.tokens))
		return true, false
	default:
		return false, false
	}
}

func (t *Tutor) handleHelp() bool {
	help := `Available commands:
  /help              Show this help message
  /new [title]       Start a new chat session
  /sessions          List sessions
  /switch <id>       Switch to a session (use short ID prefix)
  /delete <id>       Delete a session
  /title <text>      Rename the current session
  /ref <path>        Attach a document (PDF/txt/md) as reference material
  /ref off           Detach the reference material
  /search on|off     Toggle live web search
  /lang en|ar        Switch language
  /history           Show message history
  /cost              Show token usage
  /clear             Clear the current session's messages
  /quit              Save and exit`
	t.io.SystemMessage(help)
	return true
}

func (t *Tutor) handleNew(title string) bool {
	if title == "" {
		title = session.DefaultTitle(t.language)
	}
	s := t.manager.Create(title)
	t.io.SystemMessage(fmt.Sprintf("New session: %s (%s)", s.Title, shortID(s.ID)))
	t.syncStatus()
	return true
}

func (t *Tutor) handleSessions() bool {
	sessions := t.manager.Sessions()
	if len(sessions) == 0 {
		t.io.SystemMessage("No sessions.")
		return true
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Sessions (%d):\n", len(sessions))
	for _, s := range sessions {
		marker := "  "
		if s.ID == t.manager.ActiveID() {
			marker = "* "
		}
		fmt.Fprintf(&sb, "%s%s  %s  %d msgs  %s\n",
			marker, shortID(s.ID), s.UpdatedAt.Format("2006-01-02 15:04"), len(s.Messages), s.Title)
	}
	sb.WriteString("Use /switch <id> to change sessions.")
	t.io.SystemMessage(sb.String())
	return true
}

func (t *Tutor) handleSwitch(idPrefix string) bool {
	if idPrefix == "" {
		t.io.SystemMessage("Usage: /switch <session-id-prefix>")
		return true
	}
	s, err := t.manager.Find(idPrefix)
	if err != nil {
		t.io.Error(err.Error())
		return true
	}
	if err := t.manager.SetActive(s.ID); err != nil {
		t.io.Error(err.Error())
		return true
	}
	t.io.SystemMessage(fmt.Sprintf("Switched to %s (%d messages)", s.Title, len(s.Messages)))
	t.syncStatus()
	return true
}

func (t *Tutor) handleDelete(idPrefix string) bool {
	if idPrefix == "" {
		t.io.SystemMessage("Usage: /delete <session-id-prefix>")
		return true
	}
	s, err := t.manager.Find(idPrefix)
	if err != nil {
		t.io.Error(err.Error())
		return true
	}
	t.manager.Delete(s.ID)
	t.io.SystemMessage(fmt.Sprintf("Deleted %s", s.Title))
	t.syncStatus()
	return true
}

func (t *Tutor) handleTitle(title string) bool {
	if title == "" {
		t.io.SystemMessage("Usage: /title <new title>")
		return true
	}
	if err := t.manager.Rename(title); err != nil {
		t.io.Error(err.Error())
		return true
	}
	t.io.SystemMessage("Renamed.")
	t.syncStatus()
	return true
}

func (t *Tutor) handleRef(arg string) bool {
	switch arg {
	case "":
		if t.reference == "" {
			t.io.SystemMessage("No reference attached. Usage: /ref <path>")
		} else {
			t.io.SystemMessage(fmt.Sprintf("Reference attached (%d chars). Use /ref off to detach.", len([]rune(t.reference))))
		}
		return true
	case "off", "clear":
		t.reference = ""
		t.io.SystemMessage("Reference detached.")
		return true
	}

	text, err := extract.FromFile(arg)
	if err != nil {
		switch {
		case errors.Is(err, extract.ErrTooLarge):
			t.io.Error(assemble.AttachmentTooLarge(t.language))
		case errors.Is(err, extract.ErrUnsupportedType):
			t.io.Error(assemble.AttachmentUnsupported(t.language))
		default:
			t.io.Error(fmt.Sprintf("could not attach %s: %v", arg, err))
		}
		return true
	}
	t.reference = text
	t.io.SystemMessage(fmt.Sprintf("Attached %s (%d chars). Live search is now off for answers.", arg, len([]rune(text))))
	return true
}

func (t *Tutor) handleSearch(arg string) bool {
	switch arg {
	case "on":
		if t.searcher == nil {
			t.io.Error("No search provider configured.")
			return true
		}
		t.search = true
		t.io.SystemMessage("Live search on.")
	case "off":
		t.search = false
		t.io.SystemMessage("Live search off.")
	default:
		state := "off"
		if t.search {
			state = "on"
		}
		t.io.SystemMessage(fmt.Sprintf("Live search is %s. Usage: /search on|off", state))
	}
	return true
}

func (t *Tutor) handleLang(arg string) bool {
	switch arg {
	case config.LangEnglish, config.LangArabic:
		t.language = arg
		t.io.SystemMessage("Language set to " + arg + ".")
	default:
		t.io.SystemMessage(fmt.Sprintf("Current language: %s. Usage: /lang en|ar", t.language))
	}
	return true
}

func (t *Tutor) handleClear() bool {
	if err := t.manager.ClearActive(); err != nil {
		t.io.Error(err.Error())
		return true
	}
	t.io.SystemMessage("Session cleared.")
	return true
}

func (t *Tutor) handleHistory() bool {
	active := t.manager.Active()
	if active == nil || len(active.Messages) == 0 {
		t.io.SystemMessage("No history.")
		return true
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "\n=== %s (%d messages) ===\n", active.Title, len(active.Messages))
	for i, msg := range active.Messages {
		text := msg.Content
		if text == "" && msg.Image != "" {
			text = "[image]"
		}
		fmt.Fprintf(&sb, "[%d] %s: %s\n", i, msg.Role, truncate(text, 100))
	}
	sb.WriteString("===")
	t.io.SystemMessage(sb.String())
	return true
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// truncate bounds s to maxLen runes for display.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
