package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"woosh/internal/domain"
)

// State is the lifecycle position of a View.
type State int

const (
	StateUninitialized State = iota
	StateKeyPending
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateKeyPending:
		return "key-pending"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// DefaultPollInterval is the relay polling period when none is configured.
const DefaultPollInterval = 2 * time.Second

// User-facing failure texts.
const (
	InitFailedText = "Failed to initialize chat"
	SendFailedText = "Failed to send message"
)

var (
	// ErrPollSkipped is returned by Poll when another poll is still running.
	ErrPollSkipped = errors.New("conversation: poll already in flight")
	// ErrAlreadyStarted is returned by Start or Resume on a view that has
	// already left the Uninitialized state.
	ErrAlreadyStarted = errors.New("conversation: already started")
	// ErrEmptyMessage is returned when sending blank text.
	ErrEmptyMessage = errors.New("conversation: empty message")
)

// Error pairs a terse message suitable for users with the underlying cause.
type Error struct {
	Text string
	Err  error
}

func (e *Error) Error() string { return e.Text + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// Options tunes a View. Zero values select the defaults.
type Options struct {
	PollInterval time.Duration
	Now          func() time.Time
	Log          logrus.FieldLogger
}

// Snapshot is a point-in-time copy of the view for rendering.
type Snapshot struct {
	State    State
	ChatID   domain.ChatID
	Peer     domain.Email
	Messages []domain.DecryptedMessage
	Draft    string
	Err      error
	At       time.Time
}

// View drives one conversation: key setup, polling, decryption, expiry
// countdowns and sending.
type View struct {
	sessions domain.SessionService
	messages domain.MessageService
	tokens   domain.TokenStore
	interval time.Duration
	now      func() time.Time
	log      logrus.FieldLogger

	inFlight  atomic.Bool
	kick      chan struct{}
	updates   chan struct{}
	closed    chan struct{}
	closeOnce sync.Once

	mu       sync.Mutex
	state    State
	gen      uint64 // bumped on Close; completions from an older gen are dropped
	chat     domain.ChatID
	peer     domain.Email
	msgs     []domain.DecryptedMessage
	draft    string
	lastErr  error
	closeErr error
}

// New returns an Uninitialized view.
func New(
	sessions domain.SessionService,
	messages domain.MessageService,
	tokens domain.TokenStore,
	opts Options,
) *View {
	v := &View{
		sessions: sessions,
		messages: messages,
		tokens:   tokens,
		interval: opts.PollInterval,
		now:      opts.Now,
		log:      opts.Log,
		kick:     make(chan struct{}, 1),
		updates:  make(chan struct{}, 1),
		closed:   make(chan struct{}),
	}
	if v.interval <= 0 {
		v.interval = DefaultPollInterval
	}
	if v.now == nil {
		v.now = time.Now
	}
	if v.log == nil {
		v.log = logrus.StandardLogger()
	}
	return v
}

// Start negotiates a new chat with peer. The view is KeyPending while the
// relay round trip runs and Ready once the key is stored. On failure it
// returns to Uninitialized and the error carries InitFailedText.
func (v *View) Start(ctx context.Context, peer domain.Email) error {
	v.mu.Lock()
	if err := v.startableLocked(); err != nil {
		v.mu.Unlock()
		return err
	}
	v.state, v.peer = StateKeyPending, peer
	gen := v.gen
	v.mu.Unlock()
	v.notify()

	rec, err := v.sessions.StartSession(ctx, peer)
	if errors.Is(err, domain.ErrRelayUnauthorized) {
		v.unauthorized()
		return err
	}

	v.mu.Lock()
	defer v.notify()
	defer v.mu.Unlock()
	if v.gen != gen || v.state == StateClosed {
		return domain.ErrClosed
	}
	if err != nil {
		v.state = StateUninitialized
		v.lastErr = &Error{Text: InitFailedText, Err: err}
		v.log.WithError(err).Warn("chat init failed")
		return v.lastErr
	}
	v.chat, v.state, v.lastErr = rec.ChatID, StateReady, nil
	if rec.PeerEmail != "" {
		v.peer = rec.PeerEmail
	}
	return nil
}

// Resume reopens a known chat. The view is Ready if the key is stored,
// otherwise KeyPending until a fetch delivers it.
func (v *View) Resume(chat domain.ChatID) error {
	v.mu.Lock()
	defer v.notify()
	defer v.mu.Unlock()

	if err := v.startableLocked(); err != nil {
		return err
	}
	rec, ok, err := v.sessions.GetSession(chat)
	if err != nil {
		return err
	}
	v.chat = chat
	if ok {
		v.state, v.peer = StateReady, rec.PeerEmail
	} else {
		v.state = StateKeyPending
	}
	return nil
}

func (v *View) startableLocked() error {
	switch v.state {
	case StateUninitialized:
		return nil
	case StateClosed:
		return domain.ErrClosed
	}
	return ErrAlreadyStarted
}

// Poll runs one mark-read, fetch and decrypt cycle and replaces the snapshot.
// It returns ErrPollSkipped without doing anything if a poll is already
// running.
func (v *View) Poll(ctx context.Context) error {
	if !v.inFlight.CompareAndSwap(false, true) {
		return ErrPollSkipped
	}
	defer v.inFlight.Store(false)

	v.mu.Lock()
	state, chat, gen := v.state, v.chat, v.gen
	v.mu.Unlock()
	switch {
	case state == StateClosed:
		return domain.ErrClosed
	case state == StateUninitialized || chat == "":
		return domain.ErrNotReady
	}

	log := v.log.WithField("chat_id", chat)
	if res, err := v.messages.MarkAllRead(ctx, chat); err != nil {
		if errors.Is(err, domain.ErrRelayUnauthorized) {
			v.unauthorized()
			return err
		}
		log.WithError(err).Warn("mark-all-read failed")
	} else if res.MarkedCount > 0 {
		log.WithField("marked", res.MarkedCount).Debug("marked messages read")
	}

	msgs, err := v.messages.ReceiveMessages(ctx, chat)
	if errors.Is(err, domain.ErrRelayUnauthorized) {
		v.unauthorized()
		return err
	}

	v.mu.Lock()
	defer v.notify()
	defer v.mu.Unlock()
	if v.gen != gen || v.state == StateClosed {
		return domain.ErrClosed
	}
	if err != nil {
		v.lastErr = err
		return err
	}
	v.msgs, v.lastErr = msgs, nil
	if v.state == StateKeyPending {
		v.state = StateReady
	}
	return nil
}

// Run polls immediately and then every interval until ctx ends or the view
// is closed. Ticks that land while a poll is running are skipped. Run returns
// domain.ErrRelayUnauthorized if the view closed because of a 401/403.
func (v *View) Run(ctx context.Context) error {
	v.mu.Lock()
	state := v.state
	v.mu.Unlock()
	switch state {
	case StateClosed:
		return v.closeError()
	case StateUninitialized:
		return domain.ErrNotReady
	}

	parent := ctx
	ctx, cancel := context.WithCancel(parent)
	var wg sync.WaitGroup
	stop := func() {
		cancel()
		wg.Wait()
	}

	poll := func() {
		if v.inFlight.Load() {
			return
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := v.Poll(ctx)
			if err != nil && !errors.Is(err, ErrPollSkipped) && !errors.Is(err, domain.ErrClosed) {
				v.log.WithError(err).WithField("chat_id", v.ChatID()).Debug("poll failed")
			}
		}()
	}

	tick := time.NewTicker(v.interval)
	defer tick.Stop()

	poll()
	for {
		select {
		case <-parent.Done():
			stop()
			return parent.Err()
		case <-v.closed:
			stop()
			return v.closeError()
		case <-tick.C:
			poll()
		case <-v.kick:
			poll()
		}
	}
}

// SetDraft replaces the unsent input.
func (v *View) SetDraft(text string) {
	v.mu.Lock()
	v.draft = text
	v.mu.Unlock()
	v.notify()
}

// SendDraft sends the current draft. The draft is cleared only on success.
func (v *View) SendDraft(ctx context.Context) error {
	v.mu.Lock()
	draft := v.draft
	v.mu.Unlock()

	if err := v.Send(ctx, draft); err != nil {
		return err
	}

	v.mu.Lock()
	if v.draft == draft {
		v.draft = ""
	}
	v.mu.Unlock()
	v.notify()
	return nil
}

// Send encrypts and posts text, then asks a running poll loop to refresh
// immediately. Failures are returned without retry.
func (v *View) Send(ctx context.Context, text string) error {
	v.mu.Lock()
	state, chat := v.state, v.chat
	v.mu.Unlock()
	switch state {
	case StateClosed:
		return domain.ErrClosed
	case StateReady:
	default:
		return domain.ErrNotReady
	}
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}

	if _, err := v.messages.SendMessage(ctx, chat, text); err != nil {
		if errors.Is(err, domain.ErrRelayUnauthorized) {
			v.unauthorized()
			return err
		}
		uerr := &Error{Text: SendFailedText, Err: err}
		v.mu.Lock()
		v.lastErr = uerr
		v.mu.Unlock()
		v.notify()
		return uerr
	}

	select {
	case v.kick <- struct{}{}:
	default:
	}
	return nil
}

// Close stops polling. Later completions are discarded. Close is idempotent.
func (v *View) Close() { v.closeWith(nil) }

func (v *View) closeWith(cause error) {
	v.mu.Lock()
	if v.state == StateClosed {
		v.mu.Unlock()
		return
	}
	v.state = StateClosed
	v.gen++
	v.closeErr = cause
	if cause != nil {
		v.lastErr = cause
	}
	v.mu.Unlock()

	v.closeOnce.Do(func() { close(v.closed) })
	v.notify()
}

func (v *View) unauthorized() {
	if v.tokens != nil {
		if err := v.tokens.ClearToken(); err != nil {
			v.log.WithError(err).Warn("could not clear auth token")
		}
	}
	v.log.Warn("relay rejected credentials; closing conversation")
	v.closeWith(domain.ErrRelayUnauthorized)
}

func (v *View) closeError() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.closeErr
}

func (v *View) notify() {
	select {
	case v.updates <- struct{}{}:
	default:
	}
}

// Updates signals after every state or snapshot change. Signals coalesce.
func (v *View) Updates() <-chan struct{} { return v.updates }

// Done is closed once the view is closed.
func (v *View) Done() <-chan struct{} { return v.closed }

// State returns the current lifecycle state.
func (v *View) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// ChatID returns the chat the view is bound to, if any.
func (v *View) ChatID() domain.ChatID {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.chat
}

// Snapshot copies the current view state, stamped with the view clock.
func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return Snapshot{
		State:    v.state,
		ChatID:   v.chat,
		Peer:     v.peer,
		Messages: append([]domain.DecryptedMessage(nil), v.msgs...),
		Draft:    v.draft,
		Err:      v.lastErr,
		At:       v.now(),
	}
}

// Countdown returns Label for m against the view clock.
func (v *View) Countdown(m domain.Message) string { return Label(m, v.now()) }
