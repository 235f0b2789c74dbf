package conversation_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"woosh/internal/auth"
	"woosh/internal/domain"
	"woosh/internal/services/conversation"
)

func key(b byte) domain.SymmetricKey {
	return domain.SymmetricKey(bytes.Repeat([]byte{b}, domain.SymmetricKeySize))
}

type fakeSessions struct {
	mu       sync.Mutex
	records  map[domain.ChatID]domain.SessionKeyRecord
	startErr error
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{records: map[domain.ChatID]domain.SessionKeyRecord{}}
}

func (f *fakeSessions) StartSession(_ context.Context, peer domain.Email) (domain.SessionKeyRecord, error) {
	if f.startErr != nil {
		return domain.SessionKeyRecord{}, f.startErr
	}
	rec := domain.SessionKeyRecord{ChatID: "chat-new", PeerEmail: peer, AESKey: key(1)}
	f.mu.Lock()
	f.records[rec.ChatID] = rec
	f.mu.Unlock()
	return rec, nil
}

func (f *fakeSessions) GetSession(chat domain.ChatID) (domain.SessionKeyRecord, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[chat]
	return rec, ok, nil
}

func (f *fakeSessions) ReconcileSession(chat domain.ChatID, k domain.SymmetricKey) (domain.SessionKeyRecord, error) {
	return domain.SessionKeyRecord{ChatID: chat, AESKey: k}, nil
}

type fakeMessages struct {
	mu       sync.Mutex
	calls    []string
	batch    []domain.DecryptedMessage
	markErr  error
	fetchErr error
	sendErr  error
	entered  chan struct{}
	release  chan struct{}
	fetches  atomic.Int32
}

func (f *fakeMessages) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeMessages) SendMessage(_ context.Context, _ domain.ChatID, text string) (domain.SendMessageResponse, error) {
	f.record("send:" + text)
	if f.sendErr != nil {
		return domain.SendMessageResponse{}, f.sendErr
	}
	return domain.SendMessageResponse{MessageID: "m", Status: "sent"}, nil
}

func (f *fakeMessages) ReceiveMessages(ctx context.Context, _ domain.ChatID) ([]domain.DecryptedMessage, error) {
	f.record("fetch")
	f.fetches.Add(1)
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.batch, f.fetchErr
}

func (f *fakeMessages) MarkAllRead(context.Context, domain.ChatID) (domain.MarkReadResponse, error) {
	f.record("mark")
	return domain.MarkReadResponse{}, f.markErr
}

func (f *fakeMessages) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func newView(t *testing.T, s *fakeSessions, m *fakeMessages, tokens domain.TokenStore, interval time.Duration) *conversation.View {
	t.Helper()
	log, _ := logtest.NewNullLogger()
	v := conversation.New(s, m, tokens, conversation.Options{PollInterval: interval, Log: log})
	t.Cleanup(v.Close)
	return v
}

func oneMessage(text string) []domain.DecryptedMessage {
	return []domain.DecryptedMessage{{Message: domain.Message{ID: "m1", Status: domain.StatusUnread}, Text: text, Decrypted: true}}
}

func TestResume_ReadyAndPoll(t *testing.T) {
	s := newFakeSessions()
	s.records["c1"] = domain.SessionKeyRecord{ChatID: "c1", PeerEmail: "bob@example.com", AESKey: key(1)}
	m := &fakeMessages{batch: oneMessage("hi")}
	v := newView(t, s, m, nil, time.Hour)

	require.Equal(t, conversation.StateUninitialized, v.State())
	require.NoError(t, v.Resume("c1"))
	require.Equal(t, conversation.StateReady, v.State())

	require.NoError(t, v.Poll(context.Background()))
	require.Equal(t, []string{"mark", "fetch"}, m.Calls())

	snap := v.Snapshot()
	require.Equal(t, domain.Email("bob@example.com"), snap.Peer)
	require.Len(t, snap.Messages, 1)
	require.Equal(t, "hi", snap.Messages[0].Text)

	require.ErrorIs(t, v.Resume("c2"), conversation.ErrAlreadyStarted)
}

func TestResume_KeyPendingUntilFetch(t *testing.T) {
	m := &fakeMessages{batch: oneMessage("hi")}
	v := newView(t, newFakeSessions(), m, nil, time.Hour)

	require.NoError(t, v.Resume("c1"))
	require.Equal(t, conversation.StateKeyPending, v.State())
	require.ErrorIs(t, v.Send(context.Background(), "x"), domain.ErrNotReady)

	require.NoError(t, v.Poll(context.Background()))
	require.Equal(t, conversation.StateReady, v.State())
}

func TestStart_SuccessAndFailure(t *testing.T) {
	s := newFakeSessions()
	v := newView(t, s, &fakeMessages{}, nil, time.Hour)
	require.NoError(t, v.Start(context.Background(), "bob@example.com"))
	require.Equal(t, conversation.StateReady, v.State())
	require.Equal(t, domain.ChatID("chat-new"), v.ChatID())
	require.ErrorIs(t, v.Start(context.Background(), "bob@example.com"), conversation.ErrAlreadyStarted)

	s2 := newFakeSessions()
	s2.startErr = domain.ErrInvalidKeyMaterial
	v2 := newView(t, s2, &fakeMessages{}, nil, time.Hour)
	err := v2.Start(context.Background(), "bob@example.com")
	require.ErrorIs(t, err, domain.ErrInvalidKeyMaterial)
	var uerr *conversation.Error
	require.ErrorAs(t, err, &uerr)
	require.Equal(t, conversation.InitFailedText, uerr.Text)
	require.Equal(t, conversation.StateUninitialized, v2.State())
}

func TestPoll_UninitializedIsNotReady(t *testing.T) {
	v := newView(t, newFakeSessions(), &fakeMessages{}, nil, time.Hour)
	require.ErrorIs(t, v.Poll(context.Background()), domain.ErrNotReady)
	require.ErrorIs(t, v.Run(context.Background()), domain.ErrNotReady)
}

func TestPoll_OverlappingPollIsSkipped(t *testing.T) {
	m := &fakeMessages{entered: make(chan struct{}, 1), release: make(chan struct{})}
	v := newView(t, newFakeSessions(), m, nil, time.Hour)
	require.NoError(t, v.Resume("c1"))

	done := make(chan error, 1)
	go func() { done <- v.Poll(context.Background()) }()
	<-m.entered

	require.ErrorIs(t, v.Poll(context.Background()), conversation.ErrPollSkipped)
	close(m.release)
	require.NoError(t, <-done)
	require.Equal(t, int32(1), m.fetches.Load())
}

func TestPoll_ResultAfterCloseIsDiscarded(t *testing.T) {
	m := &fakeMessages{batch: oneMessage("late"), entered: make(chan struct{}, 1), release: make(chan struct{})}
	v := newView(t, newFakeSessions(), m, nil, time.Hour)
	require.NoError(t, v.Resume("c1"))

	done := make(chan error, 1)
	go func() { done <- v.Poll(context.Background()) }()
	<-m.entered
	v.Close()
	close(m.release)

	require.ErrorIs(t, <-done, domain.ErrClosed)
	snap := v.Snapshot()
	require.Equal(t, conversation.StateClosed, snap.State)
	require.Empty(t, snap.Messages)
	require.ErrorIs(t, v.Send(context.Background(), "x"), domain.ErrClosed)
}

func TestPoll_MarkReadFailureIsNotFatal(t *testing.T) {
	m := &fakeMessages{batch: oneMessage("still here"), markErr: domain.ErrRelayUnavailable}
	v := newView(t, newFakeSessions(), m, nil, time.Hour)
	require.NoError(t, v.Resume("c1"))
	require.NoError(t, v.Poll(context.Background()))
	require.Len(t, v.Snapshot().Messages, 1)
}

func TestPoll_FetchFailureKeepsSnapshot(t *testing.T) {
	m := &fakeMessages{batch: oneMessage("first")}
	v := newView(t, newFakeSessions(), m, nil, time.Hour)
	require.NoError(t, v.Resume("c1"))
	require.NoError(t, v.Poll(context.Background()))

	m.mu.Lock()
	m.fetchErr = domain.ErrRelayUnavailable
	m.mu.Unlock()
	require.ErrorIs(t, v.Poll(context.Background()), domain.ErrRelayUnavailable)

	snap := v.Snapshot()
	require.Len(t, snap.Messages, 1)
	require.ErrorIs(t, snap.Err, domain.ErrRelayUnavailable)
	require.Equal(t, conversation.StateReady, snap.State)
}

func TestUnauthorized_ClearsTokenAndCloses(t *testing.T) {
	tokens := auth.NewMemoryTokenStore("tok")
	m := &fakeMessages{fetchErr: domain.ErrRelayUnauthorized}
	v := newView(t, newFakeSessions(), m, tokens, 5*time.Millisecond)
	require.NoError(t, v.Resume("c1"))

	err := v.Run(context.Background())
	require.ErrorIs(t, err, domain.ErrRelayUnauthorized)
	require.Equal(t, conversation.StateClosed, v.State())

	_, err = tokens.Token()
	require.ErrorIs(t, err, auth.ErrNotLoggedIn)
}

func TestRun_TicksUntilClosed(t *testing.T) {
	m := &fakeMessages{}
	v := newView(t, newFakeSessions(), m, nil, 5*time.Millisecond)
	require.NoError(t, v.Resume("c1"))

	done := make(chan error, 1)
	go func() { done <- v.Run(context.Background()) }()

	require.Eventually(t, func() bool { return m.fetches.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	v.Close()
	require.NoError(t, <-done)

	n := m.fetches.Load()
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, n, m.fetches.Load(), "polling continued after Close")
}

func TestRun_StopsWithContext(t *testing.T) {
	v := newView(t, newFakeSessions(), &fakeMessages{}, nil, time.Hour)
	require.NoError(t, v.Resume("c1"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, v.Run(ctx), context.Canceled)
}

func TestSend_SuccessClearsDraftAndPollsImmediately(t *testing.T) {
	s := newFakeSessions()
	s.records["c1"] = domain.SessionKeyRecord{ChatID: "c1", AESKey: key(1)}
	m := &fakeMessages{}
	v := newView(t, s, m, nil, time.Hour)
	require.NoError(t, v.Resume("c1"))

	done := make(chan error, 1)
	go func() { done <- v.Run(context.Background()) }()
	require.Eventually(t, func() bool { return m.fetches.Load() == 1 }, time.Second, time.Millisecond)

	v.SetDraft("hello")
	require.NoError(t, v.SendDraft(context.Background()))
	require.Empty(t, v.Snapshot().Draft)
	require.Eventually(t, func() bool { return m.fetches.Load() >= 2 }, time.Second, time.Millisecond)
	assert.Contains(t, m.Calls(), "send:hello")

	v.Close()
	require.NoError(t, <-done)
}

func TestSend_FailureKeepsDraft(t *testing.T) {
	m := &fakeMessages{sendErr: errors.New("boom")}
	v := newView(t, newFakeSessions(), m, nil, time.Hour)
	require.NoError(t, v.Start(context.Background(), "bob@example.com"))

	v.SetDraft("keep me")
	err := v.SendDraft(context.Background())
	var uerr *conversation.Error
	require.ErrorAs(t, err, &uerr)
	require.Equal(t, conversation.SendFailedText, uerr.Text)

	snap := v.Snapshot()
	require.Equal(t, "keep me", snap.Draft)
	require.Error(t, snap.Err)
	require.Equal(t, 1, countCalls(m.Calls(), "send:keep me"), "no automatic retry")

	require.ErrorIs(t, v.Send(context.Background(), "   "), conversation.ErrEmptyMessage)
}

func countCalls(calls []string, want string) int {
	n := 0
	for _, c := range calls {
		if c == want {
			n++
		}
	}
	return n
}
