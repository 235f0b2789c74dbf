package relayserver

import (
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"woosh/internal/domain"
	"woosh/internal/protocol/dh"
)

const chatStatusActive = "active"

// apiError is an HTTP status with the detail string sent to the client.
type apiError struct {
	status int
	detail string
}

func (e *apiError) Error() string { return e.detail }

func errStatus(status int, detail string) *apiError { return &apiError{status: status, detail: detail} }

type participant struct {
	email     domain.Email
	publicKey string
	joinedAt  *int64
}

type chat struct {
	id           domain.ChatID
	participants map[domain.UID]*participant
	aesKey       domain.SymmetricKey
	createdAt    int64
	createdBy    domain.UID
	unread       map[domain.UID]int
}

func (c *chat) peerOf(uid domain.UID) (domain.UID, *participant) {
	for id, p := range c.participants {
		if id != uid {
			return id, p
		}
	}
	return "", nil
}

type pairKey struct{ a, b domain.UID }

func pairOf(x, y domain.UID) pairKey {
	if x > y {
		x, y = y, x
	}
	return pairKey{x, y}
}

// state is the relay's in-memory database. Chats and users live in maps;
// messages live in a go-cache so read messages age out on their own.
type state struct {
	mu       sync.RWMutex
	users    map[domain.UID]domain.Email
	byEmail  map[domain.Email]domain.UID
	chats    map[domain.ChatID]*chat
	pairs    map[pairKey]domain.ChatID
	messages *cache.Cache

	agreement *dh.Agreement
	ttl       time.Duration
	now       func() time.Time
	log       logrus.FieldLogger
}

func newState(agreement *dh.Agreement, ttl, cleanup time.Duration, now func() time.Time, log logrus.FieldLogger) *state {
	st := &state{
		users:     map[domain.UID]domain.Email{},
		byEmail:   map[domain.Email]domain.UID{},
		chats:     map[domain.ChatID]*chat{},
		pairs:     map[pairKey]domain.ChatID{},
		messages:  cache.New(cache.NoExpiration, cleanup),
		agreement: agreement,
		ttl:       ttl,
		now:       now,
		log:       log,
	}
	st.messages.OnEvicted(func(k string, _ interface{}) {
		st.log.WithField("message", k).Debug("purged expired message")
	})
	return st
}

func (st *state) register(uid domain.UID, email domain.Email) {
	email = normalizeEmail(email)
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.users[uid]; ok {
		return
	}
	st.users[uid] = email
	st.byEmail[email] = uid
	st.log.WithField("uid", uid).Info("registered user")
}

// initChat returns the existing chat for the pair, or creates one with the
// relay acting as the peer's side of the DH exchange.
func (st *state) initChat(caller *Claims, peerEmail domain.Email, clientPub string) (domain.InitChatResponse, error) {
	peerEmail = normalizeEmail(peerEmail)
	if peerEmail == normalizeEmail(caller.Email) {
		return domain.InitChatResponse{}, errStatus(http.StatusBadRequest, "Cannot start chat with yourself")
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	peerUID, ok := st.byEmail[peerEmail]
	if !ok {
		return domain.InitChatResponse{}, errStatus(http.StatusNotFound, "User with this email not found")
	}

	if id, ok := st.pairs[pairOf(caller.UID, peerUID)]; ok {
		return domain.InitChatResponse{
			Status:    domain.InitStatusExisting,
			ChatID:    id,
			PeerEmail: peerEmail,
			PeerUID:   peerUID,
			AESKey:    st.chats[id].aesKey,
		}, nil
	}

	kp, err := st.agreement.GenerateKeypair()
	if err != nil {
		return domain.InitChatResponse{}, err
	}
	defer kp.Wipe()
	key, err := st.agreement.Agree(kp.Private, clientPub)
	if err != nil {
		return domain.InitChatResponse{}, errStatus(http.StatusBadRequest, "Invalid public key")
	}
	serverPub := dh.EncodePublicKey(kp.Public)

	now := st.now().Unix()
	c := &chat{
		id: domain.ChatID(uuid.NewString()),
		participants: map[domain.UID]*participant{
			caller.UID: {email: normalizeEmail(caller.Email), publicKey: clientPub, joinedAt: &now},
			peerUID:    {email: peerEmail, publicKey: serverPub},
		},
		aesKey:    key,
		createdAt: now,
		createdBy: caller.UID,
		unread:    map[domain.UID]int{},
	}
	st.chats[c.id] = c
	st.pairs[pairOf(caller.UID, peerUID)] = c.id

	return domain.InitChatResponse{
		Status:          domain.InitStatusCreated,
		ChatID:          c.id,
		PeerEmail:       peerEmail,
		PeerUID:         peerUID,
		AESKey:          key,
		ServerPublicKey: serverPub,
	}, nil
}

// chatFor returns the chat if uid participates in it. Callers hold st.mu.
func (st *state) chatFor(id domain.ChatID, uid domain.UID) (*chat, error) {
	c, ok := st.chats[id]
	if !ok {
		return nil, errStatus(http.StatusNotFound, "Chat not found")
	}
	if _, ok := c.participants[uid]; !ok {
		return nil, errStatus(http.StatusForbidden, "You are not a participant in this chat")
	}
	return c, nil
}

func (st *state) listChats(uid domain.UID) []domain.ChatSummary {
	st.mu.RLock()
	defer st.mu.RUnlock()

	out := []domain.ChatSummary{}
	for _, c := range st.chats {
		if _, ok := c.participants[uid]; !ok {
			continue
		}
		peerUID, peer := c.peerOf(uid)
		s := domain.ChatSummary{
			ChatID:      c.id,
			PeerUID:     peerUID,
			CreatedAt:   c.createdAt,
			UnreadCount: c.unread[uid],
		}
		if peer != nil {
			s.PeerEmail = peer.email
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ChatID < out[j].ChatID
	})
	return out
}

func (st *state) details(id domain.ChatID, uid domain.UID) (domain.ChatDetails, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	c, err := st.chatFor(id, uid)
	if err != nil {
		return domain.ChatDetails{}, err
	}
	d := domain.ChatDetails{
		ChatID:       c.id,
		Participants: map[domain.UID]domain.Participant{},
		AESKey:       c.aesKey,
		CreatedAt:    c.createdAt,
		Status:       chatStatusActive,
	}
	for pid, p := range c.participants {
		d.Participants[pid] = domain.Participant{Email: p.email, PublicKey: p.publicKey, JoinedAt: p.joinedAt}
	}
	return d, nil
}

func messageKey(chat domain.ChatID, id domain.MessageID) string {
	return string(chat) + "/" + string(id)
}

func (st *state) send(id domain.ChatID, sender domain.UID, envelope string) (domain.SendMessageResponse, error) {
	if strings.TrimSpace(envelope) == "" {
		return domain.SendMessageResponse{}, errStatus(http.StatusBadRequest, "encrypted_message is required")
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	c, err := st.chatFor(id, sender)
	if err != nil {
		return domain.SendMessageResponse{}, err
	}
	msg := domain.Message{
		ID:            domain.MessageID(uuid.NewString()),
		SenderUID:     sender,
		EncryptedText: envelope,
		Timestamp:     st.now().Unix(),
		Status:        domain.StatusUnread,
	}
	st.messages.Set(messageKey(id, msg.ID), msg, cache.NoExpiration)
	for uid := range c.participants {
		if uid != sender {
			c.unread[uid]++
		}
	}
	return domain.SendMessageResponse{MessageID: msg.ID, Status: "sent", Timestamp: msg.Timestamp}, nil
}

// chatMessages returns the live messages of chat in timestamp order. Callers
// hold st.mu.
func (st *state) chatMessages(id domain.ChatID) []domain.Message {
	prefix := string(id) + "/"
	now := st.now().Unix()

	var out []domain.Message
	for k, item := range st.messages.Items() {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		m, ok := item.Object.(domain.Message)
		if !ok {
			continue
		}
		if m.ExpiresAt != nil && now >= *m.ExpiresAt {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp < out[j].Timestamp
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (st *state) listMessages(id domain.ChatID, uid domain.UID) (domain.MessagesResponse, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	c, err := st.chatFor(id, uid)
	if err != nil {
		return domain.MessagesResponse{}, err
	}
	msgs := st.chatMessages(id)
	if msgs == nil {
		msgs = []domain.Message{}
	}
	return domain.MessagesResponse{AESKey: c.aesKey, Messages: msgs}, nil
}

// markRead flips m to read and starts its expiry. Callers hold st.mu.
func (st *state) markRead(id domain.ChatID, m domain.Message, readAt, expiresAt int64) {
	m.Status = domain.StatusRead
	m.ReadAt = &readAt
	m.ExpiresAt = &expiresAt
	st.messages.Set(messageKey(id, m.ID), m, st.ttl)
}

func (st *state) markAllRead(id domain.ChatID, uid domain.UID) (domain.MarkReadResponse, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	c, err := st.chatFor(id, uid)
	if err != nil {
		return domain.MarkReadResponse{}, err
	}
	now := st.now().Unix()
	expires := now + int64(st.ttl/time.Second)

	marked := 0
	for _, m := range st.chatMessages(id) {
		if m.Status != domain.StatusUnread || m.SenderUID == uid {
			continue
		}
		st.markRead(id, m, now, expires)
		marked++
	}
	if marked > 0 {
		c.unread[uid] = 0
	}
	return domain.MarkReadResponse{MarkedCount: marked, ExpiresAt: expires}, nil
}

type markReadResponse struct {
	Status    string `json:"status"`
	ReadAt    int64  `json:"read_at"`
	ExpiresAt int64  `json:"expires_at"`
}

func (st *state) markOneRead(id domain.ChatID, uid domain.UID, msgID domain.MessageID) (markReadResponse, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	c, err := st.chatFor(id, uid)
	if err != nil {
		return markReadResponse{}, err
	}
	v, ok := st.messages.Get(messageKey(id, msgID))
	if !ok {
		return markReadResponse{}, errStatus(http.StatusNotFound, "Message not found")
	}
	m := v.(domain.Message)
	now := st.now().Unix()
	expires := now + int64(st.ttl/time.Second)
	if m.Status == domain.StatusUnread && m.SenderUID != uid {
		st.markRead(id, m, now, expires)
		if c.unread[uid] > 0 {
			c.unread[uid]--
		}
	}
	return markReadResponse{Status: string(domain.StatusRead), ReadAt: now, ExpiresAt: expires}, nil
}
