package relayserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"woosh/internal/domain"
	"woosh/internal/protocol/dh"
)

// Server is the development relay.
type Server struct {
	cfg    Config
	log    logrus.FieldLogger
	state  *state
	engine *gin.Engine

	agreement *dh.Agreement
}

// Option customises a Server.
type Option func(*serverOptions)

type serverOptions struct {
	now       func() time.Time
	agreement *dh.Agreement
}

// WithClock replaces time.Now for timestamps and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(o *serverOptions) { o.now = now }
}

// WithAgreement sets the DH parameters the relay uses for new chats.
func WithAgreement(a *dh.Agreement) Option {
	return func(o *serverOptions) { o.agreement = a }
}

// New builds a Server from cfg.
func New(cfg Config, log logrus.FieldLogger, opts ...Option) *Server {
	o := serverOptions{now: time.Now, agreement: dh.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	if cfg.MessageTTL <= 0 {
		cfg.MessageTTL = time.Minute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 10 * time.Second
	}

	s := &Server{
		cfg:       cfg,
		log:       log,
		state:     newState(o.agreement, cfg.MessageTTL, cfg.CleanupInterval, o.now, log),
		agreement: o.agreement,
	}
	s.engine = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), accessLog(s.log))

	authed := r.Group("/")
	authed.Use(s.jwtMiddleware())
	{
		authed.POST("/chat/init", s.handleInit)
		authed.GET("/chat/list", s.handleList)
		authed.GET("/chat/:id", s.handleDetails)
		authed.GET("/chat/:id/messages", s.handleMessages)
		authed.POST("/chat/:id/send", s.handleSend)
		authed.POST("/chat/:id/mark-all-read", s.handleMarkAllRead)
		authed.POST("/chat/:id/mark-read", s.handleMarkRead)
	}
	return r
}

// Handler exposes the relay as an http.Handler.
func (s *Server) Handler() http.Handler { return s.engine }

// IssueToken signs a token for uid/email with the server's secret.
func (s *Server) IssueToken(uid domain.UID, email domain.Email) (string, error) {
	return IssueToken(s.cfg.JWTSecret, uid, email, s.cfg.TokenTTL)
}

// ListenAndServe serves on cfg.Addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.WithFields(logrus.Fields{
		"addr":    s.cfg.Addr,
		"dh_bits": s.agreement.Group().P().BitLen(),
	}).Info("relay listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type initRequest struct {
	PeerEmail domain.Email `json:"peer_email" binding:"required"`
	PublicKey string       `json:"public_key" binding:"required"`
}

type sendRequest struct {
	EncryptedMessage string `json:"encrypted_message" binding:"required"`
}

type markReadRequest struct {
	MessageID domain.MessageID `json:"message_id" binding:"required"`
}

func (s *Server) handleInit(c *gin.Context) {
	var req initRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "peer_email and public_key are required")
		return
	}
	resp, err := s.state.initChat(callerFrom(c), req.PeerEmail, req.PublicKey)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.log.WithFields(logrus.Fields{"chat_id": resp.ChatID, "status": resp.Status}).Info("chat init")
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleList(c *gin.Context) {
	c.JSON(http.StatusOK, domain.ChatList{Chats: s.state.listChats(callerFrom(c).UID)})
}

func (s *Server) handleDetails(c *gin.Context) {
	d, err := s.state.details(domain.ChatID(c.Param("id")), callerFrom(c).UID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (s *Server) handleMessages(c *gin.Context) {
	resp, err := s.state.listMessages(domain.ChatID(c.Param("id")), callerFrom(c).UID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleSend(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "encrypted_message is required")
		return
	}
	resp, err := s.state.send(domain.ChatID(c.Param("id")), callerFrom(c).UID, req.EncryptedMessage)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleMarkAllRead(c *gin.Context) {
	resp, err := s.state.markAllRead(domain.ChatID(c.Param("id")), callerFrom(c).UID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleMarkRead(c *gin.Context) {
	var req markReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "message_id is required")
		return
	}
	resp, err := s.state.markOneRead(domain.ChatID(c.Param("id")), callerFrom(c).UID, req.MessageID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) fail(c *gin.Context, err error) {
	var aerr *apiError
	if errors.As(err, &aerr) {
		abort(c, aerr.status, aerr.detail)
		return
	}
	s.log.WithError(err).Error("relay handler failed")
	abort(c, http.StatusInternalServerError, "internal error")
}

func abort(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}
