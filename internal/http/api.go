package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"support-copilot/internal/auth"
	"support-copilot/internal/callout"
	"support-copilot/internal/llm"
	"support-copilot/internal/service"
	"support-copilot/internal/storage"
)

// Handler wires HTTP routes to domain services.
type Handler struct {
	users   service.UserService
	chat    service.ChatService
	tokens  *auth.TokenManager
	linker  *callout.MeetingLinker
	caller  callout.Caller  // nil when telephony is not configured
	archive storage.Service // nil when transcript archiving is not configured
}

func NewHandler(
	users service.UserService,
	chat service.ChatService,
	tokens *auth.TokenManager,
	linker *callout.MeetingLinker,
	caller callout.Caller,
	archive storage.Service,
) *Handler {
	return &Handler{
		users:   users,
		chat:    chat,
		tokens:  tokens,
		linker:  linker,
		caller:  caller,
		archive: archive,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())

	api := router.Group("/api")
	{
		api.POST("/auth/register", h.register)
		api.POST("/auth/login", h.login)
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})

		protected := api.Group("", h.tokens.Middleware())
		{
			protected.GET("/auth/me", h.me)
			protected.POST("/llm", h.chatTurn)
			protected.GET("/llm/history", h.history)
			protected.POST("/llm/archive", h.archiveTranscript)
			protected.GET("/call/call-technician", h.meetingLink)
			protected.POST("/call/call-technician", h.callTechnician)
		}
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// credentialsRequest accepts both field spellings the frontends use.
type credentialsRequest struct {
	Username string `json:"username"`
	EmailID  string `json:"emailId"`
	Password string `json:"password" binding:"required"`
}

func (r credentialsRequest) name() string {
	if strings.TrimSpace(r.Username) != "" {
		return r.Username
	}
	return r.EmailID
}

func (h *Handler) register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := h.users.Register(c.Request.Context(), req.name(), req.Password); err != nil {
		if errors.Is(err, service.ErrUserAlreadyExists) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username already taken"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully"})
}

func (h *Handler) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.name(), req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "bearer",
		"user_id":      user.ID,
	})
}

func (h *Handler) me(c *gin.Context) {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authentication credentials"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": user.ID, "username": user.Username})
}

type chatRequest struct {
	Message string `json:"message"`
}

func (h *Handler) chatTurn(c *gin.Context) {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
		return
	}

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reply, err := h.chat.Chat(c.Request.Context(), userID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyMessage):
			c.JSON(http.StatusBadRequest, gin.H{"error": "message cannot be empty"})
		case errors.Is(err, llm.ErrGateway):
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"reply": reply})
}

func (h *Handler) history(c *gin.Context) {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
		return
	}

	history, err := h.chat.History(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"history": history})
}

func (h *Handler) archiveTranscript(c *gin.Context) {
	if h.archive == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "transcript archive not configured"})
		return
	}

	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
		return
	}

	history, err := h.chat.History(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	location, err := h.archive.UploadTranscript(c.Request.Context(), storage.Transcript{
		UserID:   userID,
		Messages: history,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"location": location})
}

func (h *Handler) meetingLink(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"jitsi_url": h.linker.NewRoomURL()})
}

type callRequest struct {
	Phone string `json:"phone"`
}

func (h *Handler) callTechnician(c *gin.Context) {
	if h.caller == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "telephony not configured"})
		return
	}

	var req callRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Phone) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Phone number required"})
		return
	}

	sid, err := h.caller.PlaceCall(c.Request.Context(), req.Phone)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Call initiated", "call_sid": sid})
}
