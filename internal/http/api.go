package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"greentea/internal/domain"
	"greentea/internal/metrics"
	"greentea/internal/service"
)

const maxActionLength = 32

// writeActions read form fields and are only served on POST.
var writeActions = map[string]bool{
	"register": true,
	"login":    true,
}

// Handler wires HTTP routes to domain services.
type Handler struct {
	registrar service.AccountRegistrar
	chats     service.ChatService
	auth      service.AuthService
	metrics   *metrics.Metrics
	logger    *logrus.Logger
	actions   map[string]actionFunc
}

type actionFunc func(c *gin.Context) (any, error)

func NewHandler(registrar service.AccountRegistrar, chats service.ChatService, auth service.AuthService, m *metrics.Metrics, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
	}
	h := &Handler{
		registrar: registrar,
		chats:     chats,
		auth:      auth,
		metrics:   m,
		logger:    logger,
	}
	h.actions = map[string]actionFunc{
		"get_group_list":          h.getGroupList,
		"get_chat_messages":       h.getChatMessages,
		"get_message_count_group": h.getMessageCountGroup,
		"register":                h.register,
		"login":                   h.login,
		"session":                 h.session,
	}
	return h
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(recoveryMiddleware(h.logger), requestLogger(h.logger, h.metrics), corsMiddleware())

	router.GET("/api.php", h.dispatch)
	router.POST("/api.php", h.dispatch)
	router.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
	})
	if h.metrics != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.metrics.Registry, promhttp.HandlerOpts{})))
	}
}

func (h *Handler) dispatch(c *gin.Context) {
	action, ok := c.GetQuery("action")
	if !ok {
		writeMessage(c, http.StatusBadRequest, `Missing "action" (string) parameter`)
		return
	}

	// bound the size of the echoed action in the error below
	if len(action) > maxActionLength {
		action = action[:maxActionLength]
	}
	fn, ok := h.actions[action]
	if !ok {
		writeMessage(c, http.StatusBadRequest, `Invalid action "`+action+`"`)
		return
	}
	// only known actions become metric labels
	c.Set(actionKey, action)

	if writeActions[action] && c.Request.Method != http.MethodPost {
		c.Header("Allow", http.MethodPost)
		writeMessage(c, http.StatusMethodNotAllowed, `Action "`+action+`" requires POST`)
		return
	}

	data, err := fn(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, envelope{Code: http.StatusOK, Msg: data})
}

func (h *Handler) getGroupList(c *gin.Context) (any, error) {
	limit, offset, err := pageParams(c)
	if err != nil {
		return nil, err
	}

	groups, err := h.chats.ListGroups(c.Request.Context(), limit, offset)
	if err != nil {
		return nil, err
	}

	resp := make([]GroupResponse, len(groups))
	for i := range groups {
		resp[i] = groupToResponse(groups[i])
	}
	return okResult(resp), nil
}

func (h *Handler) getChatMessages(c *gin.Context) (any, error) {
	groupID, ok := c.GetQuery("group_id")
	if !ok {
		return nil, domain.NewError(domain.ErrorKindMissingField, "Missing group_id string")
	}
	limit, offset, err := pageParams(c)
	if err != nil {
		return nil, err
	}

	messages, err := h.chats.ListMessages(c.Request.Context(), groupID, limit, offset)
	if err != nil {
		return nil, err
	}

	resp := make([]ChatMessageResponse, len(messages))
	for i := range messages {
		resp[i] = messageToResponse(messages[i])
	}
	return okResult(resp), nil
}

func (h *Handler) getMessageCountGroup(c *gin.Context) (any, error) {
	counts, err := h.chats.CountMessagesToday(c.Request.Context())
	if err != nil {
		return nil, err
	}

	resp := make([]MessageCountResponse, len(counts))
	for i := range counts {
		resp[i] = MessageCountResponse{Name: counts[i].Name, MsgCount: counts[i].MsgCount}
	}
	return okResult(resp), nil
}

func (h *Handler) register(c *gin.Context) (any, error) {
	req := domain.RegistrationRequest{
		Username:             postForm(c, "username"),
		TgUserID:             postForm(c, "tg_user_id"),
		Email:                postForm(c, "email"),
		Password:             postForm(c, "password"),
		PasswordConfirmation: postForm(c, "cpassword"),
	}

	res, err := h.registrar.Register(c.Request.Context(), req)
	if err != nil {
		h.metrics.ObserveRegistration(domain.KindOf(err).String())
		return nil, err
	}
	h.metrics.ObserveRegistration("success")
	return Result{IsOK: res.Success, Msg: res.Message, Data: []any{}}, nil
}

func (h *Handler) login(c *gin.Context) (any, error) {
	email, _ := c.GetPostForm("email")
	password, _ := c.GetPostForm("password")

	res, err := h.auth.Login(c.Request.Context(), email, password)
	if err != nil {
		h.metrics.ObserveLogin(domain.KindOf(err).String())
		return nil, err
	}
	h.metrics.ObserveLogin("success")
	return Result{IsOK: true, Msg: "Login success!", Token: res.Token}, nil
}

func (h *Handler) session(c *gin.Context) (any, error) {
	token := bearerToken(c)
	if token == "" {
		return nil, domain.NewError(domain.ErrorKindUnauthorized, "invalid session")
	}

	account, err := h.auth.Session(c.Request.Context(), token)
	if err != nil {
		return nil, err
	}
	return okResult(AccountResponse{
		ID:        account.ID,
		Username:  account.Username,
		Email:     account.Email,
		CreatedAt: formatTime(account.CreatedAt),
	}), nil
}

func (h *Handler) writeError(c *gin.Context, err error) {
	var de *domain.Error
	if !errors.As(err, &de) || de.Kind == domain.ErrorKindInternal {
		h.logger.WithError(err).WithField("action", c.GetString(actionKey)).Error("request failed")
		writeMessage(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	status := statusForKind(de.Kind)
	if status >= http.StatusInternalServerError {
		h.logger.WithError(err).WithField("action", c.GetString(actionKey)).Error("request failed")
	}

	res := Result{IsOK: false, Msg: de.Message}
	if c.GetString(actionKey) == "register" {
		res.Data = []any{}
	}
	c.JSON(status, envelope{Code: status, Msg: res})
}

func statusForKind(kind domain.ErrorKind) int {
	switch kind {
	case domain.ErrorKindUnauthorized:
		return http.StatusUnauthorized
	case domain.ErrorKindPersistenceFailure, domain.ErrorKindInternal:
		return http.StatusInternalServerError
	}
	return http.StatusBadRequest
}

func pageParams(c *gin.Context) (int, int, error) {
	limit, err := intParam(c, "limit", service.DefaultPageLimit)
	if err != nil {
		return 0, 0, err
	}
	offset, err := intParam(c, "offset", 0)
	if err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

func intParam(c *gin.Context, name string, def int) (int, error) {
	raw, ok := c.GetQuery(name)
	if !ok {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewError(domain.ErrorKindInvalidRange, "%s must be an integer (given %q)", name, raw)
	}
	return v, nil
}

func postForm(c *gin.Context, key string) *string {
	v, ok := c.GetPostForm(key)
	if !ok {
		return nil
	}
	return &v
}
