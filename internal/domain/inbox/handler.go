package inbox

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/inbox/messages", h.ListMessages)
	api.GET("/inbox/conversations", h.ListConversations)
	api.GET("/inbox/thread/:phone", h.GetThread)
	api.POST("/inbox/reply", h.SendReply)
	api.POST("/inbox/suggest", h.Suggest)
	api.POST("/inbox/messages/:id/classify", h.Classify)
	api.PUT("/inbox/messages/:id/category", h.SetCategory)
	api.GET("/inbox/categories", h.ListCategories)
	api.POST("/inbox/webhook/inbound", h.IngestInbound)
}

func filterFromQuery(c echo.Context) Filter {
	return Filter{
		Channel:  c.QueryParam("channel"),
		Category: c.QueryParam("category"),
		Search:   c.QueryParam("q"),
	}
}

func (h *Handler) ListMessages(c echo.Context) error {
	msgs, err := h.svc.ListRecent(c.Request().Context(), filterFromQuery(c))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if msgs == nil {
		msgs = []*Message{}
	}
	return c.JSON(http.StatusOK, msgs)
}

func (h *Handler) ListConversations(c echo.Context) error {
	convs, err := h.svc.Conversations(c.Request().Context(), filterFromQuery(c))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if convs == nil {
		convs = []*Conversation{}
	}
	return c.JSON(http.StatusOK, convs)
}

func (h *Handler) GetThread(c echo.Context) error {
	msgs, err := h.svc.Thread(c.Request().Context(), c.Param("phone"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if msgs == nil {
		msgs = []*Message{}
	}
	return c.JSON(http.StatusOK, msgs)
}

type replyRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

func (h *Handler) SendReply(c echo.Context) error {
	var req replyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	m, err := h.svc.SendReply(c.Request().Context(), req.Phone, req.Message)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, m)
}

type suggestRequest struct {
	Phone string `json:"phone"`
}

type suggestResponse struct {
	Suggestion string `json:"suggestion"`
}

func (h *Handler) Suggest(c echo.Context) error {
	var req suggestRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	suggestion, err := h.svc.Suggest(c.Request().Context(), req.Phone)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, suggestResponse{Suggestion: suggestion})
}

func (h *Handler) Classify(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid message ID")
	}
	result, err := h.svc.Classify(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

type categoryRequest struct {
	Category string `json:"category"`
}

func (h *Handler) SetCategory(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid message ID")
	}
	var req categoryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.SetCategory(c.Request().Context(), id, req.Category); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListCategories(c echo.Context) error {
	cats, err := h.svc.Categories(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if cats == nil {
		cats = []*Category{}
	}
	return c.JSON(http.StatusOK, cats)
}

func (h *Handler) IngestInbound(c echo.Context) error {
	var req InboundRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	m, err := h.svc.IngestInbound(c.Request().Context(), &req)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, m)
}
