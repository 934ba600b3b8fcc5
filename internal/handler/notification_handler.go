package handler

import (
	"os"

	"notechat-be/internal/dto"
	"notechat-be/internal/pkg/logger"
	"notechat-be/internal/pkg/serverutils"
	"notechat-be/internal/service"
	internalWS "notechat-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type NotificationHandler struct {
	service *service.NotificationService
	hub     *internalWS.Hub
	logger  logger.ILogger
}

func NewNotificationHandler(service *service.NotificationService, hub *internalWS.Hub, log logger.ILogger) *NotificationHandler {
	return &NotificationHandler{
		service: service,
		hub:     hub,
		logger:  log,
	}
}

// ServeWs authenticates the websocket handshake and hands the connection
// to the hub. Browsers cannot set headers on websocket requests, so the
// token may arrive as a query param instead.
func (h *NotificationHandler) ServeWs(c *fiber.Ctx) error {
	tokenStr := c.Query("token")
	if tokenStr == "" {
		authHeader := c.Get("Authorization")
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			tokenStr = authHeader[7:]
		}
	}

	if tokenStr == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing token (Query 'token' or Header 'Authorization')"})
	}

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.ErrUnauthorized
		}
		return []byte(os.Getenv("JWT_SECRET")), nil
	})
	if err != nil || !token.Valid {
		h.logger.Warn("NotificationHandler", "Invalid token in WS handshake", map[string]interface{}{"error": err})
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token claims"})
	}

	userIDStr, ok := claims["user_id"].(string)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Token missing user_id"})
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid user ID format in token"})
	}

	if websocket.IsWebSocketUpgrade(c) {
		return websocket.New(func(conn *websocket.Conn) {
			internalWS.ServeWs(h.hub, conn, userID)
		})(c)
	}
	return fiber.ErrUpgradeRequired
}

func (h *NotificationHandler) GetNotifications(c *fiber.Ctx) error {
	userIDStr, ok := c.Locals("user_id").(string)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)

	notifications, total, err := h.service.GetNotifications(c.UserContext(), userID, limit, offset)
	if err != nil {
		return err
	}

	unread, err := h.service.GetUnreadCount(c.UserContext(), userID)
	if err != nil {
		return err
	}

	items := make([]dto.NotificationResponse, 0, len(notifications))
	for _, n := range notifications {
		items = append(items, dto.NotificationResponse{
			Id:        n.ID,
			TypeCode:  n.TypeCode,
			Title:     n.Title,
			Message:   n.Message,
			IsRead:    n.IsRead,
			ReadAt:    n.ReadAt,
			CreatedAt: n.CreatedAt,
		})
	}

	return c.JSON(serverutils.SuccessResponse("Success list notifications", dto.NotificationListResponse{
		Items:       items,
		Total:       total,
		UnreadCount: unread,
	}))
}

func (h *NotificationHandler) GetUnreadCount(c *fiber.Ctx) error {
	userIDStr, ok := c.Locals("user_id").(string)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	count, err := h.service.GetUnreadCount(c.UserContext(), userID)
	if err != nil {
		return err
	}

	return c.JSON(serverutils.SuccessResponse("Success get unread count", fiber.Map{"count": count}))
}

func (h *NotificationHandler) MarkAsRead(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid ID"})
	}

	if err := h.service.MarkAsRead(c.UserContext(), id); err != nil {
		return err
	}

	return c.JSON(serverutils.SuccessResponse("Success mark notification read", nil))
}

func (h *NotificationHandler) MarkAllAsRead(c *fiber.Ctx) error {
	userIDStr, ok := c.Locals("user_id").(string)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	if err := h.service.MarkAllAsRead(c.UserContext(), userID); err != nil {
		return err
	}

	return c.JSON(serverutils.SuccessResponse("Success mark all notifications read", nil))
}

// RegisterRoutes registers the notification routes.
func (h *NotificationHandler) RegisterRoutes(router fiber.Router) {
	notif := router.Group("/notifications")
	notif.Use(serverutils.JwtMiddleware)
	notif.Get("/", h.GetNotifications)
	notif.Get("/unread-count", h.GetUnreadCount)
	notif.Patch("/:id/read", h.MarkAsRead)
	notif.Patch("/read-all", h.MarkAllAsRead)

	router.Get("/ws", h.ServeWs)
}
