package httptransport

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"webmail/backend/internal/service"
)

// MessageHandler 处理邮件收发相关的 HTTP 请求
type MessageHandler struct {
	delivery *service.DeliveryService
	log      *zap.Logger
}

// NewMessageHandler 创建邮件处理器实例
func NewMessageHandler(delivery *service.DeliveryService, log *zap.Logger) *MessageHandler {
	return &MessageHandler{
		delivery: delivery,
		log:      log,
	}
}

type attachmentRequest struct {
	Name string `json:"name" binding:"required"`
	Size int64  `json:"size"`
}

type sendMessageRequest struct {
	To          string              `json:"to" binding:"required"`
	Subject     string              `json:"subject"`
	Content     string              `json:"content"`
	Attachments []attachmentRequest `json:"attachments"`
}

// Send 发送邮件
// @Summary 发送邮件
// @Description 发送邮件，超过大小限制的附件被移除并在警告中列出
// @Tags 邮件
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body sendMessageRequest true "邮件内容"
// @Success 201 {object} service.SendResult "发送成功"
// @Failure 400 {object} Response "收件人校验失败"
// @Router /v1/messages [post]
func (h *MessageHandler) Send(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	attachments := make([]service.Attachment, 0, len(req.Attachments))
	for _, a := range req.Attachments {
		attachments = append(attachments, service.Attachment{Name: a.Name, Size: a.Size})
	}

	result, err := h.delivery.SendMessage(c.Request.Context(), service.SendMessageInput{
		From:        c.GetString("email"),
		To:          req.To,
		Subject:     req.Subject,
		Content:     req.Content,
		Attachments: attachments,
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, result)
}

// Inbox 收件箱
// @Summary 收件箱
// @Description 返回当前用户收到的邮件，最新的在前，附带未读总数
// @Tags 邮件
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response "邮件列表与未读数"
// @Router /v1/messages/inbox [get]
func (h *MessageHandler) Inbox(c *gin.Context) {
	address := c.GetString("email")

	messages, err := h.delivery.Inbox(address)
	if err != nil {
		h.log.Error("failed to list inbox", zap.Error(err))
		RespondError(c, err)
		return
	}

	unread, err := h.delivery.UnreadCount(address)
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, gin.H{"messages": messages, "unread": unread})
}

// Sent 发件箱
// @Summary 发件箱
// @Description 返回当前用户发出的邮件，最新的在前
// @Tags 邮件
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.Message "邮件列表"
// @Router /v1/messages/sent [get]
func (h *MessageHandler) Sent(c *gin.Context) {
	messages, err := h.delivery.Sent(c.GetString("email"))
	if err != nil {
		h.log.Error("failed to list sent messages", zap.Error(err))
		RespondError(c, err)
		return
	}
	Success(c, messages)
}

// UnreadCount 未读数
// @Summary 未读邮件数
// @Tags 邮件
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response "未读数量"
// @Router /v1/messages/unread [get]
func (h *MessageHandler) UnreadCount(c *gin.Context) {
	count, err := h.delivery.UnreadCount(c.GetString("email"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, gin.H{"unread": count})
}

// MarkRead 标记邮件已读
// @Summary 标记已读
// @Description 将邮件标记为已读，重复标记同样返回成功
// @Tags 邮件
// @Produce json
// @Security BearerAuth
// @Param id path string true "邮件ID"
// @Success 200 {object} Response "标记成功"
// @Failure 404 {object} Response "邮件不存在"
// @Router /v1/messages/{id}/read [put]
func (h *MessageHandler) MarkRead(c *gin.Context) {
	if err := h.delivery.MarkRead(c.Param("id"), c.GetString("email")); err != nil {
		RespondError(c, err)
		return
	}
	SuccessWithMsg(c, "已标记为已读", nil)
}

// Recipients 收件人补全建议
// @Summary 收件人建议
// @Description 返回已验证域名上的启用用户，用于写信时补全
// @Tags 邮件
// @Produce json
// @Security BearerAuth
// @Success 200 {array} service.RecipientSuggestion "收件人列表"
// @Router /v1/messages/recipients [get]
func (h *MessageHandler) Recipients(c *gin.Context) {
	suggestions, err := h.delivery.SuggestRecipients(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, suggestions)
}

// ValidateRecipient 预校验收件人地址
// @Summary 校验收件人
// @Tags 邮件
// @Produce json
// @Security BearerAuth
// @Param email query string true "收件人地址"
// @Success 200 {object} Response "地址可投递"
// @Failure 400 {object} Response "地址不可投递"
// @Router /v1/messages/validate-recipient [get]
func (h *MessageHandler) ValidateRecipient(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	if err := h.delivery.ValidateRecipient(c.Request.Context(), email); err != nil {
		RespondError(c, err)
		return
	}
	SuccessWithMsg(c, "地址可投递", gin.H{"email": email})
}
