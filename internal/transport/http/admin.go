package httptransport

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"webmail/backend/internal/domain"
	"webmail/backend/internal/service"
)

// AdminHandler 处理域名与用户管理的 HTTP 请求
type AdminHandler struct {
	directory *service.DirectoryService
	verifier  *service.VerifierService
	log       *zap.Logger
}

// NewAdminHandler 创建管理处理器实例
func NewAdminHandler(directory *service.DirectoryService, verifier *service.VerifierService, log *zap.Logger) *AdminHandler {
	return &AdminHandler{
		directory: directory,
		verifier:  verifier,
		log:       log,
	}
}

// ========== 域名管理 ==========

type createDomainRequest struct {
	Name string `json:"name" binding:"required"`
}

// ListDomains 列出所有域名
// @Summary 域名列表
// @Tags 管理-域名
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.Domain "域名列表"
// @Router /v1/admin/domains [get]
func (h *AdminHandler) ListDomains(c *gin.Context) {
	domains, err := h.directory.ListDomains()
	if err != nil {
		h.log.Error("failed to list domains", zap.Error(err))
		RespondError(c, err)
		return
	}
	Success(c, domains)
}

// CreateDomain 注册新域名
// @Summary 注册域名
// @Description 注册新域名并返回需要配置的 DNS 记录
// @Tags 管理-域名
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body createDomainRequest true "域名信息"
// @Success 201 {object} domain.Domain "注册成功"
// @Failure 400 {object} Response "域名格式无效"
// @Failure 409 {object} Response "域名已注册"
// @Router /v1/admin/domains [post]
func (h *AdminHandler) CreateDomain(c *gin.Context) {
	var req createDomainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	d, err := h.directory.CreateDomain(req.Name, c.GetString("userID"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, d)
}

// GetDomain 获取域名详情
// @Summary 域名详情
// @Tags 管理-域名
// @Produce json
// @Security BearerAuth
// @Param id path string true "域名ID"
// @Success 200 {object} domain.Domain "域名详情"
// @Failure 404 {object} Response "域名不存在"
// @Router /v1/admin/domains/{id} [get]
func (h *AdminHandler) GetDomain(c *gin.Context) {
	d, err := h.directory.GetDomain(c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, d)
}

// GetDomainInstructions 获取域名 DNS 配置指引
// @Summary DNS 配置指引
// @Description 返回域名创建时派生的 DNS 记录，多次查看内容一致
// @Tags 管理-域名
// @Produce json
// @Security BearerAuth
// @Param id path string true "域名ID"
// @Success 200 {object} service.DomainInstructions "配置指引"
// @Failure 404 {object} Response "域名不存在"
// @Router /v1/admin/domains/{id}/instructions [get]
func (h *AdminHandler) GetDomainInstructions(c *gin.Context) {
	instructions, err := h.directory.GetDomainInstructions(c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, instructions)
}

// VerifyDomain 对域名执行一次验证检查
// @Summary 验证域名
// @Description 检查域名 DNS 配置并推进验证状态机
// @Tags 管理-域名
// @Produce json
// @Security BearerAuth
// @Param id path string true "域名ID"
// @Success 200 {object} domain.Domain "当前验证状态"
// @Failure 404 {object} Response "域名不存在"
// @Failure 502 {object} Response "DNS 查询失败"
// @Router /v1/admin/domains/{id}/verify [post]
func (h *AdminHandler) VerifyDomain(c *gin.Context) {
	d, err := h.verifier.VerifyDomain(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}

	if d.Verified {
		SuccessWithMsg(c, "域名验证通过", d)
		return
	}
	SuccessWithMsg(c, "域名尚未通过验证，请检查DNS记录", d)
}

// RetryDomain 重置验证失败的域名
// @Summary 重试验证
// @Tags 管理-域名
// @Produce json
// @Security BearerAuth
// @Param id path string true "域名ID"
// @Success 200 {object} domain.Domain "已重置为待验证"
// @Failure 409 {object} Response "域名不在失败状态"
// @Router /v1/admin/domains/{id}/retry [post]
func (h *AdminHandler) RetryDomain(c *gin.Context) {
	d, err := h.verifier.RetryDomain(c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, d)
}

type setActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// SetDomainActive 启用或停用域名
// @Summary 启停域名
// @Tags 管理-域名
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "域名ID"
// @Param request body setActiveRequest true "启停状态"
// @Success 200 {object} domain.Domain "更新后的域名"
// @Router /v1/admin/domains/{id}/active [put]
func (h *AdminHandler) SetDomainActive(c *gin.Context) {
	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	d, err := h.directory.SetDomainActive(c.Param("id"), *req.Active)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, d)
}

// DeleteDomain 删除域名
// @Summary 删除域名
// @Description 删除域名，名下仍有用户时返回冲突
// @Tags 管理-域名
// @Produce json
// @Security BearerAuth
// @Param id path string true "域名ID"
// @Success 204 {object} Response "删除成功"
// @Failure 404 {object} Response "域名不存在"
// @Failure 409 {object} Response "域名下仍有用户"
// @Router /v1/admin/domains/{id} [delete]
func (h *AdminHandler) DeleteDomain(c *gin.Context) {
	if err := h.directory.DeleteDomain(c.Param("id")); err != nil {
		RespondError(c, err)
		return
	}
	NoContent(c)
}

// ========== 用户管理 ==========

type createUserRequest struct {
	FullName        string `json:"fullName"`
	Username        string `json:"username" binding:"required"`
	DomainID        string `json:"domainId" binding:"required"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
	Role            string `json:"role"`
}

// ListUsers 列出用户
// @Summary 用户列表
// @Description 列出所有用户，可按域名过滤
// @Tags 管理-用户
// @Produce json
// @Security BearerAuth
// @Param domainId query string false "按域名ID过滤"
// @Success 200 {array} userResponse "用户列表"
// @Router /v1/admin/users [get]
func (h *AdminHandler) ListUsers(c *gin.Context) {
	var (
		users []domain.MailboxUser
		err   error
	)
	if domainID := c.Query("domainId"); domainID != "" {
		users, err = h.directory.ListUsersByDomain(domainID)
	} else {
		users, err = h.directory.ListUsers()
	}
	if err != nil {
		h.log.Error("failed to list users", zap.Error(err))
		RespondError(c, err)
		return
	}

	out := make([]userResponse, 0, len(users))
	for i := range users {
		out = append(out, toUserResponse(&users[i]))
	}
	Success(c, out)
}

// CreateUser 创建邮箱用户
// @Summary 创建用户
// @Description 在指定域名下创建邮箱用户，密码按策略逐条校验
// @Tags 管理-用户
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body createUserRequest true "用户信息"
// @Success 201 {object} userResponse "创建成功"
// @Failure 400 {object} Response "参数或密码策略校验失败"
// @Failure 409 {object} Response "邮件地址已被占用"
// @Failure 502 {object} Response "凭证系统不可用"
// @Router /v1/admin/users [post]
func (h *AdminHandler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	user, err := h.directory.CreateUser(service.CreateUserInput{
		FullName:        req.FullName,
		Username:        req.Username,
		DomainID:        req.DomainID,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		Role:            domain.UserRole(req.Role),
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, toUserResponse(user))
}

// CheckUserExists 检查邮件地址是否可用
// @Summary 地址查重
// @Tags 管理-用户
// @Produce json
// @Security BearerAuth
// @Param username query string false "用户名（与 domainId 配合使用）"
// @Param domainId query string false "域名ID"
// @Param email query string false "完整邮件地址"
// @Success 200 {object} Response "查询结果"
// @Failure 404 {object} Response "域名不存在"
// @Router /v1/admin/users/exists [get]
func (h *AdminHandler) CheckUserExists(c *gin.Context) {
	username := c.Query("username")
	domainID := c.Query("domainId")

	if username != "" && domainID != "" {
		exists, email, err := h.directory.ResolveAddress(username, domainID)
		if err != nil {
			RespondError(c, err)
			return
		}
		Success(c, gin.H{"email": email, "exists": exists})
		return
	}

	email := c.Query("email")
	if email == "" {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	exists, err := h.directory.CheckUserExists(email)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, gin.H{"email": email, "exists": exists})
}

// SetUserActive 启用或停用用户
// @Summary 启停用户
// @Tags 管理-用户
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "用户ID"
// @Param request body setActiveRequest true "启停状态"
// @Success 200 {object} userResponse "更新后的用户"
// @Failure 404 {object} Response "用户不存在"
// @Router /v1/admin/users/{id}/active [put]
func (h *AdminHandler) SetUserActive(c *gin.Context) {
	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	user, err := h.directory.SetUserActive(c.Param("id"), *req.Active)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, toUserResponse(user))
}

// DeleteUser 删除用户
// @Summary 删除用户
// @Description 删除用户及其登录凭证，释放邮件地址
// @Tags 管理-用户
// @Produce json
// @Security BearerAuth
// @Param id path string true "用户ID"
// @Success 204 {object} Response "删除成功"
// @Failure 404 {object} Response "用户不存在"
// @Router /v1/admin/users/{id} [delete]
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	if err := h.directory.DeleteUser(c.Param("id")); err != nil {
		RespondError(c, err)
		return
	}
	NoContent(c)
}
