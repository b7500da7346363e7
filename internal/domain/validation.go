package domain

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	// 地址形态校验只要求 local@domain.tld 的粗粒度形状，
	// 收件人是否可达由投递流程按已验证域名集合判定。
	addressPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

	domainNamePattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?(\.[a-z0-9]([a-z0-9-]*[a-z0-9])?)+$`)

	usernamePattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9._-]*[a-z0-9])?$`)
)

// IsValidAddress 校验邮件地址形状
func IsValidAddress(addr string) bool {
	return addressPattern.MatchString(addr)
}

// ValidateDomainName 校验域名格式，返回规范化（小写去空白）后的域名
func ValidateDomainName(name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "", NewValidationError("domain", "域名不能为空")
	}
	if len(name) > 253 {
		return "", NewValidationError("domain", "域名长度超出限制")
	}
	if !domainNamePattern.MatchString(name) {
		return "", NewValidationError("domain", "域名格式不正确")
	}
	return name, nil
}

// ValidateUsername 校验邮箱本地部分，返回规范化后的用户名
func ValidateUsername(username string) (string, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return "", NewValidationError("username", "用户名不能为空")
	}
	if len(username) > 64 {
		return "", NewValidationError("username", "用户名长度超出限制")
	}
	if !usernamePattern.MatchString(username) {
		return "", NewValidationError("username", "用户名格式不正确")
	}
	return username, nil
}

// ValidatePassword 按固定顺序校验密码策略，返回第一条被违反的规则：
// 长度不少于 8 位 -> 含大写字母 -> 含小写字母 -> 含数字 -> 两次输入一致。
// 顺序是对外契约的一部分，前端按返回的单条错误提示用户。
func ValidatePassword(password, confirm string) error {
	if len(password) < 8 {
		return NewValidationError("password", "密码长度不能少于8位")
	}
	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasUpper {
		return NewValidationError("password", "密码必须包含大写字母")
	}
	if !hasLower {
		return NewValidationError("password", "密码必须包含小写字母")
	}
	if !hasDigit {
		return NewValidationError("password", "密码必须包含数字")
	}
	if password != confirm {
		return NewValidationError("confirmPassword", "两次输入的密码不一致")
	}
	return nil
}

// ComposeEmail 由用户名和域名拼出完整邮件地址
func ComposeEmail(username, domainName string) string {
	return username + "@" + domainName
}

// SplitAddress 拆分邮件地址为本地部分和域名，形状不合法时返回 false
func SplitAddress(addr string) (local, domainName string, ok bool) {
	if !IsValidAddress(addr) {
		return "", "", false
	}
	at := strings.LastIndex(addr, "@")
	return addr[:at], addr[at+1:], true
}
