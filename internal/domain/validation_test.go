package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePassword(t *testing.T) {
	t.Run("合法密码通过", func(t *testing.T) {
		assert.NoError(t, ValidatePassword("Passw0rd", "Passw0rd"))
	})

	t.Run("长度不足优先于其他规则", func(t *testing.T) {
		// 同时缺大写和数字，但长度规则先触发
		err := ValidatePassword("abc", "abc")
		assert.Error(t, err)
		ve, ok := err.(*ValidationError)
		assert.True(t, ok)
		assert.Equal(t, "密码长度不能少于8位", ve.Detail)
	})

	t.Run("缺大写字母", func(t *testing.T) {
		err := ValidatePassword("password1", "password1")
		assert.EqualError(t, err, "password: 密码必须包含大写字母")
	})

	t.Run("缺小写字母", func(t *testing.T) {
		err := ValidatePassword("PASSWORD1", "PASSWORD1")
		assert.EqualError(t, err, "password: 密码必须包含小写字母")
	})

	t.Run("缺数字", func(t *testing.T) {
		err := ValidatePassword("Password", "Password")
		assert.EqualError(t, err, "password: 密码必须包含数字")
	})

	t.Run("两次输入不一致最后才检查", func(t *testing.T) {
		err := ValidatePassword("Passw0rd", "Passw0rd!")
		assert.EqualError(t, err, "confirmPassword: 两次输入的密码不一致")
	})
}

func TestIsValidAddress(t *testing.T) {
	valid := []string{"user@example.com", "a.b-c@mail.example.io", "x@y.zz"}
	for _, addr := range valid {
		assert.True(t, IsValidAddress(addr), addr)
	}

	invalid := []string{"", "user", "user@", "@example.com", "user@example", "us er@example.com", "user@@example.com"}
	for _, addr := range invalid {
		assert.False(t, IsValidAddress(addr), addr)
	}
}

func TestValidateDomainName(t *testing.T) {
	t.Run("规范化为小写并去空白", func(t *testing.T) {
		name, err := ValidateDomainName("  Example.COM ")
		assert.NoError(t, err)
		assert.Equal(t, "example.com", name)
	})

	t.Run("拒绝无效格式", func(t *testing.T) {
		for _, name := range []string{"", "nodot", "-bad.com", "bad-.com", "ex ample.com", "example..com"} {
			_, err := ValidateDomainName(name)
			assert.Error(t, err, name)
			assert.True(t, IsValidation(err), name)
		}
	})
}

func TestValidateUsername(t *testing.T) {
	t.Run("合法用户名", func(t *testing.T) {
		for _, u := range []string{"alice", "john.doe", "a1", "dev-ops_1"} {
			got, err := ValidateUsername(u)
			assert.NoError(t, err, u)
			assert.Equal(t, u, got)
		}
	})

	t.Run("拒绝无效用户名", func(t *testing.T) {
		for _, u := range []string{"", ".alice", "alice.", "al ice", "用户"} {
			_, err := ValidateUsername(u)
			assert.Error(t, err, u)
		}
	})
}

func TestSplitAddress(t *testing.T) {
	local, domainName, ok := SplitAddress("alice@example.com")
	assert.True(t, ok)
	assert.Equal(t, "alice", local)
	assert.Equal(t, "example.com", domainName)

	_, _, ok = SplitAddress("not-an-address")
	assert.False(t, ok)
}
