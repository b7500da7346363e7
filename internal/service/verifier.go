package service

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"go.uber.org/zap"

	"webmail/backend/internal/config"
	"webmail/backend/internal/domain"
	"webmail/backend/internal/monitoring"
	"webmail/backend/internal/storage"
)

// Checker 判断域名的 DNS 配置是否就位。
type Checker interface {
	Check(ctx context.Context, d *domain.Domain) (bool, error)
}

// InstantChecker 直接放行的检查器，开发环境和演示部署使用。
type InstantChecker struct{}

// Check 永远返回通过
func (InstantChecker) Check(ctx context.Context, d *domain.Domain) (bool, error) {
	return true, nil
}

// DNSChecker 通过真实 DNS 查询核对派生记录。
// MX 和 SPF 都命中才算通过，DMARC 缺失只降低信誉不阻断验证。
type DNSChecker struct {
	resolver *net.Resolver
}

// NewDNSChecker 创建 DNS 检查器
func NewDNSChecker() *DNSChecker {
	return &DNSChecker{resolver: net.DefaultResolver}
}

// Check 查询域名的 MX 与 TXT 记录并与期望值比对
func (c *DNSChecker) Check(ctx context.Context, d *domain.Domain) (bool, error) {
	mxOK, err := c.checkMX(ctx, d)
	if err != nil || !mxOK {
		return false, err
	}
	return c.checkSPF(ctx, d)
}

func (c *DNSChecker) checkMX(ctx context.Context, d *domain.Domain) (bool, error) {
	records, err := c.resolver.LookupMX(ctx, d.Name)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return false, nil
		}
		return false, err
	}

	want := d.DNSRecords.MX.Value
	for _, mx := range records {
		if strings.TrimSuffix(mx.Host, ".") == want {
			return true, nil
		}
	}
	return false, nil
}

func (c *DNSChecker) checkSPF(ctx context.Context, d *domain.Domain) (bool, error) {
	records, err := c.resolver.LookupTXT(ctx, d.Name)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return false, nil
		}
		return false, err
	}

	want := d.DNSRecords.SPF.Value
	for _, txt := range records {
		if txt == want {
			return true, nil
		}
	}
	return false, nil
}

// VerifierService 驱动域名验证状态机:
// pending -> checking -> verified | failed。
// failed 的域名可以重新发起验证，重新进入 checking。
type VerifierService struct {
	store   storage.DomainRepository
	checker Checker
	cache   DomainCache
	metrics *monitoring.Metrics
	cfg     *config.Config
	log     *zap.Logger
}

// NewVerifierService 创建验证服务
func NewVerifierService(store storage.DomainRepository, checker Checker, cache DomainCache, cfg *config.Config, log *zap.Logger) *VerifierService {
	return &VerifierService{
		store:   store,
		checker: checker,
		cache:   cache,
		cfg:     cfg,
		log:     log,
	}
}

// SetMetrics 注入监控指标收集器
func (s *VerifierService) SetMetrics(m *monitoring.Metrics) {
	s.metrics = m
}

// VerifyDomain 对域名执行一次验证检查并推进状态机。
// 已验证的域名直接返回，不重复检查。
func (s *VerifierService) VerifyDomain(ctx context.Context, id string) (*domain.Domain, error) {
	d, err := s.store.GetDomain(id)
	if err != nil {
		if errors.Is(err, storage.ErrDomainNotFound) {
			return nil, domain.NewNotFoundError("domain", id)
		}
		return nil, err
	}

	if d.Verified {
		return d, nil
	}

	d.Status = domain.DomainStatusChecking
	now := time.Now()
	d.LastCheckAt = &now
	d.CheckAttempts++

	ok, err := s.checker.Check(ctx, d)
	if err != nil {
		// 检查器故障不消耗状态机，保持 checking 等待下一轮
		if updateErr := s.store.UpdateDomain(d); updateErr != nil {
			return nil, updateErr
		}
		if s.metrics != nil {
			s.metrics.RecordDomainVerification("error")
		}
		return nil, domain.NewExternalError("dns", "check", err)
	}

	if ok {
		d.Status = domain.DomainStatusVerified
		d.Verified = true
		d.Active = true
		d.VerifiedAt = &now
	} else if d.CheckAttempts >= s.cfg.Verify.MaxAttempts {
		d.Status = domain.DomainStatusFailed
	}

	if err := s.store.UpdateDomain(d); err != nil {
		return nil, err
	}

	if d.Verified && s.cache != nil {
		if err := s.cache.InvalidateVerifiedDomains(ctx); err != nil {
			s.log.Warn("failed to invalidate verified domain cache", zap.Error(err))
		}
	}

	if s.metrics != nil {
		s.metrics.RecordDomainVerification(string(d.Status))
	}

	s.log.Info("domain verification attempted",
		zap.String("domain_id", d.ID),
		zap.String("name", d.Name),
		zap.String("status", string(d.Status)),
		zap.Int("attempts", d.CheckAttempts))

	return d, nil
}

// RetryDomain 将验证失败的域名重置回待验证状态
func (s *VerifierService) RetryDomain(id string) (*domain.Domain, error) {
	d, err := s.store.GetDomain(id)
	if err != nil {
		if errors.Is(err, storage.ErrDomainNotFound) {
			return nil, domain.NewNotFoundError("domain", id)
		}
		return nil, err
	}

	if d.Status != domain.DomainStatusFailed {
		return nil, domain.NewConflictError("domain", "只有验证失败的域名可以重试")
	}

	d.Status = domain.DomainStatusPending
	d.CheckAttempts = 0
	if err := s.store.UpdateDomain(d); err != nil {
		return nil, err
	}
	return d, nil
}

// RunPendingChecks 对所有待验证和验证中的域名跑一轮检查。
// 由后台轮询定时调用，返回本轮验证通过的数量。
func (s *VerifierService) RunPendingChecks(ctx context.Context) (int, error) {
	verified := 0
	for _, status := range []domain.DomainStatus{domain.DomainStatusPending, domain.DomainStatusChecking} {
		domains, err := s.store.ListDomainsByStatus(status)
		if err != nil {
			return verified, err
		}
		for i := range domains {
			d, err := s.VerifyDomain(ctx, domains[i].ID)
			if err != nil {
				s.log.Warn("background verification failed",
					zap.String("domain_id", domains[i].ID),
					zap.Error(err))
				continue
			}
			if d.Verified {
				verified++
			}
		}
	}
	return verified, nil
}
