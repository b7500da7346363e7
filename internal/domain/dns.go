package domain

import "fmt"

// DNSRecord 单条 DNS 记录
type DNSRecord struct {
	Type     string `json:"type"`
	Host     string `json:"host"`
	Value    string `json:"value"`
	Priority string `json:"priority,omitempty"`
}

// DNSRecordSet 域名收发邮件所需的完整 DNS 配置
type DNSRecordSet struct {
	MX       DNSRecord   `json:"mx"`
	ARecords []DNSRecord `json:"a_records"`
	SPF      DNSRecord   `json:"spf"`
	DMARC    DNSRecord   `json:"dmarc"`
}

// DeriveDNSRecords 根据域名和邮件服务器 IP 派生 DNS 记录集。
//
// 纯函数，无副作用；相同输入必须产生逐字节相同的输出，
// 下游展示与 DNS 比对都以这里的精确值为准：
//   - MX:    @ -> mail.<name>，优先级 10
//   - A:     mail -> ip，@ -> ip
//   - SPF:   TXT @ "v=spf1 ip4:<ip> -all"
//   - DMARC: TXT _dmarc "v=DMARC1; p=none; rua=mailto:admin@<name>"
func DeriveDNSRecords(name, serverIP string) DNSRecordSet {
	return DNSRecordSet{
		MX: DNSRecord{
			Type:     "MX",
			Host:     "@",
			Value:    fmt.Sprintf("mail.%s", name),
			Priority: "10",
		},
		ARecords: []DNSRecord{
			{Type: "A", Host: "mail", Value: serverIP},
			{Type: "A", Host: "@", Value: serverIP},
		},
		SPF: DNSRecord{
			Type:  "TXT",
			Host:  "@",
			Value: fmt.Sprintf("v=spf1 ip4:%s -all", serverIP),
		},
		DMARC: DNSRecord{
			Type:  "TXT",
			Host:  "_dmarc",
			Value: fmt.Sprintf("v=DMARC1; p=none; rua=mailto:admin@%s", name),
		},
	}
}
