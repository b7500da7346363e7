package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveDNSRecords(t *testing.T) {
	t.Run("派生的记录值逐字节精确", func(t *testing.T) {
		records := DeriveDNSRecords("example.com", "123.45.67.89")

		assert.Equal(t, "MX", records.MX.Type)
		assert.Equal(t, "@", records.MX.Host)
		assert.Equal(t, "mail.example.com", records.MX.Value)
		assert.Equal(t, "10", records.MX.Priority)

		assert.Len(t, records.ARecords, 2)
		assert.Equal(t, DNSRecord{Type: "A", Host: "mail", Value: "123.45.67.89"}, records.ARecords[0])
		assert.Equal(t, DNSRecord{Type: "A", Host: "@", Value: "123.45.67.89"}, records.ARecords[1])

		assert.Equal(t, "TXT", records.SPF.Type)
		assert.Equal(t, "@", records.SPF.Host)
		assert.Equal(t, "v=spf1 ip4:123.45.67.89 -all", records.SPF.Value)

		assert.Equal(t, "TXT", records.DMARC.Type)
		assert.Equal(t, "_dmarc", records.DMARC.Host)
		assert.Equal(t, "v=DMARC1; p=none; rua=mailto:admin@example.com", records.DMARC.Value)
	})

	t.Run("相同输入产生相同输出", func(t *testing.T) {
		a := DeriveDNSRecords("demo.io", "10.0.0.1")
		b := DeriveDNSRecords("demo.io", "10.0.0.1")
		assert.Equal(t, a, b)
	})

	t.Run("JSON字段名与前端契约一致", func(t *testing.T) {
		records := DeriveDNSRecords("example.com", "1.2.3.4")
		data, err := json.Marshal(records)
		assert.NoError(t, err)

		var m map[string]json.RawMessage
		assert.NoError(t, json.Unmarshal(data, &m))
		assert.Contains(t, m, "mx")
		assert.Contains(t, m, "a_records")
		assert.Contains(t, m, "spf")
		assert.Contains(t, m, "dmarc")
	})

	t.Run("MX优先级缺省时不输出priority字段", func(t *testing.T) {
		records := DeriveDNSRecords("example.com", "1.2.3.4")
		data, err := json.Marshal(records.SPF)
		assert.NoError(t, err)
		assert.NotContains(t, string(data), "priority")
	})
}
