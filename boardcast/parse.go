package boardcast

import (
	"strconv"
	"strings"

	"github.com/grandcat/zeroconf"

	"github.com/moyoez/camfleet/types"
)

// ParseTxtRecords converts "key=value" TXT strings into a map.
// Entries without '=' or with an empty key carry no value and are skipped.
func ParseTxtRecords(txt []string) map[string]string {
	records := make(map[string]string, len(txt))
	for _, entry := range txt {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || key == "" {
			continue
		}
		records[key] = value
	}
	return records
}

// AliasFromInstance returns the human readable alias of an mDNS instance name.
// It strips a trailing "<service>.<domain>" when present and resolves DNS escapes.
func AliasFromInstance(instance, service, domain string) string {
	alias := instance
	suffix := "." + strings.Trim(service, ".") + "." + strings.Trim(domain, ".")
	alias = strings.TrimSuffix(strings.TrimSuffix(alias, "."), suffix)
	return unescapeDNSLabel(alias)
}

// unescapeDNSLabel resolves "\X" and "\DDD" escapes used in DNS-SD instance names.
func unescapeDNSLabel(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 >= len(s) {
			b.WriteByte(s[i])
			continue
		}
		if i+3 < len(s) && isDigit(s[i+1]) && isDigit(s[i+2]) && isDigit(s[i+3]) {
			if n, err := strconv.Atoi(s[i+1 : i+4]); err == nil && n <= 255 {
				b.WriteByte(byte(n))
				i += 3
				continue
			}
		}
		b.WriteByte(s[i+1])
		i++
	}
	return b.String()
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// entryToDiscovered converts a resolved service entry. ok is false when the entry has no address.
func entryToDiscovered(entry *zeroconf.ServiceEntry, service, domain string) (types.DiscoveredDevice, bool) {
	if entry == nil {
		return types.DiscoveredDevice{}, false
	}
	var ip string
	switch {
	case len(entry.AddrIPv4) > 0:
		ip = entry.AddrIPv4[0].String()
	case len(entry.AddrIPv6) > 0:
		ip = entry.AddrIPv6[0].String()
	default:
		return types.DiscoveredDevice{}, false
	}
	return types.DiscoveredDevice{
		Alias:      AliasFromInstance(entry.Instance, service, domain),
		IP:         ip,
		Port:       entry.Port,
		TxtRecords: ParseTxtRecords(entry.Text),
		Source:     SourceMDNS,
	}, true
}
