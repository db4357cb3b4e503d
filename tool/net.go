package tool

import (
	"net"
	"strings"
)

// RejectUnsupportNetworkInterface filters interfaces that cannot carry mDNS or reach cameras on the LAN.
func RejectUnsupportNetworkInterface(iface *net.Interface) bool {
	if iface.Flags&net.FlagUp == 0 {
		return true
	}
	if iface.Flags&net.FlagLoopback != 0 {
		return true
	}
	if iface.Flags&net.FlagPointToPoint != 0 {
		return true // utun / tun / vpn
	}
	if iface.Flags&net.FlagMulticast == 0 {
		return true
	}
	// reject no v4 ipaddress.
	ips, err := iface.Addrs()
	if err != nil {
		return true
	}
	for _, ip := range ips {
		if ipnet, ok := ip.(*net.IPNet); ok && ipnet.IP.To4() != nil && !ipnet.IP.IsLoopback() {
			return false
		}
	}
	return true
}

// UsableInterfaces returns the interfaces passing RejectUnsupportNetworkInterface.
func UsableInterfaces() []net.Interface {
	interfaces, err := net.Interfaces()
	if err != nil {
		DefaultLogger.Errorf("Failed to get network interfaces: %v", err)
		return nil
	}
	var result []net.Interface
	for i := range interfaces {
		if RejectUnsupportNetworkInterface(&interfaces[i]) {
			continue
		}
		result = append(result, interfaces[i])
	}
	return result
}

func GetLocalIPv4Set() map[string]struct{} {
	result := make(map[string]struct{})

	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return result
	}

	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}

		ip := ipnet.IP
		if ip == nil || ip.IsLoopback() {
			continue
		}

		ipv4 := ip.To4()
		if ipv4 == nil {
			continue
		}

		result[ipv4.String()] = struct{}{}
	}

	return result
}

// LocalIPv4Networks lists non-loopback IPv4 networks and a key that changes whenever they do.
func LocalIPv4Networks() ([]*net.IPNet, string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, "", err
	}
	var (
		nets []*net.IPNet
		key  strings.Builder
	)
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() || ipnet.IP.To4() == nil {
			continue
		}
		nets = append(nets, ipnet)
		key.WriteString(ipnet.String())
		key.WriteString(";")
	}
	return nets, key.String(), nil
}

// SubnetHosts enumerates host addresses of an IPv4 network.
// Networks wider than /24 are capped at 254 hosts to keep sweeps short.
func SubnetHosts(ipnet *net.IPNet) []string {
	var ips []string
	ip := ipnet.IP.To4()
	if ip == nil {
		return ips
	}

	mask := ipnet.Mask
	network := ip.Mask(mask)

	ones, bits := mask.Size()
	if bits != 32 {
		return ips
	}
	hostBits := 32 - ones

	maxHosts := 254
	if hostBits < 8 {
		maxHosts = (1 << hostBits) - 2 // -2 for network and broadcast
	}

	for i := 1; i <= maxHosts; i++ {
		host := make(net.IP, 4)
		copy(host, network)
		host[3] = network[3] + byte(i&0xff)
		if hostBits > 8 {
			host[2] = network[2] + byte((i>>8)&0xff)
		}
		if host.Equal(network) {
			continue
		}
		ips = append(ips, host.String())
	}
	return ips
}
