package utils

import (
	"fmt"
	"net"
	"net/netip"
	"strings"
)

// IsValidIP reports whether s is a literal IPv4 or IPv6 address
func IsValidIP(s string) bool {
	if s == "" || strings.TrimSpace(s) != s {
		return false
	}
	_, err := netip.ParseAddr(s)
	return err == nil
}

// IsValidPort reports whether port is in 1..65535
func IsValidPort(port int) bool {
	return port >= 1 && port <= 65535
}

func GetLocalIPs(onlyIPv4 bool) ([]string, error) {
	var ips []string

	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, err
	}
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() {
			continue
		}

		ip := ipnet.IP
		if ip4 := ip.To4(); ip4 != nil {
			ips = append(ips, ip4.String())
			continue
		}
		if !onlyIPv4 && ip.To16() != nil {
			ips = append(ips, ip.String())
		}
	}

	if len(ips) == 0 {
		return nil, fmt.Errorf("no non-loopback interface addresses found")
	}
	return ips, nil
}
