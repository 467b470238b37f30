package server

import (
	"log/slog"
	"net"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/hashicorp/mdns"

	"github.com/bulktracker/btdash/internal/version"
)

const mdnsService = "_btdash._tcp"

// startMDNSAdvertiser announces the dashboard on the LAN. The returned
// function withdraws the announcement.
func startMDNSAdvertiser(serverAddr, instance, basePrefix string) func() {
	port, err := strconv.Atoi(listenPortFromAddr(serverAddr))
	if err != nil || port <= 0 {
		slog.Warn("mdns advertise skipped, no usable port", "addr", serverAddr)
		return func() {}
	}

	instance = strings.TrimSpace(instance)
	if instance == "" {
		host, _ := os.Hostname()
		instance = "btdash-" + strings.TrimSpace(host)
	}

	meta := []string{
		"name=btdash",
		"api_version=1",
		"version=" + version.Current(),
		"path=" + basePrefix,
	}
	service, err := mdns.NewMDNSService(instance, mdnsService, "", "", port, discoverAdvertiseIPs(), meta)
	if err != nil {
		slog.Error("mdns advertise service setup failed", "error", err)
		return func() {}
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		slog.Error("mdns advertise start failed", "error", err)
		return func() {}
	}
	slog.Info("mdns advertising enabled", "service", mdnsService, "instance", instance, "port", port)

	return func() {
		server.Shutdown()
	}
}

func discoverAdvertiseIPs() []net.IP {
	ifAddrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil
	}
	return filterAdvertiseIPs(ifAddrs)
}

// filterAdvertiseIPs keeps routable unicast addresses, IPv4 first.
func filterAdvertiseIPs(addrs []net.Addr) []net.IP {
	seen := map[string]struct{}{}
	var out []net.IP
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet == nil || ipNet.IP == nil {
			continue
		}
		ip := ipNet.IP
		if ip.IsLoopback() || ip.IsUnspecified() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
			continue
		}
		normalized := ip.To16()
		if normalized == nil {
			continue
		}
		if _, dup := seen[normalized.String()]; dup {
			continue
		}
		seen[normalized.String()] = struct{}{}
		out = append(out, normalized)
	}
	sort.Slice(out, func(i, j int) bool {
		ai, aj := out[i].To4() != nil, out[j].To4() != nil
		if ai != aj {
			return ai
		}
		return out[i].String() < out[j].String()
	})
	return out
}

// listenPortFromAddr extracts the port of a listen address such as ":8080"
// or "0.0.0.0:8080".
func listenPortFromAddr(addr string) string {
	addr = strings.TrimSpace(addr)
	switch {
	case addr == "":
		return "8080"
	case strings.HasPrefix(addr, ":"):
		return strings.TrimPrefix(addr, ":")
	case !strings.Contains(addr, ":"):
		return addr
	}
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return ""
	}
	return p
}
