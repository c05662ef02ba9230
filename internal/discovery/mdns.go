// ABOUTME: mDNS advertisement and browsing of player remote control services
// ABOUTME: Players advertise _soundbuffer._tcp; remote tools browse or look them up
package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/Sendspin/soundbuffer-go/internal/version"
	"github.com/hashicorp/mdns"
)

// ServiceType is the DNS-SD service players advertise
const ServiceType = "_soundbuffer._tcp"

// DefaultQueryTimeout bounds one browse query
const DefaultQueryTimeout = 3 * time.Second

// Config holds discovery configuration
type Config struct {
	ServiceName string
	Port        int
	// Path is the remote control endpoint advertised in TXT
	Path string
}

// Manager handles mDNS operations
type Manager struct {
	config  Config
	ctx     context.Context
	cancel  context.CancelFunc
	players chan *PlayerInfo
	logger  *slog.Logger

	mu     sync.Mutex
	server *mdns.Server
}

// PlayerInfo describes a discovered player
type PlayerInfo struct {
	Name string
	Host string
	Port int
	Path string
}

// Addr returns host:port
func (p PlayerInfo) Addr() string {
	return net.JoinHostPort(p.Host, fmt.Sprint(p.Port))
}

// NewManager creates a discovery manager
func NewManager(config Config) *Manager {
	if config.ServiceName == "" {
		config.ServiceName = version.Product
	}
	if config.Path == "" {
		config.Path = "/control"
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		config:  config,
		ctx:     ctx,
		cancel:  cancel,
		players: make(chan *PlayerInfo, 10),
		logger:  slog.Default().With("mdns service", config.ServiceName),
	}
}

// Advertise advertises this player via mDNS until Stop
func (m *Manager) Advertise() error {
	if m.config.Port <= 0 {
		return fmt.Errorf("cannot advertise port %d", m.config.Port)
	}

	ips, err := getLocalIPs()
	if err != nil {
		return fmt.Errorf("failed to get local IPs: %w", err)
	}

	service, err := mdns.NewMDNSService(
		m.config.ServiceName,
		ServiceType,
		"",
		"",
		m.config.Port,
		ips,
		[]string{"path=" + m.config.Path, "version=" + version.Version},
	)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("failed to create mdns server: %w", err)
	}

	m.mu.Lock()
	m.server = server
	m.mu.Unlock()

	m.logger.Info("advertising mDNS service", "port", m.config.Port, "type", ServiceType)

	go func() {
		<-m.ctx.Done()
		server.Shutdown()
	}()

	return nil
}

// Browse searches for players until Stop
func (m *Manager) Browse() error {
	go m.browseLoop()
	return nil
}

func (m *Manager) browseLoop() {
	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		entries := make(chan *mdns.ServiceEntry, 10)
		done := make(chan struct{})

		go func() {
			defer close(done)
			for entry := range entries {
				player, ok := playerFromEntry(entry)
				if !ok {
					continue
				}
				m.logger.Debug("discovered player", "name", player.Name, "addr", player.Addr())

				select {
				case m.players <- player:
				case <-m.ctx.Done():
				}
			}
		}()

		if err := mdns.Query(queryParams(entries, DefaultQueryTimeout)); err != nil {
			m.logger.Warn("mDNS query failed", "error", err)
		}
		close(entries)
		<-done
	}
}

// Players returns the channel of discovered players
func (m *Manager) Players() <-chan *PlayerInfo {
	return m.players
}

// Stop ends advertising and browsing
func (m *Manager) Stop() {
	m.cancel()
}

// ErrNotFound is returned by Lookup when no player answers
var ErrNotFound = errors.New("no player found")

// Lookup runs one query and returns the first player named name, or any
// player when name is empty
func Lookup(ctx context.Context, name string, timeout time.Duration) (*PlayerInfo, error) {
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	entries := make(chan *mdns.ServiceEntry, 10)
	found := make(chan *PlayerInfo, 1)

	go func() {
		for entry := range entries {
			player, ok := playerFromEntry(entry)
			if !ok || !matchesName(player, name) {
				continue
			}
			select {
			case found <- player:
			default:
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- mdns.Query(queryParams(entries, timeout))
		close(entries)
	}()

	select {
	case p := <-found:
		return p, nil
	case err := <-errCh:
		if err != nil {
			return nil, fmt.Errorf("mDNS query failed: %w", err)
		}
		select {
		case p := <-found:
			return p, nil
		default:
			return nil, ErrNotFound
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func queryParams(entries chan *mdns.ServiceEntry, timeout time.Duration) *mdns.QueryParam {
	return &mdns.QueryParam{
		Service: ServiceType,
		Domain:  "local",
		Timeout: timeout,
		Entries: entries,
	}
}

// playerFromEntry filters answers for other services and entries with no
// usable IPv4 address
func playerFromEntry(entry *mdns.ServiceEntry) (*PlayerInfo, bool) {
	if entry == nil || entry.AddrV4 == nil || entry.Port == 0 {
		return nil, false
	}
	if !strings.Contains(entry.Name, ServiceType) {
		return nil, false
	}

	player := &PlayerInfo{
		Name: instanceName(entry.Name),
		Host: entry.AddrV4.String(),
		Port: entry.Port,
		Path: "/control",
	}
	for _, field := range entry.InfoFields {
		if v, ok := strings.CutPrefix(field, "path="); ok && v != "" {
			player.Path = v
		}
	}
	return player, true
}

// instanceName strips the service suffix from a full DNS-SD name
func instanceName(full string) string {
	if i := strings.Index(full, "."+ServiceType); i >= 0 {
		full = full[:i]
	}
	return strings.ReplaceAll(full, `\ `, " ")
}

func matchesName(p *PlayerInfo, name string) bool {
	return name == "" || strings.EqualFold(p.Name, name)
}

// getLocalIPs returns local IP addresses
func getLocalIPs() ([]net.IP, error) {
	var ips []net.IP

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
				if ipnet.IP.To4() != nil {
					ips = append(ips, ipnet.IP)
				}
			}
		}
	}

	return ips, nil
}
