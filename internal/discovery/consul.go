package discovery

import (
	"fmt"
	"net"
	"os"
	"strconv"

	consul "github.com/hashicorp/consul/api"
	"go.uber.org/zap"

	"github.com/DoyleJ11/arena-server/internal/config"
)

// Register announces this server to the local Consul agent with an HTTP
// health check on /healthz. The returned func deregisters it.
func Register(cfg config.ConsulConfig, bindAddress string, log *zap.Logger) (func() error, error) {
	if log == nil {
		log = zap.NewNop()
	}
	cc := consul.DefaultConfig()
	cc.Address = cfg.Addr

	client, err := consul.NewClient(cc)
	if err != nil {
		return nil, fmt.Errorf("consul client: %w", err)
	}

	reg, err := buildRegistration(cfg, bindAddress)
	if err != nil {
		return nil, err
	}
	if err := client.Agent().ServiceRegister(reg); err != nil {
		return nil, fmt.Errorf("consul register: %w", err)
	}
	log.Info("registered with consul", zap.String("id", reg.ID), zap.String("addr", cc.Address))

	return func() error {
		return client.Agent().ServiceDeregister(reg.ID)
	}, nil
}

func buildRegistration(cfg config.ConsulConfig, bindAddress string) (*consul.AgentServiceRegistration, error) {
	_, portStr, err := net.SplitHostPort(bindAddress)
	if err != nil {
		return nil, fmt.Errorf("bind address %q: %w", bindAddress, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("bind port %q: %w", portStr, err)
	}

	host := cfg.AdvertiseHost
	if host == "" {
		// The hostname is resolvable inside a compose or k8s network.
		host, _ = os.Hostname()
	}
	id := cfg.ServiceID
	if id == "" {
		id = fmt.Sprintf("%s-%s-%d", cfg.ServiceName, host, port)
	}

	return &consul.AgentServiceRegistration{
		ID:      id,
		Name:    cfg.ServiceName,
		Address: host,
		Port:    port,
		Tags:    []string{"websocket"},
		Check: &consul.AgentServiceCheck{
			HTTP:                           fmt.Sprintf("http://%s/healthz", net.JoinHostPort(host, portStr)),
			Interval:                       cfg.CheckInterval.String(),
			Timeout:                        "5s",
			DeregisterCriticalServiceAfter: "1m",
		},
	}, nil
}
