package trino

import (
	"context"
	"net"
	"os"

	"golang.org/x/net/proxy"
)

// socksProxyDialContext returns a DialContext function routing through
// the SOCKS5 proxy named by the SOCKS_PROXY environment variable (spec
// §6), or nil if that variable is unset so callers fall back to the
// default dialer.
func socksProxyDialContext() (func(ctx context.Context, network, addr string) (net.Conn, error), error) {
	address := os.Getenv("SOCKS_PROXY")
	if address == "" {
		return nil, nil
	}

	dialer, err := proxy.SOCKS5("tcp", address, nil, proxy.Direct)
	if err != nil {
		return nil, NewConfigurationError("building SOCKS5 proxy dialer: " + err.Error())
	}

	if ctxDialer, ok := dialer.(proxy.ContextDialer); ok {
		return ctxDialer.DialContext, nil
	}
	// proxy.SOCKS5 always returns a ContextDialer in practice, but fall
	// back to a context-ignorant adapter defensively.
	return func(_ context.Context, network, addr string) (net.Conn, error) {
		return dialer.Dial(network, addr)
	}, nil
}
