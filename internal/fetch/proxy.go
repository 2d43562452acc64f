package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/net/proxy"
)

// checkProxyTimeout bounds the SOCKS5 greeting of CheckSOCKSProxy.
const checkProxyTimeout = 2 * time.Second

// SOCKS5 greeting bytes.
const (
	socks5Version  = 0x05
	socks5AuthNone = 0x00
)

// ErrInvalidProxyAddress is returned for a proxy address that is not
// "host:port" with a port in 1-65535.
var ErrInvalidProxyAddress = errors.New("invalid proxy address (expected host:port)")

// ErrProxyUnavailable is returned when the proxy does not answer a SOCKS5
// greeting without authentication.
var ErrProxyUnavailable = errors.New("SOCKS5 proxy unavailable")

// NewSOCKSHTTPClient creates an HTTP client that routes every connection
// through the SOCKS5 proxy at proxyAddress. Headers are injected as in
// NewHTTPClient.
//
// Design decision: The proxy is not contacted here. Call CheckSOCKSProxy
// to verify it before a run.
func NewSOCKSHTTPClient(proxyAddress string, headers map[string]string) (*http.Client, error) {
	if !isValidProxyAddress(proxyAddress) {
		return nil, ErrInvalidProxyAddress
	}

	dialer, err := proxy.SOCKS5("tcp", proxyAddress, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}

	client := NewHTTPClient(headers)
	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			if cd, ok := dialer.(proxy.ContextDialer); ok {
				return cd.DialContext(ctx, network, addr)
			}
			return dialer.Dial(network, addr)
		},
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	if len(headers) > 0 {
		client.Transport = &headerInjectingTransport{base: transport, headers: headers}
	} else {
		client.Transport = transport
	}
	return client, nil
}

// CheckSOCKSProxy performs a SOCKS5 greeting with proxyAddress and reports
// whether it accepts unauthenticated connections.
func CheckSOCKSProxy(ctx context.Context, proxyAddress string) error {
	if !isValidProxyAddress(proxyAddress) {
		return ErrInvalidProxyAddress
	}

	ctx, cancel := context.WithTimeout(ctx, checkProxyTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", proxyAddress)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrProxyUnavailable, err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(checkProxyTimeout)); err != nil {
		return fmt.Errorf("%w: %w", ErrProxyUnavailable, err)
	}

	// version, one method, no authentication
	if _, err := conn.Write([]byte{socks5Version, 0x01, socks5AuthNone}); err != nil {
		return fmt.Errorf("%w: %w", ErrProxyUnavailable, err)
	}

	resp := make([]byte, 2)
	if _, err := io.ReadFull(conn, resp); err != nil {
		return fmt.Errorf("%w: %w", ErrProxyUnavailable, err)
	}
	if resp[0] != socks5Version || resp[1] != socks5AuthNone {
		return fmt.Errorf("%w: unexpected greeting reply %#x %#x", ErrProxyUnavailable, resp[0], resp[1])
	}
	return nil
}

// isValidProxyAddress checks for "host:port" with a numeric port.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 1 && n <= 65535
}
