// Package network holds the connection defaults of the known NEM networks and
// the naming rules shared by every component that talks to a node: address
// normalisation, WebSocket URI construction and STOMP destination paths.
package network

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"slices"
	"strings"
)

// ErrUnknownNetwork is returned by Lookup for a name that is not registered.
var ErrUnknownNetwork = errors.New("unknown network")

// Notification channels published by a NIS node for an account.
const (
	ChannelUnconfirmed        = "unconfirmed"
	ChannelTransactions       = "transactions"
	ChannelRecentTransactions = "recenttransactions"
	ChannelAccount            = "account"
	ChannelMosaicsOwned       = "account/mosaic/owned"
	ChannelNamespacesOwned    = "account/namespace/owned"
)

// Channels lists every known account channel.
var Channels = []string{
	ChannelUnconfirmed,
	ChannelTransactions,
	ChannelRecentTransactions,
	ChannelAccount,
	ChannelMosaicsOwned,
	ChannelNamespacesOwned,
}

// Params are the defaults of one network.
type Params struct {
	Name          string // friendly name, e.g. "testnet"
	Version       byte   // network version byte, the first byte of every address
	AddressPrefix byte   // first character of every address on the network
	Port          string // default NIS REST port
	WSPort        string // default NIS WebSocket port
	WSScheme      string // "ws" or "wss"
	WSPath        string // path of the raw STOMP WebSocket endpoint
}

// WebSocketURI builds the URI of the node's STOMP endpoint for the given host and port.
func (p Params) WebSocketURI(host, wsPort string) string {
	u := url.URL{
		Scheme: p.WSScheme,
		Host:   net.JoinHostPort(host, wsPort),
		Path:   p.WSPath,
	}
	return u.String()
}

// HTTPURL builds the base URL of the node's REST API.
func (p Params) HTTPURL(host, port string) string {
	u := url.URL{
		Scheme: "http",
		Host:   net.JoinHostPort(host, port),
	}
	return u.String()
}

const wsPath = "/w/messages/websocket"

var (
	Mainnet = Params{
		Name:          "mainnet",
		Version:       0x68,
		AddressPrefix: 'N',
		Port:          "7890",
		WSPort:        "7778",
		WSScheme:      "ws",
		WSPath:        wsPath,
	}

	Testnet = Params{
		Name:          "testnet",
		Version:       0x98,
		AddressPrefix: 'T',
		Port:          "7890",
		WSPort:        "7778",
		WSScheme:      "ws",
		WSPath:        wsPath,
	}

	Mijinnet = Params{
		Name:          "mijinnet",
		Version:       0x60,
		AddressPrefix: 'M',
		Port:          "7895",
		WSPort:        "7778",
		WSScheme:      "ws",
		WSPath:        wsPath,
	}
)

var registry = map[string]Params{
	Mainnet.Name:  Mainnet,
	Testnet.Name:  Testnet,
	Mijinnet.Name: Mijinnet,
}

// Lookup returns the params registered under name. Matching is case-insensitive.
func Lookup(name string) (Params, error) {
	p, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Params{}, fmt.Errorf("%w: %q", ErrUnknownNetwork, name)
	}
	return p, nil
}

// Names returns the registered network names in lexical order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// NormalizeAddress strips dashes and surrounding spaces from a NEM address and
// upper-cases it, which is the form the node uses in destinations and payloads.
func NormalizeAddress(address string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(address), "-", ""))
}

// Destination returns the STOMP destination the node publishes channel
// notifications for address on, e.g. "/unconfirmed/TALICE...".
func Destination(channel, address string) string {
	return "/" + strings.Trim(channel, "/") + "/" + address
}
