package nis

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gabapcia/nemwatch/internal/monitor"
	"github.com/gabapcia/nemwatch/internal/network"
	"github.com/gabapcia/nemwatch/internal/pkg/transport/jsonhttp"
)

// heartbeatOK is the code of a heartbeat answered by a running node.
const heartbeatOK = 1

// ErrNodeUnhealthy is returned when a node answers its heartbeat with
// anything other than ok.
var ErrNodeUnhealthy = errors.New("node is not healthy")

// Heartbeat is the answer of GET /heartbeat.
type Heartbeat struct {
	Code    int    `json:"code"`
	Type    int    `json:"type"`
	Message string `json:"message"`
}

// ChainHeight is the answer of GET /chain/height.
type ChainHeight struct {
	Height uint64 `json:"height"`
}

// nodeClient calls the REST API of the node named by each request.
type nodeClient struct {
	httpClient *http.Client
}

var _ monitor.NodeProbe = (*nodeClient)(nil)

// NewNodeClient returns a client for the REST API of NIS nodes. Pass the
// standard client of a retryablehttp.Client to get retries.
func NewNodeClient(httpClient *http.Client) *nodeClient {
	return &nodeClient{
		httpClient: httpClient,
	}
}

func (c *nodeClient) conn(params network.Params, endpoint monitor.Endpoint) jsonhttp.Client {
	return jsonhttp.NewClient(c.httpClient, params.HTTPURL(endpoint.Host, endpoint.Port))
}

// Heartbeat asks the node whether it is up.
func (c *nodeClient) Heartbeat(ctx context.Context, params network.Params, endpoint monitor.Endpoint) (Heartbeat, error) {
	var hb Heartbeat
	if err := c.conn(params, endpoint).Get(ctx, "/heartbeat", nil, &hb); err != nil {
		return Heartbeat{}, err
	}
	return hb, nil
}

// ChainHeight returns the height of the node's chain.
func (c *nodeClient) ChainHeight(ctx context.Context, params network.Params, endpoint monitor.Endpoint) (uint64, error) {
	var h ChainHeight
	if err := c.conn(params, endpoint).Get(ctx, "/chain/height", nil, &h); err != nil {
		return 0, err
	}
	return h.Height, nil
}

// Probe fails unless the node answers its heartbeat with ok.
func (c *nodeClient) Probe(ctx context.Context, params network.Params, endpoint monitor.Endpoint) error {
	hb, err := c.Heartbeat(ctx, params, endpoint)
	if err != nil {
		return err
	}

	if hb.Code != heartbeatOK {
		return fmt.Errorf("%w: [%d] %s", ErrNodeUnhealthy, hb.Code, hb.Message)
	}
	return nil
}
