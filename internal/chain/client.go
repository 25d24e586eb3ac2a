package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/ratelimit"
	"go.uber.org/zap"
)

const qevalPath = "vm/qeval"

// Observer receives one observation per QEval call.
type Observer interface {
	Observe(operation string, err error, started time.Time)
}

// Options tunes the client. Zero values disable the matching feature.
type Options struct {
	RateLimit    int
	MaxRetries   int
	RetryBackoff time.Duration
	CallTimeout  time.Duration
	Metrics      Observer
	Logger       *zap.Logger
}

// Client evaluates read-only realm expressions over the node's JSON-RPC
// abci_query endpoint.
type Client struct {
	rpcClient *rpc.Client
	limiter   ratelimit.Limiter
	opts      Options
	logger    *zap.Logger
}

// EvalError is returned when the node ran the query and reported an error.
// It is not retried.
type EvalError struct {
	Expr   string
	Log    string
	Detail string
}

func (e *EvalError) Error() string {
	msg := e.Log
	if msg == "" {
		msg = e.Detail
	}
	return fmt.Sprintf("qeval %s: %s", e.Expr, msg)
}

type abciQueryResult struct {
	Response struct {
		ResponseBase struct {
			Error json.RawMessage `json:"Error"`
			Data  []byte          `json:"Data"`
			Log   string          `json:"Log"`
		} `json:"ResponseBase"`
		Height string `json:"Height"`
	} `json:"response"`
}

// NewClient creates a new client from the RPC URL.
func NewClient(ctx context.Context, rpcURL string, opts Options) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	return newClient(rpcClient, opts), nil
}

func newClient(rpcClient *rpc.Client, opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	limiter := ratelimit.NewUnlimited()
	if opts.RateLimit > 0 {
		limiter = ratelimit.New(opts.RateLimit)
	}
	return &Client{
		rpcClient: rpcClient,
		limiter:   limiter,
		opts:      opts,
		logger:    logger.Named("chain"),
	}
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// QEval evaluates expr inside realm and returns the raw value dump.
func (c *Client) QEval(ctx context.Context, realm, expr string) (dump string, err error) {
	started := time.Now()
	operation := operationName(expr)
	if c.opts.Metrics != nil {
		defer func() { c.opts.Metrics.Observe(operation, err, started) }()
	}

	query := []byte(realm + "." + expr)
	err = withRetry(ctx, c.opts.MaxRetries, c.opts.RetryBackoff, func(ctx context.Context) error {
		c.limiter.Take()

		callCtx, cancel := c.callContext(ctx)
		defer cancel()

		var res abciQueryResult
		if err := c.rpcClient.CallContext(callCtx, &res, "abci_query", qevalPath, query, "0", false); err != nil {
			c.logger.Warn("qeval call failed", zap.String("operation", operation), zap.Error(err))
			return err
		}
		if evalErr := res.evalError(expr); evalErr != nil {
			return permanent(evalErr)
		}
		dump = string(res.Response.ResponseBase.Data)
		return nil
	})
	if err != nil {
		return "", err
	}
	return dump, nil
}

func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.opts.CallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.opts.CallTimeout)
}

func (r abciQueryResult) evalError(expr string) *EvalError {
	base := r.Response.ResponseBase
	raw := bytes.TrimSpace(base.Error)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	return &EvalError{Expr: expr, Log: strings.TrimSpace(base.Log), Detail: string(raw)}
}

// operationName returns the called function name, e.g. "GetBounty" for
// "GetBounty(3)".
func operationName(expr string) string {
	name := strings.TrimSpace(expr)
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = name[:i]
	}
	return name
}
