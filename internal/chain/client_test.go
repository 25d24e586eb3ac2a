package chain

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type recordingObserver struct {
	ops  []string
	errs []error
}

func (o *recordingObserver) Observe(operation string, err error, _ time.Time) {
	o.ops = append(o.ops, operation)
	o.errs = append(o.errs, err)
}

// newNode serves abci_query; respond returns the ResponseBase JSON for a query
// or a negative status to fail the HTTP request.
func newNode(t *testing.T, respond func(query string) (int, string)) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)

		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		require.Equal(t, "abci_query", req.Method)
		require.Len(t, req.Params, 4)

		var path, data, height string
		require.NoError(t, json.Unmarshal(req.Params[0], &path))
		require.NoError(t, json.Unmarshal(req.Params[1], &data))
		require.NoError(t, json.Unmarshal(req.Params[2], &height))
		require.Equal(t, "vm/qeval", path)
		require.Equal(t, "0", height)
		query, err := base64.StdEncoding.DecodeString(data)
		require.NoError(t, err)

		status, base := respond(string(query))
		if status != http.StatusOK {
			http.Error(w, "unavailable", status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":` + string(req.ID) +
			`,"result":{"response":{"ResponseBase":` + base + `,"Height":"100"}}}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func okBase(dump string) string {
	return `{"Error":null,"Data":"` + base64.StdEncoding.EncodeToString([]byte(dump)) + `","Log":""}`
}

func TestQEval(t *testing.T) {
	srv, calls := newNode(t, func(query string) (int, string) {
		if query == "gno.land/r/demo/bounty.GetBountyCount()" {
			return http.StatusOK, okBase("(3 uint64)")
		}
		return http.StatusOK, okBase("")
	})

	obs := &recordingObserver{}
	client, err := NewClient(context.Background(), srv.URL, Options{Metrics: obs})
	require.NoError(t, err)
	defer client.Close()

	dump, err := client.QEval(context.Background(), "gno.land/r/demo/bounty", "GetBountyCount()")
	require.NoError(t, err)
	assert.Equal(t, "(3 uint64)", dump)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
	assert.Equal(t, []string{"GetBountyCount"}, obs.ops)
	assert.Equal(t, []error{nil}, obs.errs)
}

func TestQEvalEvalErrorIsNotRetried(t *testing.T) {
	srv, calls := newNode(t, func(string) (int, string) {
		return http.StatusOK, `{"Error":{"@type":"/vm.InvalidExprError"},"Data":null,"Log":"unknown function GetNothing"}`
	})

	client, err := NewClient(context.Background(), srv.URL, Options{MaxRetries: 3, RetryBackoff: time.Millisecond})
	require.NoError(t, err)
	defer client.Close()

	_, err = client.QEval(context.Background(), "gno.land/r/demo/bounty", "GetNothing()")
	require.Error(t, err)

	var evalErr *EvalError
	require.True(t, errors.As(err, &evalErr))
	assert.Equal(t, "GetNothing()", evalErr.Expr)
	assert.Equal(t, "unknown function GetNothing", evalErr.Log)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestQEvalRetriesTransportFailures(t *testing.T) {
	var attempts int32
	srv, calls := newNode(t, func(string) (int, string) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return http.StatusServiceUnavailable, ""
		}
		return http.StatusOK, okBase("(1 uint64)")
	})

	client, err := NewClient(context.Background(), srv.URL, Options{MaxRetries: 3, RetryBackoff: time.Millisecond, RateLimit: 1000})
	require.NoError(t, err)
	defer client.Close()

	dump, err := client.QEval(context.Background(), "gno.land/r/demo/bounty", "GetBounty(1)")
	require.NoError(t, err)
	assert.Equal(t, "(1 uint64)", dump)
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))
}

func TestQEvalGivesUpAfterRetries(t *testing.T) {
	srv, calls := newNode(t, func(string) (int, string) {
		return http.StatusBadGateway, ""
	})

	obs := &recordingObserver{}
	client, err := NewClient(context.Background(), srv.URL, Options{MaxRetries: 1, RetryBackoff: time.Millisecond, Metrics: obs})
	require.NoError(t, err)
	defer client.Close()

	_, err = client.QEval(context.Background(), "gno.land/r/demo/bounty", "GetLeaderboard()")
	require.Error(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(calls))
	require.Len(t, obs.errs, 1)
	assert.Error(t, obs.errs[0])
}

func TestWithRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var attempts int
	err := withRetry(ctx, 5, time.Hour, func(context.Context) error {
		attempts++
		cancel()
		return errors.New("down")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestOperationName(t *testing.T) {
	assert.Equal(t, "GetBounty", operationName("GetBounty(12)"))
	assert.Equal(t, "GetBountyCount", operationName(" GetBountyCount() "))
	assert.Equal(t, "Render", operationName("Render"))
}
