package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pvkey-address/config"
	"pvkey-address/log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	keyOne  = "0x0000000000000000000000000000000000000000000000000000000000000001"
	keyTwo  = "0000000000000000000000000000000000000000000000000000000000000002"
	addrOne = "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf"
	addrTwo = "0x2B5AD5c4795c026514f8317c7a215E218DcCD6cF"
)

func writeKeys(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pvkey.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o600))
	return path
}

func testConfig(keysFile string) *config.Config {
	cfg := config.Default()
	cfg.KeysFile = keysFile
	return cfg
}

func TestRunPrintsValidAddressesInOrder(t *testing.T) {
	path := writeKeys(t,
		"  "+keyTwo+"  ",
		"not-a-key",
		"",
		"0x1234",
		"\t",
		keyOne,
		"0xzz00000000000000000000000000000000000000000000000000000000000001",
	)

	var stdout bytes.Buffer
	require.NoError(t, run(context.Background(), testConfig(path), &stdout))

	assert.Equal(t, addrTwo+"\n"+addrOne+"\n", stdout.String())
}

func TestRunSkipsOversizedLine(t *testing.T) {
	path := writeKeys(t, keyOne, strings.Repeat("z", 2<<20), keyTwo)

	var stdout bytes.Buffer
	require.NoError(t, run(context.Background(), testConfig(path), &stdout))

	assert.Equal(t, addrOne+"\n"+addrTwo+"\n", stdout.String())
}

func TestRunOnlyInvalidKeysPrintsNothing(t *testing.T) {
	path := writeKeys(t, "not-a-key", "", "# comment")

	var stdout bytes.Buffer
	require.NoError(t, run(context.Background(), testConfig(path), &stdout))
	assert.Empty(t, stdout.String())
}

func TestRunMissingKeysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.txt")

	var stdout bytes.Buffer
	err := run(context.Background(), testConfig(path), &stdout)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Empty(t, stdout.String())
}

func TestRootCommandKeysFileFlag(t *testing.T) {
	path := writeKeys(t, keyOne, "garbage", keyTwo)

	var stdout bytes.Buffer
	cmd := newRootCmd(&stdout, io.Discard)
	cmd.SetArgs([]string{"--keys-file", path, "--log-level", "off"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	assert.Equal(t, addrOne+"\n"+addrTwo+"\n", stdout.String())
}

func TestRootCommandRejectsBadFlags(t *testing.T) {
	var stdout bytes.Buffer
	cmd := newRootCmd(&stdout, io.Discard)
	cmd.SetArgs([]string{"--keys-file", writeKeys(t, keyOne), "--concurrency", "0"})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.ExecuteContext(context.Background())
	require.EqualError(t, err, "concurrency must be greater than 0")
	assert.Empty(t, stdout.String())
}

func TestRootCommandLogsConfigLoadAtDebug(t *testing.T) {
	keys := writeKeys(t, keyOne)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("keysFile: "+keys+"\n"), 0o600))

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	t.Cleanup(func() { log.Init(io.Discard, "warn", false) })
	cmd.SetArgs([]string{"--config", cfgPath, "--log-level", "debug", "--log-json"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	assert.Equal(t, addrOne+"\n", stdout.String())
	assert.Contains(t, stderr.String(), `"message":"Loaded config file"`)
	assert.Contains(t, stderr.String(), `"component":"config"`)
}

type rpcRequest struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Params []any           `json:"params"`
}

// newFakeRPC answers eth_getBalance with one ether for addrOne and zero
// otherwise, and eth_getTransactionCount with 3.
func newFakeRPC(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		var result string
		switch req.Method {
		case "eth_getBalance":
			result = "0x0"
			if addr, _ := req.Params[0].(string); strings.EqualFold(addr, addrOne) {
				result = "0xde0b6b3a7640000"
			}
		case "eth_getTransactionCount":
			result = "0x3"
		default:
			http.Error(w, "unexpected method "+req.Method, http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  result,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRunWithProviderPrintsAccounts(t *testing.T) {
	srv := newFakeRPC(t)
	path := writeKeys(t, keyOne, "nope", keyTwo)

	cfg := testConfig(path)
	cfg.ProviderURLs = []string{srv.URL}

	var stdout bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, &stdout))

	assert.Equal(t, addrOne+"\t1\t3\n"+addrTwo+"\t0\t3\n", stdout.String())
}

func TestRunWithBadProviderURL(t *testing.T) {
	cfg := testConfig(writeKeys(t, keyOne))
	cfg.ProviderURLs = []string{"ftp://nowhere"}

	var stdout bytes.Buffer
	err := run(context.Background(), cfg, &stdout)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to initialize client pool")
	assert.Empty(t, stdout.String())
}
