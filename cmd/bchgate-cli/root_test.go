package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Klingon-tech/bchgate/internal/gateway"
)

const (
	generatorPub  = "0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"
	generatorAddr = "bitcoincash:qp63uahgrxged4z5jswyt5dn5v3lzsem6cy4spdc2h"
	spendTxID     = "aa00000000000000000000000000000000000000000000000000000000000001"
)

// fakeBackend serves both the node RPC (POST) and the history indexer (GET).
func fakeBackend(t *testing.T) *httptest.Server {
	t.Helper()
	sig := "47" + "30" + strings.Repeat("11", 70)
	scriptSig := sig + "21" + generatorPub
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodGet {
			w.Write([]byte(`{"success":true,"transactions":[{"height":100,"tx_hash":"` + spendTxID + `"}]}`))
			return
		}
		var req struct {
			Method string `json:"method"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		switch req.Method {
		case "getblockcount":
			w.Write([]byte(`{"result":850000,"error":null,"id":1}`))
		case "getrawtransaction":
			w.Write([]byte(`{"result":{"txid":"` + spendTxID + `","vin":[{"txid":"` +
				strings.Repeat("bb", 32) + `","vout":0,"scriptSig":{"asm":"","hex":"` + scriptSig +
				`"}}],"vout":[]},"error":null,"id":1}`))
		default:
			w.Write([]byte(`{"result":null,"error":{"code":-32601,"message":"Method not found"},"id":1}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--datadir", t.TempDir(), "--log-level", "off"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestAddressCmd(t *testing.T) {
	out, err := run(t, "address", "qp63uahgrxged4z5jswyt5dn5v3lzsem6cy4spdc2h")
	if err != nil {
		t.Fatalf("address: %v", err)
	}
	var got map[string]string
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if got["cashaddr"] != generatorAddr {
		t.Errorf("cashaddr = %s", got["cashaddr"])
	}
	if got["legacy"] != "1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMH" {
		t.Errorf("legacy = %s", got["legacy"])
	}
}

func TestAddressCmd_Invalid(t *testing.T) {
	if _, err := run(t, "address", "bitcoincash:qqqq"); err == nil {
		t.Fatal("expected error")
	}
}

func TestPubKeyCmd(t *testing.T) {
	backend := fakeBackend(t)
	out, err := run(t, "--node-url", backend.URL, "--indexer-url", backend.URL, "pubkey", generatorAddr)
	if err != nil {
		t.Fatalf("pubkey: %v", err)
	}
	var resp gateway.PubKeyResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if !resp.Success || resp.PublicKey != generatorPub {
		t.Errorf("resp = %+v", resp)
	}
}

func TestPubKeyCmd_NotFound(t *testing.T) {
	backend := fakeBackend(t)
	out, err := run(t, "--node-url", backend.URL, "--indexer-url", backend.URL,
		"pubkey", "qr6m7j9njldwwzlg9v7v53unlr4jkmx6eylep8ekg2")
	if err != nil {
		t.Fatalf("pubkey: %v", err)
	}
	var resp gateway.PubKeyResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if resp.Success || !strings.Contains(resp.Error, "exhausted") {
		t.Errorf("resp = %+v", resp)
	}
}

func TestStatusCmd(t *testing.T) {
	backend := fakeBackend(t)
	out, err := run(t, "--node-url", backend.URL, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, `"height": 850000`) {
		t.Errorf("output = %s", out)
	}
}

func TestTokenCmd_NoIndexer(t *testing.T) {
	_, err := run(t, "token", strings.Repeat("ab", 32))
	if err == nil || !strings.Contains(err.Error(), "token indexer") {
		t.Fatalf("err = %v", err)
	}
}

func TestRootCmd_BadFlags(t *testing.T) {
	if _, err := run(t, "--log-level", "loud", "address", generatorAddr); err == nil {
		t.Error("expected error for bad log level")
	}
	if _, err := run(t, "--lookahead", "99", "address", generatorAddr); err == nil {
		t.Error("expected error for lookahead above limit")
	}
	if _, err := run(t, "pubkey"); err == nil {
		t.Error("expected error for missing argument")
	}
}
