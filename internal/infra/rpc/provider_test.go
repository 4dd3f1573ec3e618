package rpc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHTTPProviderCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"0x10"}`))
	}))
	defer server.Close()

	p := NewHTTPProvider("test", server.URL, 5*time.Second)
	defer p.Close()

	result, err := p.Call(context.Background(), "eth_blockNumber", []any{})
	if err != nil {
		t.Fatal(err)
	}
	if result != "0x10" {
		t.Fatalf("result = %v, want 0x10", result)
	}
}

func TestHTTPProviderNullResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":null}`))
	}))
	defer server.Close()

	p := NewHTTPProvider("test", server.URL, 5*time.Second)
	defer p.Close()

	result, err := p.Call(context.Background(), "eth_getBlockByNumber", []any{"0xfff", true})
	if err != nil {
		t.Fatal(err)
	}
	if result != nil {
		t.Fatalf("result = %v, want nil", result)
	}
}

func TestHTTPProviderRPCError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32000,"message":"header not found"}}`))
	}))
	defer server.Close()

	p := NewHTTPProvider("test", server.URL, 5*time.Second)
	defer p.Close()

	_, err := p.Call(context.Background(), "eth_getBlockByNumber", []any{"0x1", true})
	if err == nil || !strings.Contains(err.Error(), "header not found") {
		t.Fatalf("err = %v, want rpc error message", err)
	}
}

func TestHTTPProviderMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>bad gateway</html>`))
	}))
	defer server.Close()

	p := NewHTTPProvider("test", server.URL, 5*time.Second)
	defer p.Close()

	_, err := p.Call(context.Background(), "eth_blockNumber", []any{})
	if err == nil || !strings.Contains(strings.ToLower(err.Error()), "invalid json rpc response") {
		t.Fatalf("err = %v, want invalid JSON RPC response", err)
	}
}

func TestHTTPProviderNon200Status(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	p := NewHTTPProvider("test", server.URL, 5*time.Second)
	defer p.Close()

	_, err := p.Call(context.Background(), "eth_blockNumber", []any{})
	if err == nil || !strings.Contains(strings.ToLower(err.Error()), "invalid json rpc response") {
		t.Fatalf("err = %v, want invalid JSON RPC response", err)
	}
}

func TestHTTPProviderTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	p := NewHTTPProvider("test", server.URL, 20*time.Millisecond)
	defer p.Close()

	_, err := p.Call(context.Background(), "eth_blockNumber", []any{})
	if err == nil || !strings.Contains(strings.ToLower(err.Error()), "connection timeout") {
		t.Fatalf("err = %v, want connection timeout", err)
	}
}
