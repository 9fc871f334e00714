package voiceai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPClientSendUtterance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/sessions/sess-1/utterances" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key-1" {
			t.Errorf("authorization = %q", got)
		}
		var req UtteranceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.Text != "how much is it" {
			t.Errorf("text = %q", req.Text)
		}
		json.NewEncoder(w).Encode(Reply{Text: "It starts at $49.", Intent: "pricing", Confidence: 0.92})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "key-1", 2*time.Second)
	reply, err := c.SendUtterance(context.Background(), UtteranceRequest{SessionID: "sess-1", Text: "how much is it"})
	if err != nil {
		t.Fatalf("send utterance: %v", err)
	}
	if reply.Text != "It starts at $49." || reply.Intent != "pricing" {
		t.Fatalf("reply = %+v", reply)
	}
}

func TestHTTPClientCreateSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"session_id": "sess-9"})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "", 2*time.Second)
	id, err := c.CreateSession(context.Background(), SessionRequest{Persona: "friendly closer"})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if id != "sess-9" {
		t.Fatalf("session id = %q", id)
	}
}

func TestHTTPClientServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream overloaded", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "", 2*time.Second)
	_, err := c.SendUtterance(context.Background(), UtteranceRequest{SessionID: "s", Text: "hi"})
	if err == nil {
		t.Fatal("want error")
	}
	if !IsTransient(err) {
		t.Fatalf("err %v not classified transient", err)
	}
}

func TestHTTPClientClientErrorNotTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad session", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "", 2*time.Second)
	_, err := c.SendUtterance(context.Background(), UtteranceRequest{SessionID: "gone", Text: "hi"})
	if err == nil {
		t.Fatal("want error")
	}
	if IsTransient(err) {
		t.Fatalf("4xx must not be transient: %v", err)
	}
}
