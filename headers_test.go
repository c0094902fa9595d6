package trino

import (
	"reflect"
	"testing"
)

func TestHeaderCodecEncodeBaseline(t *testing.T) {
	session := NewClientSession("memory", "default", "test-src", "alice")
	session.ClientTags = []string{"a", "b"}

	h, err := (HeaderCodec{}).Encode(session)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	for header, want := range map[string]string{
		HeaderCatalog:     "memory",
		HeaderSchema:      "default",
		HeaderSource:      "test-src",
		HeaderUser:        "alice",
		HeaderClientTags:  "a,b",
		HeaderTransaction: NoTransaction,
	} {
		if got := h.Get(header); got != want {
			t.Errorf("header %s = %q, want %q", header, got, want)
		}
	}
}

func TestHeaderCodecEncodeRejectsReservedCollision(t *testing.T) {
	session := NewClientSession("memory", "default", "test", "alice")
	session.Headers = map[string]string{"X-Trino-User": "mallory"}

	_, err := (HeaderCodec{}).Encode(session)
	if _, ok := err.(*ConfigurationError); !ok {
		t.Fatalf("Encode() error = %v, want *ConfigurationError", err)
	}
}

func TestSessionPropertiesRoundTrip(t *testing.T) {
	session := NewClientSession("memory", "default", "test", "alice")
	session.SetProperty("k", "v 1")
	session.SetProperty("other", "x=y")

	h, err := (HeaderCodec{}).Encode(session)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	decoded, err := DecodeSessionProperties(h.Get(HeaderSession))
	if err != nil {
		t.Fatalf("DecodeSessionProperties() error = %v", err)
	}

	if !reflect.DeepEqual(decoded, session.Properties()) {
		t.Errorf("round-tripped properties = %#v, want %#v", decoded, session.Properties())
	}
}

func TestHeaderCodecEncodeSessionPropertiesValue(t *testing.T) {
	session := NewClientSession("memory", "default", "test", "alice")
	session.SetProperty("k", "v 1")

	h, err := (HeaderCodec{}).Encode(session)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	if got, want := h.Get(HeaderSession), "k=v%201"; got != want {
		t.Errorf("X-Trino-Session = %q, want %q", got, want)
	}
}

func TestApplyResponseDirectivesClearsBeforeSetting(t *testing.T) {
	session := NewClientSession("memory", "default", "test", "alice")
	session.SetProperty("k", "old")

	header := make(map[string][]string)
	header[HeaderClearSession] = []string{"k"}
	header[HeaderSetSession] = []string{"k=new"}

	if err := (HeaderCodec{}).ApplyResponseDirectives(session, header); err != nil {
		t.Fatalf("ApplyResponseDirectives() error = %v", err)
	}

	if got := session.Properties()["k"]; got != "new" {
		t.Errorf("properties[k] = %q, want %q (clear must apply before set)", got, "new")
	}
}

func TestApplyResponseDirectivesClearOnly(t *testing.T) {
	session := NewClientSession("memory", "default", "test", "alice")
	session.SetProperty("k", "v")

	header := make(map[string][]string)
	header[HeaderClearSession] = []string{"k"}

	if err := (HeaderCodec{}).ApplyResponseDirectives(session, header); err != nil {
		t.Fatalf("ApplyResponseDirectives() error = %v", err)
	}

	if _, ok := session.Properties()["k"]; ok {
		t.Error("expected property k to be cleared")
	}
}

func TestApplyResponseDirectivesStartedTransaction(t *testing.T) {
	session := NewClientSession("memory", "default", "test", "alice")

	header := make(map[string][]string)
	header[HeaderStartedTransactionID] = []string{"txn-1"}

	if err := (HeaderCodec{}).ApplyResponseDirectives(session, header); err != nil {
		t.Fatalf("ApplyResponseDirectives() error = %v", err)
	}

	if got := session.TransactionID(); got != "txn-1" {
		t.Errorf("TransactionID() = %q, want %q", got, "txn-1")
	}
}
