package trino

import (
	"reflect"
	"testing"
)

func TestClientSessionProperties(t *testing.T) {
	session := NewClientSession("memory", "default", "test", "alice")

	session.SetProperty("k", "v")
	got := session.Properties()
	want := map[string]string{"k": "v"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Properties() = %#v, want %#v", got, want)
	}

	session.ClearProperty("k")
	if got := session.Properties(); len(got) != 0 {
		t.Errorf("Properties() after clear = %#v, want empty", got)
	}
}

func TestClientSessionPropertiesReturnsCopy(t *testing.T) {
	session := NewClientSession("memory", "default", "test", "alice")
	session.SetProperty("k", "v")

	got := session.Properties()
	got["k"] = "mutated"

	if session.Properties()["k"] != "v" {
		t.Error("mutating the returned Properties map affected the session")
	}
}

func TestClientSessionTransactionIDDefaultsToNone(t *testing.T) {
	session := NewClientSession("memory", "default", "test", "alice")
	if got := session.TransactionID(); got != NoTransaction {
		t.Errorf("TransactionID() = %q, want %q", got, NoTransaction)
	}

	session.SetTransactionID("abc-123")
	if got := session.TransactionID(); got != "abc-123" {
		t.Errorf("TransactionID() = %q, want %q", got, "abc-123")
	}
}

func TestClientSessionSetExtraCredentialRejectsMalformedKey(t *testing.T) {
	session := NewClientSession("memory", "default", "test", "alice")

	tests := []struct {
		name string
		key  string
	}{
		{"empty", ""},
		{"whitespace", "bad key"},
		{"equals", "bad=key"},
		{"non-ascii", "badékey"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := session.SetExtraCredential([]ExtraCredential{{Key: test.key, Value: "v"}})
			if err == nil {
				t.Fatalf("SetExtraCredential(%q) = nil error, want ConfigurationError", test.key)
			}
			var cfgErr *ConfigurationError
			if !asConfigurationError(err, &cfgErr) {
				t.Errorf("SetExtraCredential(%q) error = %v, want *ConfigurationError", test.key, err)
			}
		})
	}
}

func TestClientSessionSetExtraCredentialRejectsBeforeApplyingAny(t *testing.T) {
	session := NewClientSession("memory", "default", "test", "alice")
	session.SetExtraCredential([]ExtraCredential{{Key: "good", Value: "1"}})

	err := session.SetExtraCredential([]ExtraCredential{
		{Key: "good2", Value: "2"},
		{Key: "bad key", Value: "3"},
	})
	if err == nil {
		t.Fatal("expected error for malformed second key")
	}

	if got := session.ExtraCredential(); len(got) != 1 || got[0].Key != "good" {
		t.Errorf("ExtraCredential() = %#v, want unchanged original set", got)
	}
}

func asConfigurationError(err error, target **ConfigurationError) bool {
	if cfgErr, ok := err.(*ConfigurationError); ok {
		*target = cfgErr
		return true
	}
	return false
}
