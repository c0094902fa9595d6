package trino

import (
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// Reserved outbound protocol headers (spec §6). Custom headers supplied on
// a ClientSession must not collide with these; per-request extra headers
// passed to RequestLayer.Post are merged over them and win.
const (
	HeaderCatalog         = "X-Trino-Catalog"
	HeaderSchema          = "X-Trino-Schema"
	HeaderSource          = "X-Trino-Source"
	HeaderUser            = "X-Trino-User"
	HeaderClientTags      = "X-Trino-Client-Tags"
	HeaderSession         = "X-Trino-Session"
	HeaderTransaction     = "X-Trino-Transaction-Id"
	HeaderExtraCredential = "X-Trino-Extra-Credential"

	HeaderSetSession            = "X-Trino-Set-Session"
	HeaderClearSession          = "X-Trino-Clear-Session"
	HeaderStartedTransactionID  = "X-Trino-Started-Transaction-Id"
	HeaderAddedPrepare          = "X-Trino-Added-Prepare"
	HeaderDeallocatedPrepare    = "X-Trino-Deallocated-Prepare"
)

var reservedHeaders = map[string]bool{
	strings.ToLower(HeaderCatalog):         true,
	strings.ToLower(HeaderSchema):          true,
	strings.ToLower(HeaderSource):          true,
	strings.ToLower(HeaderUser):            true,
	strings.ToLower(HeaderClientTags):      true,
	strings.ToLower(HeaderSession):         true,
	strings.ToLower(HeaderTransaction):     true,
	strings.ToLower(HeaderExtraCredential): true,
}

// HeaderCodec turns a ClientSession into outbound protocol headers and
// folds the coordinator's response directives back into it (spec §4.1).
type HeaderCodec struct{}

// Encode builds the baseline outbound headers for session. It returns a
// ConfigurationError if session.Headers collides with a reserved header
// name.
func (HeaderCodec) Encode(session *ClientSession) (http.Header, error) {
	h := http.Header{}

	if session.Catalog != "" {
		h.Set(HeaderCatalog, session.Catalog)
	}
	if session.Schema != "" {
		h.Set(HeaderSchema, session.Schema)
	}
	if session.Source != "" {
		h.Set(HeaderSource, session.Source)
	}
	if session.User != "" {
		h.Set(HeaderUser, session.User)
	}
	if len(session.ClientTags) > 0 {
		h.Set(HeaderClientTags, strings.Join(session.ClientTags, ","))
	}

	props := session.Properties()
	if len(props) > 0 {
		h.Set(HeaderSession, encodeSessionProperties(props))
	}

	h.Set(HeaderTransaction, session.TransactionID())

	cred := session.ExtraCredential()
	if len(cred) > 0 {
		parts := make([]string, 0, len(cred))
		for _, c := range cred {
			parts = append(parts, c.Key+"="+url.QueryEscape(c.Value))
		}
		h.Set(HeaderExtraCredential, strings.Join(parts, ","))
	}

	for key := range session.Headers {
		if reservedHeaders[strings.ToLower(key)] {
			return nil, NewConfigurationError("cannot override reserved HTTP header " + key)
		}
	}
	for key, value := range session.Headers {
		h.Set(key, value)
	}

	return h, nil
}

// encodeSessionProperties renders properties as "name=percent_encoded(value)"
// pairs joined by commas, in a stable (sorted) order so the encoding is
// deterministic and round-trips for testing purposes.
func encodeSessionProperties(props map[string]string) string {
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+"="+percentEncode(props[name]))
	}
	return strings.Join(parts, ",")
}

// percentEncode percent-encodes value the way Python's urllib.parse.quote
// does (space -> %20), unlike url.QueryEscape's application/x-www-form-
// urlencoded space -> '+' (spec §4.1, §6; original_source/trino/client.py:298).
func percentEncode(value string) string {
	return strings.ReplaceAll(url.QueryEscape(value), "+", "%20")
}

// DecodeSessionProperties parses a X-Trino-Session-shaped header value
// back into a name -> value map, percent-decoding each value. It is the
// inverse of encodeSessionProperties and is exported so tests (and
// callers replaying a request) can round-trip the header.
func DecodeSessionProperties(value string) (map[string]string, error) {
	out := map[string]string{}
	if value == "" {
		return out, nil
	}
	for _, kv := range splitAndTrim(value, ",") {
		if kv == "" {
			continue
		}
		name, encoded, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		decoded, err := url.QueryUnescape(strings.TrimSpace(encoded))
		if err != nil {
			return nil, err
		}
		out[strings.TrimSpace(name)] = decoded
	}
	return out, nil
}

func splitAndTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// ApplyResponseDirectives folds the inbound X-Trino-Clear-Session,
// X-Trino-Set-Session and X-Trino-Started-Transaction-Id headers into
// session. Clear is applied before Set, per spec §4.1's ordering tie-break.
func (HeaderCodec) ApplyResponseDirectives(session *ClientSession, header http.Header) error {
	if clear := header.Get(HeaderClearSession); clear != "" {
		for _, name := range splitAndTrim(clear, ",") {
			if name != "" {
				session.ClearProperty(name)
			}
		}
	}

	if set := header.Get(HeaderSetSession); set != "" {
		kvs, err := DecodeSessionProperties(set)
		if err != nil {
			return err
		}
		for name, value := range kvs {
			session.SetProperty(name, value)
		}
	}

	if started := header.Get(HeaderStartedTransactionID); started != "" {
		session.SetTransactionID(started)
	}

	return nil
}
