package trino

import (
	"net/http"
	"strings"
	"sync"

	"github.com/jcmturner/gokrb5/v8/client"
	"github.com/jcmturner/gokrb5/v8/config"
	"github.com/jcmturner/gokrb5/v8/keytab"
	"github.com/jcmturner/gokrb5/v8/spnego"
)

// KerberosAuth attaches a SPNEGO negotiation header, built from a logged
// in Kerberos client, to every outbound request. It is the concrete
// implementation behind the "Kerberos/OAuth handshake details" the core
// treats as an installable capability (spec §1, §9).
type KerberosAuth struct {
	mu  sync.Mutex
	krb *client.Client
	// SPN is the service principal name of the coordinator, e.g.
	// "HTTP/trino.example.com".
	SPN string
}

// NewKerberosAuthFromKeytab builds a KerberosAuth that authenticates as
// principal@realm using a keytab file, per a krb5.conf configuration.
func NewKerberosAuthFromKeytab(krb5ConfPath, keytabPath, principal, realm, spn string) (*KerberosAuth, error) {
	cfg, err := config.Load(krb5ConfPath)
	if err != nil {
		return nil, NewConfigurationError("loading krb5.conf: " + err.Error())
	}
	kt, err := keytab.Load(keytabPath)
	if err != nil {
		return nil, NewConfigurationError("loading keytab: " + err.Error())
	}
	krb := client.NewWithKeytab(principal, realm, kt, cfg, client.DisablePAFXFAST(true))
	if err := krb.Login(); err != nil {
		return nil, NewConfigurationError("kerberos login: " + err.Error())
	}
	return &KerberosAuth{krb: krb, SPN: spn}, nil
}

// AttachToHTTPClient wraps client's transport to set the SPNEGO
// Authorization header on every request, re-logging in and retrying the
// handshake once if the ticket has expired.
func (a *KerberosAuth) AttachToHTTPClient(httpClient *http.Client) error {
	base := httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	httpClient.Transport = roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		reqCopy := req.Clone(req.Context())

		a.mu.Lock()
		err := spnego.SetSPNEGOHeader(a.krb, reqCopy, a.SPN)
		if err != nil && isExpiredTicket(err) {
			if loginErr := a.krb.Login(); loginErr == nil {
				err = spnego.SetSPNEGOHeader(a.krb, reqCopy, a.SPN)
			}
		}
		a.mu.Unlock()

		if err != nil {
			return nil, NewConfigurationError("kerberos SPNEGO negotiation: " + err.Error())
		}
		return base.RoundTrip(reqCopy)
	})
	return nil
}

// IsTransientError reports whether err looks like an expired-ticket
// condition RetryPolicy should retry (after AttachToHTTPClient's own
// relogin attempt above has already run on the next call).
func (a *KerberosAuth) IsTransientError(err error) bool {
	return err != nil && isExpiredTicket(err)
}

func isExpiredTicket(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "expired") || strings.Contains(msg, "clock skew")
}
