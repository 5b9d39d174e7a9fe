package tlstrust

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net"
	"os/exec"
	"time"
)

// TrustDecision is the payload handed to the trust-confirmation helper:
// the server's certificate chain as raw DER blobs, the numeric trust
// error bucket, and the server hostname.
type TrustDecision struct {
	CertificateChain [][]byte `json:"certificate_chain"`
	TrustError       int32    `json:"trust_error"`
	ErrorDetail      string   `json:"error_detail"`
	ServerHostName   string   `json:"server_host_name"`
}

// IConfirmer asks whether a certificate problem should be overridden.
type IConfirmer interface {
	Confirm(ctx context.Context, decision TrustDecision) (bool, error)
}

// HelperConfirmer runs a privileged helper process, writes the serialized
// decision payload to its standard input, and reads the answer from its
// exit status (0 = accept).
type HelperConfirmer struct {
	Path string
}

func (h *HelperConfirmer) Confirm(ctx context.Context, decision TrustDecision) (bool, error) {
	raw, err := json.Marshal(decision)
	if err != nil {
		return false, fmt.Errorf("encode trust decision failed, err:%w", err)
	}
	cmd := exec.CommandContext(ctx, h.Path)
	cmd.Stdin = bytes.NewReader(raw)
	if err := cmd.Run(); err != nil {
		if _, isExit := err.(*exec.ExitError); isExit {
			// non-zero exit status is a plain "no"
			return false, nil
		}
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return false, fmt.Errorf("run trust helper failed, err:%w", err)
	}
	return true, nil
}

// RefuseAllConfirmer answers no to everything; used when the mount runs
// with all UI suppressed.
type RefuseAllConfirmer struct{}

func (RefuseAllConfirmer) Confirm(ctx context.Context, decision TrustDecision) (bool, error) {
	return false, nil
}

// FetchPeerChain grabs the server's certificate chain with a throwaway
// unverified handshake so the confirmation payload can show the user what
// they are being asked to trust. Best effort: an empty chain is fine.
func FetchPeerChain(ctx context.Context, addr, serverName string) [][]byte {
	d := tls.Dialer{
		NetDialer: &net.Dialer{Timeout: 10 * time.Second},
		Config: &tls.Config{
			ServerName:         serverName,
			InsecureSkipVerify: true,
		},
	}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil
	}
	defer conn.Close()
	state := conn.(*tls.Conn).ConnectionState()
	chain := make([][]byte, 0, len(state.PeerCertificates))
	for _, c := range state.PeerCertificates {
		chain = append(chain, c.Raw)
	}
	return chain
}
