package cloud

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"regexp"

	"github.com/nerrad567/vuedl/internal/infrastructure/logging"
)

const dumpRule = "================================================================================"

var (
	redactHeader = regexp.MustCompile(`(?mi)^(authtoken|authorization):.*$`)
	redactSecret = regexp.MustCompile(`"(PASSWORD|IdToken|AccessToken|RefreshToken)"\s*:\s*"[^"]*"`)
)

// dumpTransport logs every exchange in full to whichever destination of
// logger accepts debug records, typically the diagnostic file.
type dumpTransport struct {
	next   http.RoundTripper
	logger *logging.Logger
}

func newDumpTransport(next http.RoundTripper, logger *logging.Logger) http.RoundTripper {
	if logger == nil {
		return next
	}
	return &dumpTransport{next: next, logger: logger}
}

func (t *dumpTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	if !t.logger.Enabled(ctx, slog.LevelDebug) {
		return t.next.RoundTrip(req)
	}

	if dump, err := httputil.DumpRequestOut(req, true); err == nil {
		t.log(ctx, "http request", dump)
	}

	resp, err := t.next.RoundTrip(req)
	if err != nil {
		t.logger.Debug("http exchange failed", "method", req.Method, "url", req.URL.Redacted(), "error", err)
		return nil, err
	}

	if dump, err := httputil.DumpResponse(resp, true); err == nil {
		t.log(ctx, "http response", dump)
	}
	return resp, nil
}

func (t *dumpTransport) log(ctx context.Context, msg string, dump []byte) {
	dump = redactHeader.ReplaceAll(dump, []byte("$1: [redacted]"))
	dump = redactSecret.ReplaceAll(dump, []byte(`"$1":"[redacted]"`))
	t.logger.DebugContext(ctx, msg, "dump", dumpRule+"\n"+string(dump)+"\n"+dumpRule)
}
