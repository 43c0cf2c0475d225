package capability

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxBody caps how much of any upstream response is read into memory.
const maxBody = 32 << 20

// upstreamError keeps the status and a trimmed body for logs.
type upstreamError struct {
	Op     string
	Status int
	Body   string
}

func (e *upstreamError) Error() string {
	return fmt.Sprintf("%s failed: status %d: %s", e.Op, e.Status, e.Body)
}

func do(ctx context.Context, client *http.Client, method, url string, headers map[string]string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return client.Do(req)
}

// doJSON sends the request and decodes a 2xx JSON body into out.
func doJSON(ctx context.Context, client *http.Client, op, method, url string, headers map[string]string, body io.Reader, out any) error {
	resp, err := do(ctx, client, method, url, headers, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	if err := checkStatus(op, resp); err != nil {
		return err
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func checkStatus(op string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return &upstreamError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
}
