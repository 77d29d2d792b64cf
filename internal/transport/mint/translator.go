// Package mint is a client for the Wikimedia MinT machine-translation API
// used on the fallback-language path.
package mint

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/semref/wdsearch/internal/domain"
	"github.com/semref/wdsearch/internal/metrics"
)

const defaultBaseURL = "https://cxserver.wikimedia.org"

// Translator translates query text into the pivot language.
type Translator struct {
	httpClient *http.Client
	baseURL    string
	logger     *zap.Logger
}

// Config holds the translation provider settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewTranslator creates a MinT translation client.
func NewTranslator(cfg *Config) *Translator {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Translator{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     cfg.Logger,
	}
}

var tagStripper = regexp.MustCompile(`<[^>]*>`)

// Translate translates text from src into dst. The call is retried once on
// transport or server errors; persistent failure is classified as
// domain.ErrRetrievalUnavailable.
func (t *Translator) Translate(ctx context.Context, text, src, dst string) (string, error) {
	var lastErr error

	for attempt := 0; attempt < 2; attempt++ {
		out, err := t.translateOnce(ctx, text, src, dst)
		if err == nil {
			metrics.TranslationRequestsTotal.WithLabelValues("success").Inc()
			return out, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		if t.logger != nil && attempt == 0 {
			t.logger.Warn("translation request failed, retrying once",
				zap.String("src", src), zap.Error(err))
		}
	}

	metrics.TranslationRequestsTotal.WithLabelValues("error").Inc()
	return "", fmt.Errorf("translate %s->%s: %v: %w", src, dst, lastErr, domain.ErrRetrievalUnavailable)
}

func (t *Translator) translateOnce(ctx context.Context, text, src, dst string) (string, error) {
	endpoint := fmt.Sprintf("%s/v2/translate/%s/%s/MinT",
		t.baseURL, url.PathEscape(src), url.PathEscape(dst))

	form := url.Values{}
	form.Set("html", "<p>"+text+"</p>")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("translation API status %d: %s", resp.StatusCode, string(body))
	}

	var parsed struct {
		Contents string `json:"contents"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	out := strings.TrimSpace(tagStripper.ReplaceAllString(parsed.Contents, ""))
	if out == "" {
		return "", fmt.Errorf("empty translation")
	}
	return out, nil
}
