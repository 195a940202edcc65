package web

import (
	"encoding/base64"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxProxyImageBytes bounds how much of a remote image the proxy will
// fetch.
const maxProxyImageBytes = 20 << 20

// ImageProxy fetches a remote image on the client's behalf and hands it
// back as a data URI, so the browser never talks to third-party hosts
// directly.
type ImageProxy struct {
	client *http.Client
}

func NewImageProxy(timeout time.Duration) *ImageProxy {
	return &ImageProxy{client: &http.Client{Timeout: timeout}}
}

func (p *ImageProxy) Handle(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	if raw == "" {
		http.Error(w, "missing url parameter", http.StatusBadRequest)
		return
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		http.Error(w, "only http and https urls are allowed", http.StatusBadRequest)
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, u.String(), nil)
	if err != nil {
		http.Error(w, "invalid url", http.StatusBadRequest)
		return
	}
	resp, err := p.client.Do(req)
	if err != nil {
		http.Error(w, "failed to fetch image", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		http.Error(w, "upstream returned "+resp.Status, http.StatusBadGateway)
		return
	}
	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		http.Error(w, "url does not point to an image", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProxyImageBytes))
	if err != nil {
		http.Error(w, "failed to read image", http.StatusBadGateway)
		return
	}

	dataURL := "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(body)
	writeJSON(w, http.StatusOK, map[string]string{"dataUrl": dataURL})
}
