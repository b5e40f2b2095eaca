package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const DefaultTimeout = 30 * time.Second

var ErrEmptyEmbedding = errors.New("embedder returned empty embedding")

// Client talks to the image embedding service: POST /embed {"imageUrl"} -> {"embedding":[...]}.
type Client struct {
	baseURL string
	httpc   *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8001"
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
	}
}

type embedReq struct {
	ImageURL string `json:"imageUrl"`
}

type embedResp struct {
	Embedding []float32 `json:"embedding"`
	Error     string    `json:"error,omitempty"`
}

func (c *Client) Embed(ctx context.Context, imageURL string) ([]float32, error) {
	body, err := json.Marshal(embedReq{ImageURL: imageURL})
	if err != nil {
		return nil, errors.Wrap(err, "marshal embed request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "new request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	var r embedResp
	decErr := json.NewDecoder(resp.Body).Decode(&r)

	if resp.StatusCode/100 != 2 {
		if decErr == nil && r.Error != "" {
			return nil, fmt.Errorf("embedder http %d: %s", resp.StatusCode, r.Error)
		}
		return nil, fmt.Errorf("embedder http %d", resp.StatusCode)
	}
	if decErr != nil {
		return nil, errors.Wrap(decErr, "decode")
	}
	if len(r.Embedding) == 0 {
		return nil, ErrEmptyEmbedding
	}
	return r.Embedding, nil
}
