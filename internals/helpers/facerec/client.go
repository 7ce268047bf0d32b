package facerec

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"absensiku_backend/internals/configs"
)

/*
Client: wrapper tipis di atas API pengenalan wajah remote (HTTP/JSON).

Kontrak endpoint:
  POST   /collections                      — buat collection (409 = sudah ada, bukan error)
  POST   /collections/{id}/search          — cari wajah terbaik di collection
  POST   /collections/{id}/faces           — index wajah baru (enrollment)
  DELETE /collections/{id}/faces/{face_id} — hapus wajah ter-index
  POST   /compare                          — bandingkan dua gambar
*/
type Client struct {
	BaseURL      string
	APIKey       string
	CollectionID string

	httpc *http.Client

	// guard "collection ready" per-instance — bukan global proses,
	// supaya beberapa client (mis. di test) tidak saling ganggu.
	mu              sync.Mutex
	collectionReady bool
}

func NewClient(baseURL, apiKey, collectionID string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		APIKey:       apiKey,
		CollectionID: collectionID,
		httpc:        &http.Client{Timeout: timeout},
	}
}

func NewClientFromEnv() *Client {
	return NewClient(
		configs.FaceAPIBaseURL,
		configs.FaceAPIKey,
		configs.FaceCollectionID,
		time.Duration(configs.GetEnvInt("FACE_API_TIMEOUT_SECONDS", 30))*time.Second,
	)
}

/* =======================================================================
   EnsureCollection — idempotent, sekali per lifetime proses
======================================================================= */

func (c *Client) EnsureCollection(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.collectionReady {
		return nil
	}

	body := map[string]string{"collection_id": c.CollectionID}
	status, respBody, err := c.do(ctx, http.MethodPost, "/collections", body)
	if err != nil {
		return err
	}
	switch {
	case status == http.StatusOK, status == http.StatusCreated:
		log.Printf("[FACEREC] collection %s dibuat", c.CollectionID)
	case status == http.StatusConflict,
		strings.Contains(strings.ToLower(string(respBody)), "already exists"):
		// sudah ada → sukses
	default:
		return mapServiceError(status, respBody)
	}

	c.collectionReady = true
	return nil
}

/* =======================================================================
   SearchFace — kandidat terbaik di atas threshold, atau nil
======================================================================= */

func (c *Client) SearchFace(ctx context.Context, image []byte, threshold float64) (*Candidate, error) {
	if err := c.EnsureCollection(ctx); err != nil {
		return nil, err
	}

	body := map[string]any{
		"image":          base64.StdEncoding.EncodeToString(image),
		"max_candidates": 1,
		"threshold":      threshold,
	}
	status, respBody, err := c.do(ctx, http.MethodPost, "/collections/"+c.CollectionID+"/search", body)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		// tidak ada wajah cocok — hasil kosong yang normal
		return nil, nil
	}
	if status >= 400 {
		if isNoFaceBody(respBody) {
			// foto tanpa wajah → hasil kosong juga, bukan error
			return nil, nil
		}
		return nil, mapServiceError(status, respBody)
	}

	var out struct {
		Candidates []Candidate `json:"candidates"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("%w: decode search response: %v", ErrServiceUnavailable, err)
	}
	if len(out.Candidates) == 0 {
		return nil, nil
	}
	best := out.Candidates[0]
	if best.Similarity < threshold {
		return nil, nil
	}
	return &best, nil
}

/* =======================================================================
   CompareFaces — similarity source vs target
======================================================================= */

func (c *Client) CompareFaces(ctx context.Context, source, target ImagePointer, threshold float64) (CompareResult, error) {
	body := map[string]any{
		"source":    encodePointer(source),
		"target":    encodePointer(target),
		"threshold": threshold,
	}
	status, respBody, err := c.do(ctx, http.MethodPost, "/compare", body)
	if err != nil {
		return CompareResult{}, err
	}
	if status >= 400 {
		if isNoFaceBody(respBody) {
			return CompareResult{}, ErrNoFaceDetected
		}
		return CompareResult{}, mapServiceError(status, respBody)
	}

	var out struct {
		Similarity float64 `json:"similarity"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return CompareResult{}, fmt.Errorf("%w: decode compare response: %v", ErrServiceUnavailable, err)
	}
	return CompareResult{
		Similarity: out.Similarity,
		Threshold:  threshold,
		Matched:    out.Similarity >= threshold,
	}, nil
}

/* =======================================================================
   IndexFace — enrollment
======================================================================= */

func (c *Client) IndexFace(ctx context.Context, image []byte, externalID string) (IndexResult, error) {
	if err := c.EnsureCollection(ctx); err != nil {
		return IndexResult{}, err
	}

	body := map[string]any{
		"image":       base64.StdEncoding.EncodeToString(image),
		"external_id": externalID,
	}
	status, respBody, err := c.do(ctx, http.MethodPost, "/collections/"+c.CollectionID+"/faces", body)
	if err != nil {
		return IndexResult{}, err
	}
	if status >= 400 {
		if isNoFaceBody(respBody) {
			return IndexResult{}, ErrNoFaceDetected
		}
		return IndexResult{}, mapServiceError(status, respBody)
	}

	var out IndexResult
	if err := json.Unmarshal(respBody, &out); err != nil {
		return IndexResult{}, fmt.Errorf("%w: decode index response: %v", ErrServiceUnavailable, err)
	}
	if out.FaceID == "" {
		return IndexResult{}, ErrNoFaceDetected
	}
	return out, nil
}

/* =======================================================================
   DeleteFace — idempotent
======================================================================= */

func (c *Client) DeleteFace(ctx context.Context, faceID string) error {
	if strings.TrimSpace(faceID) == "" {
		return nil
	}
	status, respBody, err := c.do(ctx, http.MethodDelete, "/collections/"+c.CollectionID+"/faces/"+faceID, nil)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		// sudah tidak ada → no-op
		return nil
	}
	if status >= 400 {
		return mapServiceError(status, respBody)
	}
	return nil
}

/* =======================================================================
   Transport & error mapping
======================================================================= */

func (c *Client) do(ctx context.Context, method, path string, body any) (int, []byte, error) {
	if c.BaseURL == "" {
		return 0, nil, fmt.Errorf("%w: FACE_API_BASE_URL belum diset", ErrServiceUnavailable)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return 0, nil, fmt.Errorf("%w: timeout", ErrServiceUnavailable)
		}
		return 0, nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	return resp.StatusCode, respBody, nil
}

func encodePointer(p ImagePointer) map[string]string {
	if p.URL != "" {
		// backend object-store → service fetch langsung, tanpa round-trip lokal
		return map[string]string{"url": p.URL}
	}
	return map[string]string{"image": base64.StdEncoding.EncodeToString(p.Bytes)}
}

func isNoFaceBody(body []byte) bool {
	s := strings.ToLower(string(body))
	return strings.Contains(s, "no_face") || strings.Contains(s, "no face")
}

func mapServiceError(status int, body []byte) error {
	switch status {
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusNotFound:
		return ErrCollectionNotFound
	default:
		return fmt.Errorf("%w: status %d", ErrServiceUnavailable, status)
	}
}
