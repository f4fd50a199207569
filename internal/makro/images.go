package makro

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strings"

	"relist/internal/common"
)

// Image slots on a listing. The first uploaded image becomes the main photo.
const (
	imageTypeMain       = "MAIN"
	imageTypeAdditional = "ADDITIONAL"
)

// maxImageBytes caps a single image download.
const maxImageBytes = 10 << 20

// UploadImages fetches each media ref and uploads it to the listing. The
// first ref becomes the MAIN image, the rest ADDITIONAL. A failed ref aborts
// the upload; partially imaged listings are fixed by re-running, uploads of
// the same slot are overwrites on the API side.
func (c *Client) UploadImages(ctx context.Context, listingID string, mediaRefs []string) error {
	if listingID == "" {
		return fmt.Errorf("%w: listing ID", common.ErrInvalidInput)
	}

	if c.cfg.DryRun {
		slog.Info("Dry run: would upload images",
			"listing_id", listingID,
			"count", len(mediaRefs))
		return nil
	}

	for i, ref := range mediaRefs {
		imageType := imageTypeAdditional
		if i == 0 {
			imageType = imageTypeMain
		}
		if err := c.uploadImage(ctx, listingID, ref, imageType); err != nil {
			return fmt.Errorf("failed to upload image %d for listing %s: %w", i, listingID, err)
		}
	}
	return nil
}

func (c *Client) uploadImage(ctx context.Context, listingID, ref, imageType string) error {
	data, err := c.fetchImage(ctx, ref)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := writer.WriteField("type", imageType); err != nil {
		return fmt.Errorf("failed to write image type field: %w", err)
	}
	part, err := writer.CreateFormFile("image", path.Base(ref))
	if err != nil {
		return fmt.Errorf("failed to create image part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/seller/v1/listings/"+url.PathEscape(listingID)+"/images", &buf)
	if err != nil {
		return fmt.Errorf("failed to create image request: %w", err)
	}

	token, err := c.tokens.Token()
	if err != nil {
		return err
	}
	token.SetAuthHeader(req)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("image upload failed: %w", unwrapURLError(err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return c.statusError(resp)
	}
	return nil
}

// fetchImage downloads a media ref. Image CDNs redirect freely, so the fetch
// uses a plain client rather than the redirect-blocking API client.
func (c *Client) fetchImage(ctx context.Context, ref string) ([]byte, error) {
	if !strings.HasPrefix(ref, "http://") && !strings.HasPrefix(ref, "https://") {
		return nil, fmt.Errorf("%w: media ref %q is not a URL", common.ErrInvalidInput, ref)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create image fetch request: %w", err)
	}

	fetchClient := &http.Client{Timeout: c.cfg.timeout()}
	resp, err := fetchClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image %s: %w", ref, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image fetch returned %d for %s", resp.StatusCode, ref)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", ref, err)
	}
	return data, nil
}
