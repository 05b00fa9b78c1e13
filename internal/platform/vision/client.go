// Package vision talks to the Gemini image analysis API. The rest of the
// system only ever sees a clean []Candidate or an error from the apperr
// taxonomy; the fenced-markdown quirks of the raw reply stay in here.
package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"

	"library-backend/internal/platform/apperr"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	defaultModel   = "gemini-1.5-flash"
	defaultTimeout = 30 * time.Second

	shelfPrompt = `Analyze this library shelf image and extract book information.
For each book visible, provide:
1. Title (exact text from spine)
2. Row number (starting from 1 at top)
3. Column number (starting from 1 at left)

Return ONLY a valid JSON array in this exact format:
[{"title": "Book Title", "row": 1, "col": 1}]

If no books are clearly visible, return: []`
)

// Candidate is one detected book spine with its shelf coordinates.
type Candidate struct {
	Title string `json:"title"`
	Row   int    `json:"row"`
	Col   int    `json:"col"`
}

type Client struct {
	apiKey  string
	model   string
	baseURL string
	hc      *http.Client
}

func NewClient(apiKey, model string) *Client {
	if model == "" {
		model = defaultModel
	}
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		hc:      &http.Client{Timeout: defaultTimeout},
	}
}

// NewClientWithBaseURL is for tests against a stub server.
func NewClientWithBaseURL(apiKey, model, baseURL string) *Client {
	c := NewClient(apiKey, model)
	c.baseURL = baseURL
	return c
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateReply struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// AnalyzeShelf sends the image to the model and returns the detected titles.
// Transport and API failures come back as EXTERNAL_SERVICE; a reply that is
// not JSON at all comes back as PARSE_ERROR.
func (c *Client) AnalyzeShelf(ctx context.Context, image []byte, mimeType string) ([]Candidate, error) {
	if len(image) == 0 {
		return nil, apperr.ErrInvalid("image is empty")
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	reqBody := generateRequest{
		Contents: []content{{
			Parts: []part{
				{Text: shelfPrompt},
				{InlineData: &inlineData{
					MimeType: mimeType,
					Data:     base64.StdEncoding.EncodeToString(image),
				}},
			},
		}},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, apperr.ErrExternal("image analysis request failed: " + err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperr.ErrExternal(fmt.Sprintf("image analysis service returned %s", resp.Status))
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, apperr.ErrExternal("read image analysis reply: " + err.Error())
	}

	var reply generateReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, apperr.ErrExternal("malformed image analysis envelope")
	}

	text := ""
	if len(reply.Candidates) > 0 && len(reply.Candidates[0].Content.Parts) > 0 {
		text = reply.Candidates[0].Content.Parts[0].Text
	}
	return ParseCandidates(text)
}
