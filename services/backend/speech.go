package backend

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"

	"convokit/core"
	"convokit/services"
)

type speechRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// Synthesize posts {text, language} to /tts and returns the audio body.
func (c *Client) Synthesize(ctx context.Context, text string, languageTag string) (core.AudioClip, error) {
	resp, err := c.postJSON(ctx, "tts", c.config.SpeechURL+"/tts", speechRequest{Text: text, Language: languageTag})
	if err != nil {
		return core.AudioClip{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return core.AudioClip{}, fmt.Errorf("read tts response: %w", err)
	}
	if len(data) == 0 {
		return core.AudioClip{}, &services.PayloadError{Op: "tts", Reason: "empty audio body"}
	}
	return core.AudioClip{Data: data, MediaType: mediaType(resp.Header, data)}, nil
}

func mediaType(header http.Header, data []byte) core.MediaType {
	if ct, _, err := mime.ParseMediaType(header.Get("Content-Type")); err == nil {
		switch ct {
		case "audio/wav", "audio/x-wav", "audio/wave":
			return core.MediaTypeAudioWAV
		case "audio/ogg":
			return core.MediaTypeAudioOGG
		case "audio/mpeg", "audio/mp3":
			return core.MediaTypeAudioMP3
		}
	}
	switch http.DetectContentType(data) {
	case "audio/wave":
		return core.MediaTypeAudioWAV
	case "application/ogg":
		return core.MediaTypeAudioOGG
	}
	return core.MediaTypeAudioMP3
}

func newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return req, nil
}
