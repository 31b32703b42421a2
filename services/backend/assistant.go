package backend

import (
	"context"
	"io"
	"mime/multipart"
	"strings"

	"convokit/core"
	"convokit/services"
)

type chatRequest struct {
	Message  string `json:"message"`
	Language string `json:"language"`
}

type chatResponse struct {
	Response string `json:"response"`
}

type uploadResponse struct {
	Message any `json:"message"`
}

// Respond posts one message to /chat. The backend expects the language display name.
func (c *Client) Respond(ctx context.Context, message string, language core.Language) (string, error) {
	resp, err := c.postJSON(ctx, "chat", c.config.ChatURL+"/chat", chatRequest{
		Message:  message,
		Language: string(language),
	})
	if err != nil {
		return "", err
	}
	var out chatResponse
	if err := decode("chat", resp, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.Response) == "" {
		return "", &services.PayloadError{Op: "chat", Reason: "response field missing or empty"}
	}
	return out.Response, nil
}

// Upload streams content to /upload as the multipart "file" field.
func (c *Client) Upload(ctx context.Context, name string, content io.Reader, language core.Language) (string, error) {
	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	written := make(chan struct{})
	go func() {
		defer close(written)
		pw.CloseWithError(writeUploadForm(form, name, content, language))
	}()
	// The caller may close content once Upload returns, so the form writer has to be done with it.
	defer func() {
		pr.Close()
		<-written
	}()

	req, err := newRequest(ctx, "POST", c.config.ChatURL+"/upload", pr)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.do("upload", req)
	if err != nil {
		return "", err
	}
	var out uploadResponse
	if err := decode("upload", resp, &out); err != nil {
		return "", err
	}
	message, ok := truthy(out.Message)
	if !ok {
		return "", &services.PayloadError{Op: "upload", Reason: "backend did not acknowledge the file"}
	}
	return message, nil
}

func writeUploadForm(form *multipart.Writer, name string, content io.Reader, language core.Language) error {
	part, err := form.CreateFormFile("file", name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, content); err != nil {
		return err
	}
	if err := form.WriteField("language", string(language)); err != nil {
		return err
	}
	return form.Close()
}

// truthy mirrors the acknowledgement check the backend's own front-end applies.
func truthy(v any) (string, bool) {
	switch m := v.(type) {
	case string:
		return m, m != ""
	case bool:
		return "", m
	case float64:
		return "", m != 0
	case nil:
		return "", false
	default:
		return "", true
	}
}
