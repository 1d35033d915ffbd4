package api

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/lumagen/lumagen/internal/errs"
	"github.com/lumagen/lumagen/internal/imagefile"
)

// Generate creates images from a text prompt.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*ImagesResponse, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, errs.New(errs.KindFormat, "prompt is required")
	}
	if req.Resolution != "" && req.AspectRatio != "" {
		return nil, errs.New(errs.KindFormat, "resolution and aspect ratio are mutually exclusive")
	}

	var out ImagesResponse
	if err := c.postJSON(ctx, "/generate", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Edit regenerates the masked region of an image according to the prompt.
func (c *Client) Edit(ctx context.Context, req EditRequest) (*ImagesResponse, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, errs.New(errs.KindFormat, "prompt is required")
	}

	return c.imagesMultipart(ctx, "/edit", func(w *multipart.Writer) error {
		if err := attachImage(w, "image", req.Image); err != nil {
			return err
		}
		if err := attachImage(w, "mask", req.Mask); err != nil {
			return err
		}
		if err := w.WriteField("prompt", req.Prompt); err != nil {
			return err
		}
		if req.Style != "" {
			if err := w.WriteField("style_type", string(req.Style)); err != nil {
				return err
			}
		}
		if req.Seed != nil {
			if err := w.WriteField("seed", strconv.Itoa(*req.Seed)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Remix regenerates an image guided by a prompt.
func (c *Client) Remix(ctx context.Context, req RemixRequest) (*ImagesResponse, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, errs.New(errs.KindFormat, "prompt is required")
	}
	if req.ImageWeight < 0 || req.ImageWeight > 100 {
		return nil, errs.Newf(errs.KindFormat, "image weight must be 0-100, got %d", req.ImageWeight)
	}

	return c.imagesMultipart(ctx, "/remix", func(w *multipart.Writer) error {
		if err := attachImage(w, "image", req.Image); err != nil {
			return err
		}
		if err := w.WriteField("prompt", req.Prompt); err != nil {
			return err
		}
		if req.ImageWeight > 0 {
			if err := w.WriteField("image_weight", strconv.Itoa(req.ImageWeight)); err != nil {
				return err
			}
		}
		if req.Style != "" {
			if err := w.WriteField("style_type", string(req.Style)); err != nil {
				return err
			}
		}
		if req.Resolution != "" {
			if err := w.WriteField("resolution", string(req.Resolution)); err != nil {
				return err
			}
		}
		if req.Seed != nil {
			if err := w.WriteField("seed", strconv.Itoa(*req.Seed)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Reframe extends a square image to a new resolution. The square check runs
// locally first; rejecting early saves a wasted paid API call.
func (c *Client) Reframe(ctx context.Context, req ReframeRequest) (*ImagesResponse, error) {
	if req.Resolution == "" {
		return nil, errs.New(errs.KindFormat, "target resolution is required")
	}
	if err := imagefile.AssertSquare(req.Image); err != nil {
		return nil, err
	}

	return c.imagesMultipart(ctx, "/reframe", func(w *multipart.Writer) error {
		if err := attachImage(w, "image", req.Image); err != nil {
			return err
		}
		return w.WriteField("resolution", string(req.Resolution))
	})
}

// Describe captions an image.
func (c *Client) Describe(ctx context.Context, req DescribeRequest) (*DescribeResponse, error) {
	body, contentType, err := buildMultipart(func(w *multipart.Writer) error {
		return attachImage(w, "image", req.Image)
	})
	if err != nil {
		return nil, err
	}

	var out DescribeResponse
	if err := c.postMultipart(ctx, "/describe", contentType, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Upscale increases an image's resolution.
func (c *Client) Upscale(ctx context.Context, req UpscaleRequest) (*ImagesResponse, error) {
	if req.Detail < 0 || req.Detail > 100 || req.Resemblance < 0 || req.Resemblance > 100 {
		return nil, errs.New(errs.KindFormat, "detail and resemblance must be 0-100")
	}

	return c.imagesMultipart(ctx, "/upscale", func(w *multipart.Writer) error {
		if err := attachImage(w, "image", req.Image); err != nil {
			return err
		}
		if req.Prompt != "" {
			if err := w.WriteField("prompt", req.Prompt); err != nil {
				return err
			}
		}
		if req.Detail > 0 {
			if err := w.WriteField("detail", strconv.Itoa(req.Detail)); err != nil {
				return err
			}
		}
		if req.Resemblance > 0 {
			if err := w.WriteField("resemblance", strconv.Itoa(req.Resemblance)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (c *Client) imagesMultipart(ctx context.Context, path string, build func(*multipart.Writer) error) (*ImagesResponse, error) {
	body, contentType, err := buildMultipart(build)
	if err != nil {
		return nil, err
	}

	var out ImagesResponse
	if err := c.postMultipart(ctx, path, contentType, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func buildMultipart(build func(*multipart.Writer) error) (*bytes.Buffer, string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if err := build(w); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", errs.Wrap(errs.KindFormat, "failed to finalize request body", err)
	}
	return &body, w.FormDataContentType(), nil
}

// attachImage adds validated image bytes as a file part. Only bytes that pass
// signature sniffing are ever attached; the part's content type and filename
// come from the detected format.
func attachImage(w *multipart.Writer, field string, data []byte) error {
	format, err := imagefile.Sniff(data)
	if err != nil {
		return err
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name=%q; filename=%q`, field, field+"."+format.Ext()))
	header.Set("Content-Type", format.MIME())

	part, err := w.CreatePart(header)
	if err != nil {
		return errs.Wrap(errs.KindFormat, "failed to build request body", err)
	}
	if _, err := part.Write(data); err != nil {
		return errs.Wrap(errs.KindFormat, "failed to build request body", err)
	}
	return nil
}
