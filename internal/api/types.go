package api

import "strings"

// StylePreset selects the rendering style for generation.
type StylePreset string

const (
	StyleAuto      StylePreset = "AUTO"
	StyleGeneral   StylePreset = "GENERAL"
	StyleRealistic StylePreset = "REALISTIC"
	StyleDesign    StylePreset = "DESIGN"
	StyleAnime     StylePreset = "ANIME"
	StyleRender3D  StylePreset = "RENDER_3D"
)

var stylePresets = map[StylePreset]bool{
	StyleAuto: true, StyleGeneral: true, StyleRealistic: true,
	StyleDesign: true, StyleAnime: true, StyleRender3D: true,
}

// ParseStyle normalizes and validates a style preset name.
func ParseStyle(s string) (StylePreset, bool) {
	if s == "" {
		return StyleAuto, true
	}
	p := StylePreset(strings.ToUpper(s))
	return p, stylePresets[p]
}

// Resolution is an exact output size accepted by the generation API.
type Resolution string

const (
	Resolution512x512   Resolution = "RESOLUTION_512_512"
	Resolution768x768   Resolution = "RESOLUTION_768_768"
	Resolution1024x1024 Resolution = "RESOLUTION_1024_1024"
	Resolution1024x768  Resolution = "RESOLUTION_1024_768"
	Resolution768x1024  Resolution = "RESOLUTION_768_1024"
	Resolution1536x1024 Resolution = "RESOLUTION_1536_1024"
	Resolution1024x1536 Resolution = "RESOLUTION_1024_1536"
)

var resolutions = map[Resolution]bool{
	Resolution512x512: true, Resolution768x768: true, Resolution1024x1024: true,
	Resolution1024x768: true, Resolution768x1024: true,
	Resolution1536x1024: true, Resolution1024x1536: true,
}

// ParseResolution validates a resolution name; empty means "let the API pick".
func ParseResolution(s string) (Resolution, bool) {
	if s == "" {
		return "", true
	}
	r := Resolution(strings.ToUpper(s))
	return r, resolutions[r]
}

// AspectRatio is a named output proportion, mutually exclusive with Resolution.
type AspectRatio string

const (
	Aspect1x1  AspectRatio = "ASPECT_1_1"
	Aspect16x9 AspectRatio = "ASPECT_16_9"
	Aspect9x16 AspectRatio = "ASPECT_9_16"
	Aspect4x3  AspectRatio = "ASPECT_4_3"
	Aspect3x4  AspectRatio = "ASPECT_3_4"
	Aspect3x2  AspectRatio = "ASPECT_3_2"
	Aspect2x3  AspectRatio = "ASPECT_2_3"
)

var aspectRatios = map[AspectRatio]bool{
	Aspect1x1: true, Aspect16x9: true, Aspect9x16: true,
	Aspect4x3: true, Aspect3x4: true, Aspect3x2: true, Aspect2x3: true,
}

// ParseAspectRatio validates an aspect ratio name; empty is allowed.
func ParseAspectRatio(s string) (AspectRatio, bool) {
	if s == "" {
		return "", true
	}
	a := AspectRatio(strings.ToUpper(s))
	return a, aspectRatios[a]
}

// GenerateRequest describes one text-to-image call.
type GenerateRequest struct {
	Prompt         string      `json:"prompt"`
	NegativePrompt string      `json:"negative_prompt,omitempty"`
	Style          StylePreset `json:"style_type,omitempty"`
	Resolution     Resolution  `json:"resolution,omitempty"`
	AspectRatio    AspectRatio `json:"aspect_ratio,omitempty"`
	Seed           *int        `json:"seed,omitempty"`
	NumImages      int         `json:"num_images,omitempty"`
}

// EditRequest replaces the masked region of an image according to the prompt.
type EditRequest struct {
	Image  []byte
	Mask   []byte
	Prompt string
	Style  StylePreset
	Seed   *int
}

// RemixRequest regenerates an image guided by the prompt.
type RemixRequest struct {
	Image       []byte
	Prompt      string
	ImageWeight int // 1-100, how strongly the source image steers the output
	Style       StylePreset
	Resolution  Resolution
	Seed        *int
}

// ReframeRequest extends a square image to a new resolution.
type ReframeRequest struct {
	Image      []byte
	Resolution Resolution
}

// DescribeRequest captions an image.
type DescribeRequest struct {
	Image []byte
}

// UpscaleRequest increases image resolution.
type UpscaleRequest struct {
	Image       []byte
	Prompt      string
	Detail      int // 0-100
	Resemblance int // 0-100
}

// GeneratedImage is one output of any image-producing operation.
type GeneratedImage struct {
	URL        string `json:"url"`
	Prompt     string `json:"prompt"`
	Seed       int    `json:"seed"`
	Resolution string `json:"resolution"`
	StyleType  string `json:"style_type"`
	IsSafe     bool   `json:"is_image_safe"`
}

// ImagesResponse is the envelope shared by generate, edit, remix, reframe and
// upscale responses.
type ImagesResponse struct {
	Created string           `json:"created"`
	Data    []GeneratedImage `json:"data"`
}

// DescribeResponse carries caption text for a described image.
type DescribeResponse struct {
	Descriptions []struct {
		Text string `json:"text"`
	} `json:"descriptions"`
}

type apiErrorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
	Message string `json:"message"`
}

func (b apiErrorBody) detail() string {
	if b.Error.Message != "" {
		return b.Error.Message
	}
	return b.Message
}
