package httpapi

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"diffusiond/pkg/types"
)

// handleOpenAIImages godoc
// @Summary      OpenAI-compatible image generation
// @Description  Accepts an OpenAI images request. Only n=1 and response_format=b64_json are supported; size is snapped to the model family. OpenAI model names (dall-e-*, gpt-image-*) and an empty model select the default catalog entry; any other unknown model is 404.
// @Tags         generate
// @Accept       json
// @Produce      json
// @Success      200  {object}  map[string]any
// @Failure      400  {object}  types.ErrorResponse
// @Failure      404  {object}  types.ErrorResponse
// @Router       /v1/images/generations [post]
func handleOpenAIImages(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req openai.ImageRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Prompt) == "" {
			writeJSONError(w, http.StatusBadRequest, "prompt is required")
			return
		}
		if req.N > 1 {
			writeJSONError(w, http.StatusBadRequest, "only n=1 is supported")
			return
		}
		if req.ResponseFormat != "" && req.ResponseFormat != openai.CreateImageResponseFormatB64JSON {
			writeJSONError(w, http.StatusBadRequest, "only response_format=b64_json is supported")
			return
		}
		width, height, err := parseImageSize(req.Size)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		res, ok := runGenerate(w, r, svc, "openai", types.GenerateRequest{
			Model:  catalogModel(req.Model),
			Prompt: req.Prompt,
			Width:  width,
			Height: height,
		})
		if !ok {
			return
		}
		writeJSON(w, openai.ImageResponse{
			Created: time.Now().Unix(),
			Data: []openai.ImageResponseDataInner{{
				B64JSON:       base64.StdEncoding.EncodeToString(res.PNG),
				RevisedPrompt: res.Caption,
			}},
		})
	}
}

// openAIModelPrefixes name OpenAI's hosted image models. Stock clients send
// one of these by default.
var openAIModelPrefixes = []string{"dall-e", "gpt-image"}

// catalogModel maps OpenAI model names to the default catalog entry and
// passes everything else through for the catalog to resolve.
func catalogModel(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, p := range openAIModelPrefixes {
		if strings.HasPrefix(n, p) {
			return ""
		}
	}
	return name
}

// parseImageSize reads "WIDTHxHEIGHT". Empty selects the model default.
func parseImageSize(s string) (int, int, error) {
	if s == "" {
		return 0, 0, nil
	}
	ws, hs, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, fmt.Errorf("invalid size %q: want WIDTHxHEIGHT", s)
	}
	w, err1 := strconv.Atoi(ws)
	h, err2 := strconv.Atoi(hs)
	if err1 != nil || err2 != nil || w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("invalid size %q: want WIDTHxHEIGHT", s)
	}
	return w, h, nil
}
